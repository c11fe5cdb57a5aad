package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/books-search/cmd/api/book"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"go.uber.org/zap"

	_ "github.com/golang-migrate/migrate/v4/source/file"

	_ "github.com/lib/pq"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	exc *Executor
}

type Executor struct {
	DBTX
}

var _ book.Repository = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		exc: NewExc(db),
	}
}

func NewExc(dbtx DBTX) *Executor {
	return &Executor{DBTX: dbtx}
}

/* Returns a copy of the store whose statements run inside tx. */
func (store *Store) withTx(tx *sql.Tx) *Store {
	return &Store{db: store.db, exc: NewExc(tx)}
}

/* Connects to the database through a connection string and returns a pointer to a valid DB object (*sql.DB). */
func ConnectDb(connStr string, logger *zap.Logger) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, opening: %w", err)
	}

	err = sqlDB.Ping()
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connecting to db, pinging: %w", err)
	}

	logger.Info("connected to postgres")
	return sqlDB, nil
}

/* Applies every pending migration found under path. Having nothing to apply is not an error. */
func MigrationUp(store *Store, path string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(store.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", path),
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migrations already applied", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	logger.Info("migrations applied", zap.String("path", path))
	return nil
}

/*
Stores the book. A book without ID, or with an ID not present in the table,
is inserted under a new serial ID; otherwise the existing row is overwritten.
*/
func (store *Store) Save(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	if bookEntry.ID == nil {
		return store.insertBook(ctx, bookEntry)
	}

	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return book.Book{}, fmt.Errorf("saving book, beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	txStore := store.withTx(tx)
	saved, err := txStore.updateBook(ctx, bookEntry)
	if errors.Is(err, book.ErrBookNotFound) {
		saved, err = txStore.insertBook(ctx, bookEntry)
	}
	if err != nil {
		return book.Book{}, err
	}

	if err = tx.Commit(); err != nil {
		return book.Book{}, fmt.Errorf("saving book, committing: %w", err)
	}
	return saved, nil
}

func (store *Store) insertBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	INSERT INTO books (name, isbn)
	VALUES ($1, $2)
	RETURNING id, name, isbn`
	createdRow := store.exc.QueryRowContext(ctx, sqlStatement, bookEntry.Name, bookEntry.ISBN)
	bookToReturn, err := scanBook(createdRow)
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	return bookToReturn, nil
}

func (store *Store) updateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	UPDATE books
	SET name = $2, isbn = $3
	WHERE id = $1
	RETURNING id, name, isbn`
	updatedRow := store.exc.QueryRowContext(ctx, sqlStatement, *bookEntry.ID, bookEntry.Name, bookEntry.ISBN)
	bookToReturn, err := scanBook(updatedRow)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, fmt.Errorf("updating on db: %w", book.ErrBookNotFound)
		default:
			return book.Book{}, fmt.Errorf("updating on db: %w", err)
		}
	}

	return bookToReturn, nil
}

/* Searches a book in database based on ID. Absence is an empty result, not an error. */
func (store *Store) FindByID(ctx context.Context, id int) (book.Optional, error) {
	sqlStatement := `SELECT id, name, isbn
	FROM books
	WHERE id=$1;`
	foundRow := store.exc.QueryRowContext(ctx, sqlStatement, id)
	bookToReturn, err := scanBook(foundRow)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Empty(), nil
		default:
			return book.Empty(), fmt.Errorf("searching by ID: %w", err)
		}
	}

	return book.Of(bookToReturn), nil
}

func (store *Store) DeleteByID(ctx context.Context, id int) error {
	_, err := store.exc.ExecContext(ctx, `DELETE FROM books WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	return nil
}

func (store *Store) FindAll(ctx context.Context) ([]book.Book, error) {
	return store.listBooks(ctx, `SELECT id, name, isbn FROM books ORDER BY id;`)
}

func (store *Store) FindByName(ctx context.Context, name string) ([]book.Book, error) {
	return store.listBooks(ctx, `SELECT id, name, isbn FROM books WHERE name = $1 ORDER BY id;`, name)
}

func (store *Store) FindByIsbn(ctx context.Context, isbn string) ([]book.Book, error) {
	return store.listBooks(ctx, `SELECT id, name, isbn FROM books WHERE isbn = $1 ORDER BY id;`, isbn)
}

func (store *Store) FindByNameAndIsbn(ctx context.Context, name, isbn string) ([]book.Book, error) {
	return store.listBooks(ctx, `SELECT id, name, isbn FROM books WHERE name = $1 AND isbn = $2 ORDER BY id;`, name, isbn)
}

/* Returns the rows selected by sqlStatement as a list of books. */
func (store *Store) listBooks(ctx context.Context, sqlStatement string, args ...any) ([]book.Book, error) {
	rows, err := store.exc.QueryContext(ctx, sqlStatement, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	defer rows.Close()

	bookslist := []book.Book{}
	for rows.Next() {
		bookToReturn, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("listing books from db: %w", err)
		}
		bookslist = append(bookslist, bookToReturn)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	return bookslist, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (book.Book, error) {
	var id int
	var b book.Book
	if err := row.Scan(&id, &b.Name, &b.ISBN); err != nil {
		return book.Book{}, err
	}
	return b.WithID(id), nil
}
