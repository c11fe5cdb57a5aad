package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/books-search/cmd/api/book"
	"github.com/hashicorp/go-memdb"
)

const (
	booksTable    = "book"
	sequenceTable = "sequence"
	bookSequence  = "book_id"
)

type Store struct {
	db *memdb.MemDB
}

var _ book.Repository = (*Store)(nil)

func NewStore() (*Store, error) {
	// Define the schema
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			booksTable: {
				Name: booksTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
			sequenceTable: {
				Name: sequenceTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
		},
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("validating in-memory schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &Store{db: db}, nil
}

// storedBook is the row layout; memdb indexes need a plain int ID.
type storedBook struct {
	ID   int
	Name string
	ISBN string
}

type sequence struct {
	Name  string
	Value int
}

func toStored(id int, b book.Book) storedBook {
	return storedBook{ID: id, Name: b.Name, ISBN: b.ISBN}
}

func (s storedBook) toBook() book.Book {
	return book.Book{Name: s.Name, ISBN: s.ISBN}.WithID(s.ID)
}

/* Returns the next book ID. Must run inside a write transaction. */
func nextID(txn *memdb.Txn) (int, error) {
	raw, err := txn.First(sequenceTable, "id", bookSequence)
	if err != nil {
		return 0, err
	}
	seq := sequence{Name: bookSequence}
	if raw != nil {
		seq = raw.(sequence)
	}
	seq.Value++
	if err := txn.Insert(sequenceTable, seq); err != nil {
		return 0, err
	}
	return seq.Value, nil
}

func (store *Store) Save(_ context.Context, bookEntry book.Book) (book.Book, error) {
	txn := store.db.Txn(true)
	defer txn.Abort()

	var id int
	if bookEntry.ID != nil {
		raw, err := txn.First(booksTable, "id", *bookEntry.ID)
		if err != nil {
			return book.Book{}, fmt.Errorf("storing book on db: %w", err)
		}
		if raw != nil {
			id = *bookEntry.ID
		}
	}
	if id == 0 {
		var err error
		if id, err = nextID(txn); err != nil {
			return book.Book{}, fmt.Errorf("storing book on db, next id: %w", err)
		}
	}

	row := toStored(id, bookEntry)
	if err := txn.Insert(booksTable, row); err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}
	txn.Commit()

	return row.toBook(), nil
}

func (store *Store) FindByID(_ context.Context, id int) (book.Optional, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(booksTable, "id", id)
	if err != nil {
		return book.Empty(), fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return book.Empty(), nil
	}
	return book.Of(raw.(storedBook).toBook()), nil
}

func (store *Store) DeleteByID(_ context.Context, id int) error {
	txn := store.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(booksTable, "id", id); err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	txn.Commit()
	return nil
}

func (store *Store) FindAll(_ context.Context) ([]book.Book, error) {
	return store.listBooks(func(storedBook) bool { return true })
}

func (store *Store) FindByName(_ context.Context, name string) ([]book.Book, error) {
	return store.listBooks(func(b storedBook) bool { return b.Name == name })
}

func (store *Store) FindByIsbn(_ context.Context, isbn string) ([]book.Book, error) {
	return store.listBooks(func(b storedBook) bool { return b.ISBN == isbn })
}

func (store *Store) FindByNameAndIsbn(_ context.Context, name, isbn string) ([]book.Book, error) {
	return store.listBooks(func(b storedBook) bool { return b.Name == name && b.ISBN == isbn })
}

/* Returns every stored book accepted by match, ordered by ID. */
func (store *Store) listBooks(match func(storedBook) bool) ([]book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(booksTable, "id")
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	// The filter drops every row for which it returns true.
	filtered := memdb.NewFilterIterator(it, func(raw interface{}) bool {
		return !match(raw.(storedBook))
	})

	books := []book.Book{}
	for obj := filtered.Next(); obj != nil; obj = filtered.Next() {
		books = append(books, obj.(storedBook).toBook())
	}

	// The int index is varint encoded so iteration order is not numeric.
	sort.Slice(books, func(i, j int) bool {
		return *books[i].ID < *books[j].ID
	})
	return books, nil
}
