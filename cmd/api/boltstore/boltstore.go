package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/books-search/cmd/api/book"
	"go.uber.org/zap"
)

type Config struct {
	FilePath string
	Timeout  time.Duration
	Bucket   string
}

type Store struct {
	logger *zap.Logger
	client *bolt.DB
	bucket []byte
}

var _ book.Repository = (*Store)(nil)

// record is the JSON document stored under each key.
type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	ISBN string `json:"isbn"`
}

/* Opens the database file and makes sure the books bucket exists. */
func Open(config Config, logger *zap.Logger) (*Store, error) {
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.Bucket)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.Bucket, errB)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}

	logger.Info("opened bolt store", zap.String("path", config.FilePath), zap.String("bucket", config.Bucket))
	return &Store{logger: logger, client: db, bucket: []byte(config.Bucket)}, nil
}

func (bs *Store) Close() error {
	return bs.client.Close()
}

// itob encodes an ID big-endian so the cursor walks keys in ID order.
func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func (bs *Store) Save(_ context.Context, bookEntry book.Book) (book.Book, error) {
	var saved book.Book
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)

		var id int
		if bookEntry.ID != nil && b.Get(itob(*bookEntry.ID)) != nil {
			id = *bookEntry.ID
		} else {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			id = int(seq)
		}

		rec := record{ID: id, Name: bookEntry.Name, ISBN: bookEntry.ISBN}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err = b.Put(itob(id), data); err != nil {
			return err
		}
		saved = rec.toBook()
		return nil
	})
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on bolt: %w", err)
	}
	return saved, nil
}

func (bs *Store) FindByID(_ context.Context, id int) (book.Optional, error) {
	var found book.Optional
	err := bs.client.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bs.bucket).Get(itob(id))
		if data == nil {
			return nil
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		found = book.Of(rec.toBook())
		return nil
	})
	if err != nil {
		return book.Empty(), fmt.Errorf("searching by ID on bolt: %w", err)
	}
	return found, nil
}

func (bs *Store) DeleteByID(_ context.Context, id int) error {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).Delete(itob(id))
	})
	if err != nil {
		return fmt.Errorf("deleting book from bolt: %w", err)
	}
	return nil
}

func (bs *Store) FindAll(_ context.Context) ([]book.Book, error) {
	return bs.listBooks(func(record) bool { return true })
}

func (bs *Store) FindByName(_ context.Context, name string) ([]book.Book, error) {
	return bs.listBooks(func(r record) bool { return r.Name == name })
}

func (bs *Store) FindByIsbn(_ context.Context, isbn string) ([]book.Book, error) {
	return bs.listBooks(func(r record) bool { return r.ISBN == isbn })
}

func (bs *Store) FindByNameAndIsbn(_ context.Context, name, isbn string) ([]book.Book, error) {
	return bs.listBooks(func(r record) bool { return r.Name == name && r.ISBN == isbn })
}

/* Walks the bucket in key order and keeps the records accepted by match. */
func (bs *Store) listBooks(match func(record) bool) ([]book.Book, error) {
	books := []book.Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bs.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if match(rec) {
				books = append(books, rec.toBook())
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing books from bolt: %w", err)
	}
	return books, nil
}

func (r record) toBook() book.Book {
	return book.Book{Name: r.Name, ISBN: r.ISBN}.WithID(r.ID)
}
