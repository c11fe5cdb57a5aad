package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/books-search/cmd/api/book"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxSaveRetries = 5

type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Key      string
}

// Store keeps every book as a JSON value in a single hash keyed by ID.
// New IDs come from an INCR counter stored next to the hash.
type Store struct {
	logger *zap.Logger
	client *redis.Client
	key    string
	seqKey string
}

var _ book.Repository = (*Store)(nil)

type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	ISBN string `json:"isbn"`
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(ctx context.Context, config Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})

	if pong, err := client.Ping(ctx).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func NewStore(client *redis.Client, key string, logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		client: client,
		key:    key,
		seqKey: key + ":seq",
	}
}

func (rs *Store) Close() error {
	return rs.client.Close()
}

/*
Writes the book under its ID when that ID is already stored, otherwise under a fresh
ID. The hash is watched so a concurrent delete forces a retry instead of a resurrection.
*/
func (rs *Store) Save(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	var saved book.Book
	txf := func(tx *redis.Tx) error {
		id, err := rs.resolveID(ctx, tx, bookEntry.ID)
		if err != nil {
			return err
		}
		rec := record{ID: id, Name: bookEntry.Name, ISBN: bookEntry.ISBN}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rs.key, strconv.Itoa(id), data)
			return nil
		})
		if err != nil {
			return err
		}
		saved = rec.toBook()
		return nil
	}

	for i := 0; i < maxSaveRetries; i++ {
		err := rs.client.Watch(ctx, txf, rs.key)
		if errors.Is(err, redis.TxFailedErr) {
			rs.logger.Debug("book hash changed during save, retrying", zap.Int("attempt", i+1))
			continue
		}
		if err != nil {
			return book.Book{}, fmt.Errorf("storing book on redis: %w", err)
		}
		return saved, nil
	}
	return book.Book{}, fmt.Errorf("storing book on redis: %w", redis.TxFailedErr)
}

func (rs *Store) resolveID(ctx context.Context, tx *redis.Tx, id *int) (int, error) {
	if id != nil {
		exists, err := tx.HExists(ctx, rs.key, strconv.Itoa(*id)).Result()
		if err != nil {
			return 0, err
		}
		if exists {
			return *id, nil
		}
	}
	next, err := rs.client.Incr(ctx, rs.seqKey).Result()
	if err != nil {
		return 0, err
	}
	return int(next), nil
}

func (rs *Store) FindByID(ctx context.Context, id int) (book.Optional, error) {
	data, err := rs.client.HGet(ctx, rs.key, strconv.Itoa(id)).Result()
	if err == redis.Nil {
		return book.Empty(), nil
	}
	if err != nil {
		return book.Empty(), fmt.Errorf("searching by ID on redis: %w", err)
	}
	var rec record
	if err = json.Unmarshal([]byte(data), &rec); err != nil {
		return book.Empty(), fmt.Errorf("decoding book %d: %w", id, err)
	}
	return book.Of(rec.toBook()), nil
}

func (rs *Store) DeleteByID(ctx context.Context, id int) error {
	if err := rs.client.HDel(ctx, rs.key, strconv.Itoa(id)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("deleting book from redis: %w", err)
	}
	return nil
}

func (rs *Store) FindAll(ctx context.Context) ([]book.Book, error) {
	return rs.listBooks(ctx, func(record) bool { return true })
}

func (rs *Store) FindByName(ctx context.Context, name string) ([]book.Book, error) {
	return rs.listBooks(ctx, func(r record) bool { return r.Name == name })
}

func (rs *Store) FindByIsbn(ctx context.Context, isbn string) ([]book.Book, error) {
	return rs.listBooks(ctx, func(r record) bool { return r.ISBN == isbn })
}

func (rs *Store) FindByNameAndIsbn(ctx context.Context, name, isbn string) ([]book.Book, error) {
	return rs.listBooks(ctx, func(r record) bool { return r.Name == name && r.ISBN == isbn })
}

// listBooks reads every value of the hash. HVALS has no order so the result is sorted by ID.
func (rs *Store) listBooks(ctx context.Context, match func(record) bool) ([]book.Book, error) {
	values, err := rs.client.HVals(ctx, rs.key).Result()
	if err != nil {
		return nil, fmt.Errorf("listing books from redis: %w", err)
	}

	records := make([]record, 0, len(values))
	for _, v := range values {
		var rec record
		if err = json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decoding book: %w", err)
		}
		if match(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	books := make([]book.Book, 0, len(records))
	for _, rec := range records {
		books = append(books, rec.toBook())
	}
	return books, nil
}

func (r record) toBook() book.Book {
	return book.Book{Name: r.Name, ISBN: r.ISBN}.WithID(r.ID)
}
