package redisstore_test

import (
	"context"
	"net"
	"testing"

	"github.com/books-search/cmd/api/book"
	"github.com/books-search/cmd/api/redisstore"
	"github.com/matryer/is"
	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ctx context.Context = context.Background()

func startRedisDockerContainer(t *testing.T) (string, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("could not connect to docker: %v", err)
	}

	resource, err := pool.Run("redis", "7.0.10-alpine", nil)
	if err != nil {
		t.Fatalf("failed to start redis: %+v", err)
	}

	addr := net.JoinHostPort("localhost", resource.GetPort("6379/tcp"))

	err = pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		return client.Ping(ctx).Err()
	})
	if err != nil {
		t.Fatalf("failed to ping redis: %+v", err)
	}

	return addr, func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("failed to purge resource: %+v", err)
		}
	}
}

func TestRedisStore(t *testing.T) {
	addr, destroy := startRedisDockerContainer(t)
	defer destroy()

	client, err := redisstore.GetRedisClient(ctx, redisstore.Config{Addr: addr})
	if err != nil {
		t.Fatalf("failed in creating a redis client: %v", err)
	}
	store := redisstore.NewStore(client, "test.books", zap.NewNop())
	defer store.Close()

	var dune, emma book.Book

	t.Run("Save assigns sequential IDs", func(t *testing.T) {
		is := is.New(t)
		dune, err = store.Save(ctx, book.Book{Name: "Dune", ISBN: "1"})
		is.NoErr(err)
		is.Equal(*dune.ID, 1)
		emma, err = store.Save(ctx, book.Book{Name: "Emma", ISBN: "1"})
		is.NoErr(err)
		is.Equal(*emma.ID, 2)
	})

	t.Run("Save overwrites a stored ID", func(t *testing.T) {
		is := is.New(t)
		dune.Name = "Dune Messiah"
		saved, err := store.Save(ctx, dune)
		is.NoErr(err)
		is.Equal(saved, dune)

		found, err := store.FindByID(ctx, *dune.ID)
		is.NoErr(err)
		b, ok := found.Get()
		is.True(ok)
		is.Equal(b, dune)
	})

	t.Run("Save with an unknown ID inserts", func(t *testing.T) {
		is := is.New(t)
		saved, err := store.Save(ctx, book.Book{Name: "Stray", ISBN: "9"}.WithID(500))
		is.NoErr(err)
		is.Equal(*saved.ID, 3)
		is.NoErr(store.DeleteByID(ctx, 3))
	})

	t.Run("Queries are ordered by ID", func(t *testing.T) {
		is := is.New(t)
		all, err := store.FindAll(ctx)
		is.NoErr(err)
		is.Equal(all, []book.Book{dune, emma})

		byIsbn, err := store.FindByIsbn(ctx, "1")
		is.NoErr(err)
		is.Equal(byIsbn, []book.Book{dune, emma})

		byName, err := store.FindByName(ctx, "Emma")
		is.NoErr(err)
		is.Equal(byName, []book.Book{emma})

		none, err := store.FindByNameAndIsbn(ctx, "Emma", "2")
		is.NoErr(err)
		is.Equal(none, []book.Book{})
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		is := is.New(t)
		is.NoErr(store.DeleteByID(ctx, *emma.ID))
		is.NoErr(store.DeleteByID(ctx, *emma.ID))

		found, err := store.FindByID(ctx, *emma.ID)
		is.NoErr(err)
		is.True(!found.IsPresent())
	})
}
