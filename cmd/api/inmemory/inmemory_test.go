package inmemory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/books-search/cmd/api/book"
	"github.com/books-search/cmd/api/inmemory"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

func newStore(t *testing.T) *inmemory.Store {
	t.Helper()
	store, err := inmemory.NewStore()
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSave(t *testing.T) {
	t.Run("assigns increasing IDs starting at 1", func(t *testing.T) {
		is := is.New(t)
		store := newStore(t)

		first, err := store.Save(ctx, book.Book{Name: "First", ISBN: "1"})
		is.NoErr(err)
		second, err := store.Save(ctx, book.Book{Name: "Second", ISBN: "2"})
		is.NoErr(err)

		is.Equal(*first.ID, 1)
		is.Equal(*second.ID, 2)
	})

	t.Run("overwrites a book with a known ID", func(t *testing.T) {
		is := is.New(t)
		store := newStore(t)

		created, err := store.Save(ctx, book.Book{Name: "Old", ISBN: "1"})
		is.NoErr(err)

		entry := book.Book{ID: created.ID, Name: "New", ISBN: "2"}
		updated, err := store.Save(ctx, entry)
		is.NoErr(err)
		is.Equal(updated, entry)

		all, err := store.FindAll(ctx)
		is.NoErr(err)
		is.Equal(all, []book.Book{entry})
	})

	t.Run("unknown ID inserts under a new ID", func(t *testing.T) {
		is := is.New(t)
		store := newStore(t)

		saved, err := store.Save(ctx, book.Book{Name: "Stray", ISBN: "9"}.WithID(500))
		is.NoErr(err)
		is.Equal(*saved.ID, 1)

		found, err := store.FindByID(ctx, 500)
		is.NoErr(err)
		is.True(!found.IsPresent())
	})

	t.Run("concurrent saves never share an ID", func(t *testing.T) {
		is := is.New(t)
		store := newStore(t)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = store.Save(ctx, book.Book{Name: "Concurrent", ISBN: "x"})
			}()
		}
		wg.Wait()

		all, err := store.FindAll(ctx)
		is.NoErr(err)
		is.Equal(len(all), 50)
		for i, b := range all {
			is.Equal(*b.ID, i+1)
		}
	})
}

func TestFindByID(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	created, err := store.Save(ctx, book.Book{Name: "Fetch me", ISBN: "1"})
	is.NoErr(err)

	found, err := store.FindByID(ctx, *created.ID)
	is.NoErr(err)
	b, ok := found.Get()
	is.True(ok)
	is.Equal(b, created)

	for i := 0; i < 3; i++ {
		missing, err := store.FindByID(ctx, 404)
		is.NoErr(err)
		is.True(!missing.IsPresent())
	}
}

func TestDeleteByID(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	created, err := store.Save(ctx, book.Book{Name: "Delete me", ISBN: "1"})
	is.NoErr(err)

	is.NoErr(store.DeleteByID(ctx, *created.ID))
	found, err := store.FindByID(ctx, *created.ID)
	is.NoErr(err)
	is.True(!found.IsPresent())

	// Deleting an absent book is not an error.
	is.NoErr(store.DeleteByID(ctx, *created.ID))
}

func TestQueries(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	var books []book.Book
	for _, b := range []book.Book{
		{Name: "Dune", ISBN: "1"},
		{Name: "Dune", ISBN: "2"},
		{Name: "Emma", ISBN: "1"},
		{Name: "", ISBN: "3"},
	} {
		saved, err := store.Save(ctx, b)
		is.NoErr(err)
		books = append(books, saved)
	}
	dune, duneReprint, emma, untitled := books[0], books[1], books[2], books[3]

	all, err := store.FindAll(ctx)
	is.NoErr(err)
	is.Equal(all, books)

	byName, err := store.FindByName(ctx, "Dune")
	is.NoErr(err)
	is.Equal(byName, []book.Book{dune, duneReprint})

	byEmptyName, err := store.FindByName(ctx, "")
	is.NoErr(err)
	is.Equal(byEmptyName, []book.Book{untitled})

	byIsbn, err := store.FindByIsbn(ctx, "1")
	is.NoErr(err)
	is.Equal(byIsbn, []book.Book{dune, emma})

	both, err := store.FindByNameAndIsbn(ctx, "Dune", "2")
	is.NoErr(err)
	is.Equal(both, []book.Book{duneReprint})

	none, err := store.FindByNameAndIsbn(ctx, "Dune", "")
	is.NoErr(err)
	is.Equal(none, []book.Book{})
}

func TestFindAllEmpty(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	all, err := store.FindAll(ctx)
	is.NoErr(err)
	is.True(all != nil)
	is.Equal(len(all), 0)
}
