package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	is := is.New(t)
	t.Setenv("BOOKS_STORAGE_DRIVER", "mongo")
	dir := t.TempDir()

	_, err := NewApp(filepath.Join(dir, "config.yml"), filepath.Join(dir, "config.env"))
	is.True(err != nil)
}

func TestAppServesAndStops(t *testing.T) {
	is := is.New(t)
	t.Setenv("BOOKS_SERVER_HOST", "127.0.0.1")
	t.Setenv("BOOKS_SERVER_PORT", "18081")
	t.Setenv("BOOKS_STORAGE_DRIVER", "bolt")
	t.Setenv("BOOKS_BOLT_FILE_PATH", filepath.Join(t.TempDir(), "books.db"))
	t.Setenv("BOOKS_SERVER_SHUTDOWN_TIMEOUT", "2s")
	dir := t.TempDir()

	app, err := NewApp(filepath.Join(dir, "config.yml"), filepath.Join(dir, "config.env"))
	is.NoErr(err)
	defer app.Clean()

	nCtx, stop := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- app.Serve()() }()
	stopDone := make(chan error, 1)
	go func() { stopDone <- app.Stop(nCtx, nCtx)() }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://127.0.0.1:18081/ping")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	is.NoErr(err)
	resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusNoContent)

	stop()
	is.NoErr(<-stopDone)
	is.NoErr(<-serveErr)
}
