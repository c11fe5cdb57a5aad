package http

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

/*
Builds the server with every route registered on a method-aware mux.
"/books/search" is more specific than "/books/{id}" so it wins for that path.
*/
func NewServer(config ServerConfig, h *BookHandler, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", ping)

	mux.HandleFunc("POST /books", h.handle(h.createBook))
	mux.HandleFunc("GET /books", h.handle(h.listBooks))
	mux.HandleFunc("PUT /books", h.handle(h.updateBook))
	mux.HandleFunc("GET /books/search", h.handle(h.searchBooks))
	mux.HandleFunc("GET /books/{id}", h.handle(h.getBookById))
	mux.HandleFunc("DELETE /books/{id}", h.handle(h.deleteBook))

	middlewares := Middlewares{
		RequestIDMiddleware,
		LoggingMiddleware(logger),
		PanicRecoveryMiddleware(logger),
	}

	server := http.Server{
		Addr:         net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		Handler:      middlewares.Chain(mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return &server
}

/* Tests the http server connection.  */
func ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
