package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/books-search/cmd/api/book"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks . ServiceAPI

type ServiceAPI interface {
	CreateBook(ctx context.Context, b book.Book) (book.Book, error)
	ListBooks(ctx context.Context) ([]book.Book, error)
	GetBook(ctx context.Context, id *int) (book.Optional, error)
	UpdateBook(ctx context.Context, b book.Book) (book.Book, error)
	DeleteBook(ctx context.Context, id int) error
	SearchBooks(ctx context.Context, q book.SearchQuery) ([]book.Book, error)
}

type BookHandler struct {
	bookService      ServiceAPI
	fieldErrorStatus int
	logger           *zap.Logger
}

/* fieldErrorStatus is the status sent back when a body fails the field constraints. */
func NewBookHandler(bookService ServiceAPI, fieldErrorStatus int, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		bookService:      bookService,
		fieldErrorStatus: fieldErrorStatus,
		logger:           logger,
	}
}

// handlerFunc is a handler that leaves error responses to the error mapper.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h *BookHandler) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.writeError(w, r, err)
		}
	}
}

type BookEntry struct {
	ID   *int   `json:"id"`
	Name string `json:"name" validate:"required"`
	ISBN string `json:"isbn" validate:"required"`
}

/* Validates the entry, then saves it. An entry carrying a stored ID replaces that book. */
func (h *BookHandler) createBook(w http.ResponseWriter, r *http.Request) error {
	bookEntry, err := decodeEntry(r)
	if err != nil {
		return err
	}
	if err = validateEntry(bookEntry); err != nil {
		return err
	}

	storedBook, err := h.bookService.CreateBook(r.Context(), entryToBook(bookEntry))
	if err != nil {
		return err
	}

	responseJSON(w, http.StatusOK, bookToResponse(storedBook))
	return nil
}

/* Returns every stored book. */
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) error {
	books, err := h.bookService.ListBooks(r.Context())
	if err != nil {
		return err
	}
	responseJSON(w, http.StatusOK, booksToResponse(books))
	return nil
}

/*
Overwrites an existing book. An unknown ID answers 400 with the submitted
entry echoed back untouched.
*/
func (h *BookHandler) updateBook(w http.ResponseWriter, r *http.Request) error {
	bookEntry, err := decodeEntry(r)
	if err != nil {
		return err
	}

	updatedBook, err := h.bookService.UpdateBook(r.Context(), entryToBook(bookEntry))
	if errors.Is(err, book.ErrBookNotFound) {
		h.logger.Debug("update target not found", zap.String("request.id", RequestID(r.Context())))
		responseJSON(w, http.StatusBadRequest, bookToResponse(entryToBook(bookEntry)))
		return nil
	}
	if err != nil {
		return err
	}

	responseJSON(w, http.StatusOK, bookToResponse(updatedBook))
	return nil
}

/* Runs the search with whatever of "name" and "isbn" was supplied, empty values included. */
func (h *BookHandler) searchBooks(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	var q book.SearchQuery
	if values, ok := query["name"]; ok {
		q.Name = &values[0]
	}
	if values, ok := query["isbn"]; ok {
		q.ISBN = &values[0]
	}

	books, err := h.bookService.SearchBooks(r.Context(), q)
	if err != nil {
		return err
	}
	responseJSON(w, http.StatusOK, booksToResponse(books))
	return nil
}

/* Returns the book with that specific ID, or null when there is none. */
func (h *BookHandler) getBookById(w http.ResponseWriter, r *http.Request) error {
	id, err := isolateId(r)
	if err != nil {
		return err
	}

	found, err := h.bookService.GetBook(r.Context(), &id)
	if err != nil {
		return err
	}

	returnedBook, ok := found.Get()
	if !ok {
		responseJSON(w, http.StatusOK, nil)
		return nil
	}
	responseJSON(w, http.StatusOK, bookToResponse(returnedBook))
	return nil
}

func (h *BookHandler) deleteBook(w http.ResponseWriter, r *http.Request) error {
	id, err := isolateId(r)
	if err != nil {
		return err
	}
	if err = h.bookService.DeleteBook(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func decodeEntry(r *http.Request) (BookEntry, error) {
	var bookEntry BookEntry
	if err := json.NewDecoder(r.Body).Decode(&bookEntry); err != nil {
		return bookEntry, book.NewValidationError("invalid json request: %v", err)
	}
	return bookEntry, nil
}

/* Isolates the ID from the URL. */
func isolateId(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, book.NewValidationError("invalid book id %q", raw)
	}
	return id, nil
}

func entryToBook(b BookEntry) book.Book {
	return book.Book{
		ID:   b.ID,
		Name: b.Name,
		ISBN: b.ISBN,
	}
}

type BookResponse struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
	ISBN string `json:"isbn"`
}

/*Copy the fields of a book object to an http layer struct with json tags*/
func bookToResponse(b book.Book) BookResponse {
	return BookResponse{
		ID:   b.ID,
		Name: b.Name,
		ISBN: b.ISBN,
	}
}

func booksToResponse(books []book.Book) []BookResponse {
	results := make([]BookResponse, 0, len(books))
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	return results
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	// The status line is already out, a failed encode can only be dropped.
	_ = json.NewEncoder(w).Encode(body)
}
