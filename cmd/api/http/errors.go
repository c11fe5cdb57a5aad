package http

import (
	"errors"
	"net/http"

	"github.com/books-search/cmd/api/book"
	"go.uber.org/zap"
)

/*
Maps a handler failure to its response. Explicit validation failures answer 400
with a code and message, field constraint failures answer the configured status
with one entry per field. Anything else is logged and answered as a 500.
*/
func (h *BookHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr book.ValidationError
	var fieldErrs book.FieldErrors

	switch {
	case errors.As(err, &validationErr):
		responseJSON(w, http.StatusBadRequest, validationErr.Response())
	case errors.As(err, &fieldErrs):
		responseJSON(w, h.fieldErrorStatus, fieldErrs)
	default:
		h.logger.Error("request failed",
			zap.String("request.id", RequestID(r.Context())),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.Error(err),
		)
		responseJSON(w, http.StatusInternalServerError, book.ErrResponseInternal)
	}
}
