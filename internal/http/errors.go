package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidAccountType,
	core.ErrInvalidInterval,
	core.ErrMissingInterval,
	core.ErrUnexpectedInterval,
	core.ErrInvalidDate,
	core.ErrDescriptionTooLong,
	core.ErrEmptyDescription,
	core.ErrEmptyCategory,
	core.ErrEmptyName,
	core.ErrNameTooLong,
}

// writeServiceError maps domain errors to HTTP statuses. Anything not
// recognized is an internal error and only the log gets the detail.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	slog.ErrorContext(ctx, "Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
