package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/snapshot"
	"fintrack/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps known error kinds onto HTTP statuses. Upstream
// load failures keep their cause distinction: permission problems are
// the caller's to fix, configuration problems are ours, everything else
// is a bad gateway.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *snapshot.UpstreamError
	switch {
	case errors.As(err, &upstream):
		switch upstream.Cause {
		case snapshot.CausePermission:
			writeError(w, http.StatusForbidden, "you do not have access to this data")
		case snapshot.CauseConfiguration:
			slog.ErrorContext(r.Context(), "Upstream configuration error", "error", err)
			writeError(w, http.StatusInternalServerError, "storage is misconfigured, try again later")
		default:
			slog.ErrorContext(r.Context(), "Upstream unavailable", "error", err)
			writeError(w, http.StatusBadGateway, "storage is temporarily unavailable")
		}
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrAccountGone):
		writeError(w, http.StatusConflict, "referenced account no longer exists")
	case errors.Is(err, period.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err,
			"method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidKind,
		core.ErrInvalidFrequency,
		core.ErrMissingFrequency,
		core.ErrEmptyCategory,
		core.ErrEmptyTitle,
		core.ErrZeroTime,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
