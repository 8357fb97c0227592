package controllers

import (
	"log/slog"
	"net/http"

	"meetsync/internal/delivery/http/helpers"
)

// writeServiceError maps a service error to the envelope. Server errors are logged and never echoed.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := helpers.StatusForError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
	helpers.WriteJSONError(w, status, code, helpers.PublicMessage(err, status))
}

// writeLegacyServiceError is writeServiceError for the flat {"error": "..."} body of the /api endpoints.
func writeLegacyServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, _ := helpers.StatusForError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
	helpers.WriteLegacyError(w, status, helpers.PublicMessage(err, status))
}
