package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"
)

// JSONResponse is the standard JSON response envelope.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail carries machine-readable error information.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, JSONResponse{Data: data})
}

// JSONWithMeta writes a success envelope carrying response metadata.
func JSONWithMeta(w http.ResponseWriter, status int, data any, meta map[string]any) {
	writeJSON(w, status, JSONResponse{Data: data, Meta: meta})
}

// JSONError maps an error to its HTTP shape and writes the error envelope.
// ValidationError renders as 422 with field details; HTTPError renders with
// its own status and code; anything else is a 500 with the cause logged but
// not leaked to the client.
func JSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{Code: ErrInternalServerError.Key}

	var valErr ValidationError
	var httpErr HTTPError
	switch {
	case errors.As(err, &valErr):
		status = http.StatusUnprocessableEntity
		detail.Code = "validation_error"
		detail.Message = "request validation failed"
		if len(valErr) > 0 {
			detail.Details = make(map[string][]string, len(valErr))
			maps.Copy(detail.Details, valErr)
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		detail.Code = httpErr.Key
		detail.Message = http.StatusText(httpErr.Code)
	default:
		slog.ErrorContext(r.Context(), "unhandled request error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		detail.Message = http.StatusText(status)
	}

	writeJSON(w, status, JSONResponse{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encoding json response", slog.Any("error", err))
	}
}
