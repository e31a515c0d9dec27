package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/services"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxJSONBodyBytes = 1 << 20

const (
	msgUnauthenticated  = "Tidak terautentikasi"
	msgInvalidBody      = "Format request tidak valid"
	msgServerError      = "Terjadi kesalahan server"
	msgNotFound         = "Halaman tidak ditemukan"
	msgMethodNotAllowed = "Metode tidak diizinkan"
	msgTimeout          = "Waktu permintaan habis"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a successful write.
type MessageResponse struct {
	Message string `json:"message"`
}

func userIDFromContext(ctx context.Context) (int, error) {
	switch subject := ctx.Value(contextSubjectKey).(type) {
	case int:
		if subject < 1 {
			return 0, errors.New("invalid subject")
		}
		return subject, nil
	default:
		return 0, errors.New("missing subject")
	}
}

// decodeJSON decodes a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeValidationError answers 400 with the validation message when err is
// a *services.ValidationError and reports whether it did.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Message)
		return true
	}
	return false
}

// writeServerError logs the internal error, marks the request span as
// failed and answers 500 with a generic message.
func writeServerError(w http.ResponseWriter, r *http.Request, log *logger.Logger, message string, err error) {
	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, message)

	log.Error(message,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestID(r),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, message)
}
