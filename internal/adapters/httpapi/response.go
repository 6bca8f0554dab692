package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bnema/annotation-relay/internal/application"
	"github.com/bnema/annotation-relay/internal/domain"
)

var (
	errInvalidRequest   = errors.New("invalid request")
	errRequestTooLarge  = errors.New("request body too large")
	errNotFound         = errors.New("not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorStatus maps relay errors onto a status code and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrMalformedAnnotation):
		return http.StatusBadRequest, "malformed_annotation"
	case errors.Is(err, domain.ErrInvalidSessionID),
		errors.Is(err, domain.ErrInvalidURLPrefix),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errRequestTooLarge):
		return http.StatusRequestEntityTooLarge, "request_too_large"
	case errors.Is(err, domain.ErrSessionIDTaken):
		return http.StatusConflict, "session_id_taken"
	case errors.Is(err, domain.ErrRegistrationExhausted):
		return http.StatusServiceUnavailable, "registration_exhausted"
	case errors.Is(err, application.ErrRelayClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, application.ErrArchiveUnavailable):
		return http.StatusServiceUnavailable, "archive_unavailable"
	case errors.Is(err, errNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	jsonResponse(w, status, errorResponse{Success: false, Error: message, Code: code})
}

// decodeJSON reads a JSON body capped at maxBodyBytes. An empty body leaves
// dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", errRequestTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: decode body: %v", errInvalidRequest, err)
	}

	return nil
}

// clientGone reports whether err only means the caller hung up.
func clientGone(r *http.Request, err error) bool {
	return r.Context().Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
