// Package handlers implements the HTTP endpoints of the identification API.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

// maxJSONBody bounds the size of JSON request bodies.
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err onto its status code. Errors without a code are
// masked as internal errors and logged.
func writeAppError(w http.ResponseWriter, r *http.Request, fallback logging.Logger, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		logging.FromContext(r.Context(), fallback).Error("unclassified handler error", logging.Err(err))
		appErr = errors.New(errors.ErrCodeInternal, errors.DefaultMessageForCode(errors.ErrCodeInternal))
	}

	status := errors.HTTPStatusForCode(appErr.Code)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), fallback).Warn("request failed",
			logging.String("code", appErr.Code.String()),
			logging.Err(err))
	}
	writeJSON(w, status, ErrorResponse{
		Kind:    errors.KindForCode(appErr.Code),
		Code:    appErr.Code.String(),
		Message: appErr.Message,
		Details: appErr.Detail,
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			return errors.New(errors.ErrCodeBadRequest, "request body is empty")
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(errors.ErrCodePayloadTooLarge, "request body is too large")
		}
		return errors.Wrap(err, errors.ErrCodeBadRequest, "request body is not valid JSON")
	}
	return nil
}

//Personal.AI order the ending
