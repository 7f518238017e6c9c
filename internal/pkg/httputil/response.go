// Package httputil provides HTTP response helpers and shared middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// StatusSuccess is the status value of every successful envelope.
const StatusSuccess = "success"

// SuccessResponse is the envelope of every successful mutation.
type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError describes a single request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes a raw JSON response without envelope.
// Use Success for {"status": "success", ...} wrapped responses.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Success writes a {"status": "success", "message": ..., "data": ...} envelope.
// data is omitted from the body when nil.
func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, SuccessResponse{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// Error writes a {"detail": ...} error envelope.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorResponse{Detail: detail})
}

// ValidationError writes a validation error response.
// If err is validator.ValidationErrors, the body lists the offending fields.
func ValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Detail: "validation error"}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		resp.Errors = make([]FieldError, 0, len(validationErrors))
		for _, e := range validationErrors {
			resp.Errors = append(resp.Errors, FieldError{
				Field:   e.Field(),
				Message: e.Tag(),
			})
		}
	} else {
		resp.Detail = err.Error()
	}

	JSON(w, http.StatusBadRequest, resp)
}
