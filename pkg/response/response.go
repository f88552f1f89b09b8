// Package response writes the storefront's JSON envelope:
//
//	{"success": true,  "data": ..., "message": "..."}
//	{"success": false, "error": "...", "errors": {"field": "..."}}
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Pagination interface{}       `json:"pagination,omitempty"`
}

// Write encodes body with the given status.
func Write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 with data and an optional message.
func Success(w http.ResponseWriter, data interface{}, message ...string) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data, Message: first(message)})
}

// Created sends a 201.
func Created(w http.ResponseWriter, data interface{}, message ...string) {
	Write(w, http.StatusCreated, Envelope{Success: true, Data: data, Message: first(message)})
}

// Paginated sends a 200 with the page of items and its pagination block.
func Paginated(w http.ResponseWriter, items interface{}, pagination interface{}) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: items, Pagination: pagination})
}

// Error sends a failure envelope.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Success: false, Error: message})
}

// ValidationError sends a 400 with a field → message map.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Write(w, http.StatusBadRequest, Envelope{
		Success: false,
		Error:   "Validation failed",
		Errors:  errs,
	})
}

func Unauthorized(w http.ResponseWriter, message string) { Error(w, http.StatusUnauthorized, message) }
func Forbidden(w http.ResponseWriter)                    { Error(w, http.StatusForbidden, "Unauthorized") }
func NotFound(w http.ResponseWriter)                     { Error(w, http.StatusNotFound, "Not found") }
func MethodNotAllowed(w http.ResponseWriter)             { Error(w, http.StatusMethodNotAllowed, "Method not allowed") }

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
