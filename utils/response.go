package utils

import (
	"encoding/json"
	"net/http"
)

type contextKey string

// RequestIDKey carries the request id through the request context.
const RequestIDKey = contextKey("requestID")

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteData is the shorthand for a successful response.
func WriteData(w http.ResponseWriter, message string, data interface{}) {
	WriteJSON(w, http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

// WriteError writes a failed response without leaking internal detail.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, APIResponse{Success: false, Message: message})
}
