package response

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the body shape of every response.
type Envelope struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message,omitempty"`
	Data      any           `json:"data,omitempty"`
	Error     *ErrorPayload `json:"error,omitempty"`
	Timestamp string        `json:"timestamp"`
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

func timestamp() string { return now().Format(time.RFC3339) }

// WriteJSON writes v as JSON with the given status code.
// It sets Content-Type to application/json; charset=utf-8 if not already set.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 success envelope carrying data.
func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Timestamp: timestamp()})
}

// Created writes a 201 success envelope carrying data.
func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Timestamp: timestamp()})
}

// Message writes a 200 success envelope with only a message.
func Message(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: msg, Timestamp: timestamp()})
}

// Status writes an envelope with an explicit status code; success is derived
// from the code.
func Status(w http.ResponseWriter, status int, msg string, data any) {
	WriteJSON(w, status, Envelope{Success: status < http.StatusBadRequest, Message: msg, Data: data, Timestamp: timestamp()})
}
