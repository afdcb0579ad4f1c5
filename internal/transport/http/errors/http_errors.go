package errors

import (
	"encoding/json"
	"net/http"
)

// APIError is the failure envelope every endpoint shares: success is always
// false and message is safe to show to the client.
type APIError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Fail(w http.ResponseWriter, status int, message string) {
	Write(w, status, APIError{Message: message})
}
