package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the envelope every failure crosses the API boundary in.
// Internal detail never leaves the server; only the paired status code and
// a client-safe message do.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse is the envelope for successes that carry no payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondError sends a normalized {success:false, message} error response.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Success: false, Message: message}, statusCode)
}

// RespondMessage sends a {success:true, message} response.
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, MessageResponse{Success: true, Message: message}, statusCode)
}
