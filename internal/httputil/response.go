package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the error body shape used by every endpoint.
// The field is named "detail" to keep wire compatibility with clients of
// the previous implementation of this API.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Msg is the fixed confirmation body returned by the recovery endpoints.
type Msg struct {
	Msg string `json:"msg"`
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

// RespondError sends a JSON error response with the given detail message and status code.
func RespondError(w http.ResponseWriter, detail string, statusCode int) {
	RespondJSON(w, ErrorResponse{Detail: detail}, statusCode)
}
