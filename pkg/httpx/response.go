package httpx

import (
	"encoding/json"
	"net/http"
)

// Machine-readable values of the envelope "status" field for auth failures.
const (
	StatusOK                 = "OK"
	StatusAccessTokenExpired = "ACCESS_TOKEN_EXPIRED"
	StatusInvalidAccessToken = "INVALID_ACCESS_TOKEN"
	StatusRefreshInvalid     = "REFRESH_TOKEN_INVALID"
)

// Envelope is the body shape of every backend JSON response.
type Envelope struct {
	Code    int             `json:"code"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in a success envelope.
func WriteData(w http.ResponseWriter, code int, message string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to encode response")
		return
	}
	WriteJSON(w, code, Envelope{Code: code, Status: StatusOK, Message: message, Data: raw})
}

// WriteError writes an error envelope. The message is repeated under
// data.message, which some clients read instead of the top-level field.
func WriteError(w http.ResponseWriter, code int, status, message string) {
	raw, _ := json.Marshal(map[string]string{"message": message})
	WriteJSON(w, code, Envelope{Code: code, Status: status, Message: message, Data: raw})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
