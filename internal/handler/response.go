package handler

import (
	"encoding/json"
	"net/http"

	"trafficmonitor/internal/logger"
)

// writeJSON writes a JSON response with the given status code and data.
// Encoding failures go to the error log.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode json response: %v", err)
	}
}

// writeText writes a plain text response.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}
