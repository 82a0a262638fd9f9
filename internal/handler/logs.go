package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"trafficmonitor/internal/logger"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
	"access":  logger.AccessFile,
}

// ShowLogsHandler serves the log file for the {level} route variable as text/plain.
func ShowLogsHandler(logDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[mux.Vars(r)["level"]]
		if !ok {
			writeText(w, http.StatusNotFound, "Unknown log level")
			return
		}
		serveLogFile(w, r, logDir, filename)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		writeText(w, http.StatusNotFound, "Log file not found: "+filename)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the log file for the {level} route variable.
func ClearLogsHandler(l *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[mux.Vars(r)["level"]]
		if !ok {
			writeText(w, http.StatusNotFound, "Unknown log level")
			return
		}
		if err := l.CleanLogs(filename); err != nil {
			writeText(w, http.StatusInternalServerError, "Failed to clear "+filename)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
