package handler

import (
	"net/http"
	"os"
)

// VideoStreamHandler serves the configured video file as-is. Range requests
// are handled by http.ServeFile.
func VideoStreamHandler(videoPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := os.Stat(videoPath)
		if err != nil || info.IsDir() {
			writeText(w, http.StatusNotFound, "Video not found")
			return
		}

		http.ServeFile(w, r, videoPath)
	}
}
