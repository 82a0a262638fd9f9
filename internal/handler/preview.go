package handler

import (
	"net/http"
	"strconv"

	"trafficmonitor/internal/imageutil"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/service/preview"
)

// PreviewReader provides the latest annotated frame.
type PreviewReader interface {
	Get() (preview.Snapshot, bool)
}

// VideoPreviewHandler serves the latest annotated frame as a JPEG.
func VideoPreviewHandler(cache PreviewReader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := cache.Get()
		if !ok {
			writeText(w, http.StatusServiceUnavailable, "Video not ready")
			return
		}

		data, err := imageutil.EncodeJPEG(snap.Image, imageutil.DefaultJPEGQuality)
		if err != nil {
			logger.Error("Failed to encode preview frame %d: %v", snap.FrameIndex, err)
			writeText(w, http.StatusInternalServerError, "Failed to encode frame")
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Frame-Index", strconv.Itoa(snap.FrameIndex))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
