package handler

import (
	"net/http"

	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/service"
)

// PipelineStatus exposes the sampling loop state.
type PipelineStatus interface {
	State() service.State
	Stats() service.Stats
}

type statusResponse struct {
	Junction     string        `json:"junction"`
	State        service.State `json:"state"`
	Stats        service.Stats `json:"stats"`
	Subscribers  int           `json:"subscribers"`
	PreviewReady bool          `json:"preview_ready"`
}

// StatusHandler reports the pipeline state, its counters, the number of live
// subscribers and whether a preview frame is available.
func StatusHandler(junction string, pipeline PipelineStatus, hub LiveHub, cache PreviewReader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ready := cache.Get()
		writeJSON(w, logger, http.StatusOK, statusResponse{
			Junction:     junction,
			State:        pipeline.State(),
			Stats:        pipeline.Stats(),
			Subscribers:  hub.ClientCount(),
			PreviewReady: ready,
		})
	}
}
