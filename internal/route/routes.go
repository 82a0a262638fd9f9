package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"trafficmonitor/internal/config"
	"trafficmonitor/internal/handler"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/metrics"
	"trafficmonitor/internal/repository"
)

// Services are the read sides the HTTP surface is built on.
type Services struct {
	Records  repository.CountRepository
	Pipeline handler.PipelineStatus
	Hub      handler.LiveHub
	Preview  handler.PreviewReader
	Metrics  *metrics.Metrics
}

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := mux.Vars(r)["page"]
		if path == "" {
			path = "index"
		}

		filePath := filepath.Join(staticDir, filepath.Base(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the API, video, live and log endpoints plus the
// static dashboard, and wraps the router with CORS and access logging.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, svc Services) http.Handler {
	router := mux.NewRouter()

	// API endpoints
	router.HandleFunc("/api/data", handler.GetRecordsHandler(svc.Records, logger)).Methods(http.MethodGet)
	router.HandleFunc("/api/status", handler.StatusHandler(cfg.Junction, svc.Pipeline, svc.Hub, svc.Preview, logger)).Methods(http.MethodGet)
	router.HandleFunc("/api/live", handler.LiveWebsocketHandler(svc.Hub, logger)).Methods(http.MethodGet)

	// Video endpoints
	router.HandleFunc("/video-preview", handler.VideoPreviewHandler(svc.Preview, logger)).Methods(http.MethodGet)
	router.HandleFunc("/video-stream", handler.VideoStreamHandler(cfg.ServedVideoPath)).Methods(http.MethodGet, http.MethodHead)

	if svc.Metrics != nil {
		router.Handle("/metrics", svc.Metrics.Handler()).Methods(http.MethodGet)
	}

	// Log endpoints
	router.HandleFunc("/logs/{level}", handler.ShowLogsHandler(cfg.LogDirectory)).Methods(http.MethodGet)
	router.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	// Static files
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Automatic HTML handler mapping for example: /stats -> <static>/stats.html
	router.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory)).Methods(http.MethodGet)
	router.HandleFunc("/{page}", dynamicHTMLHandler(cfg.StaticDirectory)).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
	)

	return handlers.CombinedLoggingHandler(logger.AccessWriter(), cors(router))
}
