package route

import (
	"net/http"

	"funduscam/internal/handler"
	"funduscam/internal/logger"
	"funduscam/internal/repository"
	"funduscam/internal/service/websocket"
)

// SetupRoutes registers the preview websocket, the capture index API and the
// log endpoints. captureRepo may be nil, in which case the capture API is not
// served.
func SetupRoutes(hub *websocket.HubService, captureRepo repository.CaptureRepository, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, log))
	if captureRepo != nil {
		mux.HandleFunc("/api/captures", handler.GetCapturesHandler(captureRepo, log))
		mux.HandleFunc("/api/captures/view", handler.ViewCaptureHandler(captureRepo, log))
	}

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("/logs/warning", handler.ShowLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("/logs/error", handler.ShowLogsHandler(log, logger.ErrorFile))

	return mux
}
