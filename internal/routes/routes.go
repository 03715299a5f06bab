package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fieldrelay/internal/config"
	"fieldrelay/internal/drone"
	"fieldrelay/internal/handlers"
	"fieldrelay/internal/hub"
	"fieldrelay/internal/ingest"
	"fieldrelay/internal/logger"
	"fieldrelay/internal/middleware"
	"fieldrelay/internal/store"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Ingestor *ingest.Ingestor
	Store    *store.Store
	Hub      *hub.Hub
	Gateway  *drone.Gateway
}

// SetupRoutes registers the capture webhook, telemetry ingress, console
// websocket, result history, drone command surface and operational
// endpoints. Command endpoints sit behind the shared-token middleware.
func SetupRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Capture and telemetry ingress
	mux.HandleFunc("/api/gpt-4-vision", handlers.VisionWebhookHandler(d.Ingestor, d.Logger))
	mux.HandleFunc("/api/telemetry", handlers.TelemetryHandler(d.Hub, d.Logger))

	// Console surface
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(d.Hub, d.Logger))
	mux.HandleFunc("/api/results", handlers.ResultsHandler(d.Store, d.Logger))

	// Drone command surface (token guarded)
	token := d.Config.AuthToken
	mux.Handle("/api/drone/takeoff", middleware.RequireToken(token, handlers.TakeoffHandler(d.Gateway, d.Logger)))
	mux.Handle("/api/drone/goto", middleware.RequireToken(token, handlers.GotoHandler(d.Gateway, d.Logger)))
	mux.Handle("/api/drone/land", middleware.RequireToken(token, handlers.LandHandler(d.Gateway, d.Logger)))
	mux.Handle("/api/drone/status", middleware.RequireToken(token, handlers.DroneStatusHandler(d.Gateway, d.Logger)))

	// Operational endpoints
	mux.HandleFunc("/healthz", handlers.HealthHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	return mux
}
