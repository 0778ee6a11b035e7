package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"workshop-backend/internal/handlers"
	"workshop-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	vehicleHandler *handlers.VehicleHandler,
	metricsHandler *handlers.MetricsHandler,
	streamHandler *handlers.StreamHandler,
	reportHandler *handlers.ReportHandler,
	backupHandler *handlers.BackupHandler,
	monitoringHandler *handlers.MonitoringHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Admin-only routes (registered before /api so the subrouter
	// middleware does not shadow them)
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Handle("/backup", authMiddleware.RequireRole("admin")(
		http.HandlerFunc(backupHandler.ExportSnapshot))).Methods("POST")
	admin.Handle("/users", authMiddleware.RequireRole("admin")(
		http.HandlerFunc(authHandler.ListUsers))).Methods("GET")

	// Admin-gated but outside the /api/admin prefix; registered before
	// the /api subrouter so its middleware wins.
	r.Handle("/api/monitoring/system", authMiddleware.RequireRole("admin")(
		http.HandlerFunc(monitoringHandler.SystemStats))).Methods("GET")

	// Protected API routes - the vehicle ledger
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/vehicle-check", vehicleHandler.VehicleCheck).Methods("POST")
	api.HandleFunc("/vehicles", vehicleHandler.ListVehicles).Methods("GET")
	api.HandleFunc("/vehicles/in-progress", vehicleHandler.ListInProgress).Methods("GET")
	api.HandleFunc("/vehicles/stream", streamHandler.Stream).Methods("GET")
	api.HandleFunc("/vehicles/{vehicleNumber}", vehicleHandler.GetVehicle).Methods("GET")
	api.HandleFunc("/metrics/workshop", metricsHandler.WorkshopSummary).Methods("GET")
	api.HandleFunc("/reports/daily", reportHandler.DailyReport).Methods("GET")

	// Operational endpoints (no auth, scraped/probed from inside the cluster)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}
