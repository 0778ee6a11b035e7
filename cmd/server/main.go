package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"workshop-backend/internal/auth"
	"workshop-backend/internal/cache"
	"workshop-backend/internal/config"
	"workshop-backend/internal/database"
	"workshop-backend/internal/db"
	"workshop-backend/internal/handlers"
	"workshop-backend/internal/health"
	h "workshop-backend/internal/http"
	"workshop-backend/internal/middleware"
	"workshop-backend/internal/repositories"
	"workshop-backend/internal/services"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	// Redis is optional - reads just go to Postgres when it is down
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (read views will hit the database)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	healthChecker := health.NewHealthChecker(pool)
	jwtManager := auth.NewJWTManager(cfg)

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	vehicleRepo := repositories.NewVehicleRepository(pool)

	// The stream handler doubles as the notifier the check-in service
	// publishes accepted vehicles to.
	streamHandler := handlers.NewStreamHandler()

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	checkService := services.NewVehicleCheckService(vehicleRepo, cfg, streamHandler)
	queryService := services.NewVehicleQueryService(vehicleRepo)
	metricsService := services.NewWorkshopMetricsService(vehicleRepo)
	reportService := services.NewReportService(metricsService, queryService)
	backupService := services.NewBackupService(vehicleRepo, cfg)

	collector := services.NewMetricsCollector(vehicleRepo, 30*time.Second)
	collector.Start()
	defer collector.Stop()

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	vehicleHandler := handlers.NewVehicleHandler(checkService, queryService)
	metricsHandler := handlers.NewMetricsHandler(metricsService)
	reportHandler := handlers.NewReportHandler(reportService)
	backupHandler := handlers.NewBackupHandler(backupService)
	monitoringHandler := handlers.NewMonitoringHandler()
	healthHandler := handlers.NewHealthHandler(healthChecker)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	router := h.NewRouter(
		authHandler,
		vehicleHandler,
		metricsHandler,
		streamHandler,
		reportHandler,
		backupHandler,
		monitoringHandler,
		healthHandler,
		authMiddleware,
	)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
