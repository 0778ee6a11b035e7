package services

import (
	"context"

	"workshop-backend/internal/models"
)

// LedgerStore is the durable visit ledger the engine writes through.
// *repositories.VehicleRepository is the production implementation;
// tests substitute an in-memory fake. Implementations must make
// CreateVisit and AppendEvent atomic check-and-mutate operations that
// fail with repositories.ErrConflict when racing writers collide.
type LedgerStore interface {
	GetOpenByNumber(ctx context.Context, vehicleNumber string) (*models.Vehicle, error)
	GetLatestByNumber(ctx context.Context, vehicleNumber string) (*models.Vehicle, error)
	CreateVisit(ctx context.Context, vehicleNumber string, event models.StageEvent) (*models.Vehicle, error)
	AppendEvent(ctx context.Context, vehicleID int64, expectedVersion int, event models.StageEvent, closesVisit bool) (*models.Vehicle, error)
	ListAll(ctx context.Context) ([]*models.Vehicle, error)
	ListOpen(ctx context.Context) ([]*models.Vehicle, error)
}

// VehicleNotifier receives every vehicle record updated by a successful
// vehicle-check write. The websocket hub implements it; a nil notifier
// disables streaming.
type VehicleNotifier interface {
	Publish(vehicle *models.Vehicle)
}
