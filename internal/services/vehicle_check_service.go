package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workshop-backend/internal/cache"
	"workshop-backend/internal/metrics"
	"workshop-backend/internal/models"
	"workshop-backend/internal/repositories"
	"workshop-backend/internal/timeutil"
)

// ErrInvalidInput marks structurally invalid requests (missing vehicle
// number, unknown event type). Handlers turn it into a 400; everything
// else the command reports as success=false in the response body.
var ErrInvalidInput = errors.New("invalid input")

// BootstrapPolicy decides which station roles may originate a visit with
// a Start event. *config.Config satisfies it.
type BootstrapPolicy interface {
	BootstrapAllowed(role string) bool
}

// VehicleCheckService is the single write path into the ledger: every
// station dashboard reports stage events through Process. Dashboards
// never write to the store directly.
type VehicleCheckService struct {
	Store    LedgerStore
	Policy   BootstrapPolicy
	Notifier VehicleNotifier

	// now is swapped out by tests; defaults to timeutil.Now.
	now func() time.Time
}

func NewVehicleCheckService(store LedgerStore, policy BootstrapPolicy, notifier VehicleNotifier) *VehicleCheckService {
	return &VehicleCheckService{
		Store:    store,
		Policy:   policy,
		Notifier: notifier,
		now:      timeutil.Now,
	}
}

// Process handles one inbound stage event: normalize, validate against
// the current open visit, act on the decision, and retry exactly once
// against fresh state when a concurrent writer wins the race.
func (s *VehicleCheckService) Process(ctx context.Context, req *models.VehicleCheckRequest) (*models.VehicleCheckResponse, error) {
	number := models.NormalizeVehicleNumber(req.VehicleNumber)
	if number == "" {
		return nil, fmt.Errorf("%w: vehicle number is required", ErrInvalidInput)
	}
	if !models.ValidEventType(req.EventType) {
		return nil, fmt.Errorf("%w: event type must be Entry, Exit, Start or Finish", ErrInvalidInput)
	}

	resp, err := s.attempt(ctx, number, req)
	if errors.Is(err, repositories.ErrConflict) {
		// The loser of a same-vehicle race re-reads the winner's state
		// and lets the validator decide again (often a no-op).
		resp, err = s.attempt(ctx, number, req)
		if errors.Is(err, repositories.ErrConflict) {
			return &models.VehicleCheckResponse{
				Success: false,
				Message: "Another station is updating this vehicle, please retry.",
			}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	if resp.Success && resp.Vehicle != nil {
		cache.InvalidateLedgerCaches(ctx)
		if s.Notifier != nil {
			s.Notifier.Publish(resp.Vehicle)
		}
	}
	return resp, nil
}

func (s *VehicleCheckService) attempt(ctx context.Context, number string, req *models.VehicleCheckRequest) (*models.VehicleCheckResponse, error) {
	vehicle, err := s.Store.GetOpenByNumber(ctx, number)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	decision := Evaluate(vehicle, req.StageName, req.EventType, s.Policy.BootstrapAllowed(req.Role))

	switch decision.Kind {
	case DecisionCreateVisit:
		if decision.NeedsBootstrap && !req.ConfirmNew {
			// Surfaced as a prompt instead of creating silently, so a
			// typo at a bay terminal cannot fabricate a phantom visit.
			return &models.VehicleCheckResponse{
				Success:              false,
				Message:              fmt.Sprintf("Vehicle %s not found. Confirm to add it.", number),
				RequiresConfirmation: true,
			}, nil
		}
		event := s.newEvent(vehicle, req)
		created, err := s.Store.CreateVisit(ctx, number, event)
		if err != nil {
			return nil, err
		}
		metrics.StageEventsRecorded.WithLabelValues(req.StageName, req.EventType).Inc()
		return &models.VehicleCheckResponse{
			Success:    true,
			Message:    fmt.Sprintf("Vehicle %s entered the workshop.", number),
			Vehicle:    created,
			IsNewVisit: true,
		}, nil

	case DecisionAppend:
		event := s.newEvent(vehicle, req)
		updated, err := s.Store.AppendEvent(ctx, vehicle.ID, vehicle.Version, event, decision.ClosesVisit)
		if err != nil {
			return nil, err
		}
		metrics.StageEventsRecorded.WithLabelValues(req.StageName, req.EventType).Inc()
		return &models.VehicleCheckResponse{
			Success: true,
			Message: fmt.Sprintf("%s %s recorded for %s.", req.StageName, req.EventType, number),
			Vehicle: updated,
		}, nil

	case DecisionNoOp:
		// Duplicate Start: report success with the unchanged record.
		return &models.VehicleCheckResponse{
			Success: true,
			Message: decision.Reason,
			Vehicle: vehicle,
		}, nil

	default:
		metrics.VehicleCheckRejections.WithLabelValues(req.EventType).Inc()
		return &models.VehicleCheckResponse{
			Success: false,
			Message: decision.Reason,
			Vehicle: vehicle,
		}, nil
	}
}

// newEvent stamps the event with engine time. The timestamp is clamped
// to the last stored event so histories stay non-decreasing even across
// clock adjustments; clients never supply timestamps.
func (s *VehicleCheckService) newEvent(vehicle *models.Vehicle, req *models.VehicleCheckRequest) models.StageEvent {
	ts := s.now()
	if vehicle != nil {
		if last := vehicle.LastEventTime(); ts.Before(last) {
			ts = last
		}
	}
	return models.StageEvent{
		StageName: req.StageName,
		EventType: req.EventType,
		Role:      req.Role,
		Timestamp: ts,
	}
}
