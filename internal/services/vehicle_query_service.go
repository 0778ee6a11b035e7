package services

import (
	"context"
	"encoding/json"

	"workshop-backend/internal/cache"
	"workshop-backend/internal/models"
)

// VehicleQueryService serves the read-only projections the dashboards
// poll: full history, per-stage in-progress sets, and single-vehicle
// lookup. Reads never write to the ledger; the full list is served
// through a short-TTL redis cache since the metrics are advisory and
// bounded staleness is acceptable.
type VehicleQueryService struct {
	Store LedgerStore
}

func NewVehicleQueryService(store LedgerStore) *VehicleQueryService {
	return &VehicleQueryService{Store: store}
}

// AllVehicles returns a snapshot of every visit, newest entry first.
func (s *VehicleQueryService) AllVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	if data, ok := cache.GetCached(ctx, cache.VehiclesAllKey); ok {
		var vehicles []*models.Vehicle
		if err := json.Unmarshal(data, &vehicles); err == nil {
			return vehicles, nil
		}
	}

	vehicles, err := s.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vehicles); err == nil {
		cache.SetCached(ctx, cache.VehiclesAllKey, data, cache.ReadViewTTL)
	}
	return vehicles, nil
}

// InProgress returns the open visits holding an unmatched Start for the
// stage, i.e. vehicles currently sitting in that stage.
func (s *VehicleQueryService) InProgress(ctx context.Context, stageName string) ([]*models.Vehicle, error) {
	open, err := s.Store.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	inProgress := []*models.Vehicle{}
	for _, v := range open {
		if v.HasUnmatchedStart(stageName) {
			inProgress = append(inProgress, v)
		}
	}
	return inProgress, nil
}

// FindByNumber looks up the most recent visit for a vehicle number,
// case-insensitive via normalization. Returns the open visit when one
// exists, otherwise the latest closed one.
func (s *VehicleQueryService) FindByNumber(ctx context.Context, rawNumber string) (*models.Vehicle, error) {
	number := models.NormalizeVehicleNumber(rawNumber)
	if number == "" {
		return nil, ErrInvalidInput
	}
	return s.Store.GetLatestByNumber(ctx, number)
}
