package services

import (
	"context"
	"sync"
	"time"

	"workshop-backend/internal/models"
	"workshop-backend/internal/repositories"
)

// fakeStore is an in-memory LedgerStore with the same conflict semantics
// as the postgres repository: one open visit per number, version-checked
// appends.
type fakeStore struct {
	mu       sync.Mutex
	vehicles []*models.Vehicle
	nextID   int64

	// failNextAppend makes the next AppendEvent fail with ErrConflict
	// without changing state, simulating a racing writer that lost the
	// version check.
	failNextAppend int
	// failNextCreate does the same for CreateVisit.
	failNextCreate int
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (f *fakeStore) GetOpenByNumber(ctx context.Context, vehicleNumber string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vehicles {
		if v.VehicleNumber == vehicleNumber && v.ExitTime == nil {
			return cloneVehicle(v), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeStore) GetLatestByNumber(ctx context.Context, vehicleNumber string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Vehicle
	for _, v := range f.vehicles {
		if v.VehicleNumber != vehicleNumber {
			continue
		}
		if latest == nil || v.EntryTime.After(latest.EntryTime) {
			latest = v
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return cloneVehicle(latest), nil
}

func (f *fakeStore) CreateVisit(ctx context.Context, vehicleNumber string, event models.StageEvent) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextCreate > 0 {
		f.failNextCreate--
		return nil, repositories.ErrConflict
	}
	for _, v := range f.vehicles {
		if v.VehicleNumber == vehicleNumber && v.ExitTime == nil {
			return nil, repositories.ErrConflict
		}
	}
	event.Seq = 1
	event.VehicleID = f.nextID
	v := &models.Vehicle{
		ID:            f.nextID,
		VehicleNumber: vehicleNumber,
		EntryTime:     event.Timestamp,
		Stages:        []models.StageEvent{event},
		Version:       1,
	}
	f.nextID++
	f.vehicles = append(f.vehicles, v)
	return cloneVehicle(v), nil
}

func (f *fakeStore) AppendEvent(ctx context.Context, vehicleID int64, expectedVersion int, event models.StageEvent, closesVisit bool) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextAppend > 0 {
		f.failNextAppend--
		return nil, repositories.ErrConflict
	}
	for _, v := range f.vehicles {
		if v.ID != vehicleID {
			continue
		}
		if v.Version != expectedVersion {
			return nil, repositories.ErrConflict
		}
		event.VehicleID = v.ID
		event.Seq = len(v.Stages) + 1
		v.Stages = append(v.Stages, event)
		v.Version++
		if closesVisit {
			ts := event.Timestamp
			v.ExitTime = &ts
		}
		return cloneVehicle(v), nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeStore) ListAll(ctx context.Context) ([]*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Vehicle, 0, len(f.vehicles))
	for _, v := range f.vehicles {
		out = append(out, cloneVehicle(v))
	}
	return out, nil
}

func (f *fakeStore) ListOpen(ctx context.Context) ([]*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Vehicle{}
	for _, v := range f.vehicles {
		if v.ExitTime == nil {
			out = append(out, cloneVehicle(v))
		}
	}
	return out, nil
}

func cloneVehicle(v *models.Vehicle) *models.Vehicle {
	c := *v
	c.Stages = append([]models.StageEvent(nil), v.Stages...)
	if v.ExitTime != nil {
		t := *v.ExitTime
		c.ExitTime = &t
	}
	return &c
}

// policyFunc adapts a function to BootstrapPolicy.
type policyFunc func(role string) bool

func (f policyFunc) BootstrapAllowed(role string) bool { return f(role) }

// captureNotifier records every vehicle published by the write path.
type captureNotifier struct {
	mu        sync.Mutex
	published []*models.Vehicle
}

func (n *captureNotifier) Publish(v *models.Vehicle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, v)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.published)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
