package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-backend/internal/models"
	"workshop-backend/internal/repositories"
	"workshop-backend/internal/services"
)

// memoryStore is a minimal in-memory services.LedgerStore for handler
// tests. Conflict simulation lives in the service-level tests; here the
// store just behaves.
type memoryStore struct {
	vehicles []*models.Vehicle
	nextID   int64
}

func (m *memoryStore) GetOpenByNumber(ctx context.Context, number string) (*models.Vehicle, error) {
	for _, v := range m.vehicles {
		if v.VehicleNumber == number && v.ExitTime == nil {
			return v, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryStore) GetLatestByNumber(ctx context.Context, number string) (*models.Vehicle, error) {
	var latest *models.Vehicle
	for _, v := range m.vehicles {
		if v.VehicleNumber != number {
			continue
		}
		if latest == nil || v.EntryTime.After(latest.EntryTime) {
			latest = v
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return latest, nil
}

func (m *memoryStore) CreateVisit(ctx context.Context, number string, event models.StageEvent) (*models.Vehicle, error) {
	if _, err := m.GetOpenByNumber(ctx, number); err == nil {
		return nil, repositories.ErrConflict
	}
	m.nextID++
	event.Seq = 1
	v := &models.Vehicle{
		ID:            m.nextID,
		VehicleNumber: number,
		EntryTime:     event.Timestamp,
		Stages:        []models.StageEvent{event},
		Version:       1,
	}
	m.vehicles = append(m.vehicles, v)
	return v, nil
}

func (m *memoryStore) AppendEvent(ctx context.Context, vehicleID int64, expectedVersion int, event models.StageEvent, closesVisit bool) (*models.Vehicle, error) {
	for _, v := range m.vehicles {
		if v.ID != vehicleID {
			continue
		}
		if v.Version != expectedVersion {
			return nil, repositories.ErrConflict
		}
		event.Seq = len(v.Stages) + 1
		v.Stages = append(v.Stages, event)
		v.Version++
		if closesVisit {
			ts := event.Timestamp
			v.ExitTime = &ts
		}
		return v, nil
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryStore) ListAll(ctx context.Context) ([]*models.Vehicle, error) {
	return m.vehicles, nil
}

func (m *memoryStore) ListOpen(ctx context.Context) ([]*models.Vehicle, error) {
	open := []*models.Vehicle{}
	for _, v := range m.vehicles {
		if v.ExitTime == nil {
			open = append(open, v)
		}
	}
	return open, nil
}

type allowAdvisors struct{}

func (allowAdvisors) BootstrapAllowed(role string) bool {
	return role == models.RoleServiceAdvisor
}

func newTestHandler() (*VehicleHandler, *memoryStore) {
	store := &memoryStore{}
	check := services.NewVehicleCheckService(store, allowAdvisors{}, nil)
	query := services.NewVehicleQueryService(store)
	return NewVehicleHandler(check, query), store
}

func postCheck(t *testing.T, h *VehicleHandler, req *models.VehicleCheckRequest) (*httptest.ResponseRecorder, *models.VehicleCheckResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.VehicleCheck(rec, httptest.NewRequest(http.MethodPost, "/api/vehicle-check", bytes.NewReader(body)))

	var resp models.VehicleCheckResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, &resp
}

func TestVehicleCheckEndToEnd(t *testing.T) {
	h, _ := newTestHandler()

	rec, resp := postCheck(t, h, &models.VehicleCheckRequest{
		VehicleNumber: "mh12ab1234",
		Role:          models.RoleSecurityGuard,
		StageName:     models.StageSecurityGate,
		EventType:     models.EventEntry,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.True(t, resp.IsNewVisit)
	require.NotNil(t, resp.Vehicle)
	assert.Equal(t, "MH12AB1234", resp.Vehicle.VehicleNumber)
}

func TestVehicleCheckRejectionIsHTTP200(t *testing.T) {
	h, _ := newTestHandler()

	// Finish without any open visit is a transition rejection, not a
	// transport failure.
	rec, resp := postCheck(t, h, &models.VehicleCheckRequest{
		VehicleNumber: "MH12AB1234",
		Role:          "Technician",
		StageName:     "Washing",
		EventType:     models.EventFinish,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestVehicleCheckInvalidInputIs400(t *testing.T) {
	h, _ := newTestHandler()

	rec, _ := postCheck(t, h, &models.VehicleCheckRequest{
		VehicleNumber: "MH12AB1234",
		Role:          "Technician",
		StageName:     "Washing",
		EventType:     "Pause",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.VehicleCheck(rec, httptest.NewRequest(http.MethodPost, "/api/vehicle-check",
		bytes.NewReader([]byte("{not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListVehicles(t *testing.T) {
	h, _ := newTestHandler()

	_, _ = postCheck(t, h, &models.VehicleCheckRequest{
		VehicleNumber: "MH12AB1234",
		Role:          models.RoleSecurityGuard,
		StageName:     models.StageSecurityGate,
		EventType:     models.EventEntry,
	})

	rec := httptest.NewRecorder()
	h.ListVehicles(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var list models.VehicleListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.True(t, list.Success)
	assert.Len(t, list.Vehicles, 1)
}

func TestListInProgressDefaultsToJobCardStage(t *testing.T) {
	h, _ := newTestHandler()

	_, _ = postCheck(t, h, &models.VehicleCheckRequest{
		VehicleNumber: "MH12AB1234",
		Role:          models.RoleSecurityGuard,
		StageName:     models.StageSecurityGate,
		EventType:     models.EventEntry,
	})
	_, _ = postCheck(t, h, &models.VehicleCheckRequest{
		VehicleNumber: "MH12AB1234",
		Role:          models.RoleServiceAdvisor,
		StageName:     models.StageJobCardCreation,
		EventType:     models.EventStart,
	})

	rec := httptest.NewRecorder()
	h.ListInProgress(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles/in-progress", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var list models.VehicleListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Vehicles, 1)
	assert.Equal(t, "MH12AB1234", list.Vehicles[0].VehicleNumber)

	// A stage nothing is sitting in comes back empty.
	rec = httptest.NewRecorder()
	h.ListInProgress(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles/in-progress?stage=Washing", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Vehicles)
}

func TestGetVehicle(t *testing.T) {
	h, _ := newTestHandler()

	_, _ = postCheck(t, h, &models.VehicleCheckRequest{
		VehicleNumber: "MH12AB1234",
		Role:          models.RoleSecurityGuard,
		StageName:     models.StageSecurityGate,
		EventType:     models.EventEntry,
	})

	router := mux.NewRouter()
	router.HandleFunc("/api/vehicles/{vehicleNumber}", h.GetVehicle).Methods("GET")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles/mh12ab1234", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles/MH99ZZ0000", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
