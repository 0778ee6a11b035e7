package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-backend/internal/models"
)

func newCheckService(store *fakeStore, notifier VehicleNotifier) *VehicleCheckService {
	svc := NewVehicleCheckService(store, policyFunc(func(role string) bool {
		return role == models.RoleServiceAdvisor
	}), notifier)
	svc.now = fixedClock(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	return svc
}

func checkReq(number, role, stage, eventType string) *models.VehicleCheckRequest {
	return &models.VehicleCheckRequest{
		VehicleNumber: number,
		Role:          role,
		StageName:     stage,
		EventType:     eventType,
	}
}

func TestProcessEntryCreatesVisit(t *testing.T) {
	store := newFakeStore()
	notifier := &captureNotifier{}
	svc := newCheckService(store, notifier)

	resp, err := svc.Process(context.Background(),
		checkReq("mh12ab1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.True(t, resp.IsNewVisit)
	require.NotNil(t, resp.Vehicle)
	assert.Equal(t, "MH12AB1234", resp.Vehicle.VehicleNumber, "number should be normalized")
	require.Len(t, resp.Vehicle.Stages, 1)
	assert.Equal(t, models.EventEntry, resp.Vehicle.Stages[0].EventType)
	assert.Equal(t, 1, notifier.count())
}

func TestProcessSecondEntryRejected(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	resp, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.False(t, resp.IsNewVisit)

	open, _ := store.ListOpen(ctx)
	require.Len(t, open, 1)
	assert.Len(t, open[0].Stages, 1, "rejected event must not be recorded")
}

func TestProcessStartFinishLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	resp, err := svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventStart))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Vehicle.Stages, 2)

	resp, err = svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventFinish))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Vehicle.Stages, 3)
	assert.Equal(t, models.EventFinish, resp.Vehicle.Stages[2].EventType)
}

func TestProcessDuplicateStartIsNoOp(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)
	_, err = svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventStart))
	require.NoError(t, err)

	resp, err := svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventStart))
	require.NoError(t, err)
	assert.True(t, resp.Success, "duplicate start acknowledged, not rejected")
	assert.Len(t, resp.Vehicle.Stages, 2, "no new event written")
}

func TestProcessFinishWithoutStartRejected(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	resp, err := svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventFinish))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Washing")
	assert.Len(t, resp.Vehicle.Stages, 1, "history unchanged on rejection")
}

func TestProcessExitClosesVisitAndAllowsReentry(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	resp, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventExit))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Vehicle.ExitTime)

	// Same number entering again opens a second, separate visit.
	resp, err = svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.IsNewVisit)

	all, _ := store.ListAll(ctx)
	assert.Len(t, all, 2)
}

func TestProcessBootstrapRequiresConfirmation(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	// Unconfirmed start on an unknown vehicle comes back as a prompt.
	req := checkReq("MH12AB1234", models.RoleServiceAdvisor, models.StageJobCardCreation, models.EventStart)
	resp, err := svc.Process(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.True(t, resp.RequiresConfirmation)

	all, _ := store.ListAll(ctx)
	assert.Empty(t, all, "nothing written before confirmation")

	// Confirmed start originates the visit.
	req.ConfirmNew = true
	resp, err = svc.Process(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.IsNewVisit)
	require.Len(t, resp.Vehicle.Stages, 1)
	assert.Equal(t, models.EventStart, resp.Vehicle.Stages[0].EventType)
}

func TestProcessBootstrapDeniedForPlainRole(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)

	resp, err := svc.Process(context.Background(),
		checkReq("MH12AB1234", "Technician", "Washing", models.EventStart))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.False(t, resp.RequiresConfirmation)
}

func TestProcessRetriesOnceOnConflict(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	store.failNextAppend = 1
	resp, err := svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventStart))
	require.NoError(t, err)
	assert.True(t, resp.Success, "second attempt against fresh state succeeds")
	assert.Len(t, resp.Vehicle.Stages, 2)
}

func TestProcessGivesUpAfterSecondConflict(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	store.failNextAppend = 2
	resp, err := svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventStart))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "retry")
}

func TestProcessValidatesInput(t *testing.T) {
	svc := newCheckService(newFakeStore(), nil)
	ctx := context.Background()

	_, err := svc.Process(ctx, checkReq("   ", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, "Pause"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProcessClampsTimestampsNonDecreasing(t *testing.T) {
	store := newFakeStore()
	svc := newCheckService(store, nil)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	svc.now = fixedClock(base)
	_, err := svc.Process(ctx, checkReq("MH12AB1234", models.RoleSecurityGuard, models.StageSecurityGate, models.EventEntry))
	require.NoError(t, err)

	// Clock jumps backwards between events.
	svc.now = fixedClock(base.Add(-5 * time.Minute))
	resp, err := svc.Process(ctx, checkReq("MH12AB1234", "Technician", "Washing", models.EventStart))
	require.NoError(t, err)
	require.Len(t, resp.Vehicle.Stages, 2)
	assert.False(t, resp.Vehicle.Stages[1].Timestamp.Before(resp.Vehicle.Stages[0].Timestamp),
		"event times stay non-decreasing across clock adjustments")
}
