package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"workshop-backend/internal/models"
)

// VehicleRepository is the ledger store: a durable mapping from vehicle
// number to its append-only visit history. A partial unique index on
// vehicles(vehicle_number) WHERE exit_time IS NULL enforces at most one
// open visit per number; a version column backs the optimistic
// check-and-mutate used by AppendEvent.
type VehicleRepository struct {
	DB *pgxpool.Pool
}

func NewVehicleRepository(db *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{DB: db}
}

const vehicleColumns = `id, vehicle_number, entry_time, exit_time, version, created_at, updated_at`

// GetOpenByNumber returns the open visit for a normalized vehicle
// number, or ErrNotFound.
func (r *VehicleRepository) GetOpenByNumber(ctx context.Context, vehicleNumber string) (*models.Vehicle, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE vehicle_number = $1 AND exit_time IS NULL`,
		vehicleNumber)
	return r.scanVehicleWithStages(ctx, row)
}

// GetLatestByNumber returns the most recent visit for a number, open or
// closed, or ErrNotFound.
func (r *VehicleRepository) GetLatestByNumber(ctx context.Context, vehicleNumber string) (*models.Vehicle, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE vehicle_number = $1 ORDER BY entry_time DESC LIMIT 1`,
		vehicleNumber)
	return r.scanVehicleWithStages(ctx, row)
}

// CreateVisit inserts a new visit and its first stage event in one
// transaction. Returns ErrConflict if an open visit already exists for
// the number (unique violation on the partial index).
func (r *VehicleRepository) CreateVisit(ctx context.Context, vehicleNumber string, event models.StageEvent) (*models.Vehicle, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback(ctx)

	v := &models.Vehicle{
		VehicleNumber: vehicleNumber,
		EntryTime:     event.Timestamp,
		Version:       1,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO vehicles (vehicle_number, entry_time, version)
		 VALUES ($1, $2, 1)
		 RETURNING id, created_at, updated_at`,
		vehicleNumber, event.Timestamp,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, storeErr(err)
	}

	event.VehicleID = v.ID
	event.Seq = 1
	if err := insertStageEvent(ctx, tx, &event); err != nil {
		return nil, storeErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr(err)
	}

	v.Stages = []models.StageEvent{event}
	return v, nil
}

// AppendEvent appends one stage event to an existing visit. The caller
// passes the version it read; if another writer bumped it in between,
// the update matches zero rows and the call fails with ErrConflict so
// the command layer can re-read and re-validate. closesVisit also sets
// exit_time to the event timestamp.
func (r *VehicleRepository) AppendEvent(ctx context.Context, vehicleID int64, expectedVersion int, event models.StageEvent, closesVisit bool) (*models.Vehicle, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE vehicles
		 SET version = version + 1,
		     updated_at = $3,
		     exit_time = CASE WHEN $4 THEN $3 ELSE exit_time END
		 WHERE id = $1 AND version = $2`,
		vehicleID, expectedVersion, event.Timestamp, closesVisit)
	if err != nil {
		return nil, storeErr(err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a stale version from a vanished visit.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`, vehicleID,
		).Scan(&exists); err != nil {
			return nil, storeErr(err)
		}
		if exists {
			return nil, ErrConflict
		}
		return nil, ErrNotFound
	}

	event.VehicleID = vehicleID
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM stage_events WHERE vehicle_id = $1`, vehicleID,
	).Scan(&event.Seq); err != nil {
		return nil, storeErr(err)
	}
	if err := insertStageEvent(ctx, tx, &event); err != nil {
		return nil, storeErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr(err)
	}

	return r.getByID(ctx, vehicleID)
}

// ListAll returns a point-in-time snapshot of every visit, newest entry
// first. No live-update semantics.
func (r *VehicleRepository) ListAll(ctx context.Context) ([]*models.Vehicle, error) {
	return r.list(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY entry_time DESC`)
}

// ListOpen returns the snapshot restricted to open visits.
func (r *VehicleRepository) ListOpen(ctx context.Context) ([]*models.Vehicle, error) {
	return r.list(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE exit_time IS NULL ORDER BY entry_time DESC`)
}

func (r *VehicleRepository) list(ctx context.Context, query string) ([]*models.Vehicle, error) {
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	byID := make(map[int64]*models.Vehicle)
	var ids []int64
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.VehicleNumber, &v.EntryTime, &v.ExitTime,
			&v.Version, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, storeErr(err)
		}
		v.Stages = []models.StageEvent{}
		vehicles = append(vehicles, &v)
		byID[v.ID] = &v
		ids = append(ids, v.ID)
	}
	if rows.Err() != nil {
		return nil, storeErr(rows.Err())
	}
	if len(ids) == 0 {
		return vehicles, nil
	}

	eventRows, err := r.DB.Query(ctx,
		`SELECT id, vehicle_id, seq, stage_name, event_type, role, event_time
		 FROM stage_events WHERE vehicle_id = ANY($1) ORDER BY vehicle_id, seq`, ids)
	if err != nil {
		return nil, storeErr(err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		var e models.StageEvent
		if err := eventRows.Scan(&e.ID, &e.VehicleID, &e.Seq,
			&e.StageName, &e.EventType, &e.Role, &e.Timestamp); err != nil {
			return nil, storeErr(err)
		}
		if v, ok := byID[e.VehicleID]; ok {
			v.Stages = append(v.Stages, e)
		}
	}
	if eventRows.Err() != nil {
		return nil, storeErr(eventRows.Err())
	}

	return vehicles, nil
}

func (r *VehicleRepository) getByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	return r.scanVehicleWithStages(ctx, row)
}

func (r *VehicleRepository) scanVehicleWithStages(ctx context.Context, row pgx.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.ID, &v.VehicleNumber, &v.EntryTime, &v.ExitTime,
		&v.Version, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, vehicle_id, seq, stage_name, event_type, role, event_time
		 FROM stage_events WHERE vehicle_id = $1 ORDER BY seq`, v.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	v.Stages = []models.StageEvent{}
	for rows.Next() {
		var e models.StageEvent
		if err := rows.Scan(&e.ID, &e.VehicleID, &e.Seq,
			&e.StageName, &e.EventType, &e.Role, &e.Timestamp); err != nil {
			return nil, storeErr(err)
		}
		v.Stages = append(v.Stages, e)
	}
	if rows.Err() != nil {
		return nil, storeErr(rows.Err())
	}

	return &v, nil
}

func insertStageEvent(ctx context.Context, tx pgx.Tx, e *models.StageEvent) error {
	return tx.QueryRow(ctx,
		`INSERT INTO stage_events (vehicle_id, seq, stage_name, event_type, role, event_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		e.VehicleID, e.Seq, e.StageName, e.EventType, e.Role, e.Timestamp,
	).Scan(&e.ID)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
