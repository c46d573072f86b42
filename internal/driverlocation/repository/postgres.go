package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"laundry-ops/backend/internal/driverlocation/domain"
)

const snapshotColumns = `id, driver_id, lat, lng, speed_kph, heading, accuracy_meters, altitude_meters,
	battery_level_pct, source, order_id, delivery_id, recorded_at, metadata, is_manual_override, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a driver location store backed by the driver_locations table.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpdateDriverLocation inserts the location and returns the stored row. The snapshot timestamp is the
// server insert time.
func (r *PostgresRepository) UpdateDriverLocation(ctx context.Context, u domain.LocationUpdate) (*domain.Snapshot, error) {
	var metadata []byte
	if u.Metadata != nil {
		b, err := json.Marshal(u.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = b
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO driver_locations (driver_id, lat, lng, speed_kph, heading, accuracy_meters, altitude_meters,
			battery_level_pct, source, order_id, delivery_id, recorded_at, metadata, is_manual_override)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+snapshotColumns,
		u.DriverID, u.Lat, u.Lng,
		nullFloat(u.SpeedKph), nullFloat(u.Heading), nullFloat(u.AccuracyMeters), nullFloat(u.AltitudeMeters),
		nullFloat(u.BatteryLevelPct), nullStr(u.Source), nullStr(u.OrderID), nullStr(u.DeliveryID),
		nullTime(u.RecordedAt), metadata, u.IsManualOverride,
	)
	return scanSnapshot(row)
}

// LatestDriverLocations returns the newest row per driver. An empty driverIDs means all drivers.
func (r *PostgresRepository) LatestDriverLocations(ctx context.Context, driverIDs []string) ([]*domain.Snapshot, error) {
	query := `SELECT DISTINCT ON (driver_id) ` + snapshotColumns + ` FROM driver_locations`
	var args []any
	if len(driverIDs) > 0 {
		query += ` WHERE driver_id = ANY($1)`
		args = append(args, driverIDs)
	}
	query += ` ORDER BY driver_id, created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// DriverLocationHistory returns the driver's rows newest first, bounded by q.
func (r *PostgresRepository) DriverLocationHistory(ctx context.Context, driverID string, q domain.HistoryQuery) ([]*domain.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM driver_locations WHERE driver_id = $1`
	args := []any{driverID}
	if q.SinceMinutes > 0 {
		args = append(args, time.Now().Add(-time.Duration(q.SinceMinutes)*time.Minute))
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*domain.Snapshot, error) {
	var s domain.Snapshot
	var speed, heading, accuracy, altitude, battery sql.NullFloat64
	var source, orderID, deliveryID sql.NullString
	var recordedAt sql.NullTime
	var metadata []byte
	if err := row.Scan(&s.ID, &s.DriverID, &s.Lat, &s.Lng, &speed, &heading, &accuracy, &altitude,
		&battery, &source, &orderID, &deliveryID, &recordedAt, &metadata, &s.IsManualOverride, &s.Timestamp); err != nil {
		return nil, err
	}
	s.SpeedKph = floatPtr(speed)
	s.Heading = floatPtr(heading)
	s.AccuracyMeters = floatPtr(accuracy)
	s.AltitudeMeters = floatPtr(altitude)
	s.BatteryLevelPct = floatPtr(battery)
	s.Source = strPtr(source)
	s.OrderID = strPtr(orderID)
	s.DeliveryID = strPtr(deliveryID)
	if recordedAt.Valid {
		t := recordedAt.Time.UTC()
		s.RecordedAt = &t
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &s.Metadata)
	}
	s.Timestamp = s.Timestamp.UTC()
	return &s, nil
}

func collect(rows *sql.Rows) ([]*domain.Snapshot, error) {
	defer rows.Close()
	var out []*domain.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
