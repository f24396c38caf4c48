package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikhiltv/tripforge/core/model"
)

// SQLiteStore persists trips to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS trips (
        id TEXT PRIMARY KEY,
        code TEXT,
        route_id TEXT,
        bus_id TEXT,
        driver_id TEXT,
        conductor_id TEXT,
        depot_id TEXT,
        service_date INTEGER,
        start_time TEXT,
        end_time TEXT,
        duration_min INTEGER,
        fare REAL,
        capacity INTEGER,
        available_seats INTEGER,
        booked_seats INTEGER,
        status TEXT,
        slot_kind TEXT,
        fare_class TEXT,
        booking_open INTEGER,
        created_at INTEGER,
        updated_at INTEGER
    );
    CREATE INDEX IF NOT EXISTS idx_trips_date ON trips(service_date);
    CREATE INDEX IF NOT EXISTS idx_trips_depot_date ON trips(depot_id, service_date);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("schema: %v (close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const insertTripSQL = `INSERT INTO trips (
    id, code, route_id, bus_id, driver_id, conductor_id, depot_id,
    service_date, start_time, end_time, duration_min,
    fare, capacity, available_seats, booked_seats,
    status, slot_kind, fare_class, booking_open, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// InsertBatch saves trips one statement at a time; per-record failures
// (duplicate IDs) are collected and the rest of the batch proceeds.
func (s *SQLiteStore) InsertBatch(ctx context.Context, trips []model.Trip) (int, []FailedTrip, error) {
	stmt, err := s.db.PrepareContext(ctx, insertTripSQL)
	if err != nil {
		return 0, nil, fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var failed []FailedTrip
	inserted := 0
	for _, t := range trips {
		_, err := stmt.ExecContext(ctx,
			t.ID, t.Code, t.RouteID, t.BusID, t.DriverID, t.ConductorID, t.DepotID,
			t.ServiceDate.Unix(), t.StartTime, t.EndTime, t.DurationMin,
			t.Fare, t.Capacity, t.AvailableSeats, t.BookedSeats,
			string(t.Status), t.SlotKind, string(t.FareClass), boolToInt(t.BookingOpen),
			t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
		)
		if err != nil {
			failed = append(failed, FailedTrip{Trip: t, Err: err.Error()})
			continue
		}
		inserted++
	}
	return inserted, failed, nil
}

func (s *SQLiteStore) DeleteRange(ctx context.Context, depotID string, from, to time.Time, statuses []model.TripStatus) (int, error) {
	q := "DELETE FROM trips WHERE service_date >= ? AND service_date < ?"
	args := []any{from.Unix(), to.Unix()}
	if depotID != "" {
		q += " AND depot_id = ?"
		args = append(args, depotID)
	}
	if len(statuses) > 0 {
		q += " AND status IN (?" + strings.Repeat(",?", len(statuses)-1) + ")"
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete range: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) ListRange(ctx context.Context, from, to time.Time) ([]model.Trip, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
        id, code, route_id, bus_id, driver_id, conductor_id, depot_id,
        service_date, start_time, end_time, duration_min,
        fare, capacity, available_seats, booked_seats,
        status, slot_kind, fare_class, booking_open, created_at, updated_at
        FROM trips WHERE service_date >= ? AND service_date < ?
        ORDER BY service_date, start_time, code`, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("list range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Trip
	for rows.Next() {
		var t model.Trip
		var svc, created, updated int64
		var status, class string
		var open int
		if err := rows.Scan(
			&t.ID, &t.Code, &t.RouteID, &t.BusID, &t.DriverID, &t.ConductorID, &t.DepotID,
			&svc, &t.StartTime, &t.EndTime, &t.DurationMin,
			&t.Fare, &t.Capacity, &t.AvailableSeats, &t.BookedSeats,
			&status, &t.SlotKind, &class, &open, &created, &updated,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		t.ServiceDate = time.Unix(svc, 0).UTC()
		t.CreatedAt = time.Unix(created, 0).UTC()
		t.UpdatedAt = time.Unix(updated, 0).UTC()
		t.Status = model.TripStatus(status)
		t.FareClass = model.FareClass(class)
		t.BookingOpen = open != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, tripID string, status model.TripStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE trips SET status = ?, updated_at = ? WHERE id = ?",
		string(status), at.Unix(), tripID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("trip %s not found", tripID)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
