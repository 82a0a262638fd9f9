package sqlite

import (
	"fmt"
	"time"

	"trafficmonitor/internal/model"
	"trafficmonitor/internal/repository"
)

// Fixed-width UTC layout, so text order equals time order.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// CountRepository implements repository.CountRepository for SQLite.
type CountRepository struct {
	db *DB
}

var _ repository.CountRepository = (*CountRepository)(nil)

// NewCountRepository creates a new SQLite count repository.
func NewCountRepository(db *DB) *CountRepository {
	return &CountRepository{db: db}
}

// Insert adds a new count record and sets its ID.
func (r *CountRepository) Insert(rec *model.CountRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if r.db.Closed() {
		return 0, &repository.StoreError{Op: "insert", Err: repository.ErrStoreClosed}
	}
	if rec.Total != rec.Counts.Total() {
		return 0, &repository.StoreError{Op: "insert", Err: fmt.Errorf("total %d does not match counts %d", rec.Total, rec.Counts.Total())}
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO count_records (junction, total_count, car_count, bus_count, truck_count, motorcycle_count, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Junction, rec.Total, rec.Counts.Car, rec.Counts.Bus, rec.Counts.Truck, rec.Counts.Motorcycle,
		rec.Timestamp.UTC().Format(timestampLayout))
	if err != nil {
		return 0, &repository.StoreError{Op: "insert", Err: fmt.Errorf("failed to insert count record: %w", err)}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, &repository.StoreError{Op: "insert", Err: err}
	}
	rec.ID = id
	return id, nil
}

// GetRecent retrieves the newest records, most recent first.
func (r *CountRepository) GetRecent(limit int) ([]model.CountRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if r.db.Closed() {
		return nil, &repository.StoreError{Op: "query", Err: repository.ErrStoreClosed}
	}
	if limit <= 0 {
		return []model.CountRecord{}, nil
	}

	rows, err := r.db.Conn().Query(`
		SELECT id, junction, total_count, car_count, bus_count, truck_count, motorcycle_count, timestamp
		FROM count_records
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, &repository.StoreError{Op: "query", Err: fmt.Errorf("failed to query count records: %w", err)}
	}
	defer rows.Close()

	records := make([]model.CountRecord, 0, limit)
	for rows.Next() {
		var rec model.CountRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.Junction, &rec.Total, &rec.Counts.Car, &rec.Counts.Bus,
			&rec.Counts.Truck, &rec.Counts.Motorcycle, &ts); err != nil {
			return nil, &repository.StoreError{Op: "query", Err: fmt.Errorf("failed to scan count record: %w", err)}
		}
		if rec.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, &repository.StoreError{Op: "query", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &repository.StoreError{Op: "query", Err: err}
	}

	return records, nil
}

// Count returns the number of stored records.
func (r *CountRepository) Count() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if r.db.Closed() {
		return 0, &repository.StoreError{Op: "count", Err: repository.ErrStoreClosed}
	}

	var n int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM count_records`).Scan(&n); err != nil {
		return 0, &repository.StoreError{Op: "count", Err: fmt.Errorf("failed to count records: %w", err)}
	}
	return n, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
