package sqlite

import (
	"database/sql"
	"fmt"

	"funduscam/internal/model"
)

const captureColumns = `id, pair_id, kind, sequence, filename, filepath, filesize, width, height, timestamp`

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCapture(s scanner) (model.Capture, error) {
	var c model.Capture
	err := s.Scan(&c.ID, &c.PairID, &c.Kind, &c.Sequence, &c.Filename, &c.FilePath, &c.FileSize, &c.Width, &c.Height, &c.Timestamp)
	return c, err
}

// Insert adds a new capture record to the database.
func (r *CaptureRepository) Insert(c *model.Capture) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (pair_id, kind, sequence, filename, filepath, filesize, width, height, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.PairID, c.Kind, c.Sequence, c.Filename, c.FilePath, c.FileSize, c.Width, c.Height, c.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetByID retrieves a capture by its ID. It returns nil, nil when no row matches.
func (r *CaptureRepository) GetByID(id int64) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	c, err := scanCapture(r.db.Conn().QueryRow(`SELECT `+captureColumns+` FROM captures WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return &c, nil
}

// GetAll retrieves captures based on filter criteria, newest first.
func (r *CaptureRepository) GetAll(filter *model.CaptureFilter) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + captureColumns + ` FROM captures` + where + ` ORDER BY timestamp DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return r.query(query, args...)
}

// GetByPairID returns all captures of one pair in write order.
func (r *CaptureRepository) GetByPairID(pairID string) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.query(`SELECT `+captureColumns+` FROM captures WHERE pair_id = ? ORDER BY id ASC`, pairID)
}

func (r *CaptureRepository) query(query string, args ...interface{}) ([]model.Capture, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var captures []model.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// Count returns the number of captures matching the filter's kind and pair.
// Limit and offset are ignored; a nil filter counts everything.
func (r *CaptureRepository) Count(filter *model.CaptureFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow("SELECT COUNT(*) FROM captures"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return count, nil
}

func filterClause(filter *model.CaptureFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return where, args
	}
	if filter.Kind != "" {
		where += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.PairID != "" {
		where += " AND pair_id = ?"
		args = append(args, filter.PairID)
	}
	return where, args
}

// DeleteAll removes all capture records. Files on disk are left alone.
func (r *CaptureRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec("DELETE FROM captures"); err != nil {
		return fmt.Errorf("failed to delete captures: %w", err)
	}
	return nil
}
