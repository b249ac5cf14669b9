package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// RequestRepository implements [models.Repository] for [models.Request] history.
type RequestRepository struct {
	db *sql.DB
}

// NewRequestRepository creates a new [RequestRepository] with the given database connection
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a request with a generated ID. CreatedAt defaults to now.
func (r *RequestRepository) Create(req *models.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	req.ID = shared.GenerateID()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO requests (id, input, genre, playlist_id, device_name, track_count, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, req.ID, req.Input, req.Genre, req.PlaylistID, req.DeviceName,
		req.TrackCount, string(req.Status), req.Error, dbTime(req.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// Record implements the history sink used by the playback engine.
func (r *RequestRepository) Record(req *models.Request) error {
	return r.Create(req)
}

// Get retrieves a request by ID
func (r *RequestRepository) Get(id string) (*models.Request, error) {
	row := r.db.QueryRow(`
		SELECT id, input, genre, playlist_id, device_name, track_count, status, error, created_at
		FROM requests WHERE id = ?
	`, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return req, err
}

// Delete removes a request by ID
func (r *RequestRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM requests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return expectOne(result, "request", id)
}

// List returns requests newest first.
//
// Supported criteria: "status" ([models.RequestStatus] or string) and "limit" (int).
func (r *RequestRepository) List(criteria map[string]any) ([]*models.Request, error) {
	query := `
		SELECT id, input, genre, playlist_id, device_name, track_count, status, error, created_at
		FROM requests WHERE 1 = 1
	`
	args := []any{}

	switch status := criteria["status"].(type) {
	case models.RequestStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if limit, ok := intCriteria(criteria, "limit"); ok {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return requests, nil
}

func scanRequest(s scanner) (*models.Request, error) {
	var (
		req    models.Request
		status string
	)
	err := s.Scan(&req.ID, &req.Input, &req.Genre, &req.PlaylistID, &req.DeviceName,
		&req.TrackCount, &status, &req.Error, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}
	req.Status = models.RequestStatus(status)
	req.CreatedAt = req.CreatedAt.Local()
	return &req, nil
}
