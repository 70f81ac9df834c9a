package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/hs-classifier/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Record is one persisted classification.
type Record struct {
	ID          uuid.UUID                    `json:"id"`
	Region      domain.Region                `json:"region"`
	Description string                       `json:"description"`
	HasImage    bool                         `json:"hasImage"`
	HSCode      string                       `json:"hsCode"`
	Source      domain.Source                `json:"source"`
	Confidence  int                          `json:"confidenceScore"`
	Provider    string                       `json:"provider,omitempty"`
	Result      *domain.ClassificationResult `json:"result"`
	CreatedAt   time.Time                    `json:"createdAt"`
}

// HistoryRepository handles classification history.
type HistoryRepository struct {
	db  DB
	now func() time.Time
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: time.Now}
}

// Save inserts rec, assigning an ID and timestamp when unset.
func (r *HistoryRepository) Save(ctx context.Context, rec *Record) error {
	if rec.Result == nil {
		return domain.ValidationError("history record has no result", nil)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	rec.HSCode = rec.Result.HSCode
	rec.Source = rec.Result.Source
	rec.Confidence = rec.Result.ConfidenceScore

	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return domain.StorageError("encode result", err)
	}

	query := `
		INSERT INTO classifications (id, region, description, has_image, hs_code, source,
			confidence, provider, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID.String(), string(rec.Region), rec.Description, rec.HasImage, rec.HSCode,
		string(rec.Source), rec.Confidence, rec.Provider, string(payload), rec.CreatedAt,
	)
	if err != nil {
		return domain.StorageError("insert classification", err)
	}
	return nil
}

// List returns the most recent records first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]Record, error) {
	limit = ClampLimit(limit)

	query := `
		SELECT id, region, description, has_image, hs_code, source, confidence, provider,
			result, created_at
		FROM classifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.StorageError("query history", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterate history", err)
	}
	return records, nil
}

// GetByID retrieves a record by ID.
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `
		SELECT id, region, description, has_image, hs_code, source, confidence, provider,
			result, created_at
		FROM classifications WHERE id = $1
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec     Record
		id      string
		region  string
		source  string
		payload []byte
	)
	err := s.Scan(&id, &region, &rec.Description, &rec.HasImage, &rec.HSCode, &source,
		&rec.Confidence, &rec.Provider, &payload, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, domain.StorageError("scan classification", err)
	}

	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, domain.StorageError("parse classification id", err)
	}
	rec.Region = domain.Region(region)
	rec.Source = domain.Source(source)

	rec.Result = &domain.ClassificationResult{}
	if err := json.Unmarshal(payload, rec.Result); err != nil {
		return nil, domain.StorageError("decode stored result", err)
	}
	return &rec, nil
}
