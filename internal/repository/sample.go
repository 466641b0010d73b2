package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/rate-tracker/internal/models"
)

// SampleRepo archives accepted price samples in Postgres. The live history
// series is never rebuilt from it.
type SampleRepo struct {
	pool   *pgxpool.Pool
	source string
}

func NewSampleRepo(pool *pgxpool.Pool, source string) *SampleRepo {
	if source == "" {
		source = "minfin"
	}
	return &SampleRepo{pool: pool, source: source}
}

func (r *SampleRepo) Record(ctx context.Context, code string, s models.PriceSample) (*models.ArchivedSample, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO rate_samples (code, timestamp, price, source)
		 VALUES ($1, $2, $3, $4) RETURNING id, code, timestamp, price, source, created_at`,
		strings.ToLower(code), s.Timestamp, s.Price, r.source,
	)
	return scanSample(row)
}

// GetByCode returns up to limit samples for code, newest first.
func (r *SampleRepo) GetByCode(ctx context.Context, code string, limit int) ([]models.ArchivedSample, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, timestamp, price, source, created_at
		 FROM rate_samples WHERE code = $1 ORDER BY timestamp DESC LIMIT $2`,
		strings.ToLower(code), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSamples(rows)
}

func (r *SampleRepo) GetLatest(ctx context.Context, code string) (*models.ArchivedSample, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, code, timestamp, price, source, created_at
		 FROM rate_samples WHERE code = $1 ORDER BY timestamp DESC LIMIT 1`,
		strings.ToLower(code),
	)
	s, err := scanSample(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSample(row scannable) (*models.ArchivedSample, error) {
	var s models.ArchivedSample
	if err := row.Scan(&s.ID, &s.Code, &s.Timestamp, &s.Price, &s.Source, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSamples(rows rowsIter) ([]models.ArchivedSample, error) {
	out := []models.ArchivedSample{}
	for rows.Next() {
		var s models.ArchivedSample
		if err := rows.Scan(&s.ID, &s.Code, &s.Timestamp, &s.Price, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
