// Package store persists analyzed texts to PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tsawler/sentiment"
)

// Prediction is one analyzed text as stored.
type Prediction struct {
	JobID         string
	Source        string
	URL           string
	Text          string
	Label         string
	Confidence    float64
	LowConfidence bool
	Labels        []string
	Probabilities []float64
	Generation    uint64
	CreatedAt     time.Time
}

// NewPrediction flattens a verdict into a storable row.
func NewPrediction(jobID, source, url, text string, res sentiment.PredictionResult, generation uint64) Prediction {
	p := Prediction{
		JobID:         jobID,
		Source:        source,
		URL:           url,
		Text:          text,
		Label:         res.Label,
		Confidence:    res.Confidence,
		LowConfidence: res.LowConfidence,
		Generation:    generation,
		CreatedAt:     time.Now().UTC(),
	}
	for _, s := range res.Scores {
		p.Labels = append(p.Labels, s.Label)
		p.Probabilities = append(p.Probabilities, s.Probability)
	}
	return p
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id             BIGSERIAL PRIMARY KEY,
	job_id         TEXT NOT NULL,
	source         TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL,
	sentiment      TEXT NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	low_confidence BOOLEAN NOT NULL,
	labels         TEXT[] NOT NULL DEFAULT '{}',
	probabilities  DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
	generation     BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS predictions_job_id_idx ON predictions (job_id);
`

// Store wraps a PostgreSQL connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("store: empty dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the predictions table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SavePrediction inserts p. Saving the same job twice is a no-op, so
// redelivered queue jobs are not double counted.
func (s *Store) SavePrediction(ctx context.Context, p Prediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	labels := p.Labels
	if labels == nil {
		labels = []string{}
	}
	probs := p.Probabilities
	if probs == nil {
		probs = []float64{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions
			(job_id, source, url, text, sentiment, confidence, low_confidence,
			 labels, probabilities, generation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO NOTHING`,
		p.JobID, p.Source, p.URL, p.Text, p.Label, p.Confidence, p.LowConfidence,
		pq.Array(labels), pq.Array(probs), int64(p.Generation), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", p.JobID, err)
	}
	return nil
}

// LabelCounts returns how many stored predictions carry each label.
func (s *Store) LabelCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sentiment, count(*) FROM predictions GROUP BY sentiment`)
	if err != nil {
		return nil, fmt.Errorf("store: label counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("store: label counts: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// Recent returns the newest predictions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, source, url, text, sentiment, confidence, low_confidence,
		       labels, probabilities, generation, created_at
		FROM predictions ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		var gen int64
		if err := rows.Scan(&p.JobID, &p.Source, &p.URL, &p.Text, &p.Label,
			&p.Confidence, &p.LowConfidence, pq.Array(&p.Labels),
			pq.Array(&p.Probabilities), &gen, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: recent: %w", err)
		}
		p.Generation = uint64(gen)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
