package submission

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("submission not found")

// Store persists submissions in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const submissionColumns = `id::text, email, companies, roles, seniority, cities, visa_required, frequency, template_path, status, created_at`

func (s *Store) Create(ctx context.Context, sub Submission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (id, email, companies, roles, seniority, cities, visa_required, frequency, template_path, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sub.ID, sub.Email, sub.Companies, sub.Roles, sub.Seniority, sub.Cities,
		sub.VisaRequired, sub.Frequency, sub.TemplatePath, string(sub.Status), sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Submission, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, fmt.Errorf("failed to get submission %s: %w", id, err)
	}
	return sub, nil
}

// List returns the newest submissions, optionally restricted to one status.
func (s *Store) List(ctx context.Context, status string, limit int) ([]Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(row pgx.Row) (Submission, error) {
	var (
		sub    Submission
		status string
	)
	err := row.Scan(&sub.ID, &sub.Email, &sub.Companies, &sub.Roles, &sub.Seniority, &sub.Cities,
		&sub.VisaRequired, &sub.Frequency, &sub.TemplatePath, &status, &sub.CreatedAt)
	sub.Status = Status(status)
	return sub, err
}
