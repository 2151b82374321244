package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/soyeahso/certagent/internal/domain"
	"github.com/soyeahso/certagent/internal/logging"
)

// DefaultSeed is the starter set of tiers. The last row is the catch-all
// tier the points resolver falls back to.
var DefaultSeed = []domain.Certification{
	{Category: "Any Professional or Specialty", Points: 10},
	{Category: "Any Associate or Hashicorp", Points: 5},
	{Category: "Anything Else", Points: 2.5},
}

// CertificationStore reads and seeds the certifications table.
// Rows are never updated or deleted; rowid order is insertion order.
type CertificationStore struct {
	db  *DB
	log *logging.Logger
}

// NewCertificationStore creates a certification store using the given database.
func NewCertificationStore(db *DB) *CertificationStore {
	return &CertificationStore{db: db, log: db.log.Sub("certifications")}
}

// Initialize creates the table if needed and inserts seed when the table is
// empty. An empty seed means DefaultSeed. It is safe to call repeatedly: an
// already populated table is left untouched. Returns the number of rows inserted.
func (s *CertificationStore) Initialize(ctx context.Context, seed []domain.Certification) (int, error) {
	if len(seed) == 0 {
		seed = DefaultSeed
	}

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin initialize: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createCertificationsTable); err != nil {
		return 0, fmt.Errorf("creating certifications table: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM certifications_table").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting certifications: %w", err)
	}
	if count > 0 {
		s.log.Debug().Int("rows", count).Msg("certifications already seeded")
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO certifications_table (cert_name, points) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range seed {
		if _, err := stmt.ExecContext(ctx, c.Category, c.Points); err != nil {
			return 0, fmt.Errorf("inserting %q: %w", c.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit initialize: %w", err)
	}

	s.log.Info().Int("rows", len(seed)).Msg("seeded certifications table")
	return len(seed), nil
}

// FetchAll returns every certification in insertion order.
// A row whose points value is NULL or not numeric is reported as an error.
func (s *CertificationStore) FetchAll(ctx context.Context) ([]domain.Certification, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT rowid, cert_name, points FROM certifications_table ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying certifications: %w", err)
	}
	defer rows.Close()

	var certs []domain.Certification
	for rows.Next() {
		var (
			rowid  int64
			name   string
			points sql.NullFloat64
		)
		if err := rows.Scan(&rowid, &name, &points); err != nil {
			return nil, fmt.Errorf("malformed certification row: %w", err)
		}
		if !points.Valid {
			return nil, fmt.Errorf("malformed certification row %d: points is NULL", rowid)
		}
		certs = append(certs, domain.Certification{Category: name, Points: points.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading certifications: %w", err)
	}
	return certs, nil
}

// Count returns the number of stored certifications.
func (s *CertificationStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM certifications_table").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting certifications: %w", err)
	}
	return n, nil
}
