// Package points maps free-text certification names to a credit tier.
package points

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/certagent/internal/domain"
	"github.com/soyeahso/certagent/internal/logging"
)

// Outcome describes how a Result was produced.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"  // a keyword matched
	OutcomeFallback Outcome = "fallback"  // nothing matched; catch-all tier used
	OutcomeNotFound Outcome = "not_found" // the table is empty
	OutcomeError    Outcome = "error"     // the table could not be read
)

const errNoCertifications = "No certifications found in database"

// Source supplies the stored certifications in insertion order.
type Source interface {
	FetchAll(ctx context.Context) ([]domain.Certification, error)
}

// Result is the outcome of a lookup. Exactly one of Category or Error is set.
type Result struct {
	Category string
	Points   float64
	Outcome  Outcome
	Error    string
}

// OK reports whether the result carries a category.
func (r Result) OK() bool {
	return r.Error == ""
}

// Resolver matches certification names against stored category keywords.
type Resolver struct {
	source Source
	log    *logging.Logger
}

// NewResolver creates a resolver reading from source.
func NewResolver(source Source, log *logging.Logger) *Resolver {
	return &Resolver{source: source, log: log.Sub("points")}
}

// Resolve returns the first stored certification, in insertion order, that
// has a keyword appearing as a substring of the lowercased name. Failures are
// reported in Result.Error rather than as a Go error.
func (r *Resolver) Resolve(ctx context.Context, name string) Result {
	records, err := r.source.FetchAll(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("reading certifications")
		return Result{Outcome: OutcomeError, Error: fmt.Sprintf("Database error: %v", err)}
	}

	res := Match(records, name)
	r.log.Debug().
		Str("name", name).
		Str("outcome", string(res.Outcome)).
		Str("category", res.Category).
		Float64("points", res.Points).
		Msg("resolved certification")
	return res
}

// Match applies the keyword rule to an in-memory list of records.
func Match(records []domain.Certification, name string) Result {
	if len(records) == 0 {
		return Result{Outcome: OutcomeNotFound, Error: errNoCertifications}
	}

	query := strings.ToLower(name)
	for _, rec := range records {
		for _, kw := range rec.Keywords() {
			if strings.Contains(query, strings.ToLower(kw)) {
				return Result{Category: rec.Category, Points: rec.Points, Outcome: OutcomeResolved}
			}
		}
	}

	fallback := fallbackRecord(records)
	return Result{Category: fallback.Category, Points: fallback.Points, Outcome: OutcomeFallback}
}

// fallbackRecord is the no-match policy: the last record in insertion order is
// the catch-all tier. It is not necessarily the record with the fewest points.
func fallbackRecord(records []domain.Certification) domain.Certification {
	return records[len(records)-1]
}
