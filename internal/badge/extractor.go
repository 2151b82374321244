// Package badge reads badge details from public Credly badge pages.
package badge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/certagent/internal/domain"
	"github.com/soyeahso/certagent/internal/logging"
)

// DefaultWaitTimeout bounds how long Extract waits for the badge header.
const DefaultWaitTimeout = 60 * time.Second

// ErrWaitTimeout is returned by Page.WaitFor when the element never appears.
var ErrWaitTimeout = errors.New("timed out waiting for element")

// Selectors are the CSS selectors for each extracted field.
type Selectors struct {
	Header string // also the badge name
	Issuer string
	Holder string
	Dates  string
}

// DefaultSelectors returns the selectors for the current Credly layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Header: "div.cr-badges-full-badge__head-group",
		Issuer: "a.cr-badge-organization-name",
		Holder: "p.badge-banner-issued-to-text__name-and-celebrator-list",
		Dates:  "p.cr-badge-banner-issued-at-text",
	}
}

// withDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.Header == "" {
		s.Header = d.Header
	}
	if s.Issuer == "" {
		s.Issuer = d.Issuer
	}
	if s.Holder == "" {
		s.Holder = d.Holder
	}
	if s.Dates == "" {
		s.Dates = d.Dates
	}
	return s
}

// Config controls an Extractor.
type Config struct {
	WaitTimeout time.Duration
	Selectors   Selectors
}

// Page is a loaded badge page.
type Page interface {
	// WaitFor blocks until selector matches an element, returning
	// ErrWaitTimeout if that does not happen within timeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Text returns the rendered text of the first element matching selector.
	// found is false when no element matches; that is not an error.
	Text(selector string) (text string, found bool, err error)

	// HTML returns the rendered document markup.
	HTML() (string, error)
}

// Session is a browser owned by a single Extract call.
type Session interface {
	Navigate(ctx context.Context, url string) (Page, error)
	Close() error
}

// Launcher starts a fresh, isolated browser session.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Result is the outcome of one extraction. On failure Snapshot is nil and
// Error holds a message suitable for showing to the agent.
type Result struct {
	Snapshot *domain.BadgeSnapshot
	Error    string
	Timeout  bool
}

// OK reports whether a snapshot was produced.
func (r Result) OK() bool {
	return r.Snapshot != nil
}

// Extractor turns a badge URL into a BadgeSnapshot.
type Extractor struct {
	cfg      Config
	launcher Launcher
	log      *logging.Logger
}

// NewExtractor creates an extractor. Zero config values take the defaults.
func NewExtractor(cfg Config, launcher Launcher, log *logging.Logger) *Extractor {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	cfg.Selectors = cfg.Selectors.withDefaults()
	return &Extractor{cfg: cfg, launcher: launcher, log: log.Sub("badge")}
}

// Extract opens a browser session, loads url and reads the badge fields.
// The session is closed on every return path.
func (e *Extractor) Extract(ctx context.Context, url string) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("url", url).Msg("badge extraction panicked")
			res = failure(fmt.Errorf("%v", r))
		}
	}()

	sess, err := e.launcher.Launch(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("launching browser")
		return failure(err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			e.log.Warn().Err(err).Msg("closing browser session")
		}
	}()

	page, err := sess.Navigate(ctx, url)
	if err != nil {
		e.log.Warn().Err(err).Str("url", url).Msg("navigating to badge page")
		return failure(err)
	}

	if err := page.WaitFor(ctx, e.cfg.Selectors.Header, e.cfg.WaitTimeout); err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			e.log.Warn().Str("url", url).Dur("timeout", e.cfg.WaitTimeout).Msg("badge header never appeared")
			return Result{Error: "Page load timeout", Timeout: true}
		}
		return failure(err)
	}

	snap := domain.NewBadgeSnapshot()
	fields := []struct {
		selector string
		dst      *string
	}{
		{e.cfg.Selectors.Header, &snap.BadgeName},
		{e.cfg.Selectors.Issuer, &snap.IssuedBy},
		{e.cfg.Selectors.Holder, &snap.CertificateHolder},
		{e.cfg.Selectors.Dates, &snap.Dates},
	}
	for _, f := range fields {
		text, found, err := page.Text(f.selector)
		if err != nil {
			return failure(fmt.Errorf("reading %s: %w", f.selector, err))
		}
		if !found {
			e.log.Debug().Str("selector", f.selector).Msg("field missing, keeping default")
			continue
		}
		*f.dst = text
	}

	html, err := page.HTML()
	if err != nil {
		return failure(fmt.Errorf("reading page source: %w", err))
	}
	snap.IsExpired = IsExpired(html)

	e.log.Info().
		Str("url", url).
		Str("badge", snap.BadgeName).
		Bool("expired", snap.IsExpired).
		Dur("duration", time.Since(start)).
		Msg("badge extracted")
	return Result{Snapshot: &snap}
}

// IsExpired reports whether page text mentions expiry anywhere. "expire"
// also matches "expires", so a badge with a future expiry date is flagged too.
func IsExpired(pageText string) bool {
	text := strings.ToLower(pageText)
	return strings.Contains(text, "expired") || strings.Contains(text, "expire")
}

func failure(err error) Result {
	return Result{Error: fmt.Sprintf("Error parsing badge: %v", err)}
}
