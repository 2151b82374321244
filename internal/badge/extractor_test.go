package badge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/soyeahso/certagent/internal/domain"
	"github.com/soyeahso/certagent/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePage serves element text from a map keyed by selector.
type fakePage struct {
	elements map[string]string
	html     string

	waitErr  error
	textErr  error
	htmlErr  error
	panicMsg string

	waitedFor     string
	waitedTimeout time.Duration
}

func (p *fakePage) WaitFor(_ context.Context, selector string, timeout time.Duration) error {
	p.waitedFor = selector
	p.waitedTimeout = timeout
	return p.waitErr
}

func (p *fakePage) Text(selector string) (string, bool, error) {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.textErr != nil {
		return "", false, p.textErr
	}
	text, ok := p.elements[selector]
	return text, ok, nil
}

func (p *fakePage) HTML() (string, error) {
	return p.html, p.htmlErr
}

type fakeSession struct {
	page        *fakePage
	navigateErr error
	closed      int
	navigatedTo string
}

func (s *fakeSession) Navigate(_ context.Context, url string) (Page, error) {
	s.navigatedTo = url
	if s.navigateErr != nil {
		return nil, s.navigateErr
	}
	return s.page, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeLauncher struct {
	sessions  []*fakeSession
	launchErr error
	launched  int
}

func (l *fakeLauncher) Launch(context.Context) (Session, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	s := l.sessions[l.launched]
	l.launched++
	return s, nil
}

const badgeURL = "https://www.credly.com/badges/90ee2ee9-f6cf-4d9b-8a52-f631d8644d58/public_url"

func fullPage() *fakePage {
	sel := DefaultSelectors()
	return &fakePage{
		elements: map[string]string{
			sel.Header: "AWS Certified Solutions Architect – Professional",
			sel.Issuer: "Amazon Web Services Training and Certification",
			sel.Holder: "Jane Doe",
			sel.Dates:  "Date issued: January 5, 2024",
		},
		html: "<html><body><h1>AWS Certified Solutions Architect</h1></body></html>",
	}
}

func newTestExtractor(cfg Config, l Launcher) *Extractor {
	return NewExtractor(cfg, l, logging.New(nil, "silent"))
}

func TestExtract_AllFields(t *testing.T) {
	sess := &fakeSession{page: fullPage()}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	require.True(t, res.OK(), res.Error)

	want := domain.BadgeSnapshot{
		BadgeName:         "AWS Certified Solutions Architect – Professional",
		IssuedBy:          "Amazon Web Services Training and Certification",
		CertificateHolder: "Jane Doe",
		Dates:             "Date issued: January 5, 2024",
		IsExpired:         false,
	}
	if diff := cmp.Diff(want, *res.Snapshot); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, badgeURL, sess.navigatedTo)
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_WaitsForHeaderWithDefaultTimeout(t *testing.T) {
	sess := &fakeSession{page: fullPage()}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	ex.Extract(context.Background(), badgeURL)
	assert.Equal(t, "div.cr-badges-full-badge__head-group", sess.page.waitedFor)
	assert.Equal(t, 60*time.Second, sess.page.waitedTimeout)
}

func TestExtract_MissingIssuerDegradesToUnknown(t *testing.T) {
	page := fullPage()
	delete(page.elements, DefaultSelectors().Issuer)
	sess := &fakeSession{page: page}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	require.True(t, res.OK())
	assert.Equal(t, "Unknown", res.Snapshot.IssuedBy)
	assert.Equal(t, "AWS Certified Solutions Architect – Professional", res.Snapshot.BadgeName)
	assert.Equal(t, "Jane Doe", res.Snapshot.CertificateHolder)
	assert.Equal(t, "Date issued: January 5, 2024", res.Snapshot.Dates)
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_OnlyHeaderPresent(t *testing.T) {
	sel := DefaultSelectors()
	page := &fakePage{elements: map[string]string{sel.Header: "Terraform Associate"}}
	sess := &fakeSession{page: page}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	require.True(t, res.OK())

	want := domain.NewBadgeSnapshot()
	want.BadgeName = "Terraform Associate"
	if diff := cmp.Diff(want, *res.Snapshot); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_HeaderTimeout(t *testing.T) {
	page := fullPage()
	page.waitErr = ErrWaitTimeout
	sess := &fakeSession{page: page}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	assert.False(t, res.OK())
	assert.Nil(t, res.Snapshot)
	assert.True(t, res.Timeout)
	assert.Equal(t, "Page load timeout", res.Error)
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_ExpiryDetection(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"expires phrase", "<p>Certification expires March 2026</p>", true},
		{"expired upper", "<span>EXPIRED</span>", true},
		{"expiration", "<p>Expiration date: none</p>", false},
		{"no mention", "<p>Issued January 2024</p>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := fullPage()
			page.html = tt.html
			ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{{page: page}}})

			res := ex.Extract(context.Background(), badgeURL)
			require.True(t, res.OK())
			assert.Equal(t, tt.want, res.Snapshot.IsExpired)
		})
	}
}

func TestIsExpired(t *testing.T) {
	assert.True(t, IsExpired("Certification expires March 2026"))
	assert.True(t, IsExpired("This badge has Expired"))
	assert.False(t, IsExpired("Valid forever"))
	assert.False(t, IsExpired(""))
}

func TestExtract_NavigationError(t *testing.T) {
	sess := &fakeSession{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), "https://nope.invalid/badge")
	assert.False(t, res.OK())
	assert.False(t, res.Timeout)
	assert.Equal(t, "Error parsing badge: net::ERR_NAME_NOT_RESOLVED", res.Error)
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_LaunchError(t *testing.T) {
	ex := newTestExtractor(Config{}, &fakeLauncher{launchErr: errors.New("chrome not found")})

	res := ex.Extract(context.Background(), badgeURL)
	assert.False(t, res.OK())
	assert.Contains(t, res.Error, "chrome not found")
}

func TestExtract_NonTimeoutWaitError(t *testing.T) {
	page := fullPage()
	page.waitErr = errors.New("target closed")
	sess := &fakeSession{page: page}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	assert.False(t, res.Timeout)
	assert.Equal(t, "Error parsing badge: target closed", res.Error)
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_FieldReadErrorAbortsWholeExtraction(t *testing.T) {
	page := fullPage()
	page.textErr = errors.New("node detached")
	sess := &fakeSession{page: page}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	assert.Nil(t, res.Snapshot)
	assert.Contains(t, res.Error, "node detached")
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_HTMLError(t *testing.T) {
	page := fullPage()
	page.htmlErr = errors.New("websocket closed")
	sess := &fakeSession{page: page}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	assert.Nil(t, res.Snapshot)
	assert.Contains(t, res.Error, "websocket closed")
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_PanicIsCaughtAndSessionClosed(t *testing.T) {
	page := fullPage()
	page.panicMsg = "browser crashed"
	sess := &fakeSession{page: page}
	ex := newTestExtractor(Config{}, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	assert.Nil(t, res.Snapshot)
	assert.Equal(t, "Error parsing badge: browser crashed", res.Error)
	assert.Equal(t, 1, sess.closed)
}

func TestExtract_FreshSessionPerCall(t *testing.T) {
	s1 := &fakeSession{page: fullPage()}
	s2 := &fakeSession{page: fullPage()}
	l := &fakeLauncher{sessions: []*fakeSession{s1, s2}}
	ex := newTestExtractor(Config{}, l)

	ex.Extract(context.Background(), badgeURL)
	ex.Extract(context.Background(), badgeURL)

	assert.Equal(t, 2, l.launched)
	assert.Equal(t, 1, s1.closed)
	assert.Equal(t, 1, s2.closed)
}

func TestExtract_CustomSelectorsAndTimeout(t *testing.T) {
	page := &fakePage{elements: map[string]string{
		"h1.title":  "CKA",
		"a.issuer":  "The Linux Foundation",
		"p.holder":  "Sam Lee",
		"p.issued":  "Issued 2023",
		"div.other": "ignored",
	}}
	sess := &fakeSession{page: page}
	cfg := Config{
		WaitTimeout: 5 * time.Second,
		Selectors:   Selectors{Header: "h1.title", Issuer: "a.issuer", Holder: "p.holder", Dates: "p.issued"},
	}
	ex := newTestExtractor(cfg, &fakeLauncher{sessions: []*fakeSession{sess}})

	res := ex.Extract(context.Background(), badgeURL)
	require.True(t, res.OK())
	assert.Equal(t, "h1.title", page.waitedFor)
	assert.Equal(t, 5*time.Second, page.waitedTimeout)
	assert.Equal(t, "The Linux Foundation", res.Snapshot.IssuedBy)
}

func TestSelectorsWithDefaults(t *testing.T) {
	s := Selectors{Issuer: "a.custom"}.withDefaults()
	d := DefaultSelectors()
	assert.Equal(t, d.Header, s.Header)
	assert.Equal(t, "a.custom", s.Issuer)
	assert.Equal(t, d.Holder, s.Holder)
	assert.Equal(t, d.Dates, s.Dates)
}
