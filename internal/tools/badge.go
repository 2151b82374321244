package tools

import (
	"context"
	"strings"

	"github.com/soyeahso/certagent/internal/logging"
)

// ParseBadge is the parse_credly_badge tool.
type ParseBadge struct {
	extractor BadgeExtractor
	log       *logging.Logger
}

// NewParseBadge wraps extractor as a tool.
func NewParseBadge(extractor BadgeExtractor, log *logging.Logger) *ParseBadge {
	return &ParseBadge{extractor: extractor, log: log.Sub("tools")}
}

func (t *ParseBadge) Name() string { return ParseBadgeName }

func (t *ParseBadge) Description() string {
	return "Extract badge details (name, issuer, holder, dates, expiry) from a public Credly badge URL " +
		"using a headless browser."
}

func (t *ParseBadge) InputSchema() string {
	return inputSchema{
		Type: "object",
		Properties: map[string]property{
			"url": {Type: "string", Description: "Public Credly badge URL, e.g. https://www.credly.com/badges/<id>/public_url"},
		},
		Required: []string{"url"},
	}.String()
}

type badgeInput struct {
	URL string `json:"url"`
}

// Execute loads the badge page and returns the snapshot, or {"error": ...}.
func (t *ParseBadge) Execute(ctx context.Context, input string) (string, error) {
	var in badgeInput
	if err := decodeInput(input, &in); err != nil {
		return errorResult("%v", err)
	}
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return errorResult("invalid input: url is required")
	}

	res := t.extractor.Extract(ctx, url)
	if !res.OK() {
		t.log.Warn().Str("url", url).Bool("timeout", res.Timeout).Str("error", res.Error).Msg("badge extraction failed")
		return errorResult("%s", res.Error)
	}

	t.log.Debug().Str("url", url).Str("badge", res.Snapshot.BadgeName).Msg("badge extracted")
	return encode(res.Snapshot)
}
