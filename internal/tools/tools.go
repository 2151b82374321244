// Package tools exposes the certification lookup and badge extractor to the
// agent as LLM-callable tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soyeahso/certagent/internal/agent"
	"github.com/soyeahso/certagent/internal/badge"
	"github.com/soyeahso/certagent/internal/logging"
	"github.com/soyeahso/certagent/internal/points"
)

// Tool names as seen by the LLM.
const (
	CertificationPointsName = "get_certification_points"
	ParseBadgeName          = "parse_credly_badge"
)

// PointsResolver looks up the points category for a certification name.
type PointsResolver interface {
	Resolve(ctx context.Context, name string) points.Result
}

// BadgeExtractor reads the public details of a Credly badge page.
type BadgeExtractor interface {
	Extract(ctx context.Context, url string) badge.Result
}

type inputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]property `json:"properties"`
	Required   []string            `json:"required"`
}

type property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (s inputSchema) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("tools: marshal schema: %v", err))
	}
	return string(b)
}

type errorOutput struct {
	Error string `json:"error"`
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool output: %w", err)
	}
	return string(b), nil
}

func errorResult(format string, args ...any) (string, error) {
	return encode(errorOutput{Error: fmt.Sprintf(format, args...)})
}

// decodeInput unmarshals raw into v. An empty input is treated as {}.
func decodeInput(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// Register adds both tools to reg.
func Register(reg *agent.ToolRegistry, resolver PointsResolver, extractor BadgeExtractor, log *logging.Logger) {
	reg.Register(NewCertificationPoints(resolver, log))
	reg.Register(NewParseBadge(extractor, log))
}
