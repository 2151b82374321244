package tools

import (
	"context"

	"github.com/soyeahso/certagent/internal/logging"
)

// CertificationPoints is the get_certification_points tool.
type CertificationPoints struct {
	resolver PointsResolver
	log      *logging.Logger
}

// NewCertificationPoints wraps resolver as a tool.
func NewCertificationPoints(resolver PointsResolver, log *logging.Logger) *CertificationPoints {
	return &CertificationPoints{resolver: resolver, log: log.Sub("tools")}
}

func (t *CertificationPoints) Name() string { return CertificationPointsName }

func (t *CertificationPoints) Description() string {
	return "Look up how many credit points a certification is worth. " +
		"Returns the matching category and its points."
}

func (t *CertificationPoints) InputSchema() string {
	return inputSchema{
		Type: "object",
		Properties: map[string]property{
			"cert_name": {Type: "string", Description: "Certification or badge name, e.g. \"AWS Certified Solutions Architect – Professional\""},
		},
		Required: []string{"cert_name"},
	}.String()
}

type pointsInput struct {
	CertName *string `json:"cert_name"`
}

type pointsOutput struct {
	Category string  `json:"category"`
	Points   float64 `json:"points"`
}

// Execute resolves the certification name. Lookup failures are returned as
// {"error": ...} output.
func (t *CertificationPoints) Execute(ctx context.Context, input string) (string, error) {
	var in pointsInput
	if err := decodeInput(input, &in); err != nil {
		return errorResult("%v", err)
	}
	if in.CertName == nil {
		return errorResult("invalid input: cert_name is required")
	}

	res := t.resolver.Resolve(ctx, *in.CertName)
	t.log.Debug().
		Str("certName", *in.CertName).
		Str("outcome", string(res.Outcome)).
		Msg("certification points lookup")

	if !res.OK() {
		return errorResult("%s", res.Error)
	}
	return encode(pointsOutput{Category: res.Category, Points: res.Points})
}
