// Package domain holds the types shared between the store, the tools and the agent.
package domain

import "strings"

// Certification is one credit-scoring tier from the lookup table.
// Category is a human-readable label whose whitespace-separated words are
// used as match keywords.
type Certification struct {
	Category string  `json:"category" yaml:"category"`
	Points   float64 `json:"points" yaml:"points"`
}

// Keywords returns the whitespace-delimited words of the category label.
func (c Certification) Keywords() []string {
	return strings.Fields(c.Category)
}
