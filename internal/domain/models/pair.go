package models

import (
	"fmt"
	"time"
)

// RelationshipType tags how a tradeable pair was qualified.
type RelationshipType string

const (
	RelCointegrated RelationshipType = "cointegrated"
	RelCorrelated   RelationshipType = "correlated"
)

// RelationshipPair is a qualified two-symbol relationship. Strength holds the
// test p-value for cointegration and |correlation| for correlation mode; it
// satisfied the configured acceptance threshold when the pair was created.
type RelationshipPair struct {
	SymbolA      string           `json:"symbol_a"`
	SymbolB      string           `json:"symbol_b"`
	Type         RelationshipType `json:"type"`
	Strength     float64          `json:"strength"`
	HedgeRatio   float64          `json:"hedge_ratio"`
	DiscoveredAt time.Time        `json:"discovered_at"`
}

// Key returns the order-insensitive identity of the pair.
func (p RelationshipPair) Key() string {
	a, b := p.SymbolA, p.SymbolB
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s", a, b)
}
