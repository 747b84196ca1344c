package models

import (
	"fmt"
	"math"
)

// Portfolio maps asset tickers to weights. Weights conventionally sum to 1
// but the sum is not enforced: a deviating total scales the result and is
// reported as a warning, not rejected.
type Portfolio struct {
	Weights map[string]float64 `json:"weights"`
}

// IsEmpty reports whether no assets are weighted.
func (p Portfolio) IsEmpty() bool { return len(p.Weights) == 0 }

// Validate rejects negative weights. Weight-sum deviation is a warning
// concern, handled by SumWarning.
func (p Portfolio) Validate() error {
	for ticker, w := range p.Weights {
		if w < 0 {
			return fmt.Errorf("portfolio: negative weight %.4f for %s", w, ticker)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("portfolio: weight for %s is not finite", ticker)
		}
	}
	return nil
}

// Sum returns the total weight.
func (p Portfolio) Sum() float64 {
	total := 0.0
	for _, w := range p.Weights {
		total += w
	}
	return total
}

// SumWarning returns a human-readable warning when weights deviate from 100%
// by more than 0.1 percentage points, or "" when they do not.
func (p Portfolio) SumWarning() string {
	total := p.Sum()
	if math.Abs(total*100-100) > 0.1 {
		return fmt.Sprintf("portfolio weights sum to %.1f%%, expected 100%%", total*100)
	}
	return ""
}
