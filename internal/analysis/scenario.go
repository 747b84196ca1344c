package analysis

import (
	"fmt"
	"sort"

	"fximpact/internal/domain/models"
)

// ProjectScenarios extrapolates the impact of hypothetical FX moves from a
// single fitted beta. A positive move means the Euro strengthens, which
// under the decomposition sign convention depresses the EUR return of a
// positive-beta USD asset, so the projected effect is -beta*move. This is a
// linear approximation, not an exact decomposition; the exact engine is
// Decompose.
func ProjectScenarios(sensitivity *models.SensitivityResult, assetReturnPct float64, moves []float64) (models.ScenarioTable, error) {
	if sensitivity == nil {
		return nil, fmt.Errorf("scenarios: %w", ErrNoBeta)
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("scenarios: no moves given: %w", ErrNotComputable)
	}

	sorted := make([]float64, len(moves))
	copy(sorted, moves)
	sort.Float64s(sorted)

	table := make(models.ScenarioTable, 0, len(sorted))
	for _, m := range sorted {
		effect := -sensitivity.Beta * m
		table = append(table, models.ScenarioRow{
			FXMovePct:          m,
			ProjectedEffectPct: effect,
			ProjectedTotalPct:  assetReturnPct + effect,
		})
	}
	return table, nil
}
