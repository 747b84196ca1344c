package analysis

import "errors"

// Error kinds of the numeric core. Callers branch with errors.Is; messages
// wrapped around these sentinels carry the specifics.
var (
	// ErrNotComputable marks a degenerate window: fewer than 2 observations
	// or start == end. The computation is skipped, never zero-filled.
	ErrNotComputable = errors.New("not computable")

	// ErrInsufficientData marks a statistically meaningless fit: fewer
	// overlapping observations than MinRegressionObs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrBadData marks invalid input values: non-positive prices, zero or
	// missing FX rates, empty series.
	ErrBadData = errors.New("bad data")

	// ErrInvariant marks a failed decomposition self-check. This is a logic
	// bug in the engine, not bad input, and is surfaced loudly.
	ErrInvariant = errors.New("decomposition self-check failed")

	// ErrNoPortfolio marks an empty weight set.
	ErrNoPortfolio = errors.New("no portfolio defined")

	// ErrNoBeta marks a scenario projection requested without a fitted beta.
	ErrNoBeta = errors.New("no fitted beta")
)

// MinRegressionObs is the minimum overlapping observations for a regression
// or correlation to be reported instead of ErrInsufficientData.
const MinRegressionObs = 30
