package analysis

import (
	"math"
	"time"

	"fximpact/internal/domain/models"
)

// daily builds a series with consecutive days starting 2024-01-02.
func daily(values ...float64) models.Series {
	return dailyFrom(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), values...)
}

func dailyFrom(start time.Time, values ...float64) models.Series {
	dates := make([]time.Time, len(values))
	for i := range values {
		dates[i] = start.AddDate(0, 0, i)
	}
	return models.Series{Dates: dates, Values: values}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
