package models

import (
	"fmt"
	"sort"
	"time"
)

// Series is a date-indexed float column: parallel slices of dates and values,
// strictly increasing by date, equal length. It is treated as immutable once
// built; every derivation allocates a new Series.
type Series struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// PriceSeries holds daily closing prices for one instrument.
type PriceSeries = Series

// ReturnSeries holds period returns. One element shorter than its source
// prices; the first return belongs to the second price observation.
type ReturnSeries = Series

// NewSeries builds a Series after checking the date/value invariants.
func NewSeries(dates []time.Time, values []float64) (Series, error) {
	if len(dates) != len(values) {
		return Series{}, fmt.Errorf("series: %d dates vs %d values", len(dates), len(values))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return Series{}, fmt.Errorf("series: dates not strictly increasing at index %d (%s)", i, dates[i].Format("2006-01-02"))
		}
	}
	return Series{Dates: dates, Values: values}, nil
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// First returns the earliest value. Panics on empty series; callers check Len.
func (s Series) First() float64 { return s.Values[0] }

// Last returns the latest value.
func (s Series) Last() float64 { return s.Values[len(s.Values)-1] }

// Window returns the sub-series with start <= date <= end. The returned
// slices share backing arrays with the receiver; both sides treat them as
// read-only.
func (s Series) Window(start, end time.Time) Series {
	lo := sort.Search(len(s.Dates), func(i int) bool { return !s.Dates[i].Before(start) })
	hi := sort.Search(len(s.Dates), func(i int) bool { return s.Dates[i].After(end) })
	if lo >= hi {
		return Series{}
	}
	return Series{Dates: s.Dates[lo:hi], Values: s.Values[lo:hi]}
}

// AlignedPriceTable maps instrument identifiers to price columns sharing one
// strictly increasing date index. Every column has the same length and the
// same date at each position.
type AlignedPriceTable struct {
	Dates   []time.Time
	Columns map[string][]float64
}

// Align inner-joins per-instrument series on their dates. Rows where any
// instrument has no observation are dropped.
func Align(series map[string]PriceSeries) (*AlignedPriceTable, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("align: no series given")
	}

	// Count how many instruments observed each date.
	seen := make(map[time.Time]int)
	for _, s := range series {
		for _, d := range s.Dates {
			seen[d]++
		}
	}
	var dates []time.Time
	for d, n := range seen {
		if n == len(series) {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("align: no common dates across %d instruments", len(series))
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := &AlignedPriceTable{
		Dates:   dates,
		Columns: make(map[string][]float64, len(series)),
	}
	for name, s := range series {
		idx := make(map[time.Time]float64, s.Len())
		for i, d := range s.Dates {
			idx[d] = s.Values[i]
		}
		col := make([]float64, len(dates))
		for i, d := range dates {
			col[i] = idx[d]
		}
		table.Columns[name] = col
	}
	return table, nil
}

// Len returns the number of aligned rows.
func (t *AlignedPriceTable) Len() int { return len(t.Dates) }

// Series returns one column as a PriceSeries sharing the table's date index.
func (t *AlignedPriceTable) Series(name string) (PriceSeries, bool) {
	col, ok := t.Columns[name]
	if !ok {
		return Series{}, false
	}
	return Series{Dates: t.Dates, Values: col}, true
}

// Instruments lists column names in sorted order.
func (t *AlignedPriceTable) Instruments() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
