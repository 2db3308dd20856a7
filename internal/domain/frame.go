package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Frame is a dense dates x symbols table. Missing cells are NaN.
type Frame struct {
	Dates   []time.Time
	Symbols []string
	Values  [][]float64

	dateIndex   map[string]int
	symbolIndex map[string]int
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// NewFrame allocates a frame filled with NaN.
func NewFrame(dates []time.Time, symbols []string) *Frame {
	values := make([][]float64, len(dates))
	for i := range values {
		row := make([]float64, len(symbols))
		for j := range row {
			row[j] = math.NaN()
		}
		values[i] = row
	}
	f := &Frame{
		Dates:   dates,
		Symbols: symbols,
		Values:  values,
	}
	f.reindex()
	return f
}

func (f *Frame) reindex() {
	f.dateIndex = make(map[string]int, len(f.Dates))
	for i, d := range f.Dates {
		f.dateIndex[dateKey(d)] = i
	}
	f.symbolIndex = make(map[string]int, len(f.Symbols))
	for j, s := range f.Symbols {
		f.symbolIndex[s] = j
	}
}

func (f *Frame) ensureIndex() {
	if f.dateIndex == nil || f.symbolIndex == nil {
		f.reindex()
	}
}

func (f *Frame) DateIndex(date time.Time) (int, bool) {
	f.ensureIndex()
	i, ok := f.dateIndex[dateKey(date)]
	return i, ok
}

func (f *Frame) SymbolIndex(symbol string) (int, bool) {
	f.ensureIndex()
	j, ok := f.symbolIndex[symbol]
	return j, ok
}

func (f *Frame) Set(date time.Time, symbol string, value float64) error {
	i, ok := f.DateIndex(date)
	if !ok {
		return fmt.Errorf("frame has no date %s", dateKey(date))
	}
	j, ok := f.SymbolIndex(symbol)
	if !ok {
		return fmt.Errorf("frame has no symbol %s", symbol)
	}
	f.Values[i][j] = value
	return nil
}

func (f *Frame) Get(date time.Time, symbol string) float64 {
	i, ok := f.DateIndex(date)
	if !ok {
		return math.NaN()
	}
	j, ok := f.SymbolIndex(symbol)
	if !ok {
		return math.NaN()
	}
	return f.Values[i][j]
}

// RowMap returns the row for date keyed by symbol.
func (f *Frame) RowMap(date time.Time) (map[string]float64, error) {
	i, ok := f.DateIndex(date)
	if !ok {
		return nil, fmt.Errorf("frame has no row for %s", dateKey(date))
	}
	out := make(map[string]float64, len(f.Symbols))
	for j, s := range f.Symbols {
		out[s] = f.Values[i][j]
	}
	return out, nil
}

// IsAscending reports whether dates are strictly increasing.
func (f *Frame) IsAscending() bool {
	for i := 1; i < len(f.Dates); i++ {
		if !f.Dates[i].After(f.Dates[i-1]) {
			return false
		}
	}
	return true
}

// Slice returns the rows whose dates fall within [start, end].
// Zero times leave that side open.
func (f *Frame) Slice(start, end time.Time) *Frame {
	dates := []time.Time{}
	values := [][]float64{}
	for i, d := range f.Dates {
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		dates = append(dates, d)
		values = append(values, f.Values[i])
	}
	out := &Frame{
		Dates:   dates,
		Symbols: f.Symbols,
		Values:  values,
	}
	out.reindex()
	return out
}

// SameSymbols reports whether two frames carry the same symbol set,
// returning the symbols that appear on only one side.
func SameSymbols(a, b *Frame) (bool, []string) {
	seen := map[string]int{}
	for _, s := range a.Symbols {
		seen[s] |= 1
	}
	for _, s := range b.Symbols {
		seen[s] |= 2
	}
	diff := []string{}
	for s, v := range seen {
		if v != 3 {
			diff = append(diff, s)
		}
	}
	sort.Strings(diff)
	return len(diff) == 0, diff
}
