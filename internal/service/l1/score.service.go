package l1_service

import (
	"context"
	"fmt"
	"math"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/util"
	"sort"
)

// ScoreService turns a factor table into a per-date cross-sectional rank
// table on the trading calendar.
type ScoreService interface {
	Score(ctx context.Context, in ScoreInput) (*domain.Frame, error)
}

type ScoreInput struct {
	// rows are the trading calendar
	Prices  *domain.Frame
	Factors *domain.Frame
}

type scoreServiceHandler struct{}

func NewScoreService() ScoreService {
	return scoreServiceHandler{}
}

func validateScoreInput(in ScoreInput) error {
	if in.Prices == nil || len(in.Prices.Dates) == 0 {
		return fmt.Errorf("%w: price table is empty", domain.ErrConfiguration)
	}
	if in.Factors == nil || len(in.Factors.Dates) == 0 {
		return fmt.Errorf("%w: factor table is empty", domain.ErrConfiguration)
	}
	if !in.Prices.IsAscending() {
		return fmt.Errorf("%w: price dates are not strictly ascending", domain.ErrConfiguration)
	}
	if !in.Factors.IsAscending() {
		return fmt.Errorf("%w: factor dates are not strictly ascending", domain.ErrConfiguration)
	}
	if same, diff := domain.SameSymbols(in.Prices, in.Factors); !same {
		return fmt.Errorf("%w: price and factor instruments differ: %v", domain.ErrConfiguration, diff)
	}
	if !in.Factors.Dates[0].Before(in.Prices.Dates[0]) {
		return fmt.Errorf(
			"%w: factor history starts %s, must start before first trading date %s",
			domain.ErrConfiguration,
			util.FormatDate(in.Factors.Dates[0]),
			util.FormatDate(in.Prices.Dates[0]),
		)
	}
	return nil
}

// Score ranks, for each trading date, the latest factor row strictly
// before that date.
func (h scoreServiceHandler) Score(ctx context.Context, in ScoreInput) (*domain.Frame, error) {
	if err := validateScoreInput(in); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	// factor column for each price column
	columns := make([]int, len(in.Prices.Symbols))
	for j, symbol := range in.Prices.Symbols {
		k, _ := in.Factors.SymbolIndex(symbol)
		columns[j] = k
	}

	out := domain.NewFrame(in.Prices.Dates, in.Prices.Symbols)
	factorDates := in.Factors.Dates

	pointer := -1
	cachedRow := -1
	var cachedRanks []float64
	for i, date := range in.Prices.Dates {
		for pointer+1 < len(factorDates) && factorDates[pointer+1].Before(date) {
			pointer++
		}

		if pointer != cachedRow {
			raw := make([]float64, len(columns))
			for j, k := range columns {
				raw[j] = in.Factors.Values[pointer][k]
			}
			cachedRanks = AverageRank(raw)
			cachedRow = pointer
		}
		copy(out.Values[i], cachedRanks)
	}

	log.Debugw(
		"scored trading calendar",
		"dates", len(in.Prices.Dates),
		"instruments", len(in.Prices.Symbols),
		"lastFactorDate", util.FormatDate(factorDates[cachedRow]),
	)

	return out, nil
}

// AverageRank ranks values ascending from 1. Ties share the mean of the
// ranks they span and NaN stays NaN.
func AverageRank(values []float64) []float64 {
	ranks := make([]float64, len(values))
	order := []int{}
	for i, v := range values {
		if math.IsNaN(v) {
			ranks[i] = math.NaN()
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && values[order[end]] == values[order[start]] {
			end++
		}
		// positions start..end-1 hold ranks start+1..end
		avg := float64(start+1+end) / 2
		for _, idx := range order[start:end] {
			ranks[idx] = avg
		}
		start = end
	}

	return ranks
}
