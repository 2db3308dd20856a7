package l2_service

import (
	"context"
	"fmt"
	"math"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/util"
	"time"

	"github.com/shopspring/decimal"
)

// minWeight drops optimizer weights too small to trade
const minWeight = 1e-6

var hundred = decimal.NewFromInt(domain.RoundLot)

// SizingService converts a basket into lot-aligned notional targets.
type SizingService interface {
	EqualWeightTargets(ctx context.Context, in EqualWeightTargetsInput) (map[string]decimal.Decimal, error)
	OptimizedTargets(ctx context.Context, in OptimizedTargetsInput) (map[string]decimal.Decimal, error)
}

type EqualWeightTargetsInput struct {
	Basket     []string
	TotalAsset decimal.Decimal
	Prices     map[string]float64
}

type OptimizedTargetsInput struct {
	Date     time.Time
	Universe []string
	// exposure rows strictly before Date are used
	Factors  *domain.Frame
	Lookback int
	// flips factor sign so the optimizer rewards better ranked names
	HigherIsBetter bool
	TotalAsset     decimal.Decimal
	Prices         map[string]float64
	// position value over total asset, by symbol
	PrevWeights map[string]float64
}

type sizingServiceHandler struct {
	Optimizer Optimizer
}

// NewSizingService takes an optional optimizer; without one only equal
// weighting is available.
func NewSizingService(optimizer Optimizer) SizingService {
	return sizingServiceHandler{
		Optimizer: optimizer,
	}
}

// lotTarget is round2(floor(floor(money/price)/100) * price * 100).
func lotTarget(money decimal.Decimal, price float64) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	shares := money.Div(p).Floor()
	lots := shares.Div(hundred).Floor()
	return lots.Mul(p).Mul(hundred).Round(2)
}

func validPrice(p float64, ok bool) bool {
	return ok && !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

func (h sizingServiceHandler) EqualWeightTargets(ctx context.Context, in EqualWeightTargetsInput) (map[string]decimal.Decimal, error) {
	if len(in.Basket) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	log := logger.FromContext(ctx)

	perName := in.TotalAsset.Div(decimal.NewFromInt(int64(len(in.Basket))))
	targets := map[string]decimal.Decimal{}
	for _, symbol := range in.Basket {
		p, ok := in.Prices[symbol]
		if !validPrice(p, ok) {
			log.Warnw("no target for instrument without a usable price", "symbol", symbol, "price", p)
			continue
		}
		targets[symbol] = lotTarget(perName, p)
	}

	return targets, nil
}

func (h sizingServiceHandler) OptimizedTargets(ctx context.Context, in OptimizedTargetsInput) (map[string]decimal.Decimal, error) {
	if h.Optimizer == nil {
		return nil, fmt.Errorf("%w: no optimizer configured", domain.ErrConfiguration)
	}
	if len(in.Universe) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	log := logger.FromContext(ctx)

	exposures, err := exposureRows(in.Factors, in.Universe, in.Date, in.Lookback)
	if err != nil {
		return nil, err
	}
	if !in.HigherIsBetter {
		for _, row := range exposures {
			for j := range row {
				row[j] = -row[j]
			}
		}
	}

	prev := make([]float64, len(in.Universe))
	for j, symbol := range in.Universe {
		prev[j] = in.PrevWeights[symbol]
	}

	result, err := h.Optimizer.Optimize(ctx, OptimizeInput{
		Symbols:     in.Universe,
		Exposures:   exposures,
		PrevWeights: prev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to optimize weights on %s: %w", util.FormatDate(in.Date), err)
	}
	if result == nil || !result.Success {
		reason := ""
		if result != nil {
			reason = result.Reason
		}
		return nil, fmt.Errorf("optimizer failed on %s: %s: %w", util.FormatDate(in.Date), reason, domain.ErrOptimizerInfeasible)
	}
	if len(result.Weights) != len(in.Universe) {
		return nil, fmt.Errorf("optimizer returned %d weights for %d symbols", len(result.Weights), len(in.Universe))
	}

	targets := map[string]decimal.Decimal{}
	for j, symbol := range in.Universe {
		w := result.Weights[j]
		if w < minWeight {
			continue
		}
		p, ok := in.Prices[symbol]
		if !validPrice(p, ok) {
			log.Warnw("no target for weighted instrument without a usable price", "symbol", symbol, "weight", w)
			continue
		}
		targets[symbol] = lotTarget(in.TotalAsset.Mul(decimal.NewFromFloat(w)), p)
	}

	log.Debugw(
		"optimized targets",
		"date", util.FormatDate(in.Date),
		"iterations", result.Iterations,
		"weighted", len(targets),
	)

	return targets, nil
}

// exposureRows returns up to lookback factor rows strictly before date,
// columns aligned with symbols.
func exposureRows(factors *domain.Frame, symbols []string, date time.Time, lookback int) ([][]float64, error) {
	if factors == nil {
		return nil, fmt.Errorf("%w: optimizer requires a factor table", domain.ErrConfiguration)
	}
	columns := make([]int, len(symbols))
	for j, symbol := range symbols {
		k, ok := factors.SymbolIndex(symbol)
		if !ok {
			return nil, fmt.Errorf("%w: factor table has no column %s", domain.ErrConfiguration, symbol)
		}
		columns[j] = k
	}

	end := 0
	for end < len(factors.Dates) && factors.Dates[end].Before(date) {
		end++
	}
	start := end - lookback
	if start < 0 {
		start = 0
	}
	if end-start < 2 {
		return nil, fmt.Errorf(
			"%w: optimizer needs at least 2 factor rows before %s, found %d",
			domain.ErrConfiguration,
			util.FormatDate(date),
			end-start,
		)
	}

	rows := make([][]float64, 0, end-start)
	for i := start; i < end; i++ {
		row := make([]float64, len(symbols))
		for j, k := range columns {
			row[j] = factors.Values[i][k]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
