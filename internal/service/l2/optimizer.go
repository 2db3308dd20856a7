package l2_service

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Optimizer produces long-only portfolio weights over a universe.
type Optimizer interface {
	Optimize(ctx context.Context, in OptimizeInput) (*OptimizeResult, error)
}

type OptimizeInput struct {
	Symbols []string
	// Exposures[t][j] is observation t for Symbols[j], oldest first
	Exposures [][]float64
	// current weights aligned with Symbols
	PrevWeights []float64
}

type OptimizeResult struct {
	Weights    []float64
	Success    bool
	Iterations int
	// set when Success is false
	Reason string
}

type OptimizerOptions struct {
	MaxWeight     float64
	TurnoverLimit float64
	RiskAversion  float64
	// 0 or 1
	ReturnCoeff float64
	MaxIter     int
	Tolerance   float64
}

type meanVarianceOptimizer struct {
	opts OptimizerOptions
}

// NewMeanVarianceOptimizer maximizes ReturnCoeff*(w.mu) - RiskAversion/2*(w'Sw)
// subject to 0 <= w <= MaxWeight, sum(w) = 1 and sum|w - prev| <= TurnoverLimit.
func NewMeanVarianceOptimizer(opts OptimizerOptions) (Optimizer, error) {
	if opts.ReturnCoeff != 0 && opts.ReturnCoeff != 1 {
		return nil, fmt.Errorf("return coefficient must be 0 or 1, got %f", opts.ReturnCoeff)
	}
	if opts.MaxWeight <= 0 || opts.MaxWeight > 1 {
		return nil, fmt.Errorf("max weight must be in (0, 1], got %f", opts.MaxWeight)
	}
	if opts.TurnoverLimit <= 0 {
		return nil, fmt.Errorf("turnover limit must be > 0, got %f", opts.TurnoverLimit)
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 500
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-6
	}
	return meanVarianceOptimizer{opts: opts}, nil
}

func infeasible(n int, reason string) *OptimizeResult {
	return &OptimizeResult{
		Weights: make([]float64, n),
		Success: false,
		Reason:  reason,
	}
}

func (o meanVarianceOptimizer) Optimize(ctx context.Context, in OptimizeInput) (*OptimizeResult, error) {
	n := len(in.Symbols)
	if n == 0 {
		return nil, fmt.Errorf("cannot optimize an empty universe")
	}
	if len(in.PrevWeights) != n {
		return nil, fmt.Errorf("got %d previous weights for %d symbols", len(in.PrevWeights), n)
	}
	for t, row := range in.Exposures {
		if len(row) != n {
			return nil, fmt.Errorf("exposure row %d has %d values, expected %d", t, len(row), n)
		}
	}
	if len(in.Exposures) < 2 {
		return nil, fmt.Errorf("need at least 2 exposure observations, got %d", len(in.Exposures))
	}

	if o.opts.MaxWeight*float64(n) < 1-1e-12 {
		return infeasible(n, fmt.Sprintf("max weight %f cannot cover %d symbols", o.opts.MaxWeight, n)), nil
	}

	mu, cov, err := momentEstimates(in.Exposures, n)
	if err != nil {
		return nil, err
	}

	gradient := func(w []float64) []float64 {
		g := make([]float64, n)
		for i := 0; i < n; i++ {
			s := 0.0
			for j := 0; j < n; j++ {
				s += cov[i][j] * w[j]
			}
			g[i] = o.opts.ReturnCoeff*mu[i] - o.opts.RiskAversion*s
		}
		return g
	}

	// step from a bound on the largest eigenvalue of the covariance
	lipschitz := 0.0
	for i := 0; i < n; i++ {
		row := 0.0
		for j := 0; j < n; j++ {
			row += math.Abs(cov[i][j])
		}
		lipschitz = math.Max(lipschitz, row)
	}
	lipschitz *= o.opts.RiskAversion
	step := 1.0
	if lipschitz > 1e-12 {
		step = 1 / lipschitz
	} else if maxMu := maxAbs(mu); maxMu > 1e-12 {
		step = 1 / maxMu
	}

	// closest feasible portfolio to the current one; every move it makes
	// from PrevWeights is forced by the budget or the cap
	anchor := projectCappedSimplex(clean(in.PrevWeights), o.opts.MaxWeight)
	if minTurnover := l1Distance(anchor, in.PrevWeights); minTurnover > o.opts.TurnoverLimit+1e-9 {
		return infeasible(n, fmt.Sprintf("turnover %f needed to reach a fully invested portfolio exceeds limit %f", minTurnover, o.opts.TurnoverLimit)), nil
	}
	w := make([]float64, n)
	copy(w, anchor)

	iterations := 0
	for iterations < o.opts.MaxIter {
		iterations++
		g := gradient(w)
		next := make([]float64, n)
		for i := range w {
			next[i] = w[i] + step*g[i]
		}
		next = projectCappedSimplex(next, o.opts.MaxWeight)

		delta := 0.0
		for i := range w {
			delta = math.Max(delta, math.Abs(next[i]-w[i]))
		}
		w = next
		if delta < o.opts.Tolerance {
			break
		}
	}

	if l1Distance(w, in.PrevWeights) > o.opts.TurnoverLimit+1e-9 {
		w = o.blendWithinTurnover(anchor, w, in.PrevWeights)
	}

	return &OptimizeResult{
		Weights:    w,
		Success:    true,
		Iterations: iterations,
	}, nil
}

// blendWithinTurnover moves from anchor toward target as far as the
// turnover limit allows. Turnover along the segment is convex and within
// the limit at the anchor, so the feasible part is an interval from 0.
func (o meanVarianceOptimizer) blendWithinTurnover(anchor, target, prev []float64) []float64 {
	blend := func(alpha float64) []float64 {
		out := make([]float64, len(anchor))
		for i := range out {
			out[i] = anchor[i] + alpha*(target[i]-anchor[i])
		}
		return out
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		if l1Distance(blend(mid), prev) <= o.opts.TurnoverLimit {
			lo = mid
		} else {
			hi = mid
		}
	}
	return blend(lo)
}

// clean maps NaN and negative weights to zero.
func clean(w []float64) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		if !math.IsNaN(v) && v > 0 {
			out[i] = v
		}
	}
	return out
}

// momentEstimates returns column means and the sample covariance matrix.
// Missing observations are filled with the column mean; a column with no
// observations is treated as all zero.
func momentEstimates(exposures [][]float64, n int) ([]float64, [][]float64, error) {
	columns := make([]stats.Float64Data, n)
	mu := make([]float64, n)
	for j := 0; j < n; j++ {
		observed := stats.Float64Data{}
		for _, row := range exposures {
			if !math.IsNaN(row[j]) {
				observed = append(observed, row[j])
			}
		}
		if len(observed) > 0 {
			mean, err := stats.Mean(observed)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to compute exposure mean: %w", err)
			}
			mu[j] = mean
		}

		col := make(stats.Float64Data, len(exposures))
		for t, row := range exposures {
			if math.IsNaN(row[j]) {
				col[t] = mu[j]
			} else {
				col[t] = row[j]
			}
		}
		columns[j] = col
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c, err := stats.Covariance(columns[i], columns[j])
			if err != nil {
				return nil, nil, fmt.Errorf("failed to compute exposure covariance: %w", err)
			}
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	return mu, cov, nil
}

// projectCappedSimplex returns the closest point to v with 0 <= w <= upper
// and sum(w) = 1, found by bisection on the shift.
func projectCappedSimplex(v []float64, upper float64) []float64 {
	clipped := func(tau float64) ([]float64, float64) {
		out := make([]float64, len(v))
		sum := 0.0
		for i, x := range v {
			out[i] = math.Min(math.Max(x-tau, 0), upper)
			sum += out[i]
		}
		return out, sum
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	lo -= upper
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if _, sum := clipped(mid); sum > 1 {
			lo = mid
		} else {
			hi = mid
		}
	}
	out, _ := clipped((lo + hi) / 2)
	return out
}

func l1Distance(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
