package calculator

import (
	"fmt"
	"math"
	"rankbacktest/internal/domain"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

type CalculateMetricsResult struct {
	StartValue       float64
	EndValue         float64
	MaxValue         float64
	TotalReturn      float64
	AnnualizedReturn float64
	AnnualizedStdev  float64
	SharpeRatio      float64
	MaxDrawdown      float64
	MaxDrawdownDate  time.Time
	// calendar year -> last/first - 1 over that year's records
	YearlyReturns map[int]float64
}

// CalculateMetrics summarizes a bucket's post-trade total asset series.
// Volatility is annualized with periodsPerYear; annualized return uses
// calendar time. The risk-free rate is ignored.
func CalculateMetrics(records []domain.DailyRecord, periodsPerYear int) (*CalculateMetricsResult, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("cannot calculate metrics on < 2 daily records")
	}
	if periodsPerYear <= 0 {
		return nil, fmt.Errorf("periods per year must be > 0, got %d", periodsPerYear)
	}
	sorted := make([]domain.DailyRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	values := make(stats.Float64Data, len(sorted))
	for i, r := range sorted {
		values[i] = r.TotalAssetAfterTrade.InexactFloat64()
	}
	startValue := values[0]
	endValue := values[len(values)-1]
	if startValue <= 0 {
		return nil, fmt.Errorf("cannot calculate returns from starting value %f", startValue)
	}

	returns := calculateReturns(values)
	annualizedStdev := 0.0
	if len(returns) >= 2 {
		stdev, err := stats.StandardDeviationSample(returns)
		if err != nil {
			return nil, fmt.Errorf("failed to compute return stdev: %w", err)
		}
		annualizedStdev = stdev * math.Sqrt(float64(periodsPerYear))
	}

	numHours := sorted[len(sorted)-1].Date.Sub(sorted[0].Date).Hours()
	numYears := numHours / (365 * 24)
	if numYears <= 0 {
		return nil, fmt.Errorf("daily records must span more than one date")
	}
	annualizedReturn := math.Pow(endValue/startValue, 1/numYears) - 1

	sharpeRatio := 0.0
	if annualizedStdev > 0 {
		sharpeRatio = annualizedReturn / annualizedStdev
	}

	maxValue, err := stats.Max(values)
	if err != nil {
		return nil, fmt.Errorf("failed to compute max value: %w", err)
	}
	maxDrawdown, maxDrawdownDate := calculateMaxDrawdown(sorted, values)

	return &CalculateMetricsResult{
		StartValue:       startValue,
		EndValue:         endValue,
		MaxValue:         maxValue,
		TotalReturn:      endValue/startValue - 1,
		AnnualizedReturn: annualizedReturn,
		AnnualizedStdev:  annualizedStdev,
		SharpeRatio:      sharpeRatio,
		MaxDrawdown:      maxDrawdown,
		MaxDrawdownDate:  maxDrawdownDate,
		YearlyReturns:    calculateYearlyReturns(sorted, values),
	}, nil
}

func calculateReturns(values []float64) stats.Float64Data {
	returns := stats.Float64Data{}
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns
}

// calculateMaxDrawdown returns the largest fall from a running peak
// and the date it bottomed.
func calculateMaxDrawdown(records []domain.DailyRecord, values []float64) (float64, time.Time) {
	peak := values[0]
	maxDrawdown := 0.0
	date := records[0].Date
	for i, v := range values {
		peak = math.Max(peak, v)
		if peak <= 0 {
			continue
		}
		if dd := 1 - v/peak; dd > maxDrawdown {
			maxDrawdown = dd
			date = records[i].Date
		}
	}
	return maxDrawdown, date
}

func calculateYearlyReturns(records []domain.DailyRecord, values []float64) map[int]float64 {
	first := map[int]float64{}
	last := map[int]float64{}
	for i, r := range records {
		year := r.Date.Year()
		if _, ok := first[year]; !ok {
			first[year] = values[i]
		}
		last[year] = values[i]
	}
	out := map[int]float64{}
	for year, start := range first {
		if start == 0 {
			continue
		}
		out[year] = last[year]/start - 1
	}
	return out
}
