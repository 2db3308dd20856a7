package l1_service

import (
	"context"
	"math"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/util"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCtx() context.Context {
	return logger.NewContext(context.Background(), zap.NewNop().Sugar())
}

func days(from, n int) []time.Time {
	out := []time.Time{}
	for i := 0; i < n; i++ {
		out = append(out, util.NewDate(2021, 3, from+i))
	}
	return out
}

func frameFrom(dates []time.Time, symbols []string, rows [][]float64) *domain.Frame {
	f := domain.NewFrame(dates, symbols)
	for i := range rows {
		copy(f.Values[i], rows[i])
	}
	return f
}

func TestAverageRank(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{name: "distinct", values: []float64{3, 1, 2}, want: []float64{3, 1, 2}},
		{name: "ties share mean rank", values: []float64{5, 1, 5, 2}, want: []float64{3.5, 1, 3.5, 2}},
		{name: "nan stays nan", values: []float64{nan, 2, 1}, want: []float64{nan, 2, 1}},
		{name: "all tied", values: []float64{7, 7, 7}, want: []float64{2, 2, 2}},
		{name: "empty", values: []float64{}, want: []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, "", cmp.Diff(tt.want, AverageRank(tt.values), cmpopts.EquateNaNs()))
		})
	}
}

func TestScoreService_Score(t *testing.T) {
	symbols := []string{"A", "B", "C"}
	factors := frameFrom(days(1, 4), symbols, [][]float64{
		{1, 2, 3},
		{3, 2, 1},
		{2, 2, 1},
		{9, 9, 9},
	})
	prices := frameFrom(days(2, 3), []string{"C", "A", "B"}, [][]float64{
		{10, 10, 10},
		{10, 10, 10},
		{10, 10, 10},
	})

	scores, err := NewScoreService().Score(testCtx(), ScoreInput{Prices: prices, Factors: factors})
	require.NoError(t, err)
	require.Equal(t, prices.Dates, scores.Dates)
	require.Equal(t, []string{"C", "A", "B"}, scores.Symbols)

	// each trading date ranks the factor row of the previous day
	require.Equal(
		t,
		[][]float64{
			{3, 1, 2},
			{1, 3, 2},
			{1, 2.5, 2.5},
		},
		scores.Values,
	)
}

func TestScoreService_noLookahead(t *testing.T) {
	symbols := []string{"A", "B", "C", "D"}
	rows := [][]float64{
		{4, 1, 3, 2},
		{1, 2, 3, 4},
		{2, 2, 1, math.NaN()},
		{3, 4, 1, 2},
		{1, 1, 1, 1},
		{4, 3, 2, 1},
	}
	calendar := frameFrom(days(3, 8), symbols, nil)
	service := NewScoreService()

	original, err := service.Score(testCtx(), ScoreInput{
		Prices:  calendar,
		Factors: frameFrom(days(1, 6), symbols, rows),
	})
	require.NoError(t, err)
	shifted, err := service.Score(testCtx(), ScoreInput{
		Prices:  calendar,
		Factors: frameFrom(days(2, 6), symbols, rows),
	})
	require.NoError(t, err)

	for i := 0; i+1 < len(calendar.Dates); i++ {
		require.Equal(
			t,
			"",
			cmp.Diff(original.Values[i], shifted.Values[i+1], cmpopts.EquateNaNs()),
			"date %s",
			util.FormatDate(calendar.Dates[i]),
		)
	}
}

func TestScoreService_configurationErrors(t *testing.T) {
	symbols := []string{"A", "B"}
	prices := frameFrom(days(2, 2), symbols, nil)

	tests := []struct {
		name string
		in   ScoreInput
	}{
		{
			name: "factor history starts on first trading date",
			in:   ScoreInput{Prices: prices, Factors: frameFrom(days(2, 2), symbols, nil)},
		},
		{
			name: "instrument sets differ",
			in:   ScoreInput{Prices: prices, Factors: frameFrom(days(1, 2), []string{"A", "Z"}, nil)},
		},
		{
			name: "factor dates not ascending",
			in: ScoreInput{
				Prices:  prices,
				Factors: frameFrom([]time.Time{util.NewDate(2021, 3, 1), util.NewDate(2021, 2, 1)}, symbols, nil),
			},
		},
		{
			name: "price dates not ascending",
			in: ScoreInput{
				Prices:  frameFrom([]time.Time{util.NewDate(2021, 3, 5), util.NewDate(2021, 3, 5)}, symbols, nil),
				Factors: frameFrom(days(1, 2), symbols, nil),
			},
		},
		{
			name: "missing factor table",
			in:   ScoreInput{Prices: prices},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScoreService().Score(testCtx(), tt.in)
			require.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
