package l2_service

import (
	"math"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/util"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func TestSizingService_EqualWeightTargets(t *testing.T) {
	targets, err := NewSizingService(nil).EqualWeightTargets(testCtx(), EqualWeightTargetsInput{
		Basket:     []string{"A", "B", "C", "D"},
		TotalAsset: decimal.NewFromInt(1_333_333),
		Prices: map[string]float64{
			"A": 10,
			"B": 7.77,
			"C": math.NaN(),
		},
	})
	require.NoError(t, err)

	// 333333.25 per name
	require.Equal(
		t,
		"",
		cmp.Diff(
			map[string]decimal.Decimal{
				"A": decimal.NewFromInt(333_000),
				"B": decimal.NewFromInt(333_333),
			},
			targets,
			decimalComparer,
		),
	)
}

func Test_lotTarget(t *testing.T) {
	tests := []struct {
		name  string
		money string
		price float64
		want  string
	}{
		{name: "whole lots", money: "5000", price: 10, want: "5000"},
		{name: "rounds down to lot", money: "5999.99", price: 10, want: "5000"},
		{name: "below one lot", money: "999", price: 10, want: "0"},
		{name: "fractional price", money: "10000", price: 3.33, want: "9990"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lotTarget(decimal.RequireFromString(tt.money), tt.price)
			require.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got.String())
		})
	}
}

func Test_exposureRows(t *testing.T) {
	dates := []time.Time{
		util.NewDate(2022, 1, 3),
		util.NewDate(2022, 1, 4),
		util.NewDate(2022, 1, 5),
		util.NewDate(2022, 1, 6),
	}
	factors := frameFrom(dates, []string{"A", "B"}, [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
		{4, 40},
	})

	rows, err := exposureRows(factors, []string{"B", "A"}, dates[3], 2)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{20, 2}, {30, 3}}, rows)

	_, err = exposureRows(factors, []string{"A"}, dates[1], 5)
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = exposureRows(factors, []string{"Z"}, dates[3], 2)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}
