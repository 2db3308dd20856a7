package l2_service_test

import (
	"context"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	l2_service "rankbacktest/internal/service/l2"
	mock_l2_service "rankbacktest/internal/service/l2/mocks"
	"rankbacktest/internal/util"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestSizingService_OptimizedTargets(t *testing.T) {
	ctx := logger.NewContext(context.Background(), zap.NewNop().Sugar())
	dates := []time.Time{
		util.NewDate(2022, 1, 3),
		util.NewDate(2022, 1, 4),
		util.NewDate(2022, 1, 5),
	}
	factors := domain.NewFrame(dates, []string{"A", "B", "C"})
	copy(factors.Values[0], []float64{1, 2, 3})
	copy(factors.Values[1], []float64{4, 5, 6})
	copy(factors.Values[2], []float64{7, 8, 9})

	in := l2_service.OptimizedTargetsInput{
		Date:       dates[2],
		Universe:   []string{"C", "A", "B"},
		Factors:    factors,
		Lookback:   5,
		TotalAsset: decimal.NewFromInt(100_000),
		Prices:     map[string]float64{"A": 10, "B": 20, "C": 5},
		PrevWeights: map[string]float64{
			"A": 0.5,
		},
	}

	t.Run("converts weights to lot targets", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		optimizer := mock_l2_service.NewMockOptimizer(ctrl)

		optimizer.EXPECT().
			Optimize(gomock.Any(), l2_service.OptimizeInput{
				Symbols: []string{"C", "A", "B"},
				// lower scores are better, so exposures are negated
				Exposures:   [][]float64{{-3, -1, -2}, {-6, -4, -5}},
				PrevWeights: []float64{0, 0.5, 0},
			}).
			Return(&l2_service.OptimizeResult{
				Weights: []float64{0.6, 0.4, 1e-9},
				Success: true,
			}, nil)

		targets, err := l2_service.NewSizingService(optimizer).OptimizedTargets(ctx, in)
		require.NoError(t, err)
		require.Len(t, targets, 2)
		require.True(t, decimal.NewFromInt(60_000).Equal(targets["C"]))
		require.True(t, decimal.NewFromInt(40_000).Equal(targets["A"]))
	})

	t.Run("infeasible result is an error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		optimizer := mock_l2_service.NewMockOptimizer(ctrl)

		optimizer.EXPECT().
			Optimize(gomock.Any(), gomock.Any()).
			Return(&l2_service.OptimizeResult{Success: false, Reason: "turnover"}, nil)

		_, err := l2_service.NewSizingService(optimizer).OptimizedTargets(ctx, in)
		require.ErrorIs(t, err, domain.ErrOptimizerInfeasible)
	})

	t.Run("no optimizer configured", func(t *testing.T) {
		_, err := l2_service.NewSizingService(nil).OptimizedTargets(ctx, in)
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
