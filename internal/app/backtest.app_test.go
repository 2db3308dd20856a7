package app

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"rankbacktest/internal/db/models/postgres/public/model"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/repository"
	mock_repository "rankbacktest/internal/repository/mocks"
	l1_service "rankbacktest/internal/service/l1"
	l2_service "rankbacktest/internal/service/l2"
	l3_service "rankbacktest/internal/service/l3"
	"rankbacktest/internal/util"
	"testing"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const pricesCsv = `date,symbol,value
2021-01-05,A,10
2021-01-05,B,20
2021-01-06,A,11
2021-01-06,B,20
2021-01-07,A,12
2021-01-07,B,18
`

const factorsCsv = `date,symbol,value
2021-01-04,A,1
2021-01-04,B,2
2021-01-05,A,1
2021-01-05,B,2
2021-01-06,A,2
2021-01-06,B,1
`

func testCtx() context.Context {
	return logger.NewContext(context.Background(), zap.NewNop().Sugar())
}

func setupDataDir(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.csv"), []byte(pricesCsv), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "factors.csv"), []byte(factorsCsv), 0o644))
	return dir
}

func newTestApp(runRepository repository.BacktestRunRepository) BacktestApp {
	return BacktestApp{
		TableRepository:       repository.NewTableRepository(),
		OutputRepository:      repository.NewOutputRepository(),
		BacktestRunRepository: runRepository,
		BacktestService: l3_service.NewBacktestService(
			l1_service.NewScoreService(),
			l2_service.NewSelectionService(),
			nil,
		),
	}
}

func testConfig() util.RunConfig {
	return util.RunConfig{
		Name:     "app test",
		InitCash: 100_000,
		NumLongs: 1,
		Data: util.DataConfig{
			Prices:  "prices.csv",
			Factors: "factors.csv",
		},
	}
}

func TestBacktestApp_Run(t *testing.T) {
	t.Run("writes outputs without persisting", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "out")

		result, err := newTestApp(nil).Run(testCtx(), RunBacktestInput{
			Config:  testConfig(),
			DataDir: setupDataDir(t),
			OutDir:  outDir,
		})
		require.NoError(t, err)
		require.Nil(t, result.RunID)
		require.Len(t, result.Result.Buckets, 2)
		require.NotNil(t, result.Profile.TotalMs)

		for _, f := range []string{repository.DailyRecordsFile, repository.SelectionsFile, repository.MetricsFile} {
			_, err := os.Stat(filepath.Join(outDir, f))
			require.NoError(t, err)
		}
	})

	t.Run("persists the run and daily records", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runRepository := mock_repository.NewMockBacktestRunRepository(ctrl)
		runID := uuid.New()

		runRepository.EXPECT().
			Add(gomock.Nil(), gomock.Any()).
			DoAndReturn(func(_ *sql.Tx, run model.BacktestRun) (*model.BacktestRun, error) {
				require.Equal(t, "app test", run.Name)
				require.Equal(t, "long_short", run.Mode)
				require.Equal(t, repository.BacktestRunStatus_Running, run.Status)
				run.BacktestRunID = runID
				return &run, nil
			})
		runRepository.EXPECT().
			AddDailyRecords(gomock.Nil(), gomock.Any()).
			DoAndReturn(func(_ *sql.Tx, records []model.BacktestDailyRecord) error {
				// three dates for each of LONG and SHORT
				require.Len(t, records, 6)
				for _, r := range records {
					require.Equal(t, runID, r.BacktestRunID)
				}
				return nil
			})
		runRepository.EXPECT().
			Update(gomock.Nil(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ *sql.Tx, run *model.BacktestRun, _ postgres.ColumnList) (*model.BacktestRun, error) {
				require.Equal(t, repository.BacktestRunStatus_Completed, run.Status)
				require.NotNil(t, run.CompletedAt)
				require.NotNil(t, run.Profile)
				return run, nil
			})

		result, err := newTestApp(runRepository).Run(testCtx(), RunBacktestInput{
			Config:  testConfig(),
			DataDir: setupDataDir(t),
			Persist: true,
		})
		require.NoError(t, err)
		require.NotNil(t, result.RunID)
		require.Equal(t, runID, *result.RunID)
	})

	t.Run("marks the run failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runRepository := mock_repository.NewMockBacktestRunRepository(ctrl)

		runRepository.EXPECT().
			Add(gomock.Nil(), gomock.Any()).
			DoAndReturn(func(_ *sql.Tx, run model.BacktestRun) (*model.BacktestRun, error) {
				run.BacktestRunID = uuid.New()
				return &run, nil
			})
		runRepository.EXPECT().
			Update(gomock.Nil(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ *sql.Tx, run *model.BacktestRun, _ postgres.ColumnList) (*model.BacktestRun, error) {
				require.Equal(t, repository.BacktestRunStatus_Failed, run.Status)
				require.NotNil(t, run.ErrorMessage)
				return run, nil
			})

		cfg := testConfig()
		cfg.NumLongs = 3

		_, err := newTestApp(runRepository).Run(testCtx(), RunBacktestInput{
			Config:  cfg,
			DataDir: setupDataDir(t),
			Persist: true,
		})
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("marks the run failed when results cannot be stored", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runRepository := mock_repository.NewMockBacktestRunRepository(ctrl)

		runRepository.EXPECT().
			Add(gomock.Nil(), gomock.Any()).
			DoAndReturn(func(_ *sql.Tx, run model.BacktestRun) (*model.BacktestRun, error) {
				run.BacktestRunID = uuid.New()
				return &run, nil
			})
		runRepository.EXPECT().
			AddDailyRecords(gomock.Nil(), gomock.Any()).
			Return(errors.New("connection reset"))
		runRepository.EXPECT().
			Update(gomock.Nil(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ *sql.Tx, run *model.BacktestRun, _ postgres.ColumnList) (*model.BacktestRun, error) {
				require.Equal(t, repository.BacktestRunStatus_Failed, run.Status)
				require.NotNil(t, run.ErrorMessage)
				require.Contains(t, *run.ErrorMessage, "connection reset")
				require.Nil(t, run.CompletedAt)
				return run, nil
			})

		_, err := newTestApp(runRepository).Run(testCtx(), RunBacktestInput{
			Config:  testConfig(),
			DataDir: setupDataDir(t),
			Persist: true,
		})
		require.ErrorContains(t, err, "connection reset")
	})

	t.Run("persist without a database", func(t *testing.T) {
		_, err := newTestApp(nil).Run(testCtx(), RunBacktestInput{
			Config:  testConfig(),
			DataDir: setupDataDir(t),
			Persist: true,
		})
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
