package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"rankbacktest/internal/db/models/postgres/public/model"
	"rankbacktest/internal/db/models/postgres/public/table"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/repository"
	l3_service "rankbacktest/internal/service/l3"
	"rankbacktest/internal/util"
	"time"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/google/uuid"
)

// BacktestApp loads run inputs, replays them and stores the results.
type BacktestApp struct {
	// optional; persisted writes share one transaction when set
	Db                    *sql.DB
	TableRepository       repository.TableRepository
	OutputRepository      repository.OutputRepository
	BacktestRunRepository repository.BacktestRunRepository
	BacktestService       l3_service.BacktestService
}

type RunBacktestInput struct {
	Config util.RunConfig
	// relative data paths resolve against DataDir
	DataDir string
	// data paths must stay inside DataDir
	ConfineToDataDir bool
	// CSV results are written here when set
	OutDir  string
	Persist bool
}

type RunBacktestResult struct {
	RunID   *uuid.UUID
	Result  *l3_service.BacktestResult
	Profile *domain.Profile
}

func (h BacktestApp) Run(ctx context.Context, in RunBacktestInput) (*RunBacktestResult, error) {
	log := logger.FromContext(ctx)
	if in.Persist && h.BacktestRunRepository == nil {
		return nil, fmt.Errorf("%w: persistence requested without a database", domain.ErrConfiguration)
	}

	profile, endProfile := domain.NewProfile()
	ctx = domain.ContextWithProfile(ctx, profile)

	cfg := in.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	_, endSpan := profile.StartNewSpan("loading tables")
	data, err := h.TableRepository.LoadRunData(repository.LoadRunDataInput{
		BaseDir:  in.DataDir,
		Data:     cfg.Data,
		Confined: in.ConfineToDataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load run data: %w", err)
	}
	endSpan()

	var run *model.BacktestRun
	if in.Persist {
		run, err = h.addRun(cfg)
		if err != nil {
			return nil, err
		}
	}

	markFailed := func(runErr error) {
		if run == nil {
			return
		}
		if updateErr := h.failRun(run, runErr); updateErr != nil {
			log.Errorw("failed to mark backtest run failed", "runID", run.BacktestRunID.String(), "error", updateErr)
		}
	}

	result, err := h.BacktestService.Run(ctx, l3_service.BacktestInput{
		Config: cfg,
		Data:   *data,
	})
	endProfile()
	if err != nil {
		markFailed(err)
		return nil, fmt.Errorf("failed to run backtest %s: %w", cfg.Name, err)
	}

	if in.OutDir != "" {
		if err := h.OutputRepository.Write(in.OutDir, toBucketOutputs(result)); err != nil {
			err = fmt.Errorf("failed to write results: %w", err)
			markFailed(err)
			return nil, err
		}
		log.Infow("wrote backtest results", "dir", in.OutDir)
	}

	out := &RunBacktestResult{
		Result:  result,
		Profile: profile,
	}
	if run != nil {
		if err := h.completeRun(run, result, profile); err != nil {
			markFailed(err)
			return nil, err
		}
		out.RunID = &run.BacktestRunID
	}

	return out, nil
}

func toBucketOutputs(result *l3_service.BacktestResult) []repository.BucketOutput {
	out := []repository.BucketOutput{}
	for _, b := range result.Buckets {
		out = append(out, repository.BucketOutput{
			Bucket:     b.Bucket.Name,
			Records:    b.Records,
			Selections: b.Selections,
			Metrics:    b.Metrics,
		})
	}
	return out
}

func (h BacktestApp) addRun(cfg util.RunConfig) (*model.BacktestRun, error) {
	configJson, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run config: %w", err)
	}
	run, err := h.BacktestRunRepository.Add(nil, model.BacktestRun{
		Name:     cfg.Name,
		Mode:     string(cfg.Mode),
		Config:   string(configJson),
		InitCash: cfg.InitCash,
		Status:   repository.BacktestRunStatus_Running,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add backtest run: %w", err)
	}
	return run, nil
}

func (h BacktestApp) failRun(run *model.BacktestRun, runErr error) error {
	msg := runErr.Error()
	run.Status = repository.BacktestRunStatus_Failed
	run.ErrorMessage = &msg
	run.CompletedAt = nil
	_, err := h.BacktestRunRepository.Update(
		nil,
		run,
		postgres.ColumnList{
			table.BacktestRun.Status,
			table.BacktestRun.ErrorMessage,
		},
	)
	return err
}

func (h BacktestApp) completeRun(run *model.BacktestRun, result *l3_service.BacktestResult, profile *domain.Profile) error {
	records := []model.BacktestDailyRecord{}
	for _, b := range result.Buckets {
		for _, r := range b.Records {
			records = append(records, model.BacktestDailyRecord{
				BacktestRunID:         run.BacktestRunID,
				Bucket:                b.Bucket.Name,
				Date:                  r.Date,
				TotalAssetBeforeTrade: r.TotalAssetBeforeTrade.InexactFloat64(),
				TotalAssetAfterTrade:  r.TotalAssetAfterTrade.InexactFloat64(),
				CashAfterTrade:        r.CashAfterTrade.InexactFloat64(),
				Turnover:              r.Turnover,
				TurnoverBuy:           r.TurnoverBuy,
				TurnoverSell:          r.TurnoverSell,
				Fees:                  r.Fees.InexactFloat64(),
				RealizedPnl:           r.RealizedPnL.InexactFloat64(),
				NumTrades:             int32(r.NumTrades),
			})
		}
	}

	var tx *sql.Tx
	if h.Db != nil {
		var err error
		tx, err = h.Db.Begin()
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		defer tx.Rollback()
	}

	if err := h.BacktestRunRepository.AddDailyRecords(tx, records); err != nil {
		return err
	}

	profileJson, err := profile.ToJsonBytes()
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	profileStr := string(profileJson)
	completedAt := time.Now().UTC()
	run.Status = repository.BacktestRunStatus_Completed
	run.Profile = &profileStr
	run.CompletedAt = &completedAt
	_, err = h.BacktestRunRepository.Update(
		tx,
		run,
		postgres.ColumnList{
			table.BacktestRun.Status,
			table.BacktestRun.Profile,
			table.BacktestRun.CompletedAt,
		},
	)
	if err != nil {
		return err
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit backtest run %s: %w", run.BacktestRunID.String(), err)
		}
	}

	return nil
}
