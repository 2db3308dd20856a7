package repository

import (
	"database/sql"
	"fmt"
	"time"

	"rankbacktest/internal/db/models/postgres/public/model"
	"rankbacktest/internal/db/models/postgres/public/table"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
	"github.com/google/uuid"
)

const (
	BacktestRunStatus_Running   = "RUNNING"
	BacktestRunStatus_Completed = "COMPLETED"
	BacktestRunStatus_Failed    = "FAILED"
)

type BacktestRunRepository interface {
	Add(tx *sql.Tx, run model.BacktestRun) (*model.BacktestRun, error)
	Get(id uuid.UUID) (*model.BacktestRun, error)
	List() ([]model.BacktestRun, error)
	Update(tx *sql.Tx, run *model.BacktestRun, columns postgres.ColumnList) (*model.BacktestRun, error)
	AddDailyRecords(tx *sql.Tx, records []model.BacktestDailyRecord) error
	ListDailyRecords(runID uuid.UUID) ([]model.BacktestDailyRecord, error)
}

type backtestRunRepositoryHandler struct {
	Db *sql.DB
}

func NewBacktestRunRepository(db *sql.DB) BacktestRunRepository {
	return backtestRunRepositoryHandler{Db: db}
}

func (h backtestRunRepositoryHandler) queryable(tx *sql.Tx) qrm.Queryable {
	if tx != nil {
		return tx
	}
	return h.Db
}

func (h backtestRunRepositoryHandler) Add(tx *sql.Tx, run model.BacktestRun) (*model.BacktestRun, error) {
	run.CreatedAt = time.Now().UTC()
	run.ModifiedAt = time.Now().UTC()

	query := table.BacktestRun.
		INSERT(
			table.BacktestRun.MutableColumns,
		).
		MODEL(run).
		RETURNING(table.BacktestRun.AllColumns)

	out := model.BacktestRun{}
	err := query.Query(h.queryable(tx), &out)
	if err != nil {
		return nil, fmt.Errorf("failed to insert backtest run: %w", err)
	}

	return &out, nil
}

func (h backtestRunRepositoryHandler) Update(tx *sql.Tx, run *model.BacktestRun, columns postgres.ColumnList) (*model.BacktestRun, error) {
	if run.BacktestRunID == uuid.Nil {
		return nil, fmt.Errorf("failed to update backtest run - id not provided in inputted model")
	}
	run.ModifiedAt = time.Now().UTC()
	columns = append(postgres.ColumnList{table.BacktestRun.ModifiedAt}, columns...)

	query := table.BacktestRun.
		UPDATE(columns).
		MODEL(run).
		RETURNING(table.BacktestRun.AllColumns).
		WHERE(table.BacktestRun.BacktestRunID.EQ(
			postgres.UUID(run.BacktestRunID),
		))

	out := model.BacktestRun{}
	err := query.Query(h.queryable(tx), &out)
	if err != nil {
		return nil, fmt.Errorf("failed to update backtest run %s: %w", run.BacktestRunID.String(), err)
	}

	return &out, nil
}

func (h backtestRunRepositoryHandler) Get(id uuid.UUID) (*model.BacktestRun, error) {
	query := table.BacktestRun.
		SELECT(table.BacktestRun.AllColumns).
		WHERE(table.BacktestRun.BacktestRunID.EQ(postgres.UUID(id)))

	result := model.BacktestRun{}
	err := query.Query(h.Db, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest run %s: %w", id.String(), err)
	}

	return &result, nil
}

func (h backtestRunRepositoryHandler) List() ([]model.BacktestRun, error) {
	query := table.BacktestRun.
		SELECT(table.BacktestRun.AllColumns).
		ORDER_BY(table.BacktestRun.CreatedAt.DESC())

	result := []model.BacktestRun{}
	err := query.Query(h.Db, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest runs: %w", err)
	}

	return result, nil
}

func (h backtestRunRepositoryHandler) AddDailyRecords(tx *sql.Tx, records []model.BacktestDailyRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range records {
		records[i].CreatedAt = now
	}

	query := table.BacktestDailyRecord.
		INSERT(table.BacktestDailyRecord.MutableColumns).
		MODELS(records)

	var db qrm.Executable = h.Db
	if tx != nil {
		db = tx
	}

	_, err := query.Exec(db)
	if err != nil {
		return fmt.Errorf("failed to insert %d daily records: %w", len(records), err)
	}

	return nil
}

func (h backtestRunRepositoryHandler) ListDailyRecords(runID uuid.UUID) ([]model.BacktestDailyRecord, error) {
	query := table.BacktestDailyRecord.
		SELECT(table.BacktestDailyRecord.AllColumns).
		WHERE(table.BacktestDailyRecord.BacktestRunID.EQ(postgres.UUID(runID))).
		ORDER_BY(
			table.BacktestDailyRecord.Bucket.ASC(),
			table.BacktestDailyRecord.Date.ASC(),
		)

	result := []model.BacktestDailyRecord{}
	err := query.Query(h.Db, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily records for run %s: %w", runID.String(), err)
	}

	return result, nil
}
