package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"rankbacktest/api"
	"rankbacktest/internal/app"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/repository"
	l1_service "rankbacktest/internal/service/l1"
	l2_service "rankbacktest/internal/service/l2"
	l3_service "rankbacktest/internal/service/l3"
	"rankbacktest/internal/util"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DataDirKey sets where the API resolves relative data paths.
const DataDirKey = "RANKBACKTEST_DATA_DIR"

func CloseDependencies(handler *api.ApiHandler) {
	if handler.BacktestApp.Db == nil {
		return
	}
	if err := handler.BacktestApp.Db.Close(); err != nil {
		handler.Logger.Errorw("failed to close db", "error", err)
	}
}

// InitializeDependencies wires the backtest stack. The database is
// optional: without db secrets, runs cannot be persisted.
func InitializeDependencies() (*api.ApiHandler, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	log := logger.New()

	var (
		dbConn        *sql.DB
		runRepository repository.BacktestRunRepository
	)
	secrets, err := util.LoadSecrets()
	if err != nil {
		log.Warnw("no secrets loaded, persistence disabled", "error", err.Error())
	} else if secrets.Db != nil {
		dbConn, err = sql.Open("postgres", secrets.Db.ToConnectionStr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		runRepository = repository.NewBacktestRunRepository(dbConn)
	}

	backtestApp := app.BacktestApp{
		Db:                    dbConn,
		TableRepository:       repository.NewTableRepository(),
		OutputRepository:      repository.NewOutputRepository(),
		BacktestRunRepository: runRepository,
		BacktestService: l3_service.NewBacktestService(
			l1_service.NewScoreService(),
			l2_service.NewSelectionService(),
			nil,
		),
	}

	dataDir := os.Getenv(DataDirKey)
	if dataDir == "" {
		dataDir = "."
	}

	return &api.ApiHandler{
		BacktestApp:           backtestApp,
		BacktestRunRepository: runRepository,
		DataDir:               dataDir,
		Logger:                log,
	}, nil
}

// Port returns the API port from secrets, falling back to def.
func Port(def int) int {
	secrets, err := util.LoadSecrets()
	if err != nil || secrets.Port == 0 {
		return def
	}
	return secrets.Port
}
