package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"rankbacktest/internal/calculator"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/util"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
)

const (
	DailyRecordsFile = "daily_records.csv"
	SelectionsFile   = "selections.csv"
	MetricsFile      = "metrics.csv"
)

type BucketOutput struct {
	Bucket     string
	Records    []domain.DailyRecord
	Selections domain.SelectionTable
	// nil rows are skipped in metrics.csv
	Metrics *calculator.CalculateMetricsResult
}

type dailyRecordRow struct {
	Bucket                string  `csv:"bucket"`
	Date                  string  `csv:"date"`
	TotalAssetBeforeTrade string  `csv:"total_asset_before_trade"`
	TotalAssetAfterTrade  string  `csv:"total_asset_after_trade"`
	CashAfterTrade        string  `csv:"cash_after_trade"`
	Turnover              float64 `csv:"turnover"`
	TurnoverBuy           float64 `csv:"turnover_buy"`
	TurnoverSell          float64 `csv:"turnover_sell"`
	Fees                  string  `csv:"fees"`
	RealizedPnL           string  `csv:"realized_pnl"`
	NumTrades             int     `csv:"num_trades"`
}

type selectionRow struct {
	Bucket string `csv:"bucket"`
	Date   string `csv:"date"`
	Rank   int    `csv:"rank"`
	Symbol string `csv:"symbol"`
}

type metricsRow struct {
	Bucket           string  `csv:"bucket"`
	StartValue       float64 `csv:"start_value"`
	EndValue         float64 `csv:"end_value"`
	TotalReturn      float64 `csv:"total_return"`
	AnnualizedReturn float64 `csv:"annualized_return"`
	AnnualizedStdev  float64 `csv:"annualized_stdev"`
	SharpeRatio      float64 `csv:"sharpe_ratio"`
	MaxDrawdown      float64 `csv:"max_drawdown"`
	MaxDrawdownDate  string  `csv:"max_drawdown_date"`
}

// OutputRepository writes run results as CSV files into a directory.
type OutputRepository interface {
	Write(dir string, buckets []BucketOutput) error
}

type outputRepositoryHandler struct{}

func NewOutputRepository() OutputRepository {
	return outputRepositoryHandler{}
}

func (h outputRepositoryHandler) Write(dir string, buckets []BucketOutput) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}

	records := []dailyRecordRow{}
	selections := []selectionRow{}
	metrics := []metricsRow{}
	for _, b := range buckets {
		for _, r := range b.Records {
			records = append(records, dailyRecordRow{
				Bucket:                b.Bucket,
				Date:                  util.FormatDate(r.Date),
				TotalAssetBeforeTrade: r.TotalAssetBeforeTrade.StringFixed(2),
				TotalAssetAfterTrade:  r.TotalAssetAfterTrade.StringFixed(2),
				CashAfterTrade:        r.CashAfterTrade.StringFixed(2),
				Turnover:              r.Turnover,
				TurnoverBuy:           r.TurnoverBuy,
				TurnoverSell:          r.TurnoverSell,
				Fees:                  r.Fees.StringFixed(2),
				RealizedPnL:           r.RealizedPnL.StringFixed(2),
				NumTrades:             r.NumTrades,
			})
		}

		dates := make([]time.Time, 0, len(b.Selections))
		for d := range b.Selections {
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool {
			return dates[i].Before(dates[j])
		})
		for _, d := range dates {
			for i, symbol := range b.Selections[d] {
				selections = append(selections, selectionRow{
					Bucket: b.Bucket,
					Date:   util.FormatDate(d),
					Rank:   i + 1,
					Symbol: symbol,
				})
			}
		}

		if m := b.Metrics; m != nil {
			metrics = append(metrics, metricsRow{
				Bucket:           b.Bucket,
				StartValue:       m.StartValue,
				EndValue:         m.EndValue,
				TotalReturn:      m.TotalReturn,
				AnnualizedReturn: m.AnnualizedReturn,
				AnnualizedStdev:  m.AnnualizedStdev,
				SharpeRatio:      m.SharpeRatio,
				MaxDrawdown:      m.MaxDrawdown,
				MaxDrawdownDate:  util.FormatDate(m.MaxDrawdownDate),
			})
		}
	}

	if err := writeCsv(filepath.Join(dir, DailyRecordsFile), &records); err != nil {
		return err
	}
	if err := writeCsv(filepath.Join(dir, SelectionsFile), &selections); err != nil {
		return err
	}
	if err := writeCsv(filepath.Join(dir, MetricsFile), &metrics); err != nil {
		return err
	}

	return nil
}

func writeCsv(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
