package repository

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/util"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// tableRow is one cell of a long-format table. An empty value is NaN.
type tableRow struct {
	Date   string `csv:"date"`
	Symbol string `csv:"symbol"`
	Value  string `csv:"value"`
}

// TableRepository reads date x symbol tables from CSV files.
type TableRepository interface {
	LoadFrame(path string) (*domain.Frame, error)
	LoadRunData(in LoadRunDataInput) (*domain.RunData, error)
}

type LoadRunDataInput struct {
	// relative paths resolve against BaseDir
	BaseDir string
	Data    util.DataConfig
	// rejects absolute paths and paths that leave BaseDir
	Confined bool
}

type tableRepositoryHandler struct{}

func NewTableRepository() TableRepository {
	return tableRepositoryHandler{}
}

func (h tableRepositoryHandler) LoadFrame(path string) (*domain.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %s", domain.ErrConfiguration, path, err.Error())
	}
	defer f.Close()

	rows := []tableRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %s", domain.ErrConfiguration, path, err.Error())
	}

	frame, err := pivot(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return frame, nil
}

// pivot turns long-format rows into a frame with ascending dates and
// sorted symbols.
func pivot(rows []tableRow) (*domain.Frame, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table has no rows", domain.ErrConfiguration)
	}

	type cell struct {
		date   time.Time
		symbol string
		value  float64
	}
	cells := make([]cell, 0, len(rows))
	dateSet := map[time.Time]struct{}{}
	symbolSet := map[string]struct{}{}
	for i, row := range rows {
		date, err := util.ParseDate(strings.TrimSpace(row.Date))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid date %q", domain.ErrConfiguration, i+1, row.Date)
		}
		symbol := strings.TrimSpace(row.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("%w: row %d: empty symbol", domain.ErrConfiguration, i+1)
		}
		value := math.NaN()
		if s := strings.TrimSpace(row.Value); s != "" {
			value, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid value %q for %s", domain.ErrConfiguration, i+1, row.Value, symbol)
			}
		}
		cells = append(cells, cell{date: date, symbol: symbol, value: value})
		dateSet[date] = struct{}{}
		symbolSet[symbol] = struct{}{}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	frame := domain.NewFrame(dates, symbols)
	seen := map[string]struct{}{}
	for _, c := range cells {
		key := util.FormatDate(c.date) + "/" + c.symbol
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: duplicate row for %s on %s", domain.ErrConfiguration, c.symbol, util.FormatDate(c.date))
		}
		seen[key] = struct{}{}
		if err := frame.Set(c.date, c.symbol, c.value); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// resolvePath joins a relative data path onto baseDir.
func resolvePath(baseDir, path string, confined bool) (string, error) {
	if filepath.IsAbs(path) {
		if confined {
			return "", fmt.Errorf("%w: absolute data path %s is not allowed", domain.ErrConfiguration, path)
		}
		return path, nil
	}
	joined := filepath.Join(baseDir, path)
	if confined {
		rel, err := filepath.Rel(filepath.Clean(baseDir), joined)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: data path %s is outside the data directory", domain.ErrConfiguration, path)
		}
	}
	return joined, nil
}

// LoadRunData loads every table the data config names.
func (h tableRepositoryHandler) LoadRunData(in LoadRunDataInput) (*domain.RunData, error) {
	load := func(path string) (*domain.Frame, error) {
		if path == "" {
			return nil, nil
		}
		resolved, err := resolvePath(in.BaseDir, path, in.Confined)
		if err != nil {
			return nil, err
		}
		return h.LoadFrame(resolved)
	}

	out := domain.RunData{}
	for _, t := range []struct {
		path string
		dest **domain.Frame
	}{
		{in.Data.Prices, &out.Prices},
		{in.Data.Factors, &out.Factors},
		{in.Data.Members, &out.Members},
		{in.Data.Suspended, &out.Suspended},
		{in.Data.RiskFlags, &out.RiskFlags},
	} {
		frame, err := load(t.path)
		if err != nil {
			return nil, err
		}
		*t.dest = frame
	}
	if out.Prices == nil || out.Factors == nil {
		return nil, fmt.Errorf("%w: price and factor tables are required", domain.ErrConfiguration)
	}

	return &out, nil
}
