package api

import (
	"errors"
	"fmt"
	"net/http"
	"rankbacktest/internal/app"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/util"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-jet/jet/v2/qrm"
	"github.com/google/uuid"
)

type backtestRequest struct {
	Config  util.RunConfig `json:"config"`
	Persist bool           `json:"persist"`
}

type holdingResponse struct {
	Symbol    string  `json:"symbol"`
	Volume    int64   `json:"volume"`
	CostBasis float64 `json:"costBasis"`
	Value     float64 `json:"value"`
}

type bucketMetricsResponse struct {
	TotalReturn      float64         `json:"totalReturn"`
	AnnualizedReturn float64         `json:"annualizedReturn"`
	AnnualizedStdev  float64         `json:"annualizedStdev"`
	SharpeRatio      float64         `json:"sharpeRatio"`
	MaxDrawdown      float64         `json:"maxDrawdown"`
	MaxDrawdownDate  string          `json:"maxDrawdownDate"`
	YearlyReturns    map[int]float64 `json:"yearlyReturns"`
}

type bucketResponse struct {
	Bucket     string                 `json:"bucket"`
	FinalCash  float64                `json:"finalCash"`
	FinalValue float64                `json:"finalValue"`
	Holdings   []holdingResponse      `json:"holdings"`
	Metrics    *bucketMetricsResponse `json:"metrics,omitempty"`
}

type backtestResponse struct {
	RunID   *uuid.UUID       `json:"runID,omitempty"`
	Start   string           `json:"start"`
	End     string           `json:"end"`
	Buckets []bucketResponse `json:"buckets"`
	Profile *domain.Profile  `json:"profile"`
}

func (h ApiHandler) backtest(c *gin.Context) {
	var requestBody backtestRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, http.StatusBadRequest)
		return
	}
	if requestBody.Persist && h.BacktestRunRepository == nil {
		returnErrorJsonCode(fmt.Errorf("persistence is not available"), c, http.StatusBadRequest)
		return
	}

	result, err := h.BacktestApp.Run(c.Request.Context(), app.RunBacktestInput{
		Config:           requestBody.Config,
		DataDir:          h.DataDir,
		ConfineToDataDir: true,
		Persist:          requestBody.Persist,
	})
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, newBacktestResponse(result))
}

func newBacktestResponse(result *app.RunBacktestResult) backtestResponse {
	out := backtestResponse{
		RunID:   result.RunID,
		Buckets: []bucketResponse{},
		Profile: result.Profile,
	}
	dates := result.Result.Dates
	if len(dates) > 0 {
		out.Start = util.FormatDate(dates[0])
		out.End = util.FormatDate(dates[len(dates)-1])
	}

	for _, b := range result.Result.Buckets {
		bucket := bucketResponse{
			Bucket:    b.Bucket.Name,
			FinalCash: b.FinalCash.InexactFloat64(),
			Holdings:  []holdingResponse{},
		}
		if len(b.Records) > 0 {
			bucket.FinalValue = b.Records[len(b.Records)-1].TotalAssetAfterTrade.InexactFloat64()
		}
		for _, holding := range b.FinalHoldings {
			bucket.Holdings = append(bucket.Holdings, holdingResponse{
				Symbol:    holding.Symbol,
				Volume:    holding.Volume,
				CostBasis: holding.CostBasis.InexactFloat64(),
				Value:     holding.Value.InexactFloat64(),
			})
		}
		if m := b.Metrics; m != nil {
			bucket.Metrics = &bucketMetricsResponse{
				TotalReturn:      m.TotalReturn,
				AnnualizedReturn: m.AnnualizedReturn,
				AnnualizedStdev:  m.AnnualizedStdev,
				SharpeRatio:      m.SharpeRatio,
				MaxDrawdown:      m.MaxDrawdown,
				MaxDrawdownDate:  util.FormatDate(m.MaxDrawdownDate),
				YearlyReturns:    m.YearlyReturns,
			}
		}
		out.Buckets = append(out.Buckets, bucket)
	}

	return out
}

type runResponse struct {
	RunID        uuid.UUID  `json:"runID"`
	Name         string     `json:"name"`
	Mode         string     `json:"mode"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	// bucket -> date -> total asset after trade
	Values map[string]map[string]float64 `json:"values,omitempty"`
}

func (h ApiHandler) listRuns(c *gin.Context) {
	if h.BacktestRunRepository == nil {
		returnErrorJsonCode(fmt.Errorf("persistence is not available"), c, http.StatusNotFound)
		return
	}
	runs, err := h.BacktestRunRepository.List()
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	out := []runResponse{}
	for _, r := range runs {
		out = append(out, runResponse{
			RunID:        r.BacktestRunID,
			Name:         r.Name,
			Mode:         r.Mode,
			Status:       r.Status,
			ErrorMessage: r.ErrorMessage,
			CreatedAt:    r.CreatedAt,
			CompletedAt:  r.CompletedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	c.JSON(200, out)
}

func (h ApiHandler) getRun(c *gin.Context) {
	if h.BacktestRunRepository == nil {
		returnErrorJsonCode(fmt.Errorf("persistence is not available"), c, http.StatusNotFound)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("invalid run id %q: %w", c.Param("id"), err), c, http.StatusBadRequest)
		return
	}

	run, err := h.BacktestRunRepository.Get(id)
	if errors.Is(err, qrm.ErrNoRows) {
		returnErrorJsonCode(fmt.Errorf("run %s not found", id.String()), c, http.StatusNotFound)
		return
	} else if err != nil {
		returnErrorJson(err, c)
		return
	}
	records, err := h.BacktestRunRepository.ListDailyRecords(id)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	values := map[string]map[string]float64{}
	for _, r := range records {
		if _, ok := values[r.Bucket]; !ok {
			values[r.Bucket] = map[string]float64{}
		}
		values[r.Bucket][util.FormatDate(r.Date)] = r.TotalAssetAfterTrade
	}

	c.JSON(200, runResponse{
		RunID:        run.BacktestRunID,
		Name:         run.Name,
		Mode:         run.Mode,
		Status:       run.Status,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt,
		CompletedAt:  run.CompletedAt,
		Values:       values,
	})
}
