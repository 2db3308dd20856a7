package l3_service

import (
	"context"
	"fmt"
	"rankbacktest/internal/account"
	"rankbacktest/internal/calculator"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/metrics"
	l1_service "rankbacktest/internal/service/l1"
	l2_service "rankbacktest/internal/service/l2"
	"rankbacktest/internal/util"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BacktestService interface {
	Run(ctx context.Context, in BacktestInput) (*BacktestResult, error)
}

type BacktestInput struct {
	Config util.RunConfig
	Data   domain.RunData
}

type BucketResult struct {
	Bucket        domain.Bucket
	Records       []domain.DailyRecord
	Selections    domain.SelectionTable
	FinalCash     decimal.Decimal
	FinalHoldings []domain.Holding
	// nil when the run has fewer than two dates
	Metrics *calculator.CalculateMetricsResult
}

type BacktestResult struct {
	Dates   []time.Time
	Scores  *domain.Frame
	Buckets []BucketResult
}

type backtestServiceHandler struct {
	ScoreService     l1_service.ScoreService
	SelectionService l2_service.SelectionService
	// optional; optimizer mode builds a mean-variance optimizer from the run config when nil
	Optimizer l2_service.Optimizer
}

func NewBacktestService(
	scoreService l1_service.ScoreService,
	selectionService l2_service.SelectionService,
	optimizer l2_service.Optimizer,
) BacktestService {
	return backtestServiceHandler{
		ScoreService:     scoreService,
		SelectionService: selectionService,
		Optimizer:        optimizer,
	}
}

func (h backtestServiceHandler) optimizerFor(cfg util.RunConfig) (l2_service.Optimizer, error) {
	if cfg.Mode != util.Mode_Optimizer {
		return nil, nil
	}
	if h.Optimizer != nil {
		return h.Optimizer, nil
	}
	o := cfg.Optimizer
	optimizer, err := l2_service.NewMeanVarianceOptimizer(l2_service.OptimizerOptions{
		MaxWeight:     o.MaxWeight,
		TurnoverLimit: o.TurnoverLimit,
		RiskAversion:  o.RiskAversion,
		ReturnCoeff:   o.ReturnCoeff,
		MaxIter:       o.MaxIter,
		Tolerance:     o.Tolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfiguration, err.Error())
	}
	return optimizer, nil
}

func (h backtestServiceHandler) Run(ctx context.Context, in BacktestInput) (result *BacktestResult, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.RunsTotal.WithLabelValues(status).Inc()
	}()

	cfg := in.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if in.Data.Prices == nil || in.Data.Factors == nil {
		return nil, fmt.Errorf("%w: price and factor tables are required", domain.ErrConfiguration)
	}
	log := logger.FromContext(ctx)
	profile, endProfile := domain.GetProfile(ctx)
	defer endProfile()

	start, end, err := cfg.Period()
	if err != nil {
		return nil, err
	}
	prices := in.Data.Prices.Slice(start, end)
	if len(prices.Dates) == 0 {
		return nil, fmt.Errorf("%w: no trading dates between %s and %s", domain.ErrConfiguration, cfg.Start, cfg.End)
	}

	_, endSpan := profile.StartNewSpan("scoring")
	scores, err := h.ScoreService.Score(ctx, l1_service.ScoreInput{
		Prices:  prices,
		Factors: in.Data.Factors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to score instruments: %w", err)
	}
	endSpan()

	_, endSpan = profile.StartNewSpan("selecting baskets")
	universe, err := l1_service.NewUniverseService(l1_service.NewUniverseServiceInput{
		Prices:    prices,
		Members:   in.Data.Members,
		Suspended: in.Data.Suspended,
		RiskFlags: in.Data.RiskFlags,
	})
	if err != nil {
		return nil, err
	}
	buckets, err := l2_service.NewBuckets(cfg.Mode, cfg.NumGroups)
	if err != nil {
		return nil, err
	}
	selections, err := h.SelectionService.Select(ctx, l2_service.SelectInput{
		Scores:         scores,
		Universe:       universe,
		Buckets:        buckets,
		NumLongs:       cfg.NumLongs,
		NumGroups:      cfg.NumGroups,
		HigherIsBetter: cfg.HigherIsBetter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build selection tables: %w", err)
	}
	endSpan()

	optimizer, err := h.optimizerFor(cfg)
	if err != nil {
		return nil, err
	}
	sizingService := l2_service.NewSizingService(optimizer)

	span, endSpan := profile.StartNewSpan("replaying buckets")
	bucketProfile, endBucketProfile := span.NewSubProfile()

	log.Infow(
		"starting backtest",
		"name", cfg.Name,
		"mode", cfg.Mode,
		"buckets", len(buckets),
		"dates", len(prices.Dates),
	)

	results := make([]BucketResult, len(buckets))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, b := range buckets {
		i, b := i, b
		group.Go(func() error {
			bucketSpan, endBucketSpan := domain.NewSpan(b.Name)
			bucketProfile.AddSpan(bucketSpan)
			defer endBucketSpan()
			timer := time.Now()

			replay := bucketReplay{
				bucket:     b,
				cfg:        cfg,
				prices:     prices,
				factors:    in.Data.Factors,
				selections: selections,
				sizing:     sizingService,
				log:        log.With("bucket", b.Name),
			}
			res, err := replay.run(groupCtx)
			if err != nil {
				return fmt.Errorf("failed to replay bucket %s: %w", b.Name, err)
			}
			results[i] = *res

			metrics.BucketDuration.WithLabelValues(string(b.Kind)).Observe(time.Since(timer).Seconds())
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	endBucketProfile()
	endSpan()

	for i := range results {
		if len(results[i].Records) < 2 {
			continue
		}
		m, err := calculator.CalculateMetrics(results[i].Records, cfg.PeriodsPerYear)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate metrics for %s: %w", results[i].Bucket.Name, err)
		}
		results[i].Metrics = m
	}

	log.Infow("finished backtest", "name", cfg.Name)

	return &BacktestResult{
		Dates:   prices.Dates,
		Scores:  scores,
		Buckets: results,
	}, nil
}

type bucketReplay struct {
	bucket     domain.Bucket
	cfg        util.RunConfig
	prices     *domain.Frame
	factors    *domain.Frame
	selections *l2_service.SelectResult
	sizing     l2_service.SizingService
	log        *zap.SugaredLogger
}

// expectedSize is the basket size a bucket must see on date, or -1 when
// any non-empty basket is valid.
func (r bucketReplay) expectedSize(date time.Time) int {
	switch r.bucket.Kind {
	case domain.BucketKind_Long, domain.BucketKind_Short:
		return r.cfg.NumLongs
	case domain.BucketKind_Group:
		return len(r.selections.Ranked[date]) / r.cfg.NumGroups
	}
	return -1
}

func (r bucketReplay) run(ctx context.Context) (*BucketResult, error) {
	acct, err := account.New(account.Options{
		InitCash:   r.cfg.InitCash,
		FeePercent: r.cfg.FeePercent,
		TaxPercent: r.cfg.TaxPercent,
		Slippage:   r.cfg.Slippage,
		Logger:     r.log,
	})
	if err != nil {
		return nil, err
	}
	acct.Reset()
	ctx = logger.NewContext(ctx, r.log)

	table := r.selections.Tables[r.bucket.Name]
	records := []domain.DailyRecord{}
	for _, date := range r.prices.Dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day := util.FormatDate(date)

		snapshot, err := r.prices.RowMap(date)
		if err != nil {
			return nil, err
		}
		if err := acct.SetPriceSnapshot(snapshot); err != nil {
			return nil, fmt.Errorf("failed to load prices on %s: %w", day, err)
		}
		before, err := acct.TotalAsset()
		if err != nil {
			return nil, fmt.Errorf("failed to value account before trading on %s: %w", day, err)
		}

		basket, ok := table[date]
		if !ok {
			return nil, fmt.Errorf("%w: no %s selection on %s", domain.ErrConfiguration, r.bucket.Name, day)
		}
		if expected := r.expectedSize(date); (expected >= 0 && len(basket) != expected) || len(basket) == 0 {
			return nil, fmt.Errorf("%w: %s basket on %s has %d instruments, expected %d", domain.ErrConfiguration, r.bucket.Name, day, len(basket), expected)
		}

		targets, err := r.targets(ctx, acct, date, basket, before, snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to size %s on %s: %w", r.bucket.Name, day, err)
		}

		trades, err := handleBar(acct, before, targets)
		if err != nil {
			return nil, fmt.Errorf("failed to rebalance %s on %s: %w", r.bucket.Name, day, err)
		}

		after, err := acct.TotalAsset()
		if err != nil {
			return nil, fmt.Errorf("failed to value account after trading on %s: %w", day, err)
		}
		records = append(records, newDailyRecord(date, before, after, acct.Cash(), trades))
	}

	holdings := []domain.Holding{}
	for _, symbol := range acct.Holdings() {
		value, err := acct.PositionValue(symbol)
		if err != nil {
			return nil, err
		}
		costBasis := decimal.Zero
		for _, lot := range acct.Lots(symbol) {
			costBasis = costBasis.Add(lot.CostPrice.Mul(decimal.NewFromInt(lot.Volume)))
		}
		holdings = append(holdings, domain.Holding{
			Symbol:    symbol,
			Volume:    acct.HeldVolume(symbol),
			CostBasis: costBasis.Round(2),
			Value:     value,
		})
	}

	return &BucketResult{
		Bucket:        r.bucket,
		Records:       records,
		Selections:    table,
		FinalCash:     acct.Cash(),
		FinalHoldings: holdings,
	}, nil
}

func (r bucketReplay) targets(
	ctx context.Context,
	acct *account.Account,
	date time.Time,
	basket []string,
	totalAsset decimal.Decimal,
	prices map[string]float64,
) (map[string]decimal.Decimal, error) {
	if r.bucket.Kind != domain.BucketKind_Optimizer {
		return r.sizing.EqualWeightTargets(ctx, l2_service.EqualWeightTargetsInput{
			Basket:     basket,
			TotalAsset: totalAsset,
			Prices:     prices,
		})
	}

	prevWeights := map[string]float64{}
	if totalAsset.IsPositive() {
		for _, symbol := range acct.Holdings() {
			value, err := acct.PositionValue(symbol)
			if err != nil {
				return nil, err
			}
			prevWeights[symbol] = value.Div(totalAsset).InexactFloat64()
		}
	}
	return r.sizing.OptimizedTargets(ctx, l2_service.OptimizedTargetsInput{
		Date:           date,
		Universe:       basket,
		Factors:        r.factors,
		Lookback:       r.cfg.Optimizer.Lookback,
		HigherIsBetter: r.cfg.HigherIsBetter,
		TotalAsset:     totalAsset,
		Prices:         prices,
		PrevWeights:    prevWeights,
	})
}

// handleBar liquidates holdings without a target, then trades toward each
// target, shrinking positions before growing them so sells fund buys.
func handleBar(acct *account.Account, totalAsset decimal.Decimal, targets map[string]decimal.Decimal) ([]domain.TradeResult, error) {
	trades := []domain.TradeResult{}
	record := func(res domain.TradeResult, moved bool) {
		if res.Executed() {
			side := metrics.Side_Sell
			if res.IsBuy {
				side = metrics.Side_Buy
			}
			metrics.FillsTotal.WithLabelValues(side).Inc()
			trades = append(trades, res)
		} else if moved {
			metrics.SkippedTradesTotal.WithLabelValues(metrics.SkipReason_NoFill).Inc()
		} else {
			metrics.SkippedTradesTotal.WithLabelValues(metrics.SkipReason_AtTarget).Inc()
		}
	}

	for _, symbol := range acct.Holdings() {
		if _, ok := targets[symbol]; ok {
			continue
		}
		res, err := acct.RebalanceToPercent(symbol, totalAsset, 0)
		if err != nil {
			return nil, err
		}
		record(res, true)
	}

	symbols := make([]string, 0, len(targets))
	for symbol := range targets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	decreasing, increasing := []string{}, []string{}
	current := map[string]decimal.Decimal{}
	for _, symbol := range symbols {
		value, err := acct.PositionValue(symbol)
		if err != nil {
			return nil, err
		}
		current[symbol] = value
		if targets[symbol].LessThan(value) {
			decreasing = append(decreasing, symbol)
		} else {
			increasing = append(increasing, symbol)
		}
	}

	for _, symbol := range append(decreasing, increasing...) {
		res, err := acct.BuyByNotional(symbol, targets[symbol])
		if err != nil {
			return nil, err
		}
		record(res, !targets[symbol].Equal(current[symbol]))
	}

	return trades, nil
}

func newDailyRecord(date time.Time, before, after, cash decimal.Decimal, trades []domain.TradeResult) domain.DailyRecord {
	buy, sell := decimal.Zero, decimal.Zero
	fees, pnl := decimal.Zero, decimal.Zero
	for _, t := range trades {
		if t.IsBuy {
			buy = buy.Add(t.Notional)
		} else {
			sell = sell.Add(t.Notional)
		}
		fees = fees.Add(t.Fee)
		pnl = pnl.Add(t.RealizedPnL)
	}

	turnover := func(d decimal.Decimal) float64 {
		if !before.IsPositive() {
			return 0
		}
		return d.Div(before).InexactFloat64()
	}

	return domain.DailyRecord{
		Date:                  date,
		TotalAssetBeforeTrade: before,
		TotalAssetAfterTrade:  after,
		CashAfterTrade:        cash,
		Turnover:              turnover(buy.Add(sell)),
		TurnoverBuy:           turnover(buy),
		TurnoverSell:          turnover(sell),
		Fees:                  fees,
		RealizedPnL:           pnl,
		NumTrades:             len(trades),
	}
}
