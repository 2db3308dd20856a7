package account

import (
	"fmt"
	"math"
	"rankbacktest/internal/domain"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	one      = decimal.NewFromInt(1)
	two      = decimal.NewFromInt(2)
	feeFloor = decimal.NewFromInt(5) // minimum commission whenever a fee percent is set
	roundLot = decimal.NewFromInt(domain.RoundLot)
)

// every cash or notional amount is rounded to cents after each step
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// lotVolume converts money into a share count at price, rounded down
// to whole round lots. A lot counts as affordable when its cent-rounded
// notional fits in money, so amounts that were themselves rounded from
// an exact lot convert back to that lot.
func lotVolume(money, price decimal.Decimal) int64 {
	if !money.IsPositive() || !price.IsPositive() {
		return 0
	}
	lots := money.Div(price).Div(roundLot).Floor().IntPart()
	next := decimal.NewFromInt((lots + 1) * domain.RoundLot)
	if round2(next.Mul(price)).LessThanOrEqual(money) {
		lots++
	}
	return lots * domain.RoundLot
}

type Options struct {
	InitCash   float64
	FeePercent float64
	TaxPercent float64 // charged on sells only
	Slippage   float64 // full bid/ask spread as a fraction of the quote
	Logger     *zap.SugaredLogger
}

// Account is the cash and position ledger for one replay. It is not
// safe for concurrent use; each bucket owns its own Account.
type Account struct {
	feePercent decimal.Decimal
	taxPercent decimal.Decimal
	slippage   decimal.Decimal

	cash      decimal.Decimal
	initCash  decimal.Decimal
	positions map[string]*domain.LotQueue
	prices    map[string]float64

	logger *zap.SugaredLogger
}

func New(opts Options) (*Account, error) {
	if math.IsNaN(opts.InitCash) || opts.InitCash < 0 {
		return nil, fmt.Errorf("%w: init cash must be >= 0, got %f", domain.ErrConfiguration, opts.InitCash)
	}
	for name, v := range map[string]float64{
		"fee percent": opts.FeePercent,
		"tax percent": opts.TaxPercent,
		"slippage":    opts.Slippage,
	} {
		if math.IsNaN(v) || v < 0 || v >= 1 {
			return nil, fmt.Errorf("%w: %s must be in [0, 1), got %f", domain.ErrConfiguration, name, v)
		}
	}
	l := opts.Logger
	if l == nil {
		l = zap.NewNop().Sugar()
	}

	initCash := round2(decimal.NewFromFloat(opts.InitCash))
	return &Account{
		feePercent: decimal.NewFromFloat(opts.FeePercent),
		taxPercent: decimal.NewFromFloat(opts.TaxPercent),
		slippage:   decimal.NewFromFloat(opts.Slippage),
		cash:       initCash,
		initCash:   initCash,
		positions:  map[string]*domain.LotQueue{},
		prices:     map[string]float64{},
		logger:     l,
	}, nil
}

func (a *Account) Cash() decimal.Decimal {
	return a.cash
}

func (a *Account) InitCash() decimal.Decimal {
	return a.initCash
}

// Reset restores the initial cash and drops every position.
func (a *Account) Reset() {
	a.cash = a.initCash
	a.positions = map[string]*domain.LotQueue{}
}

// SetPriceSnapshot replaces the quote table for the current date. Every
// held instrument must be quoted.
func (a *Account) SetPriceSnapshot(prices map[string]float64) error {
	for _, symbol := range a.Holdings() {
		p, ok := prices[symbol]
		if !ok {
			return fmt.Errorf("failed to set price snapshot: held instrument %s: %w", symbol, domain.ErrMissingPrice)
		}
		if math.IsNaN(p) {
			a.logger.Warnw("price is NaN for held instrument", "symbol", symbol, "volume", a.HeldVolume(symbol))
		}
	}

	snapshot := make(map[string]float64, len(prices))
	for symbol, p := range prices {
		snapshot[symbol] = p
	}
	a.prices = snapshot

	return nil
}

func (a *Account) quote(symbol string) (decimal.Decimal, error) {
	p, ok := a.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s: %w", symbol, domain.ErrMissingPrice)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return decimal.Zero, fmt.Errorf("invalid quote %f for %s: %w", p, symbol, domain.ErrMissingPrice)
	}
	return decimal.NewFromFloat(p), nil
}

func (a *Account) askPrice(quote decimal.Decimal) decimal.Decimal {
	return quote.Mul(one.Add(a.slippage.Div(two)))
}

func (a *Account) bidPrice(quote decimal.Decimal) decimal.Decimal {
	return quote.Mul(one.Sub(a.slippage.Div(two)))
}

func (a *Account) fee(notional decimal.Decimal) decimal.Decimal {
	if !a.feePercent.IsPositive() {
		return decimal.Zero
	}
	return decimal.Max(round2(notional.Mul(a.feePercent)), feeFloor)
}

// shortfallBudget inverts the fee formula to find the largest notional
// whose fee still fits in cash.
func (a *Account) shortfallBudget() decimal.Decimal {
	if !a.feePercent.IsPositive() {
		return a.cash
	}
	budget := a.cash.Div(one.Add(a.feePercent)).Truncate(2)
	if budget.Mul(a.feePercent).LessThan(feeFloor) {
		budget = a.cash.Sub(feeFloor)
	}
	return budget
}

func (a *Account) HeldVolume(symbol string) int64 {
	if q, ok := a.positions[symbol]; ok {
		return q.TotalVolume()
	}
	return 0
}

// Lots returns a copy of the instrument's lots, oldest first.
func (a *Account) Lots(symbol string) []domain.Lot {
	if q, ok := a.positions[symbol]; ok {
		return q.Lots()
	}
	return []domain.Lot{}
}

// Holdings lists held instruments in sorted order.
func (a *Account) Holdings() []string {
	out := []string{}
	for symbol, q := range a.positions {
		if !q.IsEmpty() {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}

// PositionValue marks the position at the unadjusted quote.
func (a *Account) PositionValue(symbol string) (decimal.Decimal, error) {
	held := a.HeldVolume(symbol)
	if held == 0 {
		return decimal.Zero, nil
	}
	q, err := a.quote(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return round2(decimal.NewFromInt(held).Mul(q)), nil
}

func (a *Account) TotalAsset() (decimal.Decimal, error) {
	total := a.cash
	for _, symbol := range a.Holdings() {
		held := a.HeldVolume(symbol)
		p, ok := a.prices[symbol]
		if !ok || math.IsNaN(p) || math.IsInf(p, 0) {
			return decimal.Zero, fmt.Errorf("cannot value %d shares of %s at %f: %w", held, symbol, p, domain.ErrMarkToMarket)
		}
		total = total.Add(decimal.NewFromInt(held).Mul(decimal.NewFromFloat(p)))
	}
	return round2(total), nil
}

// BuyByNotional moves the total market value of the position toward
// money. A target below the current value turns into a sell of the
// difference.
func (a *Account) BuyByNotional(symbol string, money decimal.Decimal) (domain.TradeResult, error) {
	if money.IsNegative() {
		return domain.NoTrade(symbol, true), fmt.Errorf("failed to buy %s: target money must be >= 0, got %s", symbol, money.String())
	}
	quote, err := a.quote(symbol)
	if err != nil {
		return domain.NoTrade(symbol, true), fmt.Errorf("failed to buy %s: %w", symbol, err)
	}
	ask := a.askPrice(quote)
	held := a.HeldVolume(symbol)
	heldValue := round2(decimal.NewFromInt(held).Mul(ask))

	if money.LessThan(heldValue) {
		return a.SellByNotional(symbol, heldValue.Sub(money))
	}

	buy := round2(money.Sub(heldValue))
	if buy.GreaterThan(a.cash) {
		a.logger.Warnw(
			"buy capped at available cash",
			"symbol", symbol,
			"requested", buy.String(),
			"cash", a.cash.String(),
		)
		buy = a.cash
	}
	if !buy.IsPositive() || a.cash.LessThan(feeFloor) {
		return domain.NoTrade(symbol, true), nil
	}

	volume := lotVolume(buy, ask)
	if volume < domain.RoundLot {
		a.logger.Warnw(
			"buy skipped, volume below round lot",
			"symbol", symbol,
			"money", buy.String(),
			"price", ask.String(),
		)
		return domain.NoTrade(symbol, true), nil
	}
	notional := round2(decimal.NewFromInt(volume).Mul(ask))
	fee := a.fee(notional)

	if notional.Add(fee).GreaterThan(a.cash) {
		budget := a.shortfallBudget()
		a.logger.Warnw(
			"cash cannot cover notional plus fee, retrying with smaller notional",
			"symbol", symbol,
			"notional", notional.String(),
			"fee", fee.String(),
			"cash", a.cash.String(),
			"budget", budget.String(),
		)
		volume = lotVolume(budget, ask)
		if volume < domain.RoundLot {
			a.logger.Warnw("buy skipped after fee adjustment, volume below round lot", "symbol", symbol)
			return domain.NoTrade(symbol, true), nil
		}
		notional = round2(decimal.NewFromInt(volume).Mul(ask))
		fee = a.fee(notional)
		if notional.Add(fee).GreaterThan(a.cash) {
			a.logger.Warnw("buy skipped, cash cannot cover fee", "symbol", symbol, "notional", notional.String(), "fee", fee.String())
			return domain.NoTrade(symbol, true), nil
		}
	}

	queue, ok := a.positions[symbol]
	if !ok {
		queue = domain.NewLotQueue()
		a.positions[symbol] = queue
	}
	if err := queue.Push(domain.Lot{Volume: volume, CostPrice: ask}); err != nil {
		return domain.NoTrade(symbol, true), fmt.Errorf("failed to add lot for %s: %w", symbol, err)
	}
	a.cash = round2(a.cash.Sub(notional).Sub(fee))

	a.logger.Infow(
		"buy",
		"symbol", symbol,
		"volume", volume,
		"notional", notional.String(),
		"fee", fee.String(),
		"cash", a.cash.String(),
	)

	return domain.TradeResult{
		Symbol:      symbol,
		Notional:    notional,
		Volume:      volume,
		Fee:         fee,
		IsBuy:       true,
		RealizedPnL: decimal.Zero,
	}, nil
}

// SellByNotional sells roughly money worth of the position, oldest lots
// first. A request at or above the position value sells everything.
func (a *Account) SellByNotional(symbol string, money decimal.Decimal) (domain.TradeResult, error) {
	queue, ok := a.positions[symbol]
	if !ok || queue.IsEmpty() {
		return domain.NoTrade(symbol, false), fmt.Errorf("failed to sell %s: %w", symbol, domain.ErrNotHeld)
	}
	if money.IsNegative() {
		return domain.NoTrade(symbol, false), fmt.Errorf("failed to sell %s: money must be >= 0, got %s", symbol, money.String())
	}
	quote, err := a.quote(symbol)
	if err != nil {
		return domain.NoTrade(symbol, false), fmt.Errorf("failed to sell %s: %w", symbol, err)
	}
	bid := a.bidPrice(quote)
	held := queue.TotalVolume()
	heldValue := round2(decimal.NewFromInt(held).Mul(bid))

	volume := held
	if money.LessThan(heldValue) {
		volume = lotVolume(money, bid)
		if volume > held {
			volume = held
		}
	}
	if volume == 0 {
		a.logger.Warnw(
			"sell skipped, volume below round lot",
			"symbol", symbol,
			"money", money.String(),
			"price", bid.String(),
		)
		return domain.NoTrade(symbol, false), nil
	}

	realized, err := queue.Consume(volume, bid)
	if err != nil {
		return domain.NoTrade(symbol, false), fmt.Errorf("failed to sell %s: %w", symbol, err)
	}
	if queue.IsEmpty() {
		delete(a.positions, symbol)
	}

	notional := round2(decimal.NewFromInt(volume).Mul(bid))
	fee := a.fee(notional)
	tax := round2(notional.Mul(a.taxPercent))
	a.cash = round2(a.cash.Add(notional).Sub(fee).Sub(tax))

	a.logger.Infow(
		"sell",
		"symbol", symbol,
		"volume", volume,
		"notional", notional.String(),
		"fee", fee.String(),
		"tax", tax.String(),
		"realized", realized.String(),
		"cash", a.cash.String(),
	)

	return domain.TradeResult{
		Symbol:      symbol,
		Notional:    notional,
		Volume:      volume,
		Fee:         fee.Add(tax),
		IsBuy:       false,
		RealizedPnL: realized,
	}, nil
}

// RebalanceToPercent targets percent of totalAsset in symbol. Zero
// percent liquidates the position.
func (a *Account) RebalanceToPercent(symbol string, totalAsset decimal.Decimal, percent float64) (domain.TradeResult, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 1 {
		return domain.NoTrade(symbol, true), fmt.Errorf("failed to rebalance %s: percent must be in [0, 1], got %f", symbol, percent)
	}
	money := round2(totalAsset.Mul(decimal.NewFromFloat(percent)))
	return a.BuyByNotional(symbol, money)
}

// BuyByVolume adds volume shares on top of the current position.
func (a *Account) BuyByVolume(symbol string, volume int64) (domain.TradeResult, error) {
	if volume <= 0 {
		return domain.NoTrade(symbol, true), fmt.Errorf("failed to buy %s: volume must be > 0, got %d", symbol, volume)
	}
	quote, err := a.quote(symbol)
	if err != nil {
		return domain.NoTrade(symbol, true), fmt.Errorf("failed to buy %s: %w", symbol, err)
	}
	ask := a.askPrice(quote)
	heldValue := round2(decimal.NewFromInt(a.HeldVolume(symbol)).Mul(ask))
	money := heldValue.Add(round2(decimal.NewFromInt(volume).Mul(ask)))

	return a.BuyByNotional(symbol, money)
}

func (a *Account) SellByVolume(symbol string, volume int64) (domain.TradeResult, error) {
	if volume <= 0 {
		return domain.NoTrade(symbol, false), fmt.Errorf("failed to sell %s: volume must be > 0, got %d", symbol, volume)
	}
	if a.HeldVolume(symbol) == 0 {
		return domain.NoTrade(symbol, false), fmt.Errorf("failed to sell %s: %w", symbol, domain.ErrNotHeld)
	}
	quote, err := a.quote(symbol)
	if err != nil {
		return domain.NoTrade(symbol, false), fmt.Errorf("failed to sell %s: %w", symbol, err)
	}
	money := round2(decimal.NewFromInt(volume).Mul(a.bidPrice(quote)))

	return a.SellByNotional(symbol, money)
}
