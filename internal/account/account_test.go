package account

import (
	"rankbacktest/internal/domain"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func newTestAccount(t *testing.T, opts Options) *Account {
	t.Helper()
	a, err := New(opts)
	require.NoError(t, err)
	return a
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "negative cash", opts: Options{InitCash: -1}},
		{name: "fee of one", opts: Options{InitCash: 1, FeePercent: 1}},
		{name: "negative tax", opts: Options{InitCash: 1, TaxPercent: -0.1}},
		{name: "nan slippage", opts: Options{InitCash: 1, Slippage: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}

	t.Run("rounds init cash", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 1000.005})
		requireDecimal(t, "1000.01", a.Cash())
		requireDecimal(t, "1000.01", a.InitCash())
	})
}

func TestAccount_buyThenSellScenario(t *testing.T) {
	a := newTestAccount(t, Options{InitCash: 1_000_000})

	require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))
	buy, err := a.BuyByVolume("X", 500)
	require.NoError(t, err)
	require.Equal(
		t,
		"",
		cmp.Diff(
			domain.TradeResult{
				Symbol:      "X",
				Notional:    dec("5000"),
				Volume:      500,
				Fee:         decimal.Zero,
				IsBuy:       true,
				RealizedPnL: decimal.Zero,
			},
			buy,
			decimalComparer,
		),
	)
	requireDecimal(t, "995000", a.Cash())

	require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 12}))
	sell, err := a.SellByNotional("X", dec("6000"))
	require.NoError(t, err)
	require.Equal(
		t,
		"",
		cmp.Diff(
			domain.TradeResult{
				Symbol:      "X",
				Notional:    dec("6000"),
				Volume:      500,
				Fee:         decimal.Zero,
				IsBuy:       false,
				RealizedPnL: dec("1000"),
			},
			sell,
			decimalComparer,
		),
	)
	requireDecimal(t, "1001000", a.Cash())
	require.Empty(t, a.Holdings())
}

func TestAccount_fees(t *testing.T) {
	t.Run("fee floor applies on small sell", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000, FeePercent: 0.0005})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 1}))

		buy, err := a.BuyByNotional("X", dec("1000"))
		require.NoError(t, err)
		require.Equal(t, int64(1000), buy.Volume)
		requireDecimal(t, "5", buy.Fee)

		sell, err := a.SellByNotional("X", dec("100"))
		require.NoError(t, err)
		require.Equal(t, int64(100), sell.Volume)
		requireDecimal(t, "100", sell.Notional)
		requireDecimal(t, "5", sell.Fee)
		requireDecimal(t, "99090", a.Cash())
	})

	t.Run("percentage fee above floor", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 1_000_000, FeePercent: 0.0003})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 50}))

		buy, err := a.BuyByNotional("X", dec("100000"))
		require.NoError(t, err)
		require.Equal(t, int64(2000), buy.Volume)
		requireDecimal(t, "30", buy.Fee)
		requireDecimal(t, "899970", a.Cash())
	})

	t.Run("tax charged on sells only", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000, TaxPercent: 0.001})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))

		buy, err := a.BuyByVolume("X", 1000)
		require.NoError(t, err)
		requireDecimal(t, "0", buy.Fee)

		sell, err := a.SellByVolume("X", 1000)
		require.NoError(t, err)
		requireDecimal(t, "10", sell.Fee)
		requireDecimal(t, "99990", a.Cash())
	})
}

func TestAccount_BuyByNotional(t *testing.T) {
	t.Run("below round lot does not trade", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))

		res, err := a.BuyByNotional("X", dec("500"))
		require.NoError(t, err)
		require.False(t, res.Executed())
		requireDecimal(t, "100000", a.Cash())
		require.Empty(t, a.Holdings())
	})

	t.Run("capped at available cash", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 10_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))

		res, err := a.BuyByNotional("X", dec("50000"))
		require.NoError(t, err)
		require.Equal(t, int64(1000), res.Volume)
		requireDecimal(t, "0", a.Cash())
	})

	t.Run("cash below fee floor does not trade", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 4.99})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 0.01}))

		res, err := a.BuyByNotional("X", dec("4"))
		require.NoError(t, err)
		require.False(t, res.Executed())
	})

	t.Run("fee shortfall retried with inverted percentage fee", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 10_000, FeePercent: 0.001})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))

		res, err := a.BuyByNotional("X", dec("10000"))
		require.NoError(t, err)
		require.Equal(t, int64(900), res.Volume)
		requireDecimal(t, "9000", res.Notional)
		requireDecimal(t, "9", res.Fee)
		requireDecimal(t, "991", a.Cash())
	})

	t.Run("fee shortfall retried with fee floor", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 1000, FeePercent: 0.0003})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 1}))

		res, err := a.BuyByNotional("X", dec("1000"))
		require.NoError(t, err)
		require.Equal(t, int64(900), res.Volume)
		requireDecimal(t, "5", res.Fee)
		requireDecimal(t, "95", a.Cash())
	})

	t.Run("targets total value not increment", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))

		_, err := a.BuyByNotional("X", dec("10000"))
		require.NoError(t, err)
		res, err := a.BuyByNotional("X", dec("15000"))
		require.NoError(t, err)

		require.Equal(t, int64(500), res.Volume)
		require.Equal(t, int64(1500), a.HeldVolume("X"))
		require.Len(t, a.Lots("X"), 2)
	})

	t.Run("missing quote", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{}))

		_, err := a.BuyByNotional("X", dec("1000"))
		require.ErrorIs(t, err, domain.ErrMissingPrice)
	})

	t.Run("slippage moves execution price", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000, Slippage: 0.002})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))

		buy, err := a.BuyByVolume("X", 1000)
		require.NoError(t, err)
		require.Equal(t, int64(1000), buy.Volume)
		requireDecimal(t, "10010", buy.Notional)
		requireDecimal(t, "10.01", a.Lots("X")[0].CostPrice)

		sell, err := a.SellByVolume("X", 1000)
		require.NoError(t, err)
		requireDecimal(t, "9990", sell.Notional)
		requireDecimal(t, "-20", sell.RealizedPnL)
		requireDecimal(t, "99980", a.Cash())
	})
}

func TestAccount_SellByNotional(t *testing.T) {
	t.Run("not held", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))

		_, err := a.SellByNotional("X", dec("100"))
		require.ErrorIs(t, err, domain.ErrNotHeld)
	})

	t.Run("consumes lots first in first out", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))
		_, err := a.BuyByVolume("X", 300)
		require.NoError(t, err)
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 12}))
		_, err = a.BuyByVolume("X", 200)
		require.NoError(t, err)

		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 15}))
		res, err := a.SellByVolume("X", 400)
		require.NoError(t, err)

		require.Equal(t, int64(400), res.Volume)
		requireDecimal(t, "1800", res.RealizedPnL)
		require.Equal(
			t,
			"",
			cmp.Diff(
				[]domain.Lot{{Volume: 100, CostPrice: dec("12")}},
				a.Lots("X"),
				decimalComparer,
			),
		)
	})

	t.Run("partial sell rounds down to round lot", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))
		_, err := a.BuyByVolume("X", 1000)
		require.NoError(t, err)

		res, err := a.SellByNotional("X", dec("2550"))
		require.NoError(t, err)
		require.Equal(t, int64(200), res.Volume)
		require.Equal(t, int64(800), a.HeldVolume("X"))
	})

	t.Run("sub lot sell does not trade", func(t *testing.T) {
		a := newTestAccount(t, Options{InitCash: 100_000})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))
		_, err := a.BuyByVolume("X", 1000)
		require.NoError(t, err)

		res, err := a.SellByNotional("X", dec("999"))
		require.NoError(t, err)
		require.False(t, res.Executed())
		require.Equal(t, int64(1000), a.HeldVolume("X"))
	})
}

func TestAccount_redirectsBuyBelowValueToSell(t *testing.T) {
	setup := func() *Account {
		a := newTestAccount(t, Options{InitCash: 1_000_000, FeePercent: 0.0003, TaxPercent: 0.001})
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))
		_, err := a.BuyByVolume("X", 1000)
		require.NoError(t, err)
		_, err = a.BuyByVolume("X", 2000)
		require.NoError(t, err)
		require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 11.37}))
		return a
	}

	viaBuy := setup()
	viaSell := setup()

	value, err := viaBuy.PositionValue("X")
	require.NoError(t, err)
	target := dec("12000")

	got, err := viaBuy.BuyByNotional("X", target)
	require.NoError(t, err)
	want, err := viaSell.SellByNotional("X", value.Sub(target))
	require.NoError(t, err)

	require.False(t, got.IsBuy)
	require.Equal(t, "", cmp.Diff(want, got, decimalComparer))
	require.True(t, viaBuy.Cash().Equal(viaSell.Cash()))
	require.Equal(t, "", cmp.Diff(viaSell.Lots("X"), viaBuy.Lots("X"), decimalComparer))
}

func TestAccount_roundTrip(t *testing.T) {
	a := newTestAccount(t, Options{InitCash: 1_000_000, FeePercent: 0.0003, TaxPercent: 0.001})
	require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 20}))

	buy, err := a.BuyByNotional("X", dec("100000"))
	require.NoError(t, err)
	sell, err := a.SellByVolume("X", buy.Volume)
	require.NoError(t, err)

	requireDecimal(t, "0", sell.RealizedPnL)
	paid := buy.Fee.Add(sell.Fee)
	require.True(t, a.Cash().Sub(a.InitCash()).Equal(paid.Neg()), "cash change %s, fees %s", a.Cash().Sub(a.InitCash()), paid)
}

func TestAccount_RebalanceToPercent(t *testing.T) {
	a := newTestAccount(t, Options{InitCash: 100_000})
	require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10, "Y": 20}))

	res, err := a.RebalanceToPercent("X", dec("100000"), 0.25)
	require.NoError(t, err)
	require.Equal(t, int64(2500), res.Volume)

	t.Run("zero percent liquidates", func(t *testing.T) {
		res, err := a.RebalanceToPercent("X", dec("100000"), 0)
		require.NoError(t, err)
		require.False(t, res.IsBuy)
		require.Equal(t, int64(2500), res.Volume)
		require.Empty(t, a.Holdings())
	})

	t.Run("zero percent without position is a no-op", func(t *testing.T) {
		res, err := a.RebalanceToPercent("Y", dec("100000"), 0)
		require.NoError(t, err)
		require.False(t, res.Executed())
	})

	t.Run("percent out of range", func(t *testing.T) {
		_, err := a.RebalanceToPercent("X", dec("100000"), 1.5)
		require.Error(t, err)
	})
}

func TestAccount_priceSnapshotAndValuation(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := newTestAccount(t, Options{InitCash: 100_000, Logger: zap.New(core).Sugar()})
	require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10, "Y": 5}))
	_, err := a.BuyByVolume("X", 1000)
	require.NoError(t, err)

	total, err := a.TotalAsset()
	require.NoError(t, err)
	requireDecimal(t, "100000", total)

	t.Run("held instrument missing from snapshot", func(t *testing.T) {
		err := a.SetPriceSnapshot(map[string]float64{"Y": 5})
		require.ErrorIs(t, err, domain.ErrMissingPrice)
	})

	t.Run("nan price warns then fails valuation", func(t *testing.T) {
		err := a.SetPriceSnapshot(map[string]float64{"X": math.NaN()})
		require.NoError(t, err)
		require.Equal(t, 1, logs.FilterMessage("price is NaN for held instrument").Len())

		_, err = a.TotalAsset()
		require.ErrorIs(t, err, domain.ErrMarkToMarket)
	})
}

func TestAccount_Reset(t *testing.T) {
	a := newTestAccount(t, Options{InitCash: 100_000})
	require.NoError(t, a.SetPriceSnapshot(map[string]float64{"X": 10}))
	_, err := a.BuyByVolume("X", 1000)
	require.NoError(t, err)

	a.Reset()

	requireDecimal(t, "100000", a.Cash())
	require.Empty(t, a.Holdings())
	require.Equal(t, int64(0), a.HeldVolume("X"))
}

func Test_lotVolume(t *testing.T) {
	tests := []struct {
		name   string
		money  string
		price  string
		expect int64
	}{
		{name: "exact lots", money: "5000", price: "10", expect: 500},
		{name: "rounds down", money: "5999.99", price: "10", expect: 500},
		{name: "cent rounded notional converts back", money: "123.45", price: "1.234523", expect: 100},
		{name: "below one lot", money: "999", price: "10", expect: 0},
		{name: "zero money", money: "0", price: "10", expect: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expect, lotVolume(dec(tt.money), dec(tt.price)))
		})
	}
}
