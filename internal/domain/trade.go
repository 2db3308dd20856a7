package domain

import "github.com/shopspring/decimal"

// TradeResult is returned by every order call on the account. A
// zero-volume result means nothing traded.
type TradeResult struct {
	Symbol      string
	Notional    decimal.Decimal
	Volume      int64
	Fee         decimal.Decimal // fee plus tax
	IsBuy       bool
	RealizedPnL decimal.Decimal
}

func NoTrade(symbol string, isBuy bool) TradeResult {
	return TradeResult{
		Symbol:      symbol,
		Notional:    decimal.Zero,
		Fee:         decimal.Zero,
		IsBuy:       isBuy,
		RealizedPnL: decimal.Zero,
	}
}

func (t TradeResult) Executed() bool {
	return t.Volume > 0
}
