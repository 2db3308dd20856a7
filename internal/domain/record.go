package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BucketKind string

const (
	BucketKind_Long      BucketKind = "LONG"
	BucketKind_Short     BucketKind = "SHORT"
	BucketKind_Group     BucketKind = "GROUP"
	BucketKind_Optimizer BucketKind = "OPT"
)

// Bucket is one independent replay with its own ledger.
type Bucket struct {
	Name string
	Kind BucketKind
	// zero-based group number, only meaningful for GROUP buckets
	Group int
}

// SelectionTable maps a trading date to the ordered basket for a bucket.
type SelectionTable map[time.Time][]string

type DailyRecord struct {
	Date                  time.Time
	TotalAssetBeforeTrade decimal.Decimal
	TotalAssetAfterTrade  decimal.Decimal
	CashAfterTrade        decimal.Decimal
	Turnover              float64
	TurnoverBuy           float64
	TurnoverSell          float64
	Fees                  decimal.Decimal
	RealizedPnL           decimal.Decimal
	NumTrades             int
}

// Holding is a read-only view of one position at the end of a replay.
type Holding struct {
	Symbol    string
	Volume    int64
	CostBasis decimal.Decimal
	Value     decimal.Decimal
}
