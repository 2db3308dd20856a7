package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const RoundLot int64 = 100

// Lot is a block of shares bought at a single cost price.
type Lot struct {
	Volume    int64
	CostPrice decimal.Decimal
}

// LotQueue holds an instrument's lots, oldest first.
type LotQueue struct {
	lots []Lot
}

func NewLotQueue() *LotQueue {
	return &LotQueue{lots: []Lot{}}
}

func (q *LotQueue) Push(lot Lot) error {
	if lot.Volume <= 0 || lot.Volume%RoundLot != 0 {
		return fmt.Errorf("lot volume must be a positive multiple of %d, got %d", RoundLot, lot.Volume)
	}
	if !lot.CostPrice.IsPositive() {
		return fmt.Errorf("lot cost price must be positive, got %s", lot.CostPrice.String())
	}
	q.lots = append(q.lots, lot)
	return nil
}

// Consume removes volume from the front of the queue and returns
// the realized profit against each lot's cost at the given price.
func (q *LotQueue) Consume(volume int64, price decimal.Decimal) (decimal.Decimal, error) {
	if volume > q.TotalVolume() {
		return decimal.Zero, fmt.Errorf("cannot consume %d shares from %d held", volume, q.TotalVolume())
	}
	realized := decimal.Zero
	remaining := volume
	i := 0
	for remaining > 0 && i < len(q.lots) {
		lot := &q.lots[i]
		consumed := lot.Volume
		if remaining < consumed {
			consumed = remaining
		}
		realized = realized.Add(decimal.NewFromInt(consumed).Mul(price.Sub(lot.CostPrice)))
		lot.Volume -= consumed
		remaining -= consumed
		if lot.Volume == 0 {
			i++
		}
	}
	// drop the fully consumed prefix
	q.lots = append([]Lot{}, q.lots[i:]...)

	return realized, nil
}

func (q LotQueue) TotalVolume() int64 {
	var total int64
	for _, lot := range q.lots {
		total += lot.Volume
	}
	return total
}

func (q LotQueue) Len() int {
	return len(q.lots)
}

func (q LotQueue) IsEmpty() bool {
	return q.TotalVolume() == 0
}

// Lots returns a copy of the queue contents.
func (q LotQueue) Lots() []Lot {
	out := make([]Lot, len(q.lots))
	copy(out, q.lots)
	return out
}
