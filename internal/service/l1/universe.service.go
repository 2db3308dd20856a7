package l1_service

import (
	"fmt"
	"math"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/util"
	"time"
)

// UniverseService answers which instruments may be traded on a date.
type UniverseService interface {
	Tradable(date time.Time) ([]string, error)
}

type NewUniverseServiceInput struct {
	Prices *domain.Frame
	// optional; nil means every priced instrument is a member
	Members *domain.Frame
	// optional flag tables; nil flags nothing
	Suspended *domain.Frame
	RiskFlags *domain.Frame
}

type universeServiceHandler struct {
	prices    *domain.Frame
	members   *domain.Frame
	suspended *domain.Frame
	riskFlags *domain.Frame
}

func NewUniverseService(in NewUniverseServiceInput) (UniverseService, error) {
	if in.Prices == nil || len(in.Prices.Symbols) == 0 {
		return nil, fmt.Errorf("%w: universe requires a price table", domain.ErrConfiguration)
	}
	return &universeServiceHandler{
		prices:    in.Prices,
		members:   in.Members,
		suspended: in.Suspended,
		riskFlags: in.RiskFlags,
	}, nil
}

func isSet(v float64) bool {
	return !math.IsNaN(v) && v != 0
}

// flagged returns the symbols whose flag is set on date. A nil table
// flags nothing.
func flagged(name string, f *domain.Frame, date time.Time) (map[string]bool, error) {
	out := map[string]bool{}
	if f == nil {
		return out, nil
	}
	row, err := f.RowMap(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s table has no row for %s", domain.ErrConfiguration, name, util.FormatDate(date))
	}
	for symbol, v := range row {
		if isSet(v) {
			out[symbol] = true
		}
	}
	return out, nil
}

// Tradable returns members minus suspended minus risk-flagged, in price
// column order.
func (h universeServiceHandler) Tradable(date time.Time) ([]string, error) {
	if _, ok := h.prices.DateIndex(date); !ok {
		return nil, fmt.Errorf("%w: price table has no row for %s", domain.ErrConfiguration, util.FormatDate(date))
	}

	var members map[string]bool
	if h.members != nil {
		m, err := flagged("membership", h.members, date)
		if err != nil {
			return nil, err
		}
		members = m
	}
	suspended, err := flagged("suspension", h.suspended, date)
	if err != nil {
		return nil, err
	}
	risky, err := flagged("risk flag", h.riskFlags, date)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for _, symbol := range h.prices.Symbols {
		if members != nil && !members[symbol] {
			continue
		}
		if suspended[symbol] || risky[symbol] {
			continue
		}
		out = append(out, symbol)
	}

	return out, nil
}
