package domain

import "errors"

var (
	// ErrConfiguration marks input or setup problems that abort a run
	ErrConfiguration = errors.New("configuration error")

	// ErrNotHeld is returned when selling an instrument with no position
	ErrNotHeld = errors.New("instrument not held")

	// ErrMissingPrice is returned when an instrument has no usable quote
	ErrMissingPrice = errors.New("missing price")

	// ErrMarkToMarket is returned when total asset cannot be valued
	ErrMarkToMarket = errors.New("mark to market failed")

	ErrOptimizerInfeasible = errors.New("optimizer infeasible")
)
