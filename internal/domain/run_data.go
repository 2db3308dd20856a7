package domain

// RunData holds every input table of a run, loaded before simulation.
type RunData struct {
	Prices  *Frame
	Factors *Frame
	// optional tables; nil means not configured
	Members   *Frame
	Suspended *Frame
	RiskFlags *Frame
}
