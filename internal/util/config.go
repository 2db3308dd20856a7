package util

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"rankbacktest/internal/domain"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	Mode_LongShort Mode = "long_short"
	Mode_Groups    Mode = "groups"
	Mode_Optimizer Mode = "optimizer"
)

type DataConfig struct {
	Prices    string `yaml:"prices" json:"prices"`
	Factors   string `yaml:"factors" json:"factors"`
	Members   string `yaml:"members,omitempty" json:"members,omitempty"`
	Suspended string `yaml:"suspended,omitempty" json:"suspended,omitempty"`
	RiskFlags string `yaml:"riskFlags,omitempty" json:"riskFlags,omitempty"`
}

type OptimizerConfig struct {
	MaxWeight     float64 `yaml:"maxWeight" json:"maxWeight"`
	TurnoverLimit float64 `yaml:"turnoverLimit" json:"turnoverLimit"`
	RiskAversion  float64 `yaml:"riskAversion" json:"riskAversion"`
	ReturnCoeff   float64 `yaml:"returnCoeff" json:"returnCoeff"`
	Lookback      int     `yaml:"lookback" json:"lookback"`
	MaxIter       int     `yaml:"maxIter,omitempty" json:"maxIter,omitempty"`
	Tolerance     float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
}

// RunConfig describes one backtest run.
type RunConfig struct {
	Name       string  `yaml:"name" json:"name"`
	InitCash   float64 `yaml:"initCash" json:"initCash"`
	FeePercent float64 `yaml:"feePercent" json:"feePercent"`
	TaxPercent float64 `yaml:"taxPercent" json:"taxPercent"`
	Slippage   float64 `yaml:"slippage" json:"slippage"`

	// inclusive, YYYY-MM-DD; empty means the whole price history
	Start string `yaml:"start,omitempty" json:"start,omitempty"`
	End   string `yaml:"end,omitempty" json:"end,omitempty"`

	// by default the lowest score is the best and goes long
	HigherIsBetter bool `yaml:"higherIsBetter,omitempty" json:"higherIsBetter,omitempty"`
	Mode           Mode `yaml:"mode" json:"mode"`
	NumLongs       int  `yaml:"numLongs,omitempty" json:"numLongs,omitempty"`
	NumGroups      int  `yaml:"numGroups,omitempty" json:"numGroups,omitempty"`
	PeriodsPerYear int  `yaml:"periodsPerYear,omitempty" json:"periodsPerYear,omitempty"`

	Data      DataConfig       `yaml:"data" json:"data"`
	Optimizer *OptimizerConfig `yaml:"optimizer,omitempty" json:"optimizer,omitempty"`
}

// LoadRunConfig reads a YAML run config. Unknown fields are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config %s: %w", path, err)
	}
	return ParseRunConfig(data)
}

func ParseRunConfig(data []byte) (*RunConfig, error) {
	cfg := RunConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode run config: %s", domain.ErrConfiguration, err.Error())
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *RunConfig) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = Mode_LongShort
	}
	if c.PeriodsPerYear == 0 {
		c.PeriodsPerYear = 252
	}
	if c.Optimizer != nil {
		if c.Optimizer.MaxIter == 0 {
			c.Optimizer.MaxIter = 500
		}
		if c.Optimizer.Tolerance == 0 {
			c.Optimizer.Tolerance = 1e-6
		}
	}
}

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}

func (c RunConfig) Validate() error {
	if math.IsNaN(c.InitCash) || c.InitCash <= 0 {
		return configErr("initCash must be > 0, got %f", c.InitCash)
	}
	for name, v := range map[string]float64{
		"feePercent": c.FeePercent,
		"taxPercent": c.TaxPercent,
		"slippage":   c.Slippage,
	} {
		if math.IsNaN(v) || v < 0 || v >= 1 {
			return configErr("%s must be in [0, 1), got %f", name, v)
		}
	}
	if c.PeriodsPerYear <= 0 {
		return configErr("periodsPerYear must be > 0, got %d", c.PeriodsPerYear)
	}

	start, end, err := c.Period()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return configErr("end %s is before start %s", c.End, c.Start)
	}

	switch c.Mode {
	case Mode_LongShort:
		if c.NumLongs <= 0 {
			return configErr("numLongs must be > 0 in %s mode, got %d", c.Mode, c.NumLongs)
		}
	case Mode_Groups:
		if c.NumGroups <= 0 {
			return configErr("numGroups must be > 0 in %s mode, got %d", c.Mode, c.NumGroups)
		}
	case Mode_Optimizer:
		if c.Optimizer == nil {
			return configErr("optimizer settings are required in %s mode", c.Mode)
		}
		if err := c.Optimizer.Validate(); err != nil {
			return err
		}
	default:
		return configErr("unknown mode %q", c.Mode)
	}

	if c.Data.Prices == "" {
		return configErr("data.prices is required")
	}
	if c.Data.Factors == "" {
		return configErr("data.factors is required")
	}

	return nil
}

func (o OptimizerConfig) Validate() error {
	if o.MaxWeight <= 0 || o.MaxWeight > 1 {
		return configErr("optimizer.maxWeight must be in (0, 1], got %f", o.MaxWeight)
	}
	if o.TurnoverLimit <= 0 || o.TurnoverLimit > 2 {
		return configErr("optimizer.turnoverLimit must be in (0, 2], got %f", o.TurnoverLimit)
	}
	if o.RiskAversion < 0 {
		return configErr("optimizer.riskAversion must be >= 0, got %f", o.RiskAversion)
	}
	if o.ReturnCoeff != 0 && o.ReturnCoeff != 1 {
		return configErr("optimizer.returnCoeff must be 0 or 1, got %f", o.ReturnCoeff)
	}
	if o.Lookback < 2 {
		return configErr("optimizer.lookback must be >= 2, got %d", o.Lookback)
	}
	if o.MaxIter < 0 || o.Tolerance < 0 {
		return configErr("optimizer.maxIter and optimizer.tolerance must be >= 0")
	}
	return nil
}

// Period returns the parsed start and end dates. Unset bounds are zero.
func (c RunConfig) Period() (time.Time, time.Time, error) {
	parse := func(name, s string) (time.Time, error) {
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, configErr("invalid %s date %q", name, s)
		}
		return t, nil
	}
	start, err := parse("start", c.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parse("end", c.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
