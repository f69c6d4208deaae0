package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio-frontier/internal/model"

	"gopkg.in/yaml.v3"
)

// Solver names accepted in solver.name.
const (
	SolverNelderMead        = "nelder-mead"
	SolverProjectedGradient = "projected-gradient"
)

// Config is the on-disk simulation configuration (YAML).
type Config struct {
	// Optional: load the instrument list from a universe preset
	// (examples/universes/<name>.yaml). Explicit instruments override it.
	UniverseFile string `yaml:"universe_file" json:"universe_file,omitempty"`

	Instruments  []string   `yaml:"instruments" json:"instruments"`
	RiskFreeRate float64    `yaml:"risk_free_rate" json:"risk_free_rate"`
	YearsRange   [2]float64 `yaml:"years_range" json:"years_range"`
	MaxWeight    float64    `yaml:"max_weight" json:"max_weight"`
	TrialCount   int        `yaml:"trial_count" json:"trial_count"`
	RandomSeed   *uint64    `yaml:"random_seed" json:"random_seed,omitempty"`

	Workers             int          `yaml:"workers" json:"workers,omitempty"`
	MaxResampleAttempts int          `yaml:"max_resample_attempts" json:"max_resample_attempts,omitempty"`
	Solver              SolverConfig `yaml:"solver" json:"solver"`
	Timeout             Duration     `yaml:"timeout" json:"timeout,omitempty"`
}

type SolverConfig struct {
	Name          string  `yaml:"name" json:"name"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance" json:"tolerance"`
}

// Duration decodes "30s"-style strings from YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalJSON(raw []byte) error {
	return d.parse(strings.Trim(string(raw), `"`))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) parse(s string) error {
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Defaults returns a Config carrying every default. Files are decoded on top
// of it, so fields present in the file (including explicit zeros) win.
func Defaults() Config {
	return Config{
		RiskFreeRate:        0.02,
		YearsRange:          [2]float64{1, 3},
		MaxWeight:           0.4,
		TrialCount:          100,
		MaxResampleAttempts: 10,
		Solver: SolverConfig{
			Name:          SolverNelderMead,
			MaxIterations: 2000,
			Tolerance:     1e-10,
		},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Defaults()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.UniverseFile != "" {
		universePath := ResolveUniversePath(filepath.Dir(path), c.UniverseFile)
		u, err := LoadUniverse(universePath)
		if err != nil {
			return nil, err
		}
		if len(c.Instruments) == 0 {
			c.Instruments = u.Instruments
		}
	}
	c.Normalize()
	return &c, nil
}

// Normalize upper-cases and trims instrument symbols and fills zero-valued
// solver settings. It does not touch fields where zero is meaningful.
func (c *Config) Normalize() {
	for i, s := range c.Instruments {
		c.Instruments[i] = model.Symbol(s)
	}
	def := Defaults()
	if c.Solver.Name == "" {
		c.Solver.Name = def.Solver.Name
	}
	if c.Solver.MaxIterations == 0 {
		c.Solver.MaxIterations = def.Solver.MaxIterations
	}
	if c.Solver.Tolerance == 0 {
		c.Solver.Tolerance = def.Solver.Tolerance
	}
	if c.MaxResampleAttempts == 0 {
		c.MaxResampleAttempts = def.MaxResampleAttempts
	}
}

// ValidationError names the configuration field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the configuration once, before any sampling. Failures are
// reported as *model.SimulationAbortedError wrapping a *ValidationError.
func (c *Config) Validate() error {
	if c == nil {
		return abort(errors.New("config is nil"))
	}
	if err := c.validate(); err != nil {
		return abort(err)
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.Instruments) == 0 {
		return &ValidationError{Field: "instruments", Message: "at least one instrument is required"}
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, s := range c.Instruments {
		if s == "" {
			return &ValidationError{Field: "instruments", Message: "blank instrument symbol"}
		}
		if seen[s] {
			return &ValidationError{Field: "instruments", Message: fmt.Sprintf("duplicate instrument %q", s)}
		}
		seen[s] = true
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return &ValidationError{Field: "risk_free_rate", Message: "must be finite"}
	}
	lo, hi := c.YearsRange[0], c.YearsRange[1]
	if !(lo > 0) || hi < lo || math.IsInf(hi, 0) {
		return &ValidationError{Field: "years_range", Message: fmt.Sprintf("must satisfy 0 < min <= max, got [%g, %g]", lo, hi)}
	}
	if !(c.MaxWeight > 0) || c.MaxWeight > 1 {
		return &ValidationError{Field: "max_weight", Message: fmt.Sprintf("must be in (0, 1], got %g", c.MaxWeight)}
	}
	if c.MaxWeight*float64(len(c.Instruments)) < 1-1e-12 {
		return &ValidationError{
			Field:   "max_weight",
			Message: fmt.Sprintf("%g * %d instruments < 1, weights cannot sum to 1", c.MaxWeight, len(c.Instruments)),
		}
	}
	if c.TrialCount < 0 {
		return &ValidationError{Field: "trial_count", Message: "must be >= 0"}
	}
	if c.Workers < 0 {
		return &ValidationError{Field: "workers", Message: "must be >= 0"}
	}
	if c.MaxResampleAttempts < 1 {
		return &ValidationError{Field: "max_resample_attempts", Message: "must be >= 1"}
	}
	switch c.Solver.Name {
	case SolverNelderMead, SolverProjectedGradient:
	default:
		return &ValidationError{Field: "solver.name", Message: fmt.Sprintf("unsupported solver %q", c.Solver.Name)}
	}
	if c.Solver.MaxIterations < 1 {
		return &ValidationError{Field: "solver.max_iterations", Message: "must be >= 1"}
	}
	if !(c.Solver.Tolerance > 0) {
		return &ValidationError{Field: "solver.tolerance", Message: "must be > 0"}
	}
	if c.Timeout < 0 {
		return &ValidationError{Field: "timeout", Message: "must be >= 0"}
	}
	return nil
}

func abort(err error) error {
	return &model.SimulationAbortedError{Reason: "invalid configuration", Trial: -1, Err: err}
}

// Merge overlays the non-zero fields of override onto base.
// Fields whose zero value is meaningful (trial_count, risk_free_rate) are only
// taken from override when set there, which callers signal through set.
func Merge(base, override Config, set map[string]bool) Config {
	out := base
	if override.UniverseFile != "" {
		out.UniverseFile = override.UniverseFile
	}
	if len(override.Instruments) > 0 {
		out.Instruments = append([]string(nil), override.Instruments...)
	}
	if set["risk_free_rate"] {
		out.RiskFreeRate = override.RiskFreeRate
	}
	if override.YearsRange != [2]float64{} {
		out.YearsRange = override.YearsRange
	}
	if override.MaxWeight != 0 {
		out.MaxWeight = override.MaxWeight
	}
	if set["trial_count"] {
		out.TrialCount = override.TrialCount
	}
	if override.RandomSeed != nil {
		seed := *override.RandomSeed
		out.RandomSeed = &seed
	}
	if override.Workers != 0 {
		out.Workers = override.Workers
	}
	if override.MaxResampleAttempts != 0 {
		out.MaxResampleAttempts = override.MaxResampleAttempts
	}
	if override.Solver.Name != "" {
		out.Solver.Name = override.Solver.Name
	}
	if override.Solver.MaxIterations != 0 {
		out.Solver.MaxIterations = override.Solver.MaxIterations
	}
	if override.Solver.Tolerance != 0 {
		out.Solver.Tolerance = override.Solver.Tolerance
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	return out
}
