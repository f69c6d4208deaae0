package models

import (
	"time"

	"portfolio-frontier/internal/analysis"
	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/model"
)

// SimulationResponse represents the response from a simulation run
type SimulationResponse struct {
	ID          string              `json:"id"`
	CreatedAt   time.Time           `json:"created_at,omitempty"`
	Instruments []string            `json:"instruments"`
	Seed        uint64              `json:"seed"`
	Requested   int                 `json:"requested"`
	Partial     bool                `json:"partial"`
	ElapsedMS   int64               `json:"elapsed_ms"`
	Skipped     []string            `json:"skipped,omitempty"` // instruments the provider could not deliver
	Config      *config.Config      `json:"config,omitempty"`
	Summary     analysis.Summary    `json:"summary"`
	Trials      []model.TrialResult `json:"trials,omitempty"`
}

// CompareResponse represents the response from a comparison
type CompareResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string           `json:"name"`
	Seed    uint64           `json:"seed,omitempty"`
	Summary analysis.Summary `json:"summary"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// RankResponse represents the response from ranking trials
type RankResponse struct {
	RunID       string                 `json:"run_id"`
	Instruments []string               `json:"instruments"`
	Rankings    []analysis.RankedTrial `json:"rankings"`
}

// TrialResponse is one trial of a stored run.
type TrialResponse struct {
	RunID       string            `json:"run_id"`
	Instruments []string          `json:"instruments"`
	Trial       model.TrialResult `json:"trial"`
}

// SolverInfo represents information about a solver
type SolverInfo struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	UsesGradient bool            `json:"uses_gradient"`
	Parameters   []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a solver parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
