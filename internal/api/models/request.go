package models

import (
	"encoding/json"

	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
)

// SimulationRequest is the body of POST /api/v1/simulations. Prices carries
// an inline price table; otherwise Source names a provider to fetch from.
type SimulationRequest struct {
	Config  config.Config     `json:"config"`
	Prices  *data.PriceFile   `json:"prices,omitempty"`
	Source  *DataSourceConfig `json:"source,omitempty"`
	Options SimulationOptions `json:"options,omitempty"`
}

// DataSourceConfig defines how to fetch market data
type DataSourceConfig struct {
	Type    string `json:"type" binding:"required"` // "yahoo"
	EndDate string `json:"end_date,omitempty"`      // YYYY-MM-DD, default: today
}

type SimulationOptions struct {
	IncludeTrials bool `json:"include_trials,omitempty"`
}

// CompareRequest runs several configurations against the same price data.
// Each variation's config is overlaid on BaseConfig.
type CompareRequest struct {
	BaseConfig config.Config      `json:"base_config"`
	Prices     *data.PriceFile    `json:"prices,omitempty"`
	Source     *DataSourceConfig  `json:"source,omitempty"`
	Variations []CompareVariation `json:"variations" binding:"required,min=1"`
}

// CompareVariation names one overlay. Set lists the config keys present in
// the request, so explicit zeros can be told apart from omitted fields.
type CompareVariation struct {
	Name   string          `json:"name" binding:"required"`
	Config config.Config   `json:"config"`
	Set    map[string]bool `json:"-"`
}

func (v *CompareVariation) UnmarshalJSON(raw []byte) error {
	var probe struct {
		Config map[string]json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return err
	}
	type plain CompareVariation
	var p plain
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	*v = CompareVariation(p)
	v.Set = make(map[string]bool, len(probe.Config))
	for k := range probe.Config {
		v.Set[k] = true
	}
	return nil
}

// RankRequest is the query of GET /api/v1/simulations/:id/rank
type RankRequest struct {
	Limit int `form:"limit,omitempty"` // default: 10
}
