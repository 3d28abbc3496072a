package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default event scoring settings.
const (
	DefaultRankingDepth                 = 10
	DefaultMinRankDelta                 = 5
	DefaultMaxRankerPercentage          = 20
	DefaultMinParticipantsForActivation = 5
	DefaultRefreshIntervalSeconds       = 30
	MaxRankingDepth                     = 100
)

var validate = validator.New()

// EventScoringConfig holds the per-event scoring settings. Parsed once at the
// catalog boundary and treated as read-only afterwards.
type EventScoringConfig struct {
	RankingDepth                 int         `json:"rankingDepth" validate:"min=1,max=100"`
	PrimaryScoringMode           ScoringMode `json:"primaryScoringMode" validate:"oneof=consensus discovery"`
	MinRankDelta                 int         `json:"minRankDelta" validate:"min=0"`
	MaxRankerPercentage          float64     `json:"maxRankerPercentage" validate:"min=0,max=100"`
	MinParticipantsForActivation int         `json:"minParticipantsForActivation" validate:"min=0"`
	RefreshIntervalSeconds       int         `json:"refreshIntervalSeconds" validate:"min=0"`
}

// DefaultScoringConfig returns the built-in defaults.
func DefaultScoringConfig() EventScoringConfig {
	return EventScoringConfig{
		RankingDepth:                 DefaultRankingDepth,
		PrimaryScoringMode:           ModeConsensus,
		MinRankDelta:                 DefaultMinRankDelta,
		MaxRankerPercentage:          DefaultMaxRankerPercentage,
		MinParticipantsForActivation: DefaultMinParticipantsForActivation,
		RefreshIntervalSeconds:       DefaultRefreshIntervalSeconds,
	}
}

// RefreshInterval is the staleness window as a duration.
func (c EventScoringConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// Validate checks field bounds.
func (c EventScoringConfig) Validate() error {
	const op = "model.validate_scoring_config"
	if err := validate.Struct(c); err != nil {
		return WrapKind(op, ErrValidation, err)
	}
	return nil
}

// ParseScoringConfig overlays a JSON settings blob on defaults and validates the
// result. Unknown keys are ignored; an empty blob yields the defaults.
func ParseScoringConfig(raw []byte, defaults EventScoringConfig) (EventScoringConfig, error) {
	const op = "model.parse_scoring_config"
	cfg := defaults
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return EventScoringConfig{}, WrapKind(op, ErrValidation, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return EventScoringConfig{}, err
	}
	return cfg, nil
}
