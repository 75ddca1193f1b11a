package engine

import "fmt"

// Default caps used when a plan does not set them.
const (
	DefaultMaxSlotsPerConfig  = 999
	DefaultMaxConfigsPerVisit = 999
)

// Limits caps how much of the hierarchy one pass may claim.
//
// Within a visit, configs past MaxConfigsPerVisit are truncated. Within a
// config, slots past MaxSlotsPerConfig are truncated. Truncated slots are
// not claimed and stay available to later passes.
type Limits struct {
	MaxSlotsPerConfig  int
	MaxConfigsPerVisit int
}

// DefaultLimits returns the default caps (999 each).
func DefaultLimits() Limits {
	return Limits{
		MaxSlotsPerConfig:  DefaultMaxSlotsPerConfig,
		MaxConfigsPerVisit: DefaultMaxConfigsPerVisit,
	}
}

// Validate rejects caps below 1.
func (l Limits) Validate() error {
	if l.MaxSlotsPerConfig < 1 {
		return fmt.Errorf("%w: max slots per config must be at least 1, got %d",
			ErrInvalidLimits, l.MaxSlotsPerConfig)
	}
	if l.MaxConfigsPerVisit < 1 {
		return fmt.Errorf("%w: max configs per visit must be at least 1, got %d",
			ErrInvalidLimits, l.MaxConfigsPerVisit)
	}
	return nil
}
