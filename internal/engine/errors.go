package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLimits is returned when a cap is below 1.
	ErrInvalidLimits = errors.New("invalid limits")

	// ErrNotLoaded is returned when the engine has no slot table yet.
	ErrNotLoaded = errors.New("slot data not loaded")

	// ErrAlreadyLoaded is returned when Load is called twice.
	ErrAlreadyLoaded = errors.New("slot data already loaded")

	// ErrMissingColumn is returned when slot data lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidGroupBy is returned when a summary grouping is not a bare
	// column name.
	ErrInvalidGroupBy = errors.New("invalid group-by column")
)

// Stage names the step of a pass that failed.
type Stage string

const (
	StageCompile  Stage = "compile"
	StageBegin    Stage = "begin"
	StageConfig   Stage = "config"
	StageVisit    Stage = "visit"
	StageSubset   Stage = "subset"
	StageSequence Stage = "sequence"
	StageCommit   Stage = "commit"
)

// PassError reports a failed allocation pass.
//
// When a PassError is returned nothing the pass wrote is visible: the
// transaction was rolled back and the subset index was not consumed.
type PassError struct {
	// Subset is the index the pass would have used.
	Subset int64

	// Stage is the step that failed.
	Stage Stage

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	return fmt.Sprintf("subset %d: %s: %v", e.Subset, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PassError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage of the first PassError in err's chain.
// Uses errors.As to handle wrapped errors.
func FailedStage(err error) (Stage, bool) {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	return "", false
}
