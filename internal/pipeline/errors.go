package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageLoad      Stage = "load"
	StageClean     Stage = "clean"
	StageTransform Stage = "transform"
	StageAggregate Stage = "aggregate"
	StagePersist   Stage = "persist"
)

var (
	// ErrNoRows is returned when RequireRows is set and a stage would
	// continue with an empty relation.
	ErrNoRows = errors.New("no rows")
	// ErrRowCountDrift means the transform view does not have exactly one row
	// per cleaned row.
	ErrRowCountDrift = errors.New("row count drift between cleaned and transformed data")
)

// StageError wraps the failure of one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// IsStage reports whether err is a failure of stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
