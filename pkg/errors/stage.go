package errors

import (
	"errors"
	"fmt"
)

// Stage names a pipeline stage.
type Stage string

// Pipeline stages.
const (
	StageExtract   Stage = "extract"
	StageConfigure Stage = "configure"
	StageRender    Stage = "render"
	StageExport    Stage = "export"
)

// StageError tags an error with the stage that produced it. The wrapped error
// is kept as-is so errors.Is and errors.As keep matching it.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the tagged error.
func (e *StageError) Unwrap() error { return e.Err }

// WithStage tags err with stage. A nil err stays nil, and an error that
// already carries a stage tag is returned unchanged.
func WithStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage tag of err, or "" when it has none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
