package generator

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPlan       = errors.New("no chapters recognised in the tender document")
	ErrEmptyCompletion = errors.New("model returned empty content")
)

// StageError reports which synthesis stage of which chapter failed.
type StageError struct {
	Title string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("chapter %q: %s stage: %v", e.Title, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PlanningError is fatal for a tender: no synthesis is attempted after it.
type PlanningError struct {
	Step string
	Err  error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("section planning (%s): %v", e.Step, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }
