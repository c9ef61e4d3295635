package analysis

import (
	"errors"
	"fmt"
)

// Reason classifies why an analysis could not run as selected.
type Reason string

const (
	InsufficientColumns      Reason = "insufficient_columns"
	InsufficientObservations Reason = "insufficient_observations"
	UnknownColumn            Reason = "unknown_column"
)

// Sentinels matched by errors.Is against an *AnalysisError of the same Reason.
var (
	ErrInsufficientColumns      = errors.New("insufficient columns")
	ErrInsufficientObservations = errors.New("insufficient observations")
	ErrUnknownColumn            = errors.New("unknown or non-numeric column")
)

// AnalysisError reports that the selected analysis needs more than the table offers.
type AnalysisError struct {
	Kind   Kind
	Reason Reason
	Need   int
	Have   int
	Column string
}

func (e *AnalysisError) Error() string {
	switch e.Reason {
	case InsufficientColumns:
		return fmt.Sprintf("%s analysis needs at least %d numeric column(s), have %d", e.Kind, e.Need, e.Have)
	case InsufficientObservations:
		if e.Column != "" {
			return fmt.Sprintf("%s analysis needs at least %d distinct values of %s, have %d", e.Kind, e.Need, e.Column, e.Have)
		}
		return fmt.Sprintf("%s analysis needs at least %d usable observations, have %d", e.Kind, e.Need, e.Have)
	case UnknownColumn:
		return fmt.Sprintf("%s analysis: column %q is missing or not numeric", e.Kind, e.Column)
	}
	return fmt.Sprintf("%s analysis failed: %s", e.Kind, e.Reason)
}

// Is lets errors.Is match the package sentinels by reason.
func (e *AnalysisError) Is(target error) bool {
	switch target {
	case ErrInsufficientColumns:
		return e.Reason == InsufficientColumns
	case ErrInsufficientObservations:
		return e.Reason == InsufficientObservations
	case ErrUnknownColumn:
		return e.Reason == UnknownColumn
	}
	return false
}

// RenderError indicates the plotting or document machinery failed.
type RenderError struct {
	Stage string // chart|report
	Err   error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "render failed"
	}
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// asRenderError wraps err as a RenderError unless it already is one.
func asRenderError(stage string, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Stage: stage, Err: err}
}
