package calibration

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData signals that a fit was attempted with fewer
	// complete reference/raw pairs than the strategy requires. Callers may
	// retry after more points have been collected.
	ErrInsufficientData = errors.New("insufficient data for fit")

	// ErrDegenerateInput signals that the collected raw values carry no
	// information to fit against (e.g. all raw values identical).
	ErrDegenerateInput = errors.New("degenerate input for fit")

	// ErrNoInputExpected is returned when input is provided to a procedure
	// that is not awaiting any.
	ErrNoInputExpected = errors.New("procedure is not awaiting input")

	// ErrProcedureTerminal is returned when a completed or aborted procedure
	// is advanced or resumed.
	ErrProcedureTerminal = errors.New("procedure has reached a terminal state")
)

// HardwareReadError is a retryable failure of a raw-value read. The
// procedure cursor does not move, so the same step is re-attempted on the
// next advance call.
type HardwareReadError struct {
	SensorId string
	Err      error
}

func (e *HardwareReadError) Error() string {
	return fmt.Sprintf("hardware read failed for sensor %s: %v", e.SensorId, e.Err)
}

func (e *HardwareReadError) Unwrap() error {
	return e.Err
}

// ProcedureConflictError is returned when a new procedure targets a sensor
// that is already held by an active procedure.
type ProcedureConflictError struct {
	SensorId    string
	ProcedureId string
}

func (e *ProcedureConflictError) Error() string {
	return fmt.Sprintf("sensor %s is already being calibrated by procedure %s", e.SensorId, e.ProcedureId)
}

type ProcedureNotFoundError struct {
	ProcedureId string
}

func (e *ProcedureNotFoundError) Error() string {
	return fmt.Sprintf("no procedure with id %s found", e.ProcedureId)
}

type TemplateNotFoundError struct {
	TemplateId string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no procedure template with id %s found", e.TemplateId)
}
