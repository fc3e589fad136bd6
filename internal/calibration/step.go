package calibration

import (
	"fmt"
	"strconv"
)

type StepKind string

const (
	StepInstruction  StepKind = "instruction"
	StepSetReference StepKind = "reference"
	StepSetRaw       StepKind = "raw"
)

type StepScope string

const (
	ScopeGlobal StepScope = "global"
	ScopeSensor StepScope = "sensor"
)

type StepState string

const (
	StepPending       StepState = "pending"
	StepAwaitingInput StepState = "awaiting_input"
	StepDone          StepState = "done"
)

// Input carries a user-supplied value or acknowledgement into the step that
// is currently awaiting it.
type Input struct {
	Value *float64 `json:"value,omitempty"`
	Ack   bool     `json:"ack,omitempty"`
	Note  string   `json:"note,omitempty"`
}

// SensorReader is the hardware driver boundary: a single raw read against
// the bus the sensor is attached to, under the platform's bus-locking
// discipline.
type SensorReader interface {
	ReadRaw(sensorId string) (float64, error)
}

// Step is one unit of work within a calibration procedure. The kind and
// scope tags select its behavior, dispatched through the single Advance
// contract. Sensor scoped steps are bound to exactly one sensor id at
// flattening time.
type Step struct {
	Ordinal  int       `json:"ordinal"`
	Kind     StepKind  `json:"kind"`
	Scope    StepScope `json:"scope"`
	SensorId string    `json:"sensorId,omitempty"`
	Point    string    `json:"point,omitempty"`
	Prompt   string    `json:"prompt,omitempty"`
	State    StepState `json:"state"`
}

// Advance drives the step towards completion and returns true once it is
// done. A false return without error means the step is awaiting input; the
// procedure suspends and the same step is offered the next input. A raw
// step failure is returned as a retryable *HardwareReadError and leaves the
// step state untouched.
func (s *Step) Advance(data *Data, context map[string]string, reader SensorReader, input *Input) (bool, error) {
	switch s.Kind {
	case StepInstruction:
		if input == nil || !input.Ack {
			s.State = StepAwaitingInput
			return false, nil
		}
		if input.Note != "" {
			context["step_"+strconv.Itoa(s.Ordinal)+"_note"] = input.Note
		}
		s.State = StepDone
		return true, nil

	case StepSetReference:
		if input == nil || input.Value == nil {
			s.State = StepAwaitingInput
			return false, nil
		}
		data.SetReference(s.SensorId, s.Point, *input.Value)
		s.State = StepDone
		return true, nil

	case StepSetRaw:
		value, err := reader.ReadRaw(s.SensorId)
		if err != nil {
			return false, &HardwareReadError{SensorId: s.SensorId, Err: err}
		}
		data.SetRaw(s.SensorId, s.Point, value)
		s.State = StepDone
		return true, nil

	default:
		return false, fmt.Errorf("unknown step kind: %s", s.Kind)
	}
}

// RequiresInput reports whether this step can only complete with external
// input.
func (s *Step) RequiresInput() bool {
	return s.Kind != StepSetRaw
}

// PromptText renders the user facing prompt, qualified with the bound
// sensor for sensor scoped steps.
func (s *Step) PromptText() string {
	if s.Scope == ScopeSensor && s.SensorId != "" && s.Prompt != "" {
		return fmt.Sprintf("[%s] %s", s.SensorId, s.Prompt)
	}
	return s.Prompt
}
