package calibration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstructionStepAwaitsAcknowledgement(t *testing.T) {
	// GIVEN
	step := &Step{
		Ordinal: 0,
		Kind:    StepInstruction,
		Scope:   ScopeGlobal,
		Prompt:  "Fill all vials with 15ml of water",
		State:   StepPending,
	}
	data := NewData()
	context := map[string]string{}

	// WHEN
	done, err := step.Advance(data, context, nil, nil)

	// THEN
	assert.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StepAwaitingInput, step.State)
}

func TestInstructionStepCompletesOnAck(t *testing.T) {
	// GIVEN
	step := &Step{
		Ordinal: 3,
		Kind:    StepInstruction,
		Scope:   ScopeGlobal,
		Prompt:  "Place the reference thermometer",
		State:   StepAwaitingInput,
	}
	data := NewData()
	context := map[string]string{}

	// WHEN
	done, err := step.Advance(data, context, nil, &Input{Ack: true, Note: "used thermometer #2"})

	// THEN
	assert.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StepDone, step.State)
	assert.Equal(t, "used thermometer #2", context["step_3_note"])
}

func TestReferenceStepStoresValue(t *testing.T) {
	// GIVEN
	step := &Step{
		Kind:     StepSetReference,
		Scope:    ScopeSensor,
		SensorId: "temp_0",
		Point:    "room_temp",
		Prompt:   "Enter the reference temperature",
		State:    StepPending,
	}
	data := NewData()
	value := 25.4

	// WHEN
	done, err := step.Advance(data, map[string]string{}, nil, &Input{Value: &value})

	// THEN
	assert.NoError(t, err)
	assert.True(t, done)
	point := data.Points[PointKey("temp_0", "room_temp")]
	assert.Equal(t, 25.4, *point.Reference)
}

func TestReferenceStepAwaitsValue(t *testing.T) {
	// GIVEN
	step := &Step{
		Kind:     StepSetReference,
		Scope:    ScopeSensor,
		SensorId: "temp_0",
		Point:    "room_temp",
		State:    StepPending,
	}
	data := NewData()

	// WHEN
	// an acknowledgement without a value does not satisfy a reference step
	done, err := step.Advance(data, map[string]string{}, nil, &Input{Ack: true})

	// THEN
	assert.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StepAwaitingInput, step.State)
	assert.Empty(t, data.Points)
}

func TestRawStepReadsSensor(t *testing.T) {
	// GIVEN
	step := &Step{
		Kind:     StepSetRaw,
		Scope:    ScopeSensor,
		SensorId: "temp_0",
		Point:    "room_temp",
		State:    StepPending,
	}
	data := NewData()
	reader := &mockReader{values: map[string]float64{"temp_0": 0.73}}

	// WHEN
	done, err := step.Advance(data, map[string]string{}, reader, nil)

	// THEN
	assert.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"temp_0"}, reader.reads)
	point := data.Points[PointKey("temp_0", "room_temp")]
	assert.Equal(t, 0.73, *point.Raw)
}

func TestRawStepReadFailureIsRetryable(t *testing.T) {
	// GIVEN
	step := &Step{
		Kind:     StepSetRaw,
		Scope:    ScopeSensor,
		SensorId: "temp_0",
		Point:    "room_temp",
		State:    StepPending,
	}
	data := NewData()
	readErr := errors.New("bus timeout")
	reader := &mockReader{err: readErr}

	// WHEN
	done, err := step.Advance(data, map[string]string{}, reader, nil)

	// THEN
	assert.False(t, done)
	var hardwareErr *HardwareReadError
	assert.ErrorAs(t, err, &hardwareErr)
	assert.Equal(t, "temp_0", hardwareErr.SensorId)
	assert.ErrorIs(t, err, readErr)
	// the step stays where it was, a later retry can succeed
	assert.Equal(t, StepPending, step.State)
	assert.Empty(t, data.Points)
}

func TestPromptTextQualifiesSensorScope(t *testing.T) {
	// GIVEN
	global := &Step{Kind: StepInstruction, Scope: ScopeGlobal, Prompt: "Stir all vials"}
	scoped := &Step{Kind: StepSetReference, Scope: ScopeSensor, SensorId: "od_4", Prompt: "Enter the measured OD"}

	// WHEN / THEN
	assert.Equal(t, "Stir all vials", global.PromptText())
	assert.Equal(t, "[od_4] Enter the measured OD", scoped.PromptText())
}
