package persistence

import (
	"testing"

	"github.com/evolab/calgo/internal/calibration"
	"github.com/stretchr/testify/assert"
)

const (
	dbTestingPath = "./test.db"
)

func testProcedureState(id string) calibration.ProcedureState {
	return calibration.ProcedureState{
		Id:         id,
		TemplateId: "temp_two_point",
		SensorIds:  []string{"temp_0"},
		Steps: []*calibration.Step{
			{
				Ordinal: 0,
				Kind:    calibration.StepInstruction,
				Scope:   calibration.ScopeGlobal,
				Prompt:  "Place all vials in the low temperature bath",
				State:   calibration.StepAwaitingInput,
			},
			{
				Ordinal:  1,
				Kind:     calibration.StepSetRaw,
				Scope:    calibration.ScopeSensor,
				SensorId: "temp_0",
				Point:    "low",
				State:    calibration.StepPending,
			},
		},
		Cursor:  0,
		State:   calibration.StateAwaitingInput,
		Context: map[string]string{},
		Data:    calibration.NewData(),
	}
}

func testCalibrationData() *calibration.Data {
	data := calibration.NewData()
	data.SetReference("temp_0", "low", 10.0)
	data.SetRaw("temp_0", "low", 0.1)
	data.SetReference("temp_0", "high", 30.0)
	data.SetRaw("temp_0", "high", 0.3)
	_, _ = data.TryFit(calibration.LinearFit{})
	return data
}

func TestPersistence_SaveLoadProcedureState(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)
	state := testProcedureState("d9b3e0ea-0001-0001-0001-000000000001")

	// WHEN
	err := p.SaveProcedureState(state)
	assert.NoError(t, err)
	loaded, err := p.LoadProcedureState(state.Id)

	// THEN
	assert.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Equal(t, state.Id, loaded.Id)
	assert.Equal(t, state.TemplateId, loaded.TemplateId)
	assert.Equal(t, state.Cursor, loaded.Cursor)
	assert.Equal(t, state.State, loaded.State)
	assert.Len(t, loaded.Steps, 2)
	assert.Equal(t, calibration.StepAwaitingInput, loaded.Steps[0].State)
}

func TestPersistence_SaveProcedureStateReplacesPrevious(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)
	state := testProcedureState("d9b3e0ea-0002-0002-0002-000000000002")
	err := p.SaveProcedureState(state)
	assert.NoError(t, err)

	// WHEN
	state.Cursor = 1
	state.State = calibration.StateRunning
	err = p.SaveProcedureState(state)
	assert.NoError(t, err)

	// THEN
	loaded, err := p.LoadProcedureState(state.Id)
	assert.NoError(t, err)
	assert.Equal(t, 1, loaded.Cursor)
	assert.Equal(t, calibration.StateRunning, loaded.State)
}

func TestPersistence_LoadProcedureStateUnknownId(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)

	// WHEN
	loaded, err := p.LoadProcedureState("d9b3e0ea-ffff-ffff-ffff-ffffffffffff")

	// THEN
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPersistence_ListProcedureStates(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)
	state := testProcedureState("d9b3e0ea-0003-0003-0003-000000000003")
	err := p.SaveProcedureState(state)
	assert.NoError(t, err)

	// WHEN
	states, err := p.ListProcedureStates()

	// THEN
	assert.NoError(t, err)
	found := false
	for _, s := range states {
		if s.Id == state.Id {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPersistence_DeleteProcedureState(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)
	state := testProcedureState("d9b3e0ea-0004-0004-0004-000000000004")
	err := p.SaveProcedureState(state)
	assert.NoError(t, err)

	// WHEN
	err = p.DeleteProcedureState(state.Id)
	assert.NoError(t, err)

	// THEN
	loaded, err := p.LoadProcedureState(state.Id)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPersistence_SaveLoadCalibration(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)
	data := testCalibrationData()

	// WHEN
	err := p.SaveCalibration("temp_0", data)
	assert.NoError(t, err)
	loaded, err := p.LoadCalibration("temp_0")

	// THEN
	assert.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Len(t, loaded.Points, 2)
	fit := loaded.FitResult()
	assert.NotNil(t, fit)
	assert.InDelta(t, 100.0, fit.Parameters[0], 1e-9)
	assert.InDelta(t, 1.0, fit.Quality, 1e-9)
}

func TestPersistence_LoadCalibrationUnknownSensor(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)

	// WHEN
	data, err := p.LoadCalibration("does_not_exist")

	// THEN
	assert.Nil(t, data)
	assert.Error(t, err)
}

func TestPersistence_LoadCalibrations(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)
	err := p.SaveCalibration("temp_7", testCalibrationData())
	assert.NoError(t, err)

	// WHEN
	all, err := p.LoadCalibrations()

	// THEN
	assert.NoError(t, err)
	assert.Contains(t, all, "temp_7")
}

func TestPersistence_DeleteCalibration(t *testing.T) {
	// GIVEN
	p := NewPersistence(dbTestingPath)
	err := p.SaveCalibration("temp_8", testCalibrationData())
	assert.NoError(t, err)

	// WHEN
	err = p.DeleteCalibration("temp_8")
	assert.NoError(t, err)

	// THEN
	data, err := p.LoadCalibration("temp_8")
	assert.Nil(t, data)
	assert.Error(t, err)
}
