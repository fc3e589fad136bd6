package sensors

import (
	"errors"
	"sync"
	"testing"

	"github.com/evolab/calgo/internal/calibration"
	"github.com/evolab/calgo/internal/configuration"
	"github.com/evolab/calgo/internal/hwio"
	"github.com/stretchr/testify/assert"
)

type fakeSensor struct {
	config    configuration.SensorConfig
	value     float64
	err       error
	movingAvg float64
}

func (s *fakeSensor) GetId() string {
	return s.config.ID
}

func (s *fakeSensor) GetLabel() string {
	return s.config.Label
}

func (s *fakeSensor) GetConfig() configuration.SensorConfig {
	return s.config
}

func (s *fakeSensor) GetValue() (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.value, nil
}

func (s *fakeSensor) GetMovingAvg() float64 {
	return s.movingAvg
}

func (s *fakeSensor) SetMovingAvg(avg float64) {
	s.movingAvg = avg
}

func newFakeSensor(id string, value float64) *fakeSensor {
	return &fakeSensor{
		config: configuration.SensorConfig{
			ID:    id,
			Label: id,
			Vial:  0,
			Bus:   "i2c-1",
		},
		value: value,
	}
}

func fittedData(slope float64, intercept float64) *calibration.Data {
	data := calibration.NewData()
	data.SetReference("x", "low", slope*0.1+intercept)
	data.SetRaw("x", "low", 0.1)
	data.SetReference("x", "high", slope*0.9+intercept)
	data.SetRaw("x", "high", 0.9)
	_, _ = data.TryFit(calibration.LinearFit{})
	return data
}

func TestManagerRegisterAndGet(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())
	sensor := newFakeSensor("temp_0", 0.5)

	// WHEN
	err := manager.Register(sensor)

	// THEN
	assert.NoError(t, err)
	got, ok := manager.Get("temp_0")
	assert.True(t, ok)
	assert.Equal(t, "temp_0", got.GetId())
}

func TestManagerRejectsDuplicateRegistration(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())
	assert.NoError(t, manager.Register(newFakeSensor("temp_0", 0.5)))

	// WHEN
	err := manager.Register(newFakeSensor("temp_0", 0.7))

	// THEN
	var duplicate *DuplicateSensorError
	assert.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "temp_0", duplicate.SensorId)

	// the original registration is untouched
	got, _ := manager.Get("temp_0")
	value, err := got.GetValue()
	assert.NoError(t, err)
	assert.Equal(t, 0.5, value)
}

func TestManagerIdsAreSorted(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())
	assert.NoError(t, manager.Register(newFakeSensor("temp_1", 0.1)))
	assert.NoError(t, manager.Register(newFakeSensor("od_0", 0.2)))
	assert.NoError(t, manager.Register(newFakeSensor("temp_0", 0.3)))

	// WHEN
	ids := manager.Ids()

	// THEN
	assert.Equal(t, []string{"od_0", "temp_0", "temp_1"}, ids)
}

func TestManagerCommitUnknownSensor(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())

	// WHEN
	err := manager.Commit("ghost", calibration.NewData())

	// THEN
	var unknown *UnknownSensorError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.SensorId)
}

func TestManagerCommitReplacesCalibration(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())
	assert.NoError(t, manager.Register(newFakeSensor("temp_0", 0.5)))
	_, ok := manager.Calibration("temp_0")
	assert.False(t, ok)

	// WHEN
	assert.NoError(t, manager.Commit("temp_0", fittedData(100.0, 0.0)))
	assert.NoError(t, manager.Commit("temp_0", fittedData(50.0, 5.0)))

	// THEN the last commit wins
	data, ok := manager.Calibration("temp_0")
	assert.True(t, ok)
	fit := data.FitResult()
	assert.InDelta(t, 50.0, fit.Parameters[0], 1e-9)
	assert.InDelta(t, 5.0, fit.Parameters[1], 1e-9)
}

func TestManagerCommitIsAtomicUnderConcurrentReads(t *testing.T) {
	// GIVEN two internally consistent calibrations
	manager := NewManager(hwio.NewBusLocks())
	assert.NoError(t, manager.Register(newFakeSensor("temp_0", 0.5)))

	first := fittedData(100.0, 0.0)
	second := fittedData(50.0, 5.0)
	assert.NoError(t, manager.Commit("temp_0", first))

	// WHEN readers run concurrently with a commit
	var wg sync.WaitGroup
	mixed := false
	var mixedMu sync.Mutex

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				data, ok := manager.Calibration("temp_0")
				if !ok {
					continue
				}
				// every observation must be exactly one of the two
				// committed calibrations, never a blend
				if data != first && data != second {
					mixedMu.Lock()
					mixed = true
					mixedMu.Unlock()
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 1000; j++ {
			if j%2 == 0 {
				_ = manager.Commit("temp_0", second)
			} else {
				_ = manager.Commit("temp_0", first)
			}
		}
	}()

	wg.Wait()

	// THEN
	assert.False(t, mixed)
}

func TestManagerReadRaw(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())
	assert.NoError(t, manager.Register(newFakeSensor("temp_0", 0.42)))

	// WHEN
	value, err := manager.ReadRaw("temp_0")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 0.42, value)
}

func TestManagerReadRawUnknownSensor(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())

	// WHEN
	_, err := manager.ReadRaw("ghost")

	// THEN
	var unknown *UnknownSensorError
	assert.ErrorAs(t, err, &unknown)
}

func TestManagerReadRawPropagatesDriverError(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())
	sensor := newFakeSensor("temp_0", 0.0)
	sensor.err = errors.New("device not responding")
	assert.NoError(t, manager.Register(sensor))

	// WHEN
	_, err := manager.ReadRaw("temp_0")

	// THEN
	assert.EqualError(t, err, "device not responding")
}

func TestManagerTransform(t *testing.T) {
	// GIVEN
	manager := NewManager(hwio.NewBusLocks())
	assert.NoError(t, manager.Register(newFakeSensor("temp_0", 0.5)))

	// WHEN uncalibrated
	value, calibrated := manager.Transform("temp_0", 0.5)

	// THEN the raw value passes through
	assert.False(t, calibrated)
	assert.Equal(t, 0.5, value)

	// WHEN calibrated with reference = 100*raw
	assert.NoError(t, manager.Commit("temp_0", fittedData(100.0, 0.0)))
	value, calibrated = manager.Transform("temp_0", 0.5)

	// THEN
	assert.True(t, calibrated)
	assert.InDelta(t, 50.0, value, 1e-9)
}
