package sensors

import (
	"fmt"
	"sort"

	"github.com/evolab/calgo/internal/calibration"
	"github.com/evolab/calgo/internal/hwio"
	cmap "github.com/orcaman/concurrent-map/v2"
)

type DuplicateSensorError struct {
	SensorId string
}

func (e *DuplicateSensorError) Error() string {
	return fmt.Sprintf("sensor %s is already registered", e.SensorId)
}

type UnknownSensorError struct {
	SensorId string
}

func (e *UnknownSensorError) Error() string {
	return fmt.Sprintf("sensor %s is not registered", e.SensorId)
}

// registration pairs a sensor driver with its current committed
// calibration. A commit replaces the whole registration value, so readers
// always observe either the previous calibration or the new one, never a
// mix.
type registration struct {
	sensor      Sensor
	calibration *calibration.Data
}

// Manager is the registry of all sensors known to the platform. It is
// populated once at startup and serves the current committed calibration
// of each sensor to the rest of the platform.
type Manager struct {
	sensors cmap.ConcurrentMap[string, *registration]
	buses   *hwio.BusLocks
}

func NewManager(buses *hwio.BusLocks) *Manager {
	return &Manager{
		sensors: cmap.New[*registration](),
		buses:   buses,
	}
}

// Register adds a sensor to the registry. Called during platform
// initialization only.
func (m *Manager) Register(sensor Sensor) error {
	ok := m.sensors.SetIfAbsent(sensor.GetId(), &registration{
		sensor: sensor,
	})
	if !ok {
		return &DuplicateSensorError{SensorId: sensor.GetId()}
	}
	return nil
}

func (m *Manager) Get(sensorId string) (Sensor, bool) {
	reg, ok := m.sensors.Get(sensorId)
	if !ok {
		return nil, false
	}
	return reg.sensor, true
}

// Ids returns all registered sensor ids in stable order.
func (m *Manager) Ids() []string {
	ids := m.sensors.Keys()
	sort.Strings(ids)
	return ids
}

// Calibration returns the sensor's current committed calibration, or false
// if the sensor has never been calibrated.
func (m *Manager) Calibration(sensorId string) (*calibration.Data, bool) {
	reg, ok := m.sensors.Get(sensorId)
	if !ok || reg.calibration == nil {
		return nil, false
	}
	return reg.calibration, true
}

// Commit replaces the sensor's current calibration with the given one.
// The replacement is atomic: the committed Data is treated as immutable
// from here on and the registry entry is swapped in a single operation.
func (m *Manager) Commit(sensorId string, data *calibration.Data) error {
	reg, ok := m.sensors.Get(sensorId)
	if !ok {
		return &UnknownSensorError{SensorId: sensorId}
	}

	m.sensors.Set(sensorId, &registration{
		sensor:      reg.sensor,
		calibration: data,
	})
	return nil
}

// ReadRaw reads the sensor's current raw value under the bus-locking
// discipline shared with the monitoring loop.
func (m *Manager) ReadRaw(sensorId string) (float64, error) {
	reg, ok := m.sensors.Get(sensorId)
	if !ok {
		return 0, &UnknownSensorError{SensorId: sensorId}
	}

	bus := reg.sensor.GetConfig().Bus
	m.buses.Lock(bus)
	defer m.buses.Unlock(bus)

	return reg.sensor.GetValue()
}

// Transform converts a raw value into physical units using the sensor's
// committed fit. The second return value is false when no usable fit is
// committed and the raw value is returned unchanged.
func (m *Manager) Transform(sensorId string, raw float64) (float64, bool) {
	data, ok := m.Calibration(sensorId)
	if !ok || data.FitResult() == nil {
		return raw, false
	}
	return data.FitResult().Apply(raw), true
}
