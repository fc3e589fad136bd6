package internal

import (
	"context"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/evolab/calgo/internal/sensors"
	"github.com/evolab/calgo/internal/ui"
	"github.com/evolab/calgo/internal/util"
)

type SensorMonitor interface {
	Run(ctx context.Context) error
}

// sensorMonitor periodically reads one sensor's raw value through the
// manager's bus-locking discipline and maintains its moving average.
type sensorMonitor struct {
	manager     *sensors.Manager
	sensorId    string
	pollingRate time.Duration
	windowSize  int

	window *rolling.PointPolicy
	primed bool
}

func NewSensorMonitor(manager *sensors.Manager, sensorId string, pollingRate time.Duration, windowSize int) SensorMonitor {
	return &sensorMonitor{
		manager:     manager,
		sensorId:    sensorId,
		pollingRate: pollingRate,
		windowSize:  windowSize,
		window:      util.CreateRollingWindow(windowSize),
	}
}

func (s *sensorMonitor) Run(ctx context.Context) error {
	tick := time.Tick(s.pollingRate)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			err := s.updateSensor()
			if err != nil {
				ui.Warning("Error reading sensor %s: %v", s.sensorId, err)
			}
		}
	}
}

// reads the current raw value of the sensor and appends it to the moving window
func (s *sensorMonitor) updateSensor() (err error) {
	value, err := s.manager.ReadRaw(s.sensorId)
	if err != nil {
		return err
	}

	if !s.primed {
		// avoid the zero-filled window dragging the average down on startup
		util.FillWindow(s.window, s.windowSize, value)
		s.primed = true
	} else {
		s.window.Append(value)
	}

	sensor, ok := s.manager.Get(s.sensorId)
	if ok {
		sensor.SetMovingAvg(util.GetWindowAvg(s.window))
	}

	return nil
}
