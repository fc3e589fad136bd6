package sensors

import (
	"fmt"

	"github.com/evolab/calgo/internal/configuration"
)

type Sensor interface {
	GetId() string
	GetLabel() string

	GetConfig() configuration.SensorConfig

	// GetValue returns the current raw, uncalibrated value of this sensor
	GetValue() (float64, error)

	// GetMovingAvg returns the moving average of this sensor's raw value
	GetMovingAvg() float64
	SetMovingAvg(avg float64)
}

func NewSensor(config configuration.SensorConfig) (Sensor, error) {
	if config.File != nil {
		return &FileSensor{
			Config: config,
		}, nil
	}

	if config.Cmd != nil {
		return &CmdSensor{
			Config: config,
		}, nil
	}

	return nil, fmt.Errorf("no matching sensor type for sensor: %s", config.ID)
}
