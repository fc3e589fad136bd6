package configuration

type SensorConfig struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Vial is the index of the vial this sensor is attached to on the device.
	Vial int `json:"vial"`
	// Bus names the shared hardware connection the sensor is read through.
	// Sensors sharing a bus are never read concurrently.
	Bus string `json:"bus"`

	File *FileSensorConfig `json:"file,omitempty"`
	Cmd  *CmdSensorConfig  `json:"cmd,omitempty"`
}

type FileSensorConfig struct {
	Path string `json:"path"`
}

type CmdSensorConfig struct {
	Exec string   `json:"exec"`
	Args []string `json:"args"`
}
