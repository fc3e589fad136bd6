package sensor

import (
	"fmt"

	"github.com/evolab/calgo/internal/configuration"
	"github.com/evolab/calgo/internal/sensors"
	"github.com/evolab/calgo/internal/ui"
	"github.com/spf13/cobra"
)

var sensorId string

var Command = &cobra.Command{
	Use:              "sensor",
	Short:            "Sensor related commands",
	Long:             ``,
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(
		&sensorId,
		"id", "i",
		"",
		"Sensor ID as specified in the config",
	)

	Command.AddCommand(valueCmd)
	Command.AddCommand(listCmd)
	Command.AddCommand(curveCmd)
}

func loadConfig() {
	configPath := configuration.DetectConfigFile()
	ui.Info("Using configuration file at: %s", configPath)
	configuration.LoadConfig()
	if err := configuration.Validate(configPath); err != nil {
		ui.FatalWithoutStacktrace("%v", err)
	}
}

func getSensor(id string) (sensors.Sensor, error) {
	if len(id) <= 0 {
		return nil, fmt.Errorf("a sensor id is required, use --id")
	}

	loadConfig()

	for _, config := range configuration.CurrentConfig.Sensors {
		if config.ID == id {
			return sensors.NewSensor(config)
		}
	}

	return nil, fmt.Errorf("no sensor with id '%s' found", id)
}
