package procedure

import (
	"github.com/evolab/calgo/internal/configuration"
	"github.com/evolab/calgo/internal/ui"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "procedure",
	Short:            "Calibration procedure related commands",
	Long:             ``,
	TraverseChildren: true,
}

func init() {
	Command.AddCommand(listCmd)
}

func loadConfig() {
	configPath := configuration.DetectConfigFile()
	ui.Info("Using configuration file at: %s", configPath)
	configuration.LoadConfig()
	if err := configuration.Validate(configPath); err != nil {
		ui.FatalWithoutStacktrace("%v", err)
	}
}
