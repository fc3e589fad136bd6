package configuration

import (
	"os"
	"time"

	"github.com/evolab/calgo/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	DbPath       string `json:"dbPath"`
	SnapshotPath string `json:"snapshotPath"`

	SensorPollingRate       time.Duration `json:"sensorPollingRate"`
	SensorRollingWindowSize int           `json:"sensorRollingWindowSize"`

	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`

	Sensors    []SensorConfig    `json:"sensors"`
	Procedures []ProcedureConfig `json:"procedures"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("calgo")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/calgo/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbpath", "/etc/calgo/calgo.db")
	viper.SetDefault("snapshotpath", "/etc/calgo/calibrations.json")
	viper.SetDefault("SensorPollingRate", 1*time.Second)
	viper.SetDefault("SensorRollingWindowSize", 10)

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9440)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9441)

	viper.SetDefault("sensors", []SensorConfig{})
	viper.SetDefault("procedures", []ProcedureConfig{})
}

// DetectConfigFile reads the configuration file detected by viper
// and returns its path.
func DetectConfigFile() string {
	if err := viper.ReadInConfig(); err != nil {
		// config file is required, so we fail here
		ui.FatalWithoutStacktrace("Error reading config file, %s", err)
	}
	// this is only populated _after_ ReadInConfig()
	return viper.ConfigFileUsed()
}

func LoadConfig() {
	err := viper.Unmarshal(
		&CurrentConfig,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stepFieldsHookFunc(),
		)),
	)
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
