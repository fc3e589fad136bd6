package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evolab/calgo/internal/ui"
	"github.com/evolab/calgo/internal/util"
	"golang.org/x/exp/slices"
)

func Validate(configPath string) error {
	return validateConfig(&CurrentConfig, configPath)
}

func validateConfig(config *Configuration, path string) error {
	err := validateSensors(config)
	if err != nil {
		return err
	}
	err = validateProcedures(config)
	if err != nil {
		return err
	}
	err = validateApi(config)

	if containsCmdSensors(config) {
		if _, err := util.CheckFilePermissionsForExecution(path); err != nil {
			return fmt.Errorf("Config file '%s' has invalid permissions: %s", path, err)
		}
	}

	return err
}

func containsCmdSensors(config *Configuration) bool {
	for _, sensorConfig := range config.Sensors {
		if sensorConfig.Cmd != nil {
			return true
		}
	}

	return false
}

func validateSensors(config *Configuration) error {
	seen := map[string]bool{}
	for _, sensorConfig := range config.Sensors {
		if len(sensorConfig.ID) <= 0 {
			return errors.New("Sensor without id detected, id is mandatory")
		}
		if seen[sensorConfig.ID] {
			return fmt.Errorf("Sensor %s: duplicate sensor id", sensorConfig.ID)
		}
		seen[sensorConfig.ID] = true

		subConfigs := 0
		if sensorConfig.File != nil {
			subConfigs++
		}
		if sensorConfig.Cmd != nil {
			subConfigs++
		}
		if subConfigs > 1 {
			return fmt.Errorf("Sensor %s: only one sensor type can be used per sensor definition block", sensorConfig.ID)
		}
		if subConfigs <= 0 {
			return fmt.Errorf("Sensor %s: sub-configuration for sensor is missing, use one of: file | cmd", sensorConfig.ID)
		}

		if sensorConfig.Vial < 0 {
			return fmt.Errorf("Sensor %s: invalid vial index, must be >= 0", sensorConfig.ID)
		}

		if sensorConfig.File != nil && len(sensorConfig.File.Path) <= 0 {
			return fmt.Errorf("Sensor %s: no file path provided", sensorConfig.ID)
		}
		if sensorConfig.Cmd != nil && len(sensorConfig.Cmd.Exec) <= 0 {
			return fmt.Errorf("Sensor %s: no executable provided", sensorConfig.ID)
		}
	}

	return nil
}

func validateProcedures(config *Configuration) error {
	supportedKinds := []string{StepKindInstruction, StepKindReference, StepKindRaw}
	supportedScopes := []string{StepScopeGlobal, StepScopeSensor}

	seen := map[string]bool{}
	for _, procedureConfig := range config.Procedures {
		if len(procedureConfig.ID) <= 0 {
			return errors.New("Procedure without id detected, id is mandatory")
		}
		if seen[procedureConfig.ID] {
			return fmt.Errorf("Procedure %s: duplicate procedure id", procedureConfig.ID)
		}
		seen[procedureConfig.ID] = true

		if len(procedureConfig.Steps) <= 0 {
			return fmt.Errorf("Procedure %s: at least one step is required", procedureConfig.ID)
		}

		for idx, step := range procedureConfig.Steps {
			if !slices.Contains(supportedKinds, step.Kind) {
				return fmt.Errorf("Procedure %s, step %d: unsupported step kind '%s', use one of: %s",
					procedureConfig.ID, idx, step.Kind, strings.Join(supportedKinds, " | "))
			}
			if !slices.Contains(supportedScopes, step.Scope) {
				return fmt.Errorf("Procedure %s, step %d: unsupported step scope '%s', use one of: %s",
					procedureConfig.ID, idx, step.Scope, strings.Join(supportedScopes, " | "))
			}

			// reference and raw steps address a per-sensor point namespace
			if step.Kind == StepKindReference || step.Kind == StepKindRaw {
				if step.Scope != StepScopeSensor {
					return fmt.Errorf("Procedure %s, step %d: %s steps must use sensor scope",
						procedureConfig.ID, idx, step.Kind)
				}
				if len(step.Point) <= 0 {
					return fmt.Errorf("Procedure %s, step %d: %s steps require a point name",
						procedureConfig.ID, idx, step.Kind)
				}
			}

			if step.Kind == StepKindInstruction && len(step.Prompt) <= 0 {
				return fmt.Errorf("Procedure %s, step %d: instruction steps require a prompt",
					procedureConfig.ID, idx)
			}
		}

		if !containsRawStep(procedureConfig) {
			ui.Warning("Procedure %s collects no raw values, the resulting calibration cannot be fit", procedureConfig.ID)
		}
	}

	return nil
}

func containsRawStep(config ProcedureConfig) bool {
	for _, step := range config.Steps {
		if step.Kind == StepKindRaw {
			return true
		}
	}
	return false
}

func validateApi(config *Configuration) error {
	if config.Api.Enabled {
		if config.Api.Port <= 0 || config.Api.Port >= 65535 {
			return fmt.Errorf("Api: invalid port %d", config.Api.Port)
		}
	}
	if config.Statistics.Enabled {
		if config.Statistics.Port <= 0 || config.Statistics.Port >= 65535 {
			return fmt.Errorf("Statistics: invalid port %d", config.Statistics.Port)
		}
	}
	return nil
}
