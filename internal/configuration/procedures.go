package configuration

const (
	StepKindInstruction = "instruction"
	StepKindReference   = "reference"
	StepKindRaw         = "raw"

	StepScopeGlobal = "global"
	StepScopeSensor = "sensor"
)

// ProcedureConfig is an authored calibration procedure template. Sensor
// scoped steps are expanded once per selected sensor when a procedure is
// started, so a template is independent of the number of sensors on the
// device.
type ProcedureConfig struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Steps       []StepConfig `json:"steps"`
}

type StepConfig struct {
	Kind  string `json:"kind"`
	Scope string `json:"scope"`
	// Point names the data point a reference/raw step writes to,
	// e.g. "ambient" or "boiling". Reference and raw steps using the
	// same point name form one calibration pair per sensor.
	Point  string `json:"point,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}
