package calibration

import "math"

const FitTypeLinear = "linear"

// FitResult holds the parameters of a fitted conversion function together
// with a quality metric (R² for the linear fit).
type FitResult struct {
	Type       string    `json:"type"`
	Parameters []float64 `json:"parameters"`
	Quality    float64   `json:"quality"`
}

// Apply converts a raw sensor value into physical units using the fitted
// parameters.
func (r *FitResult) Apply(raw float64) float64 {
	switch r.Type {
	case FitTypeLinear:
		return r.Parameters[0]*raw + r.Parameters[1]
	default:
		return raw
	}
}

// FitStrategy converts a set of (raw, reference) pairs into fit parameters.
type FitStrategy interface {
	Name() string

	// MinSamples returns the minimum number of complete pairs required
	MinSamples() int

	Fit(raw []float64, reference []float64) (*FitResult, error)
}

// LinearFit implements ordinary least squares linear regression, mapping
// raw values (x) to reference values (y) as y = m*x + b.
type LinearFit struct{}

func (f LinearFit) Name() string {
	return FitTypeLinear
}

func (f LinearFit) MinSamples() int {
	return 2
}

func (f LinearFit) Fit(raw []float64, reference []float64) (*FitResult, error) {
	if len(raw) != len(reference) || len(raw) < f.MinSamples() {
		return nil, ErrInsufficientData
	}

	meanX := mean(raw)
	meanY := mean(reference)

	sxx := 0.0
	sxy := 0.0
	for i := range raw {
		dx := raw[i] - meanX
		sxx += dx * dx
		sxy += dx * (reference[i] - meanY)
	}

	if sxx == 0 {
		// all raw values identical, the slope is undefined
		return nil, ErrDegenerateInput
	}

	slope := sxy / sxx
	intercept := meanY - slope*meanX

	return &FitResult{
		Type:       FitTypeLinear,
		Parameters: []float64{slope, intercept},
		Quality:    rSquared(raw, reference, slope, intercept),
	}, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func rSquared(raw []float64, reference []float64, slope float64, intercept float64) float64 {
	meanY := mean(reference)

	ssTot := 0.0
	ssRes := 0.0
	for i := range raw {
		predicted := slope*raw[i] + intercept
		residual := reference[i] - predicted
		ssRes += residual * residual

		dy := reference[i] - meanY
		ssTot += dy * dy
	}

	if ssTot == 0 {
		// all reference values identical, the fit hits every point
		if ssRes == 0 {
			return 1.0
		}
		return 0.0
	}

	quality := 1.0 - ssRes/ssTot
	if math.IsNaN(quality) {
		return 0.0
	}
	return quality
}
