package calibration

import (
	"sort"
	"strings"
)

// Point pairs one reference observation with one raw observation, e.g. a
// thermometer reading with the voltage the sensor produced at the same time.
// Either half may be missing until the corresponding step has run.
type Point struct {
	SensorId  string   `json:"sensorId"`
	Kind      string   `json:"kind"`
	Reference *float64 `json:"reference,omitempty"`
	Raw       *float64 `json:"raw,omitempty"`
}

// Complete reports whether both halves of the pair have been collected.
func (p *Point) Complete() bool {
	return p.Reference != nil && p.Raw != nil
}

// Data collects the reference/raw pairs of one calibration procedure and
// caches the fit derived from them. The cached fit is dropped on every
// point mutation, so it can never predate the data it was computed from.
//
// Note that Data does not require every point to receive both halves;
// fitting is attempted opportunistically over the complete subset.
type Data struct {
	Points map[string]*Point `json:"points"`
	Fit    *FitResult        `json:"fit,omitempty"`
}

func NewData() *Data {
	return &Data{
		Points: map[string]*Point{},
	}
}

// PointKey derives the map key of the point a sensor/kind combination
// addresses.
func PointKey(sensorId string, kind string) string {
	return sensorId + "/" + kind
}

func (d *Data) point(sensorId string, kind string) *Point {
	key := PointKey(sensorId, kind)
	point, ok := d.Points[key]
	if !ok {
		point = &Point{
			SensorId: sensorId,
			Kind:     kind,
		}
		d.Points[key] = point
	}
	return point
}

// SetReference upserts the reference half of the named point.
// Last write wins.
func (d *Data) SetReference(sensorId string, kind string, value float64) {
	d.point(sensorId, kind).Reference = &value
	d.Fit = nil
}

// SetRaw upserts the raw half of the named point. Last write wins.
func (d *Data) SetRaw(sensorId string, kind string, value float64) {
	d.point(sensorId, kind).Raw = &value
	d.Fit = nil
}

// FitResult returns the most recently computed fit, or nil if the data has
// never been successfully fit since its last mutation.
func (d *Data) FitResult() *FitResult {
	return d.Fit
}

// CompletePoints returns all points that have both halves collected, in
// deterministic key order.
func (d *Data) CompletePoints() []*Point {
	keys := make([]string, 0, len(d.Points))
	for key, point := range d.Points {
		if point.Complete() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	points := make([]*Point, 0, len(keys))
	for _, key := range keys {
		points = append(points, d.Points[key])
	}
	return points
}

// TryFit fits the given strategy over the complete subset of points and
// caches the result. ErrInsufficientData and ErrDegenerateInput are signals,
// not fatal failures: the caller may keep collecting points and retry.
func (d *Data) TryFit(strategy FitStrategy) (*FitResult, error) {
	points := d.CompletePoints()
	if len(points) < strategy.MinSamples() {
		return nil, ErrInsufficientData
	}

	raw := make([]float64, 0, len(points))
	reference := make([]float64, 0, len(points))
	for _, point := range points {
		raw = append(raw, *point.Raw)
		reference = append(reference, *point.Reference)
	}

	result, err := strategy.Fit(raw, reference)
	if err != nil {
		return nil, err
	}

	d.Fit = result
	return result, nil
}

// SensorSubset copies the points belonging to the given sensor into a fresh
// Data, leaving the original untouched. Used to commit one sensor's share
// of a multi-sensor procedure.
func (d *Data) SensorSubset(sensorId string) *Data {
	subset := NewData()
	prefix := sensorId + "/"
	for key, point := range d.Points {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		copied := *point
		if point.Reference != nil {
			reference := *point.Reference
			copied.Reference = &reference
		}
		if point.Raw != nil {
			raw := *point.Raw
			copied.Raw = &raw
		}
		subset.Points[key] = &copied
	}
	return subset
}
