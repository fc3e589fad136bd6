package statistics

import (
	"github.com/evolab/calgo/internal/sensors"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemSensor = "sensor"

type SensorCollector struct {
	manager *sensors.Manager

	raw        *prometheus.Desc
	calibrated *prometheus.Desc
}

func NewSensorCollector(manager *sensors.Manager) *SensorCollector {
	return &SensorCollector{
		manager: manager,
		raw: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "raw_value"),
			"Moving average of the sensor's raw value",
			[]string{"id"}, nil,
		),
		calibrated: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "calibrated_value"),
			"Sensor value converted to physical units using the committed calibration",
			[]string{"id"}, nil,
		),
	}
}

func (collector *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.raw
	ch <- collector.calibrated
}

// Collect implements required collect function for all prometheus collectors
func (collector *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	for _, sensorId := range collector.manager.Ids() {
		sensor, ok := collector.manager.Get(sensorId)
		if !ok {
			continue
		}

		avg := sensor.GetMovingAvg()
		ch <- prometheus.MustNewConstMetric(collector.raw, prometheus.GaugeValue, avg, sensorId)

		if value, calibrated := collector.manager.Transform(sensorId, avg); calibrated {
			ch <- prometheus.MustNewConstMetric(collector.calibrated, prometheus.GaugeValue, value, sensorId)
		}
	}
}
