package statistics

import (
	"github.com/evolab/calgo/internal/calibration"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemProcedure = "procedure"

type ProcedureCollector struct {
	service *calibration.Service

	cursor     *prometheus.Desc
	totalSteps *prometheus.Desc
}

func NewProcedureCollector(service *calibration.Service) *ProcedureCollector {
	return &ProcedureCollector{
		service: service,
		cursor: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemProcedure, "cursor"),
			"Index of the next step the procedure will execute",
			[]string{"id", "template", "state"}, nil,
		),
		totalSteps: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemProcedure, "total_steps"),
			"Total number of steps of the flattened procedure",
			[]string{"id", "template", "state"}, nil,
		),
	}
}

func (collector *ProcedureCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.cursor
	ch <- collector.totalSteps
}

// Collect implements required collect function for all prometheus collectors
func (collector *ProcedureCollector) Collect(ch chan<- prometheus.Metric) {
	for _, status := range collector.service.List() {
		labels := []string{status.Id, status.TemplateId, string(status.State)}
		ch <- prometheus.MustNewConstMetric(collector.cursor, prometheus.GaugeValue, float64(status.Cursor), labels...)
		ch <- prometheus.MustNewConstMetric(collector.totalSteps, prometheus.GaugeValue, float64(status.TotalSteps), labels...)
	}
}
