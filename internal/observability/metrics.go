// Package observability holds the Prometheus metrics of a pipeline run
package observability

import (
	"fmt"
	"log"

	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "flood_alert"

// Metrics holds the counters and gauges recorded during a run. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal     *prometheus.CounterVec // labels: source={gauge,discharge}, outcome={ok,<error kind>}
	DispatchTotal  *prometheus.CounterVec // labels: outcome={ok,<error kind>}
	Severity       prometheus.Gauge       // 0 normal, 1 watch, 2 critical, -1 degraded
	WaterLevel     prometheus.Gauge
	DistanceToBank prometheus.Gauge
	Discharge      prometheus.Gauge
	HistoryRecords prometheus.Gauge
	LastRun        prometheus.Gauge
}

// NewMetrics creates all run metrics on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Live source fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Notification dispatches by outcome.",
		}, []string{"outcome"}),
		Severity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "severity",
			Help:      "Severity tier of the last report (0 normal, 1 watch, 2 critical, -1 degraded).",
		}),
		WaterLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "water_level_meters",
			Help:      "Last gauge water level in metres MSL.",
		}),
		DistanceToBank: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "distance_to_bank_meters",
			Help:      "Bank level minus water level at the gauge.",
		}),
		Discharge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dam_discharge_cubic_meters_per_second",
			Help:      "Last dam discharge.",
		}),
		HistoryRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_records",
			Help:      "Records in the loaded historical dataset.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.FetchTotal,
		m.DispatchTotal,
		m.Severity,
		m.WaterLevel,
		m.DistanceToBank,
		m.Discharge,
		m.HistoryRecords,
		m.LastRun,
	)
	return m
}

// Registry exposes the private registry, e.g. for tests or an HTTP handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch counts one fetch of source, labelled by its error kind or "ok"
func (m *Metrics) ObserveFetch(source string, err error) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(source, outcome(err)).Inc()
}

// ObserveDispatch counts one dispatch attempt
func (m *Metrics) ObserveDispatch(err error) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(outcome(err)).Inc()
}

// ObserveReport records the readings and tier carried by report
func (m *Metrics) ObserveReport(report entities.Report) {
	if m == nil {
		return
	}
	if s := report.Success; s != nil {
		m.Severity.Set(float64(s.Tier))
		m.WaterLevel.Set(s.Gauge.WaterLevelMeters)
		m.DistanceToBank.Set(s.Gauge.DistanceToBank())
		m.Discharge.Set(s.Discharge.CubicMetersPerSecond)
		m.LastRun.Set(float64(s.Timestamp.Unix()))
		return
	}
	m.Severity.Set(-1)
	if report.Degraded != nil {
		m.LastRun.Set(float64(report.Degraded.Timestamp.Unix()))
	}
}

// ObserveHistory records the size of the loaded historical dataset
func (m *Metrics) ObserveHistory(records int) {
	if m == nil {
		return
	}
	m.HistoryRecords.Set(float64(records))
}

// Push sends the registry to a Prometheus Pushgateway under job
func (m *Metrics) Push(gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	log.Printf("Pushed run metrics to %s", gatewayURL)
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return entities.KindOf(err).String()
}
