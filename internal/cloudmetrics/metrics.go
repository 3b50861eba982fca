package cloudmetrics

import "github.com/prometheus/client_golang/prometheus"

// metrics is the private registry content pushed to the fleet backend. It is
// deliberately separate from the scrape registry the local operator sees on
// /metrics.
type metrics struct {
	callEvents      *prometheus.CounterVec
	alertsCreated   *prometheus.CounterVec
	emailDeliveries *prometheus.CounterVec

	openAlerts      *prometheus.GaugeVec
	propertiesTotal *prometheus.GaugeVec
	memorySysBytes  *prometheus.GaugeVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		callEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callguard_call_events_total",
			Help: "Call events processed, by pipeline disposition.",
		}, []string{"account", "status"}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callguard_alerts_created_total",
			Help: "Alert records created.",
		}, []string{"account"}),
		emailDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callguard_email_deliveries_total",
			Help: "Email queue rows drained, by outcome.",
		}, []string{"account", "status"}),
		openAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callguard_open_alerts",
			Help: "Alert records still awaiting acknowledgment.",
		}, []string{"account"}),
		propertiesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callguard_properties_total",
			Help: "Properties provisioned on this install.",
		}, []string{"account"}),
		memorySysBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callguard_memory_sys_bytes",
			Help: "Memory obtained from the OS by the process.",
		}, []string{"account"}),
	}

	if registry != nil {
		registry.MustRegister(
			m.callEvents,
			m.alertsCreated,
			m.emailDeliveries,
			m.openAlerts,
			m.propertiesTotal,
			m.memorySysBytes,
		)
	}
	return m
}

func (m *metrics) setOpenAlerts(account string, count int64) {
	if m == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	m.openAlerts.WithLabelValues(account).Set(float64(count))
}

func (m *metrics) setPropertiesTotal(account string, count int64) {
	if m == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	m.propertiesTotal.WithLabelValues(account).Set(float64(count))
}

func (m *metrics) setMemorySysBytes(account string, bytes uint64) {
	if m == nil {
		return
	}
	m.memorySysBytes.WithLabelValues(account).Set(float64(bytes))
}
