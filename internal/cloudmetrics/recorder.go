package cloudmetrics

import (
	"strings"
	"sync"
)

// Recorder is the fleet-accounting surface the processing code reports into.
// The account label is stamped by the active recorder so call sites stay
// free of configuration.
type Recorder interface {
	RecordCallEvent(status string)
	RecordAlertCreated()
	RecordEmailDelivery(status string)
}

type recorder struct {
	metrics        *metrics
	defaultAccount string
}

type noopRecorder struct{}

func (noopRecorder) RecordCallEvent(string)     {}
func (noopRecorder) RecordAlertCreated()        {}
func (noopRecorder) RecordEmailDelivery(string) {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

// RecordCallEvent counts one pipeline disposition for fleet accounting.
func RecordCallEvent(status string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordCallEvent(status)
}

// RecordAlertCreated counts one alert record cut by the pipeline.
func RecordAlertCreated() {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordAlertCreated()
}

// RecordEmailDelivery counts one drained email queue row by outcome.
func RecordEmailDelivery(status string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordEmailDelivery(status)
}

func (r *recorder) RecordCallEvent(status string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.callEvents.WithLabelValues(r.account(), normalizeLabel(status)).Inc()
}

func (r *recorder) RecordAlertCreated() {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.alertsCreated.WithLabelValues(r.account()).Inc()
}

func (r *recorder) RecordEmailDelivery(status string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.emailDeliveries.WithLabelValues(r.account(), normalizeLabel(status)).Inc()
}

func (r *recorder) account() string {
	account := strings.TrimSpace(r.defaultAccount)
	if account == "" {
		return "unknown"
	}
	return account
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
