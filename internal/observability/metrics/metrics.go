package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments for the alert pipeline.
type Metrics struct {
	callEvents    metric.Int64Counter
	alertsCreated metric.Int64Counter
	dedupHits     metric.Int64Counter
	notifications metric.Int64Counter
	emailSends    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "callguard"
	}
	meter := provider.Meter(name)

	callEvents, err := meter.Int64Counter("callguard_call_events_total")
	if err != nil {
		return nil, err
	}
	alertsCreated, err := meter.Int64Counter("callguard_alerts_created_total")
	if err != nil {
		return nil, err
	}
	dedupHits, err := meter.Int64Counter("callguard_dedup_hits_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("callguard_notifications_total")
	if err != nil {
		return nil, err
	}
	emailSends, err := meter.Int64Counter("callguard_email_deliveries_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		callEvents:    callEvents,
		alertsCreated: alertsCreated,
		dedupHits:     dedupHits,
		notifications: notifications,
		emailSends:    emailSends,
	}, nil
}

// RecordCallEvent counts one pipeline run by terminal status and reason.
func (m *Metrics) RecordCallEvent(ctx context.Context, status, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("status", strings.TrimSpace(status)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.callEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAlertCreated counts persisted alert records per property.
func (m *Metrics) RecordAlertCreated(ctx context.Context, propertyID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("property_id", strings.TrimSpace(propertyID)))
	m.alertsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDedupHit counts duplicates by the matcher that caught them.
func (m *Metrics) RecordDedupHit(ctx context.Context, matcher string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("matcher", strings.TrimSpace(matcher)))
	m.dedupHits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotification counts queued delivery records per channel.
func (m *Metrics) RecordNotification(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("channel", strings.TrimSpace(channel)))
	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEmailDelivery counts drain-worker outcomes.
func (m *Metrics) RecordEmailDelivery(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.emailSends.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"property_id": {},
	"status":      {},
	"reason":      {},
	"matcher":     {},
	"channel":     {},
	"vendor":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
