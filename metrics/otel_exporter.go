package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards.
// It is also the recorder used by the ingress, the relay and the scheduler.
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector // optional; gauges are skipped without it
	handler       http.Handler

	// OTel meters and instruments
	meter           metric.Meter
	inboundCounter  metric.Int64Counter
	relayCounter    metric.Int64Counter
	dispatchCounter metric.Int64Counter
	ledgerKeysGauge metric.Int64ObservableGauge
	instancesGauge  metric.Int64ObservableGauge
	targetsGauge    metric.Int64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
// registered on the default Prometheus registry
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	return newOTelExporter(collector, promclient.DefaultRegisterer, promhttp.Handler())
}

// NewOTelExporterWithRegistry registers on reg instead of the default registry
func NewOTelExporterWithRegistry(collector Collector, reg *promclient.Registry) (*OTelExporter, error) {
	return newOTelExporter(collector, reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func newOTelExporter(collector Collector, registerer promclient.Registerer, handler http.Handler) (*OTelExporter, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"vendor-relay",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		handler:       handler,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.inboundCounter, err = oe.meter.Int64Counter(
		"webhook.inbound.events",
		metric.WithDescription("Inbound provider webhook requests by result"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating inbound counter: %w", err)
	}

	oe.relayCounter, err = oe.meter.Int64Counter(
		"relay.deliveries",
		metric.WithDescription("Relay deliveries by target and result"),
		metric.WithUnit("{deliveries}"),
	)
	if err != nil {
		return fmt.Errorf("creating relay counter: %w", err)
	}

	oe.dispatchCounter, err = oe.meter.Int64Counter(
		"dispatch.decisions",
		metric.WithDescription("Scheduler decisions by slot and decision"),
		metric.WithUnit("{decisions}"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatch counter: %w", err)
	}

	if oe.collector == nil {
		return nil
	}

	// Ledger keys gauge (per namespace)
	oe.ledgerKeysGauge, err = oe.meter.Int64ObservableGauge(
		"ledger.keys",
		metric.WithDescription("Number of idempotency ledger keys per namespace"),
		metric.WithUnit("{keys}"),
		metric.WithInt64Callback(oe.observeLedgerKeys),
	)
	if err != nil {
		return fmt.Errorf("creating ledger keys gauge: %w", err)
	}

	// Active scheduler instances gauge (per role)
	oe.instancesGauge, err = oe.meter.Int64ObservableGauge(
		"scheduler.instances.active",
		metric.WithDescription("Number of scheduler callers with a live heartbeat per role"),
		metric.WithUnit("{instances}"),
		metric.WithInt64Callback(oe.observeActiveInstances),
	)
	if err != nil {
		return fmt.Errorf("creating active instances gauge: %w", err)
	}

	oe.targetsGauge, err = oe.meter.Int64ObservableGauge(
		"relay.targets",
		metric.WithDescription("Number of configured relay targets"),
		metric.WithUnit("{targets}"),
		metric.WithInt64Callback(oe.observeTargets),
	)
	if err != nil {
		return fmt.Errorf("creating targets gauge: %w", err)
	}

	return nil
}

// InboundEvent counts one inbound webhook request
func (oe *OTelExporter) InboundEvent(ctx context.Context, result string) {
	oe.inboundCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// RelayOutcome counts one delivery attempt to a relay target
func (oe *OTelExporter) RelayOutcome(ctx context.Context, target string, result string) {
	oe.relayCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("result", result),
	))
}

// DispatchDecision counts one scheduler decision
func (oe *OTelExporter) DispatchDecision(ctx context.Context, slot string, decision string) {
	oe.dispatchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("slot", slot),
		attribute.String("decision", decision),
	))
}

// observeLedgerKeys is a callback that reports ledger key counts
func (oe *OTelExporter) observeLedgerKeys(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetLedgerKeyCounts(ctx)
	if err != nil {
		return err
	}

	for namespace, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("namespace", namespace),
		))
	}

	return nil
}

// observeActiveInstances is a callback that reports live scheduler callers
func (oe *OTelExporter) observeActiveInstances(ctx context.Context, observer metric.Int64Observer) error {
	instances, err := oe.collector.GetActiveInstances(ctx)
	if err != nil {
		return err
	}

	for role, list := range instances {
		observer.Observe(int64(len(list)), metric.WithAttributes(
			attribute.String("role", role),
		))
	}

	return nil
}

func (oe *OTelExporter) observeTargets(ctx context.Context, observer metric.Int64Observer) error {
	count, err := oe.collector.GetTargetCount(ctx)
	if err != nil {
		return err
	}
	observer.Observe(count)
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return oe.handler
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
