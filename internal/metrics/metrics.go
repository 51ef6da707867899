package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/storefront-go-app/pkg/config"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP server metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Remote API client metrics
	APIRequestsTotal   metric.Int64Counter
	APIRequestDuration metric.Float64Histogram

	// Database metrics (mysql session store)
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business metrics
	OrdersSubmitted metric.Int64Counter
	OrdersFailed    metric.Int64Counter
	RevenueTotal    metric.Float64Counter
	CartAdditions   metric.Int64Counter
	CartItemsCount  metric.Int64Gauge
	LoginAttempts   metric.Int64Counter

	// Application metrics
	ActiveCartsCount    metric.Int64Gauge
	ActiveSessionsCount metric.Int64Gauge

	serviceName string
}

// SigNoz default histogram buckets in milliseconds, expanded to 60s
var buckets = []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

// InitMetrics initializes the OpenTelemetry meter provider with an OTLP HTTP exporter
func InitMetrics(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	// Environment attributes (OTEL_RESOURCE_ATTRIBUTES etc.) first, explicit ones win
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	if name, ok := res.Set().Value(semconv.ServiceNameKey); !ok || name.AsString() == "" {
		return nil, nil, fmt.Errorf("service.name is not set in resource attributes")
	}

	// WithEndpoint expects host:port without a scheme
	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPHeaders != "" {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(10*time.Second),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	logger.Info("metrics exporter configured",
		zap.String("endpoint", cfg.OTELExporterOTLPEndpoint),
		zap.String("path", "/v1/metrics"),
		zap.Bool("insecure", cfg.OTELExporterOTLPInsecure),
		zap.String("service", cfg.OTELServiceName),
		zap.Duration("interval", 10*time.Second),
	)

	appMetrics, err := NewAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return appMetrics, meterProvider, nil
}

// NewNoop returns metrics backed by a no-op meter, for tests and disabled telemetry
func NewNoop() *AppMetrics {
	m, err := NewAppMetrics(noop.NewMeterProvider().Meter("noop"), "noop")
	if err != nil {
		// the noop meter never fails to create instruments
		panic(err)
	}
	return m
}

// NewAppMetrics creates every instrument on meter
func NewAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.APIRequestsTotal, err = meter.Int64Counter(
		"api.client.request.count",
		metric.WithDescription("Total number of requests sent to the storefront API"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create api requests counter: %w", err)
	}

	if m.APIRequestDuration, err = meter.Float64Histogram(
		"api.client.request.duration",
		metric.WithDescription("Storefront API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create api duration histogram: %w", err)
	}

	if m.DBQueriesTotal, err = meter.Int64Counter(
		"db.client.queries.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create db queries counter: %w", err)
	}

	if m.DBQueryDuration, err = meter.Float64Histogram(
		"db.client.queries.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}

	if m.OrdersSubmitted, err = meter.Int64Counter(
		"orders_submitted_total",
		metric.WithDescription("Total number of orders accepted by the API"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	if m.OrdersFailed, err = meter.Int64Counter(
		"orders_failed_total",
		metric.WithDescription("Total number of order submissions that failed"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failed orders counter: %w", err)
	}

	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue of submitted orders"),
		metric.WithUnit("BRL"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	if m.CartAdditions, err = meter.Int64Counter(
		"cart_additions_total",
		metric.WithDescription("Add-to-cart actions by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart additions counter: %w", err)
	}

	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of lines in a cart"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	if m.LoginAttempts, err = meter.Int64Counter(
		"login_attempts_total",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create login attempts counter: %w", err)
	}

	if m.ActiveCartsCount, err = meter.Int64Gauge(
		"active_carts_count",
		metric.WithDescription("Number of carts with items"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active carts gauge: %w", err)
	}

	if m.ActiveSessionsCount, err = meter.Int64Gauge(
		"active_sessions_count",
		metric.WithDescription("Number of visitor sessions held by this process"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active sessions gauge: %w", err)
	}

	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordDBQuery records database query metrics including the SQL statement
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation, table, statement string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
		attribute.String("db.statement", statement),
		attribute.String("db.system", "mysql"),
		attribute.String("status", status(success)),
	}

	m.DBQueriesTotal.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(attrs)...))
	m.DBQueryDuration.Record(ctx, float64(duration), metric.WithAttributes(m.WithServiceName(attrs)...))
}

// RecordAPICall records one request to the storefront API. statusCode is 0 when
// the request never got a response.
func (m *AppMetrics) RecordAPICall(ctx context.Context, method, path string, statusCode int, start time.Time) {
	duration := time.Since(start).Milliseconds()

	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("api.path", path),
		attribute.Int("http.status_code", statusCode),
		attribute.String("status", status(statusCode >= 200 && statusCode < 300)),
	}

	m.APIRequestsTotal.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(attrs)...))
	m.APIRequestDuration.Record(ctx, float64(duration), metric.WithAttributes(m.WithServiceName(attrs)...))
}

// RecordOrder records the outcome of a checkout submission
func (m *AppMetrics) RecordOrder(ctx context.Context, paymentMethod string, lines int, total decimal.Decimal, err error) {
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("payment_method", paymentMethod),
	})
	if err != nil {
		m.OrdersFailed.Add(ctx, 1, metric.WithAttributes(attrs...))
		return
	}
	m.OrdersSubmitted.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.Int("order.lines", lines))...))
	m.RevenueTotal.Add(ctx, total.InexactFloat64(), metric.WithAttributes(attrs...))
}

// RecordCartAdd records an add-to-cart action and the resulting cart size
func (m *AppMetrics) RecordCartAdd(ctx context.Context, outcome string, cartLines int) {
	m.CartAdditions.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("outcome", outcome),
	})...))
	m.CartItemsCount.Record(ctx, int64(cartLines), metric.WithAttributes(m.WithServiceName(nil)...))
}

// RecordLogin records a login attempt
func (m *AppMetrics) RecordLogin(ctx context.Context, success bool) {
	m.LoginAttempts.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("status", status(success)),
	})...))
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
