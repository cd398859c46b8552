package infra

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/auroramedia/gramflow/config"
)

// LoggerClient wraps a slog.Logger whose records are shipped to the Grafana
// OTLP endpoint, together with the metric/trace providers that share its
// resource. In development mode (or with no endpoint configured) it degrades
// to a plain stdout handler.
type LoggerClient struct {
	Logger    *slog.Logger
	shutdowns []func(context.Context) error
}

func InitLoggerClient(cfg *config.EnvConfig) *LoggerClient {
	if cfg.Grafana.OTLPEndpoint == "" || cfg.Environment.Mode == "development" {
		return NewStdoutLogger()
	}

	ctx := context.Background()
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.Grafana.ServiceName),
		attribute.String("deployment.environment", cfg.Environment.Mode),
	)

	client := &LoggerClient{}

	logExporter, err := otlploghttp.New(ctx, otlploghttp.WithEndpoint(cfg.Grafana.OTLPEndpoint))
	if err != nil {
		log.Printf("Warning: OTLP log exporter init failed, falling back to stdout: %v", err)
		return NewStdoutLogger()
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)
	client.shutdowns = append(client.shutdowns, loggerProvider.Shutdown)
	client.Logger = otelslog.NewLogger(cfg.Grafana.ServiceName, otelslog.WithLoggerProvider(loggerProvider))

	metricExporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Grafana.OTLPEndpoint))
	if err != nil {
		log.Printf("Warning: OTLP metric exporter init failed: %v", err)
	} else {
		meterProvider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(meterProvider)
		client.shutdowns = append(client.shutdowns, meterProvider.Shutdown)
		if err := otelruntime.Start(otelruntime.WithMinimumReadMemStatsInterval(10 * time.Second)); err != nil {
			log.Printf("Warning: runtime instrumentation failed: %v", err)
		}
	}

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(otlptracehttp.WithEndpoint(cfg.Grafana.OTLPEndpoint)))
	if err != nil {
		log.Printf("Warning: OTLP trace exporter init failed: %v", err)
	} else {
		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
		client.shutdowns = append(client.shutdowns, tracerProvider.Shutdown)
	}

	return client
}

// NewStdoutLogger is the development and test binding.
func NewStdoutLogger() *LoggerClient {
	return &LoggerClient{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, nil)),
	}
}

func (l *LoggerClient) InfoWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.Logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) WarningWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.Logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{}) {
	if err != nil {
		l.Logger.ErrorContext(ctx, fmt.Sprintf(format, args...), slog.Any("error", err))
		return
	}
	l.Logger.ErrorContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) Shutdown(ctx context.Context) {
	for _, fn := range l.shutdowns {
		if err := fn(ctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}
}
