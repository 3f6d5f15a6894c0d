// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"time"

	"github.com/z5labs/sqslistener/config"
	"github.com/z5labs/sqslistener/otel/otlp"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.38.0"
	"go.opentelemetry.io/otel/trace"
)

// Resource describes the service producing telemetry.
type Resource struct {
	ServiceName    config.Reader[string]
	ServiceVersion config.Reader[string]
}

// ResourceFromEnv reads OTEL_SERVICE_NAME and OTEL_SERVICE_VERSION.
func ResourceFromEnv() Resource {
	return Resource{
		ServiceName:    config.Env("OTEL_SERVICE_NAME"),
		ServiceVersion: config.Env("OTEL_SERVICE_VERSION"),
	}
}

// Read implements the [config.Reader] interface.
func (cfg Resource) Read(ctx context.Context) (config.Value[*resource.Resource], error) {
	name := config.MustOr(ctx, "sqs-listener", cfg.ServiceName)
	version := config.MustOr(ctx, "", cfg.ServiceVersion)

	rsc, err := resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return config.Value[*resource.Resource]{}, err
	}
	return config.ValueOf(rsc), nil
}

// TracerProvider batches spans to an exporter, sampling by trace id ratio.
type TracerProvider struct {
	Resource     config.Reader[*resource.Resource]
	Exporter     config.Reader[sdktrace.SpanExporter]
	SampleRatio  config.Reader[float64]
	BatchTimeout config.Reader[time.Duration]
}

// Read implements the [config.Reader] interface.
func (cfg TracerProvider) Read(ctx context.Context) (config.Value[trace.TracerProvider], error) {
	rsc := config.Must(ctx, cfg.Resource)
	exp := config.Must(ctx, cfg.Exporter)
	ratio := config.MustOr(ctx, 1.0, cfg.SampleRatio)
	timeout := config.MustOr(ctx, 5*time.Second, cfg.BatchTimeout)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(rsc),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(timeout)),
	)
	return config.ValueOf[trace.TracerProvider](tp), nil
}

// MeterProvider periodically exports metrics and, optionally, Go runtime metrics.
type MeterProvider struct {
	Resource       config.Reader[*resource.Resource]
	Exporter       config.Reader[sdkmetric.Exporter]
	ExportInterval config.Reader[time.Duration]
	RuntimeMetrics config.Reader[bool]
}

// Read implements the [config.Reader] interface.
func (cfg MeterProvider) Read(ctx context.Context) (config.Value[metric.MeterProvider], error) {
	rsc := config.Must(ctx, cfg.Resource)
	exp := config.Must(ctx, cfg.Exporter)
	interval := config.MustOr(ctx, 10*time.Second, cfg.ExportInterval)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(rsc),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)

	if config.MustOr(ctx, true, cfg.RuntimeMetrics) {
		err := runtime.Start(runtime.WithMeterProvider(mp))
		if err != nil {
			return config.Value[metric.MeterProvider]{}, err
		}
	}
	return config.ValueOf[metric.MeterProvider](mp), nil
}

// LoggerProvider batches log records to an exporter. Levels optionally
// maps logger name prefixes to the minimum level exported for them.
type LoggerProvider struct {
	Resource       config.Reader[*resource.Resource]
	Exporter       config.Reader[sdklog.Exporter]
	ExportInterval config.Reader[time.Duration]
	Levels         config.Reader[map[string]string]
}

// Read implements the [config.Reader] interface.
func (cfg LoggerProvider) Read(ctx context.Context) (config.Value[log.LoggerProvider], error) {
	rsc := config.Must(ctx, cfg.Resource)
	exp := config.Must(ctx, cfg.Exporter)
	interval := config.MustOr(ctx, time.Second, cfg.ExportInterval)
	levels := config.MustOr[map[string]string](ctx, nil, cfg.Levels)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(rsc),
		sdklog.WithProcessor(filterLevels(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportInterval(interval)),
			levels,
		)),
	)
	return config.ValueOf[log.LoggerProvider](lp), nil
}

// SDKFromEnv configures an OTLP backed [SDK] for every signal with an
// endpoint configured in the environment. Signals without one stay no-op.
func SDKFromEnv() SDK {
	rsc := ResourceFromEnv()

	sdk := SDK{}
	sdk.TracerProvider = enabled[trace.TracerProvider](otlp.Traces, TracerProvider{
		Resource:     rsc,
		Exporter:     otlp.SpanExporterFromEnv(),
		SampleRatio:  config.Float64FromString(config.Env("OTEL_TRACES_SAMPLER_RATIO")),
		BatchTimeout: config.DurationFromString(config.Env("OTEL_BSP_EXPORT_INTERVAL")),
	})
	sdk.MeterProvider = enabled[metric.MeterProvider](otlp.Metrics, MeterProvider{
		Resource:       rsc,
		Exporter:       otlp.MetricExporterFromEnv(),
		ExportInterval: config.DurationFromString(config.Env("OTEL_METRIC_EXPORT_INTERVAL")),
		RuntimeMetrics: config.BoolFromString(config.Env("OTEL_GO_RUNTIME_METRICS")),
	})
	sdk.LoggerProvider = enabled[log.LoggerProvider](otlp.Logs, LoggerProvider{
		Resource:       rsc,
		Exporter:       otlp.LogExporterFromEnv(),
		ExportInterval: config.DurationFromString(config.Env("OTEL_BLP_EXPORT_INTERVAL")),
		Levels:         LogLevelsFromEnv(),
	})
	return sdk
}

func enabled[T any](signal otlp.Signal, r config.Reader[T]) config.Reader[T] {
	return config.ReaderFunc[T](func(ctx context.Context) (config.Value[T], error) {
		on, err := config.Read(ctx, otlp.EnabledFromEnv(signal))
		if err != nil || !on {
			return config.Value[T]{}, err
		}
		return r.Read(ctx)
	})
}
