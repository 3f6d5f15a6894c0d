// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otlp provides OTLP exporters for traces, metrics and logs.
//
// Each exporter is a config.Reader which selects its transport from
// OTEL_EXPORTER_OTLP_<SIGNAL>_PROTOCOL, falling back to
// OTEL_EXPORTER_OTLP_PROTOCOL, and its endpoint from
// OTEL_EXPORTER_OTLP_<SIGNAL>_ENDPOINT, falling back to
// OTEL_EXPORTER_OTLP_ENDPOINT. The gRPC transport is used by default.
package otlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/z5labs/sqslistener/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Protocol is an OTLP transport.
type Protocol string

const (
	ProtocolGrpc         Protocol = "grpc"
	ProtocolHttpProtobuf Protocol = "http/protobuf"
)

// UnsupportedProtocolError is returned when an exporter is configured
// with a transport other than gRPC or HTTP/protobuf.
type UnsupportedProtocolError struct {
	Protocol Protocol
}

func (e UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("otlp: unsupported protocol: %q", e.Protocol)
}

// Signal identifies a telemetry signal.
type Signal string

const (
	Traces  Signal = "TRACES"
	Metrics Signal = "METRICS"
	Logs    Signal = "LOGS"
)

// ProtocolFromEnv reads the transport for the given signal.
func ProtocolFromEnv(signal Signal) config.Reader[Protocol] {
	return config.Map(
		config.Or(
			config.Env("OTEL_EXPORTER_OTLP_"+string(signal)+"_PROTOCOL"),
			config.Env("OTEL_EXPORTER_OTLP_PROTOCOL"),
		),
		func(ctx context.Context, s string) (Protocol, error) {
			return Protocol(strings.ToLower(strings.TrimSpace(s))), nil
		},
	)
}

// EndpointFromEnv reads the collector endpoint for the given signal.
func EndpointFromEnv(signal Signal) config.Reader[string] {
	return config.Or(
		config.Env("OTEL_EXPORTER_OTLP_"+string(signal)+"_ENDPOINT"),
		config.Env("OTEL_EXPORTER_OTLP_ENDPOINT"),
	)
}

// EnabledFromEnv reports whether an endpoint has been configured for the signal.
func EnabledFromEnv(signal Signal) config.Reader[bool] {
	return config.Default(false, config.Map(
		EndpointFromEnv(signal),
		func(ctx context.Context, endpoint string) (bool, error) {
			return endpoint != "", nil
		},
	))
}

// Exporter holds the settings shared by every signal's exporter.
type Exporter struct {
	Protocol config.Reader[Protocol]
	Endpoint config.Reader[string]
}

func exporterFromEnv(signal Signal, overrides []func(*Exporter)) Exporter {
	exp := Exporter{
		Protocol: ProtocolFromEnv(signal),
		Endpoint: EndpointFromEnv(signal),
	}
	for _, o := range overrides {
		o(&exp)
	}
	return exp
}

func (cfg Exporter) read(ctx context.Context) (Protocol, string, error) {
	protocol := config.MustOr(ctx, ProtocolGrpc, cfg.Protocol)
	endpoint, err := config.Read(ctx, cfg.Endpoint)
	if err != nil {
		return "", "", fmt.Errorf("otlp: endpoint: %w", err)
	}
	switch protocol {
	case ProtocolGrpc, ProtocolHttpProtobuf:
		return protocol, endpoint, nil
	default:
		return "", "", UnsupportedProtocolError{Protocol: protocol}
	}
}

func dial(target string) (*grpc.ClientConn, error) {
	return grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// SpanExporter is a [config.Reader] for a trace exporter.
type SpanExporter Exporter

// SpanExporterFromEnv configures a [SpanExporter] from OTEL_EXPORTER_OTLP_* variables.
func SpanExporterFromEnv(overrides ...func(*Exporter)) SpanExporter {
	return SpanExporter(exporterFromEnv(Traces, overrides))
}

// Read implements the [config.Reader] interface.
func (cfg SpanExporter) Read(ctx context.Context) (config.Value[sdktrace.SpanExporter], error) {
	protocol, endpoint, err := Exporter(cfg).read(ctx)
	if err != nil {
		return config.Value[sdktrace.SpanExporter]{}, err
	}

	var exp sdktrace.SpanExporter
	switch protocol {
	case ProtocolGrpc:
		var conn *grpc.ClientConn
		conn, err = dial(endpoint)
		if err != nil {
			return config.Value[sdktrace.SpanExporter]{}, err
		}
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	case ProtocolHttpProtobuf:
		exp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	}
	if err != nil {
		return config.Value[sdktrace.SpanExporter]{}, err
	}
	return config.ValueOf(exp), nil
}

// MetricExporter is a [config.Reader] for a metric exporter.
type MetricExporter Exporter

// MetricExporterFromEnv configures a [MetricExporter] from OTEL_EXPORTER_OTLP_* variables.
func MetricExporterFromEnv(overrides ...func(*Exporter)) MetricExporter {
	return MetricExporter(exporterFromEnv(Metrics, overrides))
}

// Read implements the [config.Reader] interface.
func (cfg MetricExporter) Read(ctx context.Context) (config.Value[sdkmetric.Exporter], error) {
	protocol, endpoint, err := Exporter(cfg).read(ctx)
	if err != nil {
		return config.Value[sdkmetric.Exporter]{}, err
	}

	var exp sdkmetric.Exporter
	switch protocol {
	case ProtocolGrpc:
		var conn *grpc.ClientConn
		conn, err = dial(endpoint)
		if err != nil {
			return config.Value[sdkmetric.Exporter]{}, err
		}
		exp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	case ProtocolHttpProtobuf:
		exp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint))
	}
	if err != nil {
		return config.Value[sdkmetric.Exporter]{}, err
	}
	return config.ValueOf(exp), nil
}

// LogExporter is a [config.Reader] for a log exporter.
type LogExporter Exporter

// LogExporterFromEnv configures a [LogExporter] from OTEL_EXPORTER_OTLP_* variables.
func LogExporterFromEnv(overrides ...func(*Exporter)) LogExporter {
	return LogExporter(exporterFromEnv(Logs, overrides))
}

// Read implements the [config.Reader] interface.
func (cfg LogExporter) Read(ctx context.Context) (config.Value[sdklog.Exporter], error) {
	protocol, endpoint, err := Exporter(cfg).read(ctx)
	if err != nil {
		return config.Value[sdklog.Exporter]{}, err
	}

	var exp sdklog.Exporter
	switch protocol {
	case ProtocolGrpc:
		var conn *grpc.ClientConn
		conn, err = dial(endpoint)
		if err != nil {
			return config.Value[sdklog.Exporter]{}, err
		}
		exp, err = otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
	case ProtocolHttpProtobuf:
		exp, err = otlploghttp.New(ctx, otlploghttp.WithEndpoint(endpoint))
	}
	if err != nil {
		return config.Value[sdklog.Exporter]{}, err
	}
	return config.ValueOf(exp), nil
}
