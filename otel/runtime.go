// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel wires the OpenTelemetry SDK around a listener runtime.
//
// [Build] installs the configured providers globally before the listener is
// built, so instruments and loggers created by the listener are backed by the
// real SDK, and shuts them down once the listener returns.
package otel

import (
	"context"
	"errors"

	"github.com/z5labs/sqslistener/app"
	"github.com/z5labs/sqslistener/config"

	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SDK holds the readers for every globally registered OpenTelemetry component.
// Unset readers fall back to W3C propagation and no-op providers.
type SDK struct {
	TextMapPropagator config.Reader[propagation.TextMapPropagator]
	TracerProvider    config.Reader[trace.TracerProvider]
	MeterProvider     config.Reader[metric.MeterProvider]
	LoggerProvider    config.Reader[log.LoggerProvider]
}

// Runtime runs an inner [app.Runtime] and flushes the telemetry providers
// after it returns.
type Runtime struct {
	inner          app.Runtime
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	loggerProvider log.LoggerProvider
}

// Build registers the providers described by sdk and then builds the inner runtime.
func Build[T app.Runtime](sdk SDK, builder app.Builder[T]) app.Builder[Runtime] {
	return app.BuilderFunc[Runtime](func(ctx context.Context) (Runtime, error) {
		var (
			defaultPropagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
				propagation.Baggage{},
				propagation.TraceContext{},
			)
			defaultTracerProvider trace.TracerProvider = tracenoop.NewTracerProvider()
			defaultMeterProvider  metric.MeterProvider = metricnoop.NewMeterProvider()
			defaultLoggerProvider log.LoggerProvider   = lognoop.NewLoggerProvider()
		)

		tmp := config.MustOr(ctx, defaultPropagator, sdk.TextMapPropagator)
		tp := config.MustOr(ctx, defaultTracerProvider, sdk.TracerProvider)
		mp := config.MustOr(ctx, defaultMeterProvider, sdk.MeterProvider)
		lp := config.MustOr(ctx, defaultLoggerProvider, sdk.LoggerProvider)

		otel.SetTextMapPropagator(tmp)
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		global.SetLoggerProvider(lp)

		inner, err := builder.Build(ctx)
		if err != nil {
			return Runtime{}, errors.Join(err, shutdown(tp, mp, lp).Close())
		}

		return Runtime{
			inner:          inner,
			tracerProvider: tp,
			meterProvider:  mp,
			loggerProvider: lp,
		}, nil
	})
}

// Run implements the [app.Runtime] interface. Providers are shut down even
// when the inner runtime fails and any shutdown errors are joined to its error.
func (rt Runtime) Run(ctx context.Context) (err error) {
	defer try.Close(&err, shutdown(rt.tracerProvider, rt.meterProvider, rt.loggerProvider))

	return rt.inner.Run(ctx)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

type shutdowner interface {
	Shutdown(context.Context) error
}

// shutdown uses a fresh context since the runtime context is usually
// already cancelled by the time providers need flushing.
func shutdown(providers ...any) closerFunc {
	return func() error {
		var errs error
		for _, p := range providers {
			s, ok := p.(shutdowner)
			if !ok {
				continue
			}
			errs = errors.Join(errs, s.Shutdown(context.Background()))
		}
		return errs
	}
}
