// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/z5labs/sqslistener"
	"github.com/z5labs/sqslistener/app"
	"github.com/z5labs/sqslistener/health"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	LivenessPath  = "/health/liveness"
	ReadinessPath = "/health/readiness"
)

// HealthStatus is the JSON body returned by the probe endpoints.
type HealthStatus struct {
	Healthy   bool     `json:"healthy"`
	Unhealthy []string `json:"unhealthy,omitempty"`
}

type unhealthyLister interface {
	Unhealthy(context.Context) []string
}

// HealthHandler serves GET [LivenessPath] and GET [ReadinessPath].
// Each answers 200 while its monitor is healthy and 503 otherwise.
// A readiness monitor which is a [health.Group] also lists its
// unhealthy members.
func HealthHandler(liveness, readiness health.Monitor) http.Handler {
	log := sqslistener.Logger("github.com/z5labs/sqslistener/http")

	m := chi.NewMux()
	m.Method(http.MethodGet, LivenessPath, otelhttp.WithRouteTag(LivenessPath, probe(log, liveness)))
	m.Method(http.MethodGet, ReadinessPath, otelhttp.WithRouteTag(ReadinessPath, probe(log, readiness)))

	return otelhttp.NewHandler(m, "health")
}

// BuildHealth serves [HealthHandler] on srv.
func BuildHealth(srv Server, liveness, readiness health.Monitor) app.Builder[App] {
	return Build(srv, app.BuilderFunc[http.Handler](func(ctx context.Context) (http.Handler, error) {
		return HealthHandler(liveness, readiness), nil
	}))
}

func probe(log *slog.Logger, m health.Monitor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var status HealthStatus
		if m == nil {
			status.Healthy = true
		} else {
			healthy, err := m.Healthy(ctx)
			if err != nil {
				log.WarnContext(ctx, "health check failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			status.Healthy = healthy && err == nil
			if l, ok := m.(unhealthyLister); ok {
				status.Unhealthy = l.Unhealthy(ctx)
			}
		}

		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)

		err := json.NewEncoder(w).Encode(status)
		if err != nil {
			log.ErrorContext(ctx, "failed to write health status", slog.Any("error", err))
		}
	})
}
