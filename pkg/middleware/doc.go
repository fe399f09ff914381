// Package middleware provides HTTP middleware for padsync servers.
//
// Two middlewares ship with the server and are mounted on every route:
//
//   - Metrics: Prometheus request counters and latency histograms
//   - OpenTelemetry: one span per HTTP request
//
// Both follow the functional-options pattern and default to the global
// registries/providers, so a bare Metrics() / OpenTelemetry() call does the
// right thing in a standalone binary while tests inject their own.
package middleware
