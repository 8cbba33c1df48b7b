// Package tracing wraps OpenTelemetry span management behind a minimal
// helper API used by the scheduler to instrument tick passes and provider
// deliveries.
package tracing
