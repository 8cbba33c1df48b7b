package pencall

import (
	"github.com/viant/x"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pencall/pencall/internal/clock"
	"github.com/pencall/pencall/model/allocation"
	"github.com/pencall/pencall/policy"
	"github.com/pencall/pencall/service/dao"
	"github.com/pencall/pencall/service/event"
	"github.com/pencall/pencall/service/provider"
	"github.com/pencall/pencall/service/scheduler"
	"github.com/pencall/pencall/tracing"
)

// Option customises engine construction.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithPolicy sets the runtime policy, including hook callbacks that cannot
// be expressed in the serialisable Config.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithProvider sets the delivery provider, bypassing vendor lookup.
func WithProvider(p provider.Service) Option {
	return func(s *Service) { s.provider = p }
}

// WithAllocationDAO sets the allocation storage.
func WithAllocationDAO(store dao.Service[string, allocation.Allocation]) Option {
	return func(s *Service) { s.allocationDAO = store }
}

// WithEventService routes finalized release events onto the supplied bus.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.eventService = service }
}

// WithClock sets the engine time source; use clock.NewSimulated for
// deterministic runs.
func WithClock(clk clock.Service) Option {
	return func(s *Service) { s.clock = clk }
}

// WithExtensionTypes seeds the provider registry's type registry.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) { s.extensionTypes = types }
}

// WithSchedulerOptions lets the caller supply additional options passed to
// scheduler.New.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(s *Service) { s.schedulerOptions = append(s.schedulerOptions, opts...) }
}

// WithTracing configures OpenTelemetry tracing for the engine. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path.  The function is safe to call multiple times – the
// first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, enabling integrations with exporters other than the
// built-in stdout one, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
