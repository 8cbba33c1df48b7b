package queue

import (
	"context"

	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/service/messaging"
	"github.com/pencall/pencall/service/provider"
)

const name = "queue"

// Service publishes every delivered release onto a messaging queue so that
// downstream consumers can drain them at their own pace.
type Service struct {
	queue messaging.Queue[release.Event]
}

// New creates a queue sink backed by the supplied queue.
func New(queue messaging.Queue[release.Event]) *Service {
	return &Service{queue: queue}
}

// Name returns the provider name
func (s *Service) Name() string {
	return name
}

// Deliver publishes the event; a publish failure is a delivery failure.
func (s *Service) Deliver(ctx context.Context, event *release.Event) error {
	return s.queue.Publish(ctx, event)
}

var _ provider.Service = (*Service)(nil)
