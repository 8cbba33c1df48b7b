package console

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/service/provider"
)

const name = "console"

// Service prints every delivered release to a writer, one line per event.
type Service struct {
	writer io.Writer
}

// New creates a console sink writing to stdout.
func New() *Service {
	return &Service{writer: os.Stdout}
}

// NewWithWriter creates a console sink writing to the supplied writer.
func NewWithWriter(w io.Writer) *Service {
	return &Service{writer: w}
}

// Name returns the provider name
func (s *Service) Name() string {
	return name
}

// Deliver writes a single formatted line describing the release.
func (s *Service) Deliver(_ context.Context, event *release.Event) error {
	_, err := fmt.Fprintf(s.writer, "release allocation=%s tick=%d units=%d delivered=%d\n",
		event.AllocationID, event.Tick, event.Units, event.DeliveredUnits)
	return err
}

var _ provider.Service = (*Service)(nil)
