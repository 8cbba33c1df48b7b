package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/service/provider"
)

const name = "fs"

// Service writes each delivered release as a JSON document under
// baseURL/<allocationID>/<tick>.json.  Any afs-supported scheme works
// (file, mem, s3, gs, embed...).
type Service struct {
	fs      afs.Service
	baseURL string
}

// New creates a filesystem sink rooted at baseURL.
func New(fs afs.Service, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	return &Service{fs: fs, baseURL: baseURL}, nil
}

// Name returns the provider name
func (s *Service) Name() string {
	return name
}

// Deliver uploads the event document.
func (s *Service) Deliver(ctx context.Context, event *release.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal release event: %w", err)
	}
	dest := url.Join(s.baseURL, event.AllocationID, fmt.Sprintf("%06d.json", event.Tick))
	if err := s.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload release event: %w", err)
	}
	return nil
}

var _ provider.Service = (*Service)(nil)
