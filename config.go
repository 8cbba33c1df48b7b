package pencall

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/pencall/pencall/policy"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON, YAML, environment driven tooling, etc. The
// zero-value is useful; all nested fields inherit their package defaults.
type Config struct {
	Policy   policy.Config  `json:"policy" yaml:"policy"`
	Provider ProviderConfig `json:"provider" yaml:"provider"`
}

// ProviderConfig selects the delivery sink by its registered name.
type ProviderConfig struct {
	Vendor string `json:"vendor" yaml:"vendor"`
}

// DefaultConfig returns a Config populated with the engine defaults: no
// caps (everything unlimited) and the console sink.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{Vendor: "console"},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Policy.MaxConcurrentAllocations < 0 {
		return fmt.Errorf("policy.maxConcurrentAllocations must be >= 0")
	}
	if c.Provider.Vendor == "" {
		return fmt.Errorf("provider.vendor cannot be empty")
	}
	return nil
}

// LoadConfig reads a YAML config document from any afs-supported URL
// (file, mem, s3, gs, embed...).
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
