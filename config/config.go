package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bsky.watch/utils/didset"
)

// Config is the optional run config. Command line flags take precedence
// over values set here.
type Config struct {
	Output string      `json:"output" yaml:"output"`
	Limit  int64       `json:"limit" yaml:"limit"`
	Skip   []SkipEntry `json:"skip" yaml:"skip"`
}

// SkipEntry names accounts that are exempt from the bulk action.
// Only one of the fields is expected to be set at a time.
type SkipEntry struct {
	DID  *string `json:"did" yaml:"did"`
	File *string `json:"file" yaml:"file"`
}

func (e *SkipEntry) AsSet() didset.DIDSet {
	switch {
	case e.DID != nil:
		return didset.Const(*e.DID)
	case e.File != nil:
		return didset.FromFile(*e.File)
	}
	return nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SkipSet resolves all skip entries into a single set of DIDs.
func (c *Config) SkipSet(ctx context.Context) (didset.StringSet, error) {
	if c == nil || len(c.Skip) == 0 {
		return nil, nil
	}
	sets := []didset.DIDSet{}
	for i, e := range c.Skip {
		set := e.AsSet()
		if set == nil {
			return nil, fmt.Errorf("skip entry %d: expected either did or file to be set", i)
		}
		sets = append(sets, set)
	}
	return didset.Union(sets...).GetDIDs(ctx)
}
