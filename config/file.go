package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/resilience"
	"gopkg.in/yaml.v3"
)

// File is the YAML configuration file.
type File struct {
	// Environment prefixes every cache key. Usually the site's base URL.
	Environment string `yaml:"environment"`

	Cache struct {
		Groups []cache.GroupConfig `yaml:"groups"`
	} `yaml:"cache"`

	Circuits []resilience.CircuitDefinition `yaml:"circuits"`

	Maintenance Maintenance `yaml:"maintenance"`
}

// Maintenance configures the breaker kill-switch.
type Maintenance struct {
	Enabled  bool     `yaml:"enabled"`
	Prefixes []string `yaml:"prefixes"`
}

// Load reads, expands and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Parse(data, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return f, nil
}

// Parse expands data with lookup, decodes it and validates the result.
// Unknown fields are rejected.
func Parse(data []byte, lookup func(string) (string, bool)) (*File, error) {
	expanded, err := ExpandWith(string(data), lookup)
	if err != nil {
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that the key groups and circuit definitions build.
func (f *File) Validate() error {
	if _, err := f.Keys(); err != nil {
		return fmt.Errorf("%w: cache.groups: %w", ErrInvalid, err)
	}
	if _, err := f.Definitions(); err != nil {
		return fmt.Errorf("%w: circuits: %w", ErrInvalid, err)
	}
	return nil
}

// Keys builds the cache key registry.
func (f *File) Keys() (*cache.Registry, error) {
	return cache.NewRegistry(f.Cache.Groups)
}

// Definitions indexes the circuit definitions.
func (f *File) Definitions() (resilience.Definitions, error) {
	return resilience.NewDefinitions(f.Circuits)
}
