// Package config loads the nodleview YAML configuration.
package config

import (
	"os"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/bsundman/nodle/internal/gpu"
	"github.com/bsundman/nodle/internal/instance"
	"github.com/bsundman/nodle/internal/intern"
	"github.com/bsundman/nodle/internal/paginate"
	"github.com/bsundman/nodle/internal/throttle"
)

var ErrInvalid = zerr.New("invalid config")

type Interner struct {
	Capacity int `yaml:"capacity"`
}

// Config is the top-level configuration file.
type Config struct {
	Throttle   throttle.Config  `yaml:"throttle"`
	Pagination paginate.Planner `yaml:"pagination"`
	Interner   Interner         `yaml:"interner"`
	Stream     instance.Config  `yaml:"stream"`
	Renderer   gpu.BufferConfig `yaml:"renderer"`
}

func Default() Config {
	return Config{
		Throttle:   throttle.DefaultConfig(),
		Pagination: paginate.DefaultPlanner(),
		Interner:   Interner{Capacity: intern.DefaultCapacity},
		Renderer:   gpu.DefaultBufferConfig(),
	}
}

// Load reads a configuration file. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return Config{}, zerr.Wrap(err, "failed to read config file")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, zerr.With(err, "path", path)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, zerr.Wrap(err, "failed to parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func invalid(key string, value any) error {
	return zerr.With(zerr.Wrap(ErrInvalid, key), "value", value)
}

// Validate rejects settings the components would otherwise silently clamp.
func (c Config) Validate() error {
	t := c.Throttle
	switch {
	case t.MinInterval < 1:
		return invalid("throttle.min_interval", t.MinInterval)
	case t.MaxInterval < t.MinInterval:
		return invalid("throttle.max_interval", t.MaxInterval)
	case t.BaseInterval < t.MinInterval || t.BaseInterval > t.MaxInterval:
		return invalid("throttle.base_interval", t.BaseInterval)
	case t.Window < 1:
		return invalid("throttle.window", t.Window)
	case t.Threshold < 2:
		// Below 2 the relax bound Threshold/2 is zero: intervals never grow.
		return invalid("throttle.threshold", t.Threshold)
	case t.Threshold >= t.Window:
		// The window cannot hold more than Threshold changes: intervals
		// never shrink.
		return invalid("throttle.threshold", t.Threshold)
	}

	p := c.Pagination
	switch {
	case p.Budget <= 0:
		return invalid("pagination.budget", p.Budget)
	case p.MinItems < 1:
		return invalid("pagination.min_items", p.MinItems)
	case p.MaxItems < p.MinItems:
		return invalid("pagination.max_items", p.MaxItems)
	}

	if c.Interner.Capacity < 1 {
		return invalid("interner.capacity", c.Interner.Capacity)
	}

	s := c.Stream
	for _, r := range []struct {
		key string
		v   float32
	}{
		{"stream.port_radius", s.PortRadius},
		{"stream.flag_radius", s.FlagRadius},
		{"stream.button_radius", s.ButtonRadius},
		{"stream.corner_radius", s.CornerRadius},
	} {
		if r.v < 0 {
			return invalid(r.key, r.v)
		}
	}

	r := c.Renderer
	switch {
	case r.InitialInstances < 1:
		return invalid("renderer.initial_instances", r.InitialInstances)
	case r.MaxInstances < r.InitialInstances:
		return invalid("renderer.max_instances", r.MaxInstances)
	}
	return nil
}
