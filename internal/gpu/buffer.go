package gpu

import "go.trai.ch/zerr"

// Instance buffer growth. Buffers start at InitialInstances and double
// until they fit the frame, capped at MaxInstances. A frame larger than the
// cap is truncated to it.
const (
	DefaultInitialInstances = 1024
	DefaultMaxInstances     = 1 << 20
)

var ErrCapacityExceeded = zerr.New("instance count exceeds buffer limit")

// BufferConfig bounds instance buffer sizes.
type BufferConfig struct {
	InitialInstances int `yaml:"initial_instances"`
	MaxInstances     int `yaml:"max_instances"`
}

func DefaultBufferConfig() BufferConfig {
	return BufferConfig{InitialInstances: DefaultInitialInstances, MaxInstances: DefaultMaxInstances}
}

func (c BufferConfig) normalize() BufferConfig {
	if c.InitialInstances < 1 {
		c.InitialInstances = DefaultInitialInstances
	}
	if c.MaxInstances < c.InitialInstances {
		c.MaxInstances = max(c.InitialInstances, DefaultMaxInstances)
	}
	return c
}

// Capacity tracks the size of one instance buffer.
type Capacity struct {
	cfg     BufferConfig
	current int // 0 until the buffer is first allocated
	grows   int
}

func NewCapacity(cfg BufferConfig) Capacity {
	return Capacity{cfg: cfg.normalize()}
}

// Current returns the allocated capacity in instances.
func (c *Capacity) Current() int { return c.current }

// Grows returns how many times the buffer was reallocated to grow.
func (c *Capacity) Grows() int { return c.grows }

// Fit returns the capacity needed to hold n instances and whether that
// requires a (re)allocation. When n is above the cap it returns the cap and
// ErrCapacityExceeded; the caller uploads only the first cap instances.
func (c *Capacity) Fit(n int) (capacity int, realloc bool, err error) {
	if n <= c.current {
		return c.current, false, nil
	}
	next := c.current
	if next == 0 {
		next = c.cfg.InitialInstances
	}
	for next < n && next < c.cfg.MaxInstances {
		next *= 2
	}
	next = min(next, c.cfg.MaxInstances)
	if n > next {
		err = zerr.With(zerr.With(zerr.Wrap(ErrCapacityExceeded, "instance buffer"), "instances", n), "limit", next)
	}
	if next == c.current {
		return next, false, err
	}
	if c.current != 0 {
		c.grows++
	}
	c.current = next
	return next, true, err
}
