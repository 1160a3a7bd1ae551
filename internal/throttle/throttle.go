// Package throttle decides, per entity and per frame, whether an entity's
// source data should be polled. Each entity carries an adaptive interval
// that tightens while its data keeps changing and relaxes while it is
// stable.
//
// Cold start means no poll state: an entity the controller has never seen,
// or one that was Reset or forgotten, is always due. An entity whose first
// poll found no data has poll state from then on and is throttled like any
// other.
package throttle

import (
	"io"
	"log"
	"os"

	"github.com/bsundman/nodle/internal/scene"
)

var throttleLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("NODLE_DEBUG_THROTTLE") == "1" {
		throttleLogger = log.New(os.Stdout, "[throttle] ", log.Ltime|log.Lmsgprefix)
	}
}

// Default tuning, in frames.
const (
	DefaultBaseInterval = 30
	DefaultMinInterval  = 5
	DefaultMaxInterval  = 120
	DefaultThreshold    = 4 // changes within the window that count as "busy"
	DefaultWindow       = 8 // number of recent outcomes remembered
)

// Config tunes the controller. The interval tightens when more than
// Threshold of the last Window outcomes changed and relaxes when fewer than
// Threshold/2 did, so useful settings have 2 <= Threshold < Window.
type Config struct {
	BaseInterval uint64 `yaml:"base_interval"`
	MinInterval  uint64 `yaml:"min_interval"`
	MaxInterval  uint64 `yaml:"max_interval"`
	Threshold    int    `yaml:"threshold"`
	Window       int    `yaml:"window"`
}

func DefaultConfig() Config {
	return Config{
		BaseInterval: DefaultBaseInterval,
		MinInterval:  DefaultMinInterval,
		MaxInterval:  DefaultMaxInterval,
		Threshold:    DefaultThreshold,
		Window:       DefaultWindow,
	}
}

// normalize fills zero values with defaults and clamps the base interval
// into [MinInterval, MaxInterval].
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.MinInterval == 0 {
		c.MinInterval = d.MinInterval
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.MaxInterval < c.MinInterval {
		c.MaxInterval = c.MinInterval
	}
	if c.BaseInterval == 0 {
		c.BaseInterval = d.BaseInterval
	}
	c.BaseInterval = clamp(c.BaseInterval, c.MinInterval, c.MaxInterval)
	if c.Threshold < 1 {
		c.Threshold = d.Threshold
	}
	if c.Window < 1 {
		c.Window = d.Window
	}
	return c
}

// PollState is the per-entity polling state.
type PollState struct {
	LastChecked uint64
	Interval    uint64

	// Suspect is set while the entity has cached data but its source may
	// have disappeared. Suspect entities are checked every frame.
	Suspect bool

	// recent is a ring of the last Window outcomes; changes counts the true
	// entries in it.
	recent  []bool
	next    int
	filled  int
	changes int
}

// RecentChanges returns the number of changed outcomes in the window.
func (p *PollState) RecentChanges() int { return p.changes }

func (p *PollState) push(changed bool) {
	if p.filled == len(p.recent) {
		if p.recent[p.next] {
			p.changes--
		}
	} else {
		p.filled++
	}
	p.recent[p.next] = changed
	if changed {
		p.changes++
	}
	p.next = (p.next + 1) % len(p.recent)
}

// Controller owns the poll state of every tracked entity.
type Controller struct {
	cfg    Config
	states map[scene.EntityID]*PollState
}

func New(cfg Config) *Controller {
	return &Controller{
		cfg:    cfg.normalize(),
		states: make(map[scene.EntityID]*PollState),
	}
}

func (c *Controller) Config() Config { return c.cfg }

// ShouldCheck reports whether id is due for a poll at frame. Entities
// without poll state (cold start) and suspect entities are always due.
func (c *Controller) ShouldCheck(id scene.EntityID, frame uint64) bool {
	st, ok := c.states[id]
	if !ok || st.Suspect {
		return true
	}
	if frame < st.LastChecked {
		// Frame counter went backwards; treat as due rather than stall.
		return true
	}
	return frame-st.LastChecked >= st.Interval
}

// RecordOutcome stores the result of a poll made at frame and recomputes the
// interval.
func (c *Controller) RecordOutcome(id scene.EntityID, frame uint64, changed bool) {
	st := c.state(id)
	st.LastChecked = frame
	st.push(changed)

	prev := st.Interval
	switch n := st.changes; {
	case n > c.cfg.Threshold:
		st.Interval = max(c.cfg.MinInterval, st.Interval*2/3)
	case n < c.cfg.Threshold/2:
		next := st.Interval * 4 / 3
		if next == st.Interval {
			next++
		}
		st.Interval = min(c.cfg.MaxInterval, next)
	}
	if st.Interval != prev {
		throttleLogger.Printf("entity %d: interval %d -> %d (recent changes %d)", id, prev, st.Interval, st.changes)
	}
}

// Suspect marks id as possibly disconnected. It is checked every frame until
// ConfirmAbsent or Reconnected.
func (c *Controller) Suspect(id scene.EntityID) {
	st := c.state(id)
	if !st.Suspect {
		throttleLogger.Printf("entity %d: suspected disconnect", id)
	}
	st.Suspect = true
}

// ConfirmAbsent clears the suspect flag after the source has been confirmed
// gone; the entity falls back to throttled checks from frame.
func (c *Controller) ConfirmAbsent(id scene.EntityID, frame uint64) {
	st, ok := c.states[id]
	if !ok {
		return
	}
	st.Suspect = false
	st.LastChecked = frame
}

// Reconnected clears the suspect flag when the source turned out to be
// present after all.
func (c *Controller) Reconnected(id scene.EntityID) {
	if st, ok := c.states[id]; ok {
		st.Suspect = false
	}
}

// Reset forgets id's history so its next ShouldCheck is a cold start.
func (c *Controller) Reset(id scene.EntityID) {
	delete(c.states, id)
}

// Forget is Reset under the name used by deletion paths.
func (c *Controller) Forget(id scene.EntityID) {
	delete(c.states, id)
}

// State returns a copy of id's poll state.
func (c *Controller) State(id scene.EntityID) (PollState, bool) {
	st, ok := c.states[id]
	if !ok {
		return PollState{}, false
	}
	return *st, true
}

// Len returns the number of entities with poll state.
func (c *Controller) Len() int { return len(c.states) }

func (c *Controller) state(id scene.EntityID) *PollState {
	st, ok := c.states[id]
	if !ok {
		st = &PollState{
			Interval: c.cfg.BaseInterval,
			recent:   make([]bool, c.cfg.Window),
		}
		c.states[id] = st
	}
	return st
}

func clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
