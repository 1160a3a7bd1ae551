// Package gpu hands instance arrays to a draw backend. RendererContext owns
// the backend behind one lock; the backend itself is created lazily by the
// first Prepare, since the graphics context may not exist until then.
//
// Critical section: the lock is held only to create the backend, to copy
// the instance arrays into backend buffers (Prepare), and to issue the
// draws (Paint). Nothing else runs under it. Both phases use TryLock, so a
// contended frame is skipped rather than blocked on.
package gpu

import (
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/zerr"

	"github.com/bsundman/nodle/internal/instance"
)

var gpuLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("NODLE_DEBUG_GPU") == "1" {
		gpuLogger = log.New(os.Stdout, "[gpu] ", log.Ltime|log.Lmsgprefix)
	}
}

var ErrBackendUnavailable = zerr.New("renderer backend unavailable")

// Counts is the number of instances of each kind to draw.
type Counts struct {
	Nodes   int
	Ports   int
	Buttons int
	Flags   int
}

// Backend copies instance arrays into GPU-visible buffers and issues the
// instanced draws. Implementations are only called with the context lock
// held.
type Backend interface {
	UploadUniforms(u instance.Uniforms) error
	UploadNodes(nodes []instance.NodeInstance) error
	UploadPorts(ports []instance.PortInstance) error
	UploadButtons(buttons []instance.ButtonInstance) error
	UploadFlags(flags []instance.FlagInstance) error
	Draw(c Counts) error
	Release()
}

// GrowthReporter is implemented by backends that resize their instance
// buffers.
type GrowthReporter interface {
	Grows() int
}

// Factory creates the backend on first use.
type Factory func() (Backend, error)

// Stats counts renderer activity.
type Stats struct {
	Prepared      uint64
	Painted       uint64
	Skipped       uint64 // frames skipped for a missing or failing backend
	Contended     uint64 // phases skipped because the lock was taken
	InitFailures  uint64
	UploadErrors  uint64
	BufferGrows   int
	LastPrepareUs float64
	LastDrawUs    float64
}

// RendererContext is constructed once and shared by the prepare and paint
// phases.
type RendererContext struct {
	mu      sync.Mutex
	factory Factory
	backend Backend
	counts  Counts
	stats   Stats

	contended atomic.Uint64
}

func NewRendererContext(factory Factory) *RendererContext {
	return &RendererContext{factory: factory}
}

// Prepare copies a frame into the backend, creating it on first use. It
// returns false if the frame was skipped.
func (rc *RendererContext) Prepare(f instance.Frame, u instance.Uniforms) bool {
	if !rc.mu.TryLock() {
		rc.skip("prepare: renderer busy")
		return false
	}
	defer rc.mu.Unlock()

	if rc.backend == nil {
		b, err := rc.create()
		if err != nil {
			rc.stats.InitFailures++
			rc.stats.Skipped++
			log.Printf("WARNING: renderer init failed, skipping frame: %v", err)
			return false
		}
		rc.backend = b
		gpuLogger.Printf("backend created")
	}

	start := time.Now()
	for _, err := range []error{
		rc.backend.UploadUniforms(u),
		rc.backend.UploadNodes(f.Nodes),
		rc.backend.UploadPorts(f.Ports),
		rc.backend.UploadButtons(f.Buttons),
		rc.backend.UploadFlags(f.Flags),
	} {
		if err != nil {
			rc.stats.UploadErrors++
			log.Printf("WARNING: instance upload failed: %v", err)
		}
	}
	rc.counts = Counts{
		Nodes:   len(f.Nodes),
		Ports:   len(f.Ports),
		Buttons: len(f.Buttons),
		Flags:   len(f.Flags),
	}
	rc.stats.Prepared++
	rc.stats.LastPrepareUs = float64(time.Since(start).Nanoseconds()) / 1000.0
	return true
}

func (rc *RendererContext) create() (Backend, error) {
	if rc.factory == nil {
		return nil, ErrBackendUnavailable
	}
	b, err := rc.factory()
	if err != nil {
		return nil, zerr.Wrap(err, ErrBackendUnavailable.Error())
	}
	if b == nil {
		return nil, ErrBackendUnavailable
	}
	return b, nil
}

// Paint draws the last prepared frame. It is a no-op returning false when
// the backend does not exist yet or the lock is contended.
func (rc *RendererContext) Paint() bool {
	if !rc.mu.TryLock() {
		rc.skip("paint: renderer busy")
		return false
	}
	defer rc.mu.Unlock()

	if rc.backend == nil {
		rc.stats.Skipped++
		return false
	}
	start := time.Now()
	if err := rc.backend.Draw(rc.counts); err != nil {
		log.Printf("WARNING: draw failed: %v", err)
		rc.stats.Skipped++
		return false
	}
	rc.stats.Painted++
	rc.stats.LastDrawUs = float64(time.Since(start).Nanoseconds()) / 1000.0
	return true
}

func (rc *RendererContext) skip(reason string) {
	rc.contended.Add(1)
	gpuLogger.Printf("skipping frame: %s", reason)
}

// Ready reports whether the backend has been created.
func (rc *RendererContext) Ready() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.backend != nil
}

// Close releases the backend. A later Prepare creates a new one.
func (rc *RendererContext) Close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.backend != nil {
		rc.backend.Release()
		rc.backend = nil
	}
}

func (rc *RendererContext) Stats() Stats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	s := rc.stats
	s.Contended = rc.contended.Load()
	if g, ok := rc.backend.(GrowthReporter); ok {
		s.BufferGrows = g.Grows()
	}
	return s
}
