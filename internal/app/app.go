// Package app drives one frame of the viewer: it polls the scene data of
// tracked nodes through the throttle and the render cache, then flattens
// the graph into instance arrays and hands them to the renderer.
package app

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/bsundman/nodle/internal/config"
	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/gpu"
	"github.com/bsundman/nodle/internal/graph"
	"github.com/bsundman/nodle/internal/instance"
	"github.com/bsundman/nodle/internal/intern"
	"github.com/bsundman/nodle/internal/palette"
	"github.com/bsundman/nodle/internal/rendercache"
	"github.com/bsundman/nodle/internal/scene"
	"github.com/bsundman/nodle/internal/throttle"
)

// PortPickRadius is how close, in canvas units, a point must be to a port
// to pick it.
const PortPickRadius = 8.0

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("NODLE_DEBUG_RUNTIME") == "1" {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}
}

// App encapsulates the main application state and logic.
type App struct {
	Graph       *graph.Graph
	Selection   *graph.Selection
	Interaction *graph.Interaction
	View        *View
	Tracker     *Tracker

	Interner *intern.Interner
	Cache    *rendercache.Cache
	Throttle *throttle.Controller
	Stream   *instance.Stream
	Renderer *gpu.RendererContext

	provider scene.Provider
	frame    uint64
	displays map[graph.NodeID]*rendercache.Entry
	report   Report
}

// Report summarizes the most recent Tick.
type Report struct {
	Frame     uint64
	Polled    int // tracked nodes whose source was checked
	Refreshed int // tracked nodes whose cache entry changed
	Missing   int // tracked nodes showing the placeholder
	Prepared  bool
	Instances instance.Stats
}

// NewApp creates a new application instance. Viewport nodes already in g
// are tracked.
func NewApp(cfg config.Config, g *graph.Graph, provider scene.Provider, view *View, theme palette.Theme, factory gpu.Factory) *App {
	in := intern.New(cfg.Interner.Capacity)
	app := &App{
		Graph:       g,
		Selection:   graph.NewSelection(),
		Interaction: &graph.Interaction{},
		View:        view,
		Tracker:     NewTracker(),
		Interner:    in,
		Cache:       rendercache.New(in, cfg.Pagination),
		Throttle:    throttle.New(cfg.Throttle),
		Stream:      instance.New(cfg.Stream, theme),
		Renderer:    gpu.NewRendererContext(factory),
		provider:    provider,
		displays:    make(map[graph.NodeID]*rendercache.Entry),
	}
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindViewport {
			app.Tracker.Track(n.ID)
		}
	}
	return app
}

func (app *App) Frame() uint64 { return app.frame }

func (app *App) Report() Report { return app.report }

// Tick advances one frame: poll due tracked nodes, rebuild the instance
// arrays and prepare the renderer. Painting is left to the caller, on the
// thread that owns the graphics context.
func (app *App) Tick(elapsed time.Duration) Report {
	app.frame++
	app.report = Report{Frame: app.frame}

	for _, id := range app.Tracker.IDs() {
		app.poll(id)
	}

	fr := app.Stream.Rebuild(app.Graph, app.Selection, app.Interaction)
	app.report.Instances = app.Stream.Stats()
	app.report.Prepared = app.Renderer.Prepare(fr, app.View.Uniforms(elapsed))

	if app.report.Refreshed > 0 || app.report.Missing > 0 {
		runtimeLogger.Printf("frame %d: polled %d, refreshed %d, missing %d",
			app.frame, app.report.Polled, app.report.Refreshed, app.report.Missing)
	}
	return app.report
}

// source resolves the snapshot feeding a tracked node: the scene published
// by the first node wired into its inputs.
func (app *App) source(id graph.NodeID) (*scene.Snapshot, bool) {
	up := app.Graph.Upstream(id)
	if len(up) == 0 {
		return nil, false
	}
	return app.provider.Snapshot(scene.EntityID(up[0]))
}

// poll checks one tracked node if the throttle says it is due.
//
// A node whose source disappears while it shows cached data is suspected
// and polled every frame; a second absent poll confirms it and returns the
// node to throttled polling. A node that never had data is throttled from
// its first absent poll.
func (app *App) poll(id graph.NodeID) {
	eid := scene.EntityID(id)
	if _, shown := app.displays[id]; shown && !app.Throttle.ShouldCheck(eid, app.frame) {
		if e := app.displays[id]; e.Placeholder {
			app.report.Missing++
		}
		return
	}
	app.report.Polled++

	snap, ok := app.source(id)
	st, _ := app.Throttle.State(eid)
	if !ok || snap == nil {
		prev := app.displays[id]
		e, _ := app.Cache.GetOrRefresh(eid, nil)
		app.displays[id] = e
		app.report.Missing++
		switch {
		case st.Suspect:
			app.Throttle.ConfirmAbsent(eid, app.frame)
			runtimeLogger.Printf("node %d: source confirmed absent", id)
		case prev != nil && !prev.Placeholder:
			app.Throttle.Suspect(eid)
			app.Stream.MarkDirty()
		default:
			app.Throttle.RecordOutcome(eid, app.frame, false)
		}
		return
	}

	if st.Suspect {
		app.Throttle.Reconnected(eid)
	}
	e, out := app.Cache.GetOrRefresh(eid, snap)
	changed := out.Cold || !out.Changed.Empty()
	app.Throttle.RecordOutcome(eid, app.frame, changed)
	if prev := app.displays[id]; changed || prev != e {
		app.report.Refreshed++
		app.Stream.MarkDirty()
	}
	app.displays[id] = e
}

// Display returns what a tracked node currently shows: its cache entry, or
// the placeholder when its source is missing. It is false before the node's
// first poll.
func (app *App) Display(id graph.NodeID) (*rendercache.Entry, bool) {
	e, ok := app.displays[id]
	return e, ok
}

// Track starts displaying id's scene data. The first poll happens on the
// next Tick.
func (app *App) Track(id graph.NodeID) bool {
	if _, ok := app.Graph.Node(id); !ok {
		return false
	}
	return app.Tracker.Track(id)
}

// Untrack stops displaying id and drops every cached artifact for it.
func (app *App) Untrack(id graph.NodeID) {
	app.Tracker.Untrack(id)
	app.Purge(id)
}

// Purge drops every cached artifact for id (cache entry, change trackers,
// poll state, page cursors and the current display) without untracking it.
// A still-tracked node is rebuilt as a cold start on the next Tick.
func (app *App) Purge(id graph.NodeID) {
	eid := scene.EntityID(id)
	app.Cache.Purge(eid)
	app.Throttle.Forget(eid)
	delete(app.displays, id)
}

// ForceInvalidate discards id's cached data and makes it a cold start, so
// it is rebuilt from scratch on the next Tick.
func (app *App) ForceInvalidate(id graph.NodeID) {
	eid := scene.EntityID(id)
	app.Cache.Invalidate(eid)
	app.Throttle.Reset(eid)
	delete(app.displays, id)
}

// DeleteNode removes a node from the graph along with everything the
// viewer holds for it. Tracked nodes downstream of it lose their source
// and are suspected.
func (app *App) DeleteNode(id graph.NodeID) error {
	downstream := app.downstream(id)
	if err := app.Graph.RemoveNode(id); err != nil {
		return err
	}
	app.Selection.Remove(id)
	app.Interaction.Forget(id)
	app.Untrack(id)
	for _, d := range downstream {
		app.Throttle.Suspect(scene.EntityID(d))
	}
	return nil
}

// DeleteSelected deletes every selected node.
func (app *App) DeleteSelected() int {
	n := 0
	for _, id := range app.Selection.Nodes() {
		if app.DeleteNode(id) == nil {
			n++
		}
	}
	return n
}

// Connect wires two ports. A tracked node that gains an input is polled on
// the next frame.
func (app *App) Connect(a, b graph.PortRef) (graph.ConnectionID, error) {
	cid, err := app.Graph.Connect(a, b)
	if err != nil {
		return 0, err
	}
	app.afterConnect(cid)
	return cid, nil
}

func (app *App) afterConnect(cid graph.ConnectionID) {
	for _, c := range app.Graph.Connections() {
		if c.ID == cid && app.Tracker.Tracked(c.To.Node) {
			app.Throttle.Suspect(scene.EntityID(c.To.Node))
		}
	}
}

// Disconnect removes a connection. A tracked node that loses its source is
// suspected, so the loss shows on the next frame rather than after its
// interval.
func (app *App) Disconnect(cid graph.ConnectionID) bool {
	var to graph.NodeID
	found := false
	for _, c := range app.Graph.Connections() {
		if c.ID == cid {
			to, found = c.To.Node, true
			break
		}
	}
	if !found || !app.Graph.Disconnect(cid) {
		return false
	}
	if app.Tracker.Tracked(to) {
		app.Throttle.Suspect(scene.EntityID(to))
	}
	return true
}

// CompleteClick finishes a click-to-connect gesture on target.
func (app *App) CompleteClick(target graph.PortRef) (graph.ConnectionID, error) {
	cid, err := app.Interaction.Click.Complete(app.Graph, target)
	if err != nil {
		return 0, err
	}
	app.afterConnect(cid)
	return cid, nil
}

// ReleaseDrag finishes a drag-to-connect gesture.
func (app *App) ReleaseDrag() (graph.ConnectionID, bool) {
	cid, ok := app.Interaction.Drag.Release(app.Graph)
	if ok {
		app.afterConnect(cid)
	}
	return cid, ok
}

// PortAt returns the port under the canvas point p.
func (app *App) PortAt(p geom.Point) (graph.PortRef, bool) {
	return app.Graph.PortAt(p, PortPickRadius)
}

// Toggle flips the flag or button under the canvas point p. It reports
// whether anything was hit.
func (app *App) Toggle(p geom.Point) bool {
	n, ok := app.Graph.NodeAt(p)
	if !ok {
		return false
	}
	var err error
	switch hit := app.Stream.HitTest(n, p); hit {
	case instance.HitFlag:
		err = app.Graph.SetFlag(n.ID, !n.Flag)
	case instance.HitLeftButton, instance.HitRightButton:
		side := int(hit - instance.HitLeftButton)
		err = app.Graph.SetButton(n.ID, side, !n.Buttons[side])
	default:
		return false
	}
	if err != nil {
		log.Printf("WARNING: toggle on node %d: %v", n.ID, err)
		return false
	}
	return true
}

// downstream returns the tracked nodes fed directly by id.
func (app *App) downstream(id graph.NodeID) []graph.NodeID {
	var out []graph.NodeID
	for _, c := range app.Graph.Connections() {
		if c.From.Node == id && app.Tracker.Tracked(c.To.Node) {
			out = append(out, c.To.Node)
		}
	}
	return out
}

// TurnPage moves the focused node's page cursor for a category by delta
// and returns the new page index.
func (app *App) TurnPage(cat rendercache.Category, delta int) (int, bool) {
	id, ok := app.Tracker.Focus()
	if !ok {
		return 0, false
	}
	eid := scene.EntityID(id)
	return app.Cache.SetPage(eid, cat, app.Cache.Page(eid, cat)+delta), true
}

// Close releases the renderer backend.
func (app *App) Close() {
	app.Renderer.Close()
}
