package main

import (
	"log"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/bsundman/nodle/internal/app"
	"github.com/bsundman/nodle/internal/demo"
	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/graph"
	"github.com/bsundman/nodle/internal/rendercache"
	"github.com/bsundman/nodle/internal/scene"
)

const repeatInterval = 125 * time.Millisecond // time between successive pans when pressed down
const basePanDistance = 100.0

// EventHandlers manages all event handling for the application.
type EventHandlers struct {
	application *app.App
	window      *glfw.Window
	workload    *demo.Workload

	// J/K/H/L allow panning across through keypresses. They also do so
	// continuously if held.
	panKeyHeld                   bool
	panDirectionX, panDirectionY float64
	lastPanTime                  time.Time

	// Pan state (per-gesture), captured on a press over empty canvas.
	isPanning                        bool
	dragStartMouseX, dragStartMouseY float64
	dragStartPanX, dragStartPanY     float64

	// Node move state, captured on a press over a node body.
	movingNodes bool
	lastCanvas  geom.Point

	// Current mouse position in canvas coordinates.
	mouseCanvas geom.Point

	// Category that [ and ] page through.
	pageCategory rendercache.Category
}

// NewEventHandlers creates a new event handlers manager.
func NewEventHandlers(application *app.App, window *glfw.Window, workload *demo.Workload) *EventHandlers {
	eh := &EventHandlers{
		application: application,
		window:      window,
		workload:    workload,
		lastPanTime: time.Now(),
	}
	eh.SetupCallbacks(window)
	return eh
}

// SetupCallbacks configures all GLFW event callbacks.
func (eh *EventHandlers) SetupCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(wnd *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleKey(key, action, mods)
	})
	window.SetMouseButtonCallback(func(wnd *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleMouseButton(button, action, mods)
	})
	window.SetCursorPosCallback(func(wnd *glfw.Window, xpos, ypos float64) {
		eh.handleCursorPos(xpos, ypos)
	})
	window.SetScrollCallback(func(wnd *glfw.Window, _, zoomDelta float64) {
		eh.performZoom(zoomDelta)
	})
	window.SetFramebufferSizeCallback(func(wnd *glfw.Window, newW, newH int) {
		eh.application.View.SetViewport(newW, newH)
	})
}

// handleKey handles keyboard input events.
func (eh *EventHandlers) handleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	switch key {
	case glfw.KeyJ:
		eh.handlePanKeys(action, 0 /*dx*/, -1 /*dy*/) // pan down
		return
	case glfw.KeyK:
		eh.handlePanKeys(action, 0 /*dx*/, 1 /*dy*/) // pan up
		return
	case glfw.KeyH:
		eh.handlePanKeys(action, 1 /*dx*/, 0 /*dy*/) // pan right
		return
	case glfw.KeyL:
		eh.handlePanKeys(action, -1 /*dx*/, 0 /*dy*/) // pan left
		return
	}
	if action != glfw.Press {
		return
	}

	a := eh.application
	switch key {
	case glfw.KeyEscape:
		a.Interaction.Click.Cancel()
		a.Interaction.Drag.Cancel()
		a.Selection.Clear()
	case glfw.KeyDelete, glfw.KeyBackspace:
		if n := a.DeleteSelected(); n > 0 {
			runtimeLogger.Printf("deleted %d node(s)", n)
		}
	case glfw.KeyF:
		for _, id := range a.Selection.Nodes() {
			if n, ok := a.Graph.Node(id); ok {
				if err := a.Graph.SetFlag(id, !n.Flag); err != nil {
					log.Printf("WARNING: flag on node %d: %v", id, err)
				}
			}
		}
	case glfw.KeyV:
		eh.toggleTracked()
	case glfw.KeyTab:
		eh.handleFocusNavigation((mods & glfw.ModShift) == 0)
	case glfw.KeyR:
		eh.handleResetKey()
	case glfw.KeyI:
		if id, ok := a.Tracker.Focus(); ok {
			a.ForceInvalidate(id)
			runtimeLogger.Printf("node %d invalidated", id)
		}
	case glfw.KeyE:
		eh.withFocusedSource(func(src graph.NodeID) {
			if eh.workload.Edit(src) {
				runtimeLogger.Printf("source %d edited", src)
			}
		})
	case glfw.KeyX:
		eh.withFocusedSource(func(src graph.NodeID) {
			eh.workload.Disconnect(src)
			runtimeLogger.Printf("source %d withdrew its scene", src)
		})
	case glfw.Key1, glfw.Key2, glfw.Key3:
		eh.pageCategory = rendercache.Category(key - glfw.Key1)
	case glfw.KeyLeftBracket:
		eh.turnPage(-1)
	case glfw.KeyRightBracket:
		eh.turnPage(1)
	case glfw.KeyEqual:
		if (mods & (glfw.ModSuper | glfw.ModControl)) != 0 {
			eh.performZoom(1) // zoom in
		}
	case glfw.KeyMinus:
		if (mods & (glfw.ModSuper | glfw.ModControl)) != 0 {
			eh.performZoom(-1) // zoom out
		}
	}
}

// handlePanKeys handles j/k/h/l key presses, and also releases for
// continuous panning.
func (eh *EventHandlers) handlePanKeys(action glfw.Action, dx, dy float64) {
	switch action {
	case glfw.Press:
		eh.panKeyHeld = true
		eh.panDirectionX = dx
		eh.panDirectionY = dy
		eh.performPan(dx, dy)
		eh.lastPanTime = time.Now()

	case glfw.Release:
		eh.panKeyHeld = false

	case glfw.Repeat:
		// Ignore repeat events - we handle continuous panning ourselves to
		// ensure consistent timing.
	}
}

// performPan executes a single pan operation.
func (eh *EventHandlers) performPan(dx, dy float64) {
	eh.application.View.Pan(dx*basePanDistance, dy*basePanDistance)
	eh.updateMouseCanvasPos(eh.window.GetCursorPos())
}

// handleContinuousPanning handles continuous panning while pan keys are held.
func (eh *EventHandlers) handleContinuousPanning() {
	if !eh.panKeyHeld {
		return // nothing to do
	}

	now := time.Now()
	if now.Sub(eh.lastPanTime) < repeatInterval {
		return // not enough time has passed since the last pan
	}

	eh.performPan(eh.panDirectionX, eh.panDirectionY)
	eh.lastPanTime = now
}

// handleFocusNavigation moves focus to the next (or previous) tracked node
// and centers it.
func (eh *EventHandlers) handleFocusNavigation(next bool) {
	id, ok := eh.application.Tracker.Cycle(next)
	if !ok {
		return
	}
	eh.centerOn(id)
	eh.logPage(id)
}

// handleResetKey handles R key press (reset zoom and pan to the closest
// tracked node, and focus it for subsequent tabs/shift+tabs).
func (eh *EventHandlers) handleResetKey() {
	a := eh.application
	closest := a.Tracker.FindClosest(a.Graph, eh.mouseCanvas)
	if len(closest) == 0 {
		return
	}
	a.Tracker.SetFocus(closest[0])
	eh.centerOn(closest[0])
}

func (eh *EventHandlers) centerOn(id graph.NodeID) {
	if n, ok := eh.application.Graph.Node(id); ok {
		eh.application.View.ResetTo(n.Bounds.Center())
	}
	eh.updateMouseCanvasPos(eh.window.GetCursorPos())
}

// toggleTracked starts or stops displaying scene data for the node under the
// cursor.
func (eh *EventHandlers) toggleTracked() {
	a := eh.application
	n, ok := a.Graph.NodeAt(eh.mouseCanvas)
	if !ok {
		return
	}
	if a.Tracker.Tracked(n.ID) {
		a.Untrack(n.ID)
		runtimeLogger.Printf("node %d untracked", n.ID)
		return
	}
	if a.Track(n.ID) {
		a.Tracker.SetFocus(n.ID)
		runtimeLogger.Printf("node %d tracked", n.ID)
	}
}

// withFocusedSource calls fn with the node feeding the focused node.
func (eh *EventHandlers) withFocusedSource(fn func(src graph.NodeID)) {
	a := eh.application
	id, ok := a.Tracker.Focus()
	if !ok {
		return
	}
	if up := a.Graph.Upstream(id); len(up) > 0 {
		fn(up[0])
	}
}

func (eh *EventHandlers) turnPage(delta int) {
	if page, ok := eh.application.TurnPage(eh.pageCategory, delta); ok {
		runtimeLogger.Printf("%s page %d", eh.pageCategory, page)
		if id, ok := eh.application.Tracker.Focus(); ok {
			eh.logPage(id)
		}
	}
}

// logPage prints the current page of the focused node's active category.
func (eh *EventHandlers) logPage(id graph.NodeID) {
	a := eh.application
	e, ok := a.Display(id)
	if !ok {
		return
	}
	eid, cat := scene.EntityID(id), eh.pageCategory
	items, _ := a.Cache.PageItems(eid, cat)
	runtimeLogger.Println(e.StageLabel)
	runtimeLogger.Printf("%s [page %d/%d]", e.Headers[cat], a.Cache.Page(eid, cat)+1, max(len(e.Pages[cat]), 1))
	for _, f := range items {
		runtimeLogger.Printf("  %s %s %s %s", f.Icon, f.Name, f.Detail, f.Extra)
	}
}

// handleMouseButton handles presses and releases of the left button: port
// presses start connection gestures, node presses select and move, and
// presses over empty canvas pan.
func (eh *EventHandlers) handleMouseButton(button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return // nothing to do
	}

	switch action {
	case glfw.Press:
		eh.handlePress(mods)
	case glfw.Release:
		eh.handleRelease()
	}
}

func (eh *EventHandlers) handlePress(mods glfw.ModifierKey) {
	a := eh.application
	p := eh.mouseCanvas

	if ref, ok := a.PortAt(p); ok {
		switch {
		case a.Interaction.Click.Active():
			if _, err := a.CompleteClick(ref); err != nil {
				runtimeLogger.Printf("connect: %v", err)
			}
		case (mods & glfw.ModShift) != 0:
			a.Interaction.Click.Begin(ref)
		default:
			a.Interaction.Drag.Begin(ref, p)
		}
		return
	}
	a.Interaction.Click.Cancel()

	if a.Toggle(p) {
		return
	}
	if n, ok := a.Graph.NodeAt(p); ok {
		if (mods & glfw.ModControl) != 0 {
			a.Selection.Toggle(n.ID)
		} else if !a.Selection.Contains(n.ID) {
			a.Selection.Clear()
			a.Selection.Select(n.ID)
		}
		a.Tracker.SetFocus(n.ID)
		eh.movingNodes = true
		eh.lastCanvas = p
		return
	}

	a.Selection.Clear()
	eh.startPanning()
}

func (eh *EventHandlers) handleRelease() {
	if eh.application.Interaction.Drag.Active() {
		if cid, ok := eh.application.ReleaseDrag(); ok {
			runtimeLogger.Printf("connection %d created", cid)
		}
	}
	eh.movingNodes = false
	eh.isPanning = false
}

// updateMouseCanvasPos recalculates mouse position in canvas coordinates after
// view changes.
func (eh *EventHandlers) updateMouseCanvasPos(mouseX, mouseY float64) {
	scaleX, scaleY := eh.window.GetContentScale()
	fb := geom.MakePoint(mouseX*float64(scaleX), mouseY*float64(scaleY))
	eh.mouseCanvas = eh.application.View.ScreenToCanvas(fb)
}

// handleCursorPos handles mouse movement for gestures in progress.
func (eh *EventHandlers) handleCursorPos(xpos, ypos float64) {
	eh.updateMouseCanvasPos(xpos, ypos)
	a := eh.application
	p := eh.mouseCanvas

	switch {
	case a.Interaction.Drag.Active():
		ref, ok := a.PortAt(p)
		a.Interaction.Drag.Hover(p, ref, ok)
	case eh.movingNodes:
		delta := p.Sub(eh.lastCanvas)
		for _, id := range a.Selection.Nodes() {
			if err := a.Graph.MoveNode(id, delta); err != nil {
				log.Printf("WARNING: move node %d: %v", id, err)
			}
		}
		eh.lastCanvas = p
	case eh.isPanning:
		eh.updatePanning(xpos, ypos)
	}
}

// startPanning starts the panning operation.
func (eh *EventHandlers) startPanning() {
	eh.isPanning = true
	eh.dragStartMouseX, eh.dragStartMouseY = eh.window.GetCursorPos()
	view := eh.application.View
	eh.dragStartPanX, eh.dragStartPanY = view.PanX, view.PanY
}

// updatePanning updates pan position based on mouse movement.
func (eh *EventHandlers) updatePanning(xpos, ypos float64) {
	scaleX, scaleY := eh.window.GetContentScale()
	dx := (xpos - eh.dragStartMouseX) * float64(scaleX)
	dy := (ypos - eh.dragStartMouseY) * float64(scaleY)
	eh.application.View.SetPan(eh.dragStartPanX+dx, eh.dragStartPanY+dy)
}

// performZoom handles zoom operations with cursor-centered zooming.
func (eh *EventHandlers) performZoom(zoomDelta float64) {
	mouseX, mouseY := eh.window.GetCursorPos()
	scaleX, scaleY := eh.window.GetContentScale()
	fb := geom.MakePoint(mouseX*float64(scaleX), mouseY*float64(scaleY))

	// Apply zoom with responsive increments for smooth zooming.
	eh.application.View.ZoomAt(1.0+zoomDelta*0.15, fb)
	eh.updateMouseCanvasPos(mouseX, mouseY)
}
