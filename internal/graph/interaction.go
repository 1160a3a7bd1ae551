package graph

import (
	"go.trai.ch/zerr"

	"github.com/bsundman/nodle/internal/geom"
)

// ClickState is the state of a click-to-connect gesture: the user clicks a
// port to anchor it, then clicks a second port to complete the connection.
type ClickState uint8

const (
	ClickIdle ClickState = iota
	ClickAnchorSet
	ClickCompleted
	ClickCancelled
)

func (s ClickState) String() string {
	switch s {
	case ClickIdle:
		return "idle"
	case ClickAnchorSet:
		return "anchor-set"
	case ClickCompleted:
		return "completed"
	default:
		return "cancelled"
	}
}

// ClickConnect tracks a click-to-connect gesture.
type ClickConnect struct {
	State  ClickState
	Anchor PortRef
}

// Begin anchors the gesture on a port, restarting any previous gesture.
func (c *ClickConnect) Begin(anchor PortRef) {
	c.State = ClickAnchorSet
	c.Anchor = anchor
}

// Complete connects the anchor to target.
func (c *ClickConnect) Complete(g *Graph, target PortRef) (ConnectionID, error) {
	if c.State != ClickAnchorSet {
		return 0, ErrNotConnecting
	}
	id, err := g.Connect(c.Anchor, target)
	if err != nil {
		c.State = ClickCancelled
		return 0, zerr.Wrap(err, "click-to-connect")
	}
	c.State = ClickCompleted
	return id, nil
}

// Cancel abandons the gesture.
func (c *ClickConnect) Cancel() {
	if c.State == ClickAnchorSet {
		c.State = ClickCancelled
	}
}

// Active reports whether an anchor is set.
func (c *ClickConnect) Active() bool { return c.State == ClickAnchorSet }

// DragState is the state of a drag-to-connect gesture.
type DragState uint8

const (
	DragIdle DragState = iota
	DragActive
	DragConnected
	DragCancelled
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragActive:
		return "active"
	case DragConnected:
		return "connected"
	default:
		return "cancelled"
	}
}

// DragPreview tracks a drag from a port. While active, End holds the port
// currently under the cursor, if any.
type DragPreview struct {
	State  DragState
	Start  PortRef
	End    PortRef
	HasEnd bool
	Cursor geom.Point
}

// Begin starts a drag from a port.
func (d *DragPreview) Begin(start PortRef, cursor geom.Point) {
	*d = DragPreview{State: DragActive, Start: start, Cursor: cursor}
}

// Hover updates the cursor and the end-port candidate.
func (d *DragPreview) Hover(cursor geom.Point, end PortRef, ok bool) {
	if d.State != DragActive {
		return
	}
	d.Cursor = cursor
	d.End, d.HasEnd = end, ok
}

// Release ends the drag, connecting to the current end candidate if there is
// one. A release with no candidate, or onto an incompatible port, cancels.
func (d *DragPreview) Release(g *Graph) (ConnectionID, bool) {
	if d.State != DragActive {
		return 0, false
	}
	if !d.HasEnd {
		d.State = DragCancelled
		return 0, false
	}
	id, err := g.Connect(d.Start, d.End)
	if err != nil {
		d.State = DragCancelled
		return 0, false
	}
	d.State = DragConnected
	return id, true
}

// Cancel abandons the drag.
func (d *DragPreview) Cancel() {
	if d.State == DragActive {
		d.State = DragCancelled
	}
}

// Active reports whether a drag is in progress.
func (d *DragPreview) Active() bool { return d.State == DragActive }

// Interaction bundles the two independent connection gestures.
type Interaction struct {
	Click ClickConnect
	Drag  DragPreview
}

// Highlights reports whether ref should be drawn as connecting: it is the
// click anchor, the drag start, or the drag's current end candidate.
func (ia *Interaction) Highlights(ref PortRef) bool {
	if ia.Click.State == ClickAnchorSet && ia.Click.Anchor == ref {
		return true
	}
	if ia.Drag.State == DragActive {
		if ia.Drag.Start == ref {
			return true
		}
		if ia.Drag.HasEnd && ia.Drag.End == ref {
			return true
		}
	}
	return false
}

// Active reports whether either gesture is in progress.
func (ia *Interaction) Active() bool { return ia.Click.Active() || ia.Drag.Active() }

// Forget cancels any gesture that references node, e.g. after deletion.
func (ia *Interaction) Forget(node NodeID) {
	if ia.Click.Active() && ia.Click.Anchor.Node == node {
		ia.Click.Cancel()
	}
	if ia.Drag.Active() && (ia.Drag.Start.Node == node || (ia.Drag.HasEnd && ia.Drag.End.Node == node)) {
		ia.Drag.Cancel()
	}
}
