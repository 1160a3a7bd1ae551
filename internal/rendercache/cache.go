// Package rendercache holds pre-formatted display data per entity and keeps
// it in step with the entity's scene snapshot. Only fields whose hashes
// changed are rebuilt, and within a changed collection only the items whose
// hashes changed. A refresh that finds nothing changed does no formatting
// and no allocation.
package rendercache

import (
	"io"
	"log"
	"os"

	"github.com/bsundman/nodle/internal/change"
	"github.com/bsundman/nodle/internal/intern"
	"github.com/bsundman/nodle/internal/paginate"
	"github.com/bsundman/nodle/internal/scene"
)

var cacheLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("NODLE_DEBUG_CACHE") == "1" {
		cacheLogger = log.New(os.Stdout, "[cache] ", log.Ltime|log.Lmsgprefix)
	}
}

// Placeholder text shown for entities without upstream data.
const (
	PlaceholderTitle = "No scene data connected"
	PlaceholderHint  = "Connect a scene source node to view the hierarchy"
)

// Entry is the cached display data of one entity.
type Entry struct {
	StageLabel  string
	UpAxisLabel string
	StatsLabel  string
	Headers     [NumCategories]string

	Meshes    []Fragment
	Lights    []Fragment
	Materials []Fragment
	Pages     [NumCategories][]paginate.Page

	TotalVertices  int
	TotalTriangles int

	// Version is the snapshot version the entry was last validated against,
	// and source the snapshot that carried it. Versions are only comparable
	// within one source.
	Version uint64
	source  *scene.Snapshot

	// Placeholder is set on the shared entry returned for missing sources.
	Placeholder bool
}

// Fragments returns the fragment slice of a category.
func (e *Entry) Fragments(c Category) []Fragment {
	switch c {
	case Lights:
		return e.Lights
	case Materials:
		return e.Materials
	default:
		return e.Meshes
	}
}

func (e *Entry) fragments(c Category) *[]Fragment {
	switch c {
	case Lights:
		return &e.Lights
	case Materials:
		return &e.Materials
	default:
		return &e.Meshes
	}
}

// Outcome describes what a GetOrRefresh call did.
type Outcome struct {
	Changed change.FieldSet // fields rebuilt
	Cold    bool            // no prior entry
	Missing bool            // source absent, placeholder returned
}

// Stats counts cache activity.
type Stats struct {
	Hits           uint64
	Misses         uint64
	ColdStarts     uint64
	PartialUpdates uint64 // misses that rebuilt a strict subset of fields
	ItemsRefreshed uint64
	Missing        uint64
	Invalidations  uint64
	Purges         uint64
	Formats        uint64 // string formats performed by the interner
	Entries        int
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cursorKey struct {
	id  scene.EntityID
	cat Category
}

// Cache is not safe for concurrent use; it runs on the frame loop.
type Cache struct {
	detector *change.Detector
	interner *intern.Interner
	planner  paginate.Planner

	entries     map[scene.EntityID]*Entry
	cursors     map[cursorKey]int
	placeholder *Entry

	// Scratch reused across refreshes.
	fresh   change.Hashes
	changed []int

	stats Stats
}

func New(in *intern.Interner, planner paginate.Planner) *Cache {
	return &Cache{
		detector: change.NewDetector(),
		interner: in,
		planner:  planner.Normalize(),
		entries:  make(map[scene.EntityID]*Entry),
		cursors:  make(map[cursorKey]int),
		placeholder: &Entry{
			StageLabel:  PlaceholderTitle,
			StatsLabel:  PlaceholderHint,
			Placeholder: true,
		},
	}
}

// GetOrRefresh returns the entry for id, rebuilding whatever part of it no
// longer matches snap. A nil snap means the source is gone: the entity's
// entry and trackers are dropped and the shared placeholder is returned.
//
// The returned entry is owned by the cache and valid until the next call
// for the same id.
func (c *Cache) GetOrRefresh(id scene.EntityID, snap *scene.Snapshot) (*Entry, Outcome) {
	if snap == nil {
		c.stats.Missing++
		if _, ok := c.entries[id]; ok {
			cacheLogger.Printf("entity %d: source missing, dropping entry", id)
			c.Invalidate(id)
		}
		return c.placeholder, Outcome{Missing: true}
	}

	e, ok := c.entries[id]
	cold := !ok || !c.detector.Has(id)
	if !cold && e.source == snap && e.Version == snap.Version {
		c.stats.Hits++
		return e, Outcome{}
	}

	c.detector.Compute(snap, &c.fresh)
	changed := c.detector.Changed(id, &c.fresh)
	if changed.Empty() {
		e.Version, e.source = snap.Version, snap
		c.stats.Hits++
		return e, Outcome{}
	}

	if !ok {
		e = &Entry{}
		c.entries[id] = e
	}
	c.stats.Misses++
	if cold {
		c.stats.ColdStarts++
	} else if changed != change.AllFields {
		c.stats.PartialUpdates++
	}

	if changed.Has(change.Topology) {
		e.StageLabel = c.interner.Sprintf("Stage: %s", snap.StageID)
		e.UpAxisLabel = c.interner.Sprintf("Up axis: %s", snap.UpAxis)
		c.detector.Commit(id, change.Topology, c.fresh[change.Topology])
	}
	if changed.Has(change.Meshes) {
		c.refreshCategory(id, e, Meshes, len(snap.Meshes), func(i int) Fragment {
			return meshFragment(c.interner, &snap.Meshes[i])
		})
		e.TotalVertices = snap.TotalVertices()
		e.TotalTriangles = snap.TotalTriangles()
		e.StatsLabel = c.interner.Sprintf("Total: %d vertices, %d triangles", e.TotalVertices, e.TotalTriangles)
		e.Headers[Meshes] = c.interner.Sprintf("Meshes (%d)", len(snap.Meshes))
	}
	if changed.Has(change.Lights) {
		c.refreshCategory(id, e, Lights, len(snap.Lights), func(i int) Fragment {
			return lightFragment(c.interner, &snap.Lights[i])
		})
		e.Headers[Lights] = c.interner.Sprintf("Lights (%d)", len(snap.Lights))
	}
	if changed.Has(change.Materials) {
		c.refreshCategory(id, e, Materials, len(snap.Materials), func(i int) Fragment {
			return materialFragment(c.interner, &snap.Materials[i])
		})
		e.Headers[Materials] = c.interner.Sprintf("Materials (%d)", len(snap.Materials))
	}

	e.Version, e.source = snap.Version, snap
	cacheLogger.Printf("entity %d: refreshed fields %08b (cold=%t, version %d)", id, changed, cold, snap.Version)
	return e, Outcome{Changed: changed, Cold: cold}
}

// refreshCategory resizes the category's fragments to n, rebuilds the items
// whose hashes changed, replans its pages and commits the field.
func (c *Cache) refreshCategory(id scene.EntityID, e *Entry, cat Category, n int, build func(int) Fragment) {
	f := cat.field()
	c.changed = c.detector.ChangedItems(id, f, &c.fresh, c.changed[:0])

	frags := e.fragments(cat)
	if len(*frags) > n {
		clear((*frags)[n:])
		*frags = (*frags)[:n]
	} else if cap(*frags) >= n {
		*frags = (*frags)[:n]
	} else {
		grown := make([]Fragment, n)
		copy(grown, *frags)
		*frags = grown
	}
	for _, i := range c.changed {
		(*frags)[i] = build(i)
	}
	c.stats.ItemsRefreshed += uint64(len(c.changed))

	e.Pages[cat] = paginate.AppendPlan(e.Pages[cat][:0], c.planner, *frags, fragmentCost)
	c.detector.Commit(id, f, c.fresh[f])
}

func fragmentCost(f Fragment) int64 { return f.Cost }

// Lookup returns the cached entry for id without refreshing it.
func (c *Cache) Lookup(id scene.EntityID) (*Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Invalidate drops id's entry together with its change trackers, so the
// next GetOrRefresh is a cold start. Page cursors survive.
func (c *Cache) Invalidate(id scene.EntityID) {
	delete(c.entries, id)
	c.detector.Forget(id)
	c.stats.Invalidations++
}

// Purge removes every piece of state the cache holds for id.
func (c *Cache) Purge(id scene.EntityID) {
	delete(c.entries, id)
	c.detector.Forget(id)
	for cat := Category(0); cat < NumCategories; cat++ {
		delete(c.cursors, cursorKey{id, cat})
	}
	c.stats.Purges++
	cacheLogger.Printf("entity %d: purged", id)
}

// Has reports whether any state (entry, tracker or cursor) exists for id.
func (c *Cache) Has(id scene.EntityID) bool {
	if _, ok := c.entries[id]; ok {
		return true
	}
	if c.detector.Has(id) {
		return true
	}
	for cat := Category(0); cat < NumCategories; cat++ {
		if _, ok := c.cursors[cursorKey{id, cat}]; ok {
			return true
		}
	}
	return false
}

// Page returns the current page index of a category, clamped to the
// entry's plan.
func (c *Cache) Page(id scene.EntityID, cat Category) int {
	p := c.cursors[cursorKey{id, cat}]
	if e, ok := c.entries[id]; ok {
		p = paginate.Clamp(e.Pages[cat], p)
	}
	return p
}

// SetPage moves a category's cursor. The index is clamped against the
// current plan when one exists.
func (c *Cache) SetPage(id scene.EntityID, cat Category, page int) int {
	if e, ok := c.entries[id]; ok {
		page = paginate.Clamp(e.Pages[cat], page)
	} else if page < 0 {
		page = 0
	}
	c.cursors[cursorKey{id, cat}] = page
	return page
}

// PageItems returns the fragments on the current page of a category, along
// with the page itself. It returns nil for entities without an entry or
// categories without items.
func (c *Cache) PageItems(id scene.EntityID, cat Category) ([]Fragment, paginate.Page) {
	e, ok := c.entries[id]
	if !ok || len(e.Pages[cat]) == 0 {
		return nil, paginate.Page{}
	}
	pg := e.Pages[cat][c.Page(id, cat)]
	return e.Fragments(cat)[pg.Start:pg.End], pg
}

func (c *Cache) Stats() Stats {
	s := c.stats
	s.Formats = c.interner.Stats().Formats
	s.Entries = len(c.entries)
	return s
}
