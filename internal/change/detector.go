package change

import "github.com/bsundman/nodle/internal/scene"

// tracker holds the digests the cached display data for one entity was last
// built from. A field is only meaningful once committed.
type tracker struct {
	hashes    Hashes
	committed FieldSet
}

// Detector keeps a tracker per entity. Queries never mutate state; only
// Commit and Forget do.
type Detector struct {
	*Hasher
	trackers map[scene.EntityID]*tracker
}

func NewDetector() *Detector {
	return &Detector{
		Hasher:   NewHasher(),
		trackers: make(map[scene.EntityID]*tracker),
	}
}

// Has reports whether any field has been committed for id.
func (d *Detector) Has(id scene.EntityID) bool {
	t, ok := d.trackers[id]
	return ok && !t.committed.Empty()
}

// HasChanged reports whether the fresh digest for f differs from the
// committed one. A field that was never committed counts as changed.
func (d *Detector) HasChanged(id scene.EntityID, f Field, fresh *Hashes) bool {
	t, ok := d.trackers[id]
	if !ok || !t.committed.Has(f) {
		return true
	}
	return t.hashes[f].Sum != fresh[f].Sum
}

// Changed returns the set of fields for which HasChanged is true.
func (d *Detector) Changed(id scene.EntityID, fresh *Hashes) FieldSet {
	var set FieldSet
	for f := Field(0); f < NumFields; f++ {
		if d.HasChanged(id, f, fresh) {
			set = set.With(f)
		}
	}
	return set
}

// ChangedItems appends to dst the indices of items in fresh[f] whose hash
// differs from the committed one, including indices past the end of the
// committed list. Items removed from the end are not reported; callers
// compare lengths for that.
func (d *Detector) ChangedItems(id scene.EntityID, f Field, fresh *Hashes, dst []int) []int {
	var stored []uint64
	if t, ok := d.trackers[id]; ok && t.committed.Has(f) {
		stored = t.hashes[f].Items
	}
	for i, h := range fresh[f].Items {
		if i >= len(stored) || stored[i] != h {
			dst = append(dst, i)
		}
	}
	return dst
}

// Committed returns the committed digest for f. The Items slice is owned by
// the detector and must not be retained.
func (d *Detector) Committed(id scene.EntityID, f Field) (Digest, bool) {
	t, ok := d.trackers[id]
	if !ok || !t.committed.Has(f) {
		return Digest{}, false
	}
	return t.hashes[f], true
}

// Commit records dg as the digest the cache for (id, f) was just rebuilt
// from. The item hashes are copied.
func (d *Detector) Commit(id scene.EntityID, f Field, dg Digest) {
	t, ok := d.trackers[id]
	if !ok {
		t = &tracker{}
		d.trackers[id] = t
	}
	cur := &t.hashes[f]
	cur.Sum = dg.Sum
	cur.Items = append(cur.Items[:0], dg.Items...)
	t.committed = t.committed.With(f)
}

// Forget drops all tracked state for id.
func (d *Detector) Forget(id scene.EntityID) {
	delete(d.trackers, id)
}

// Len returns the number of tracked entities.
func (d *Detector) Len() int { return len(d.trackers) }
