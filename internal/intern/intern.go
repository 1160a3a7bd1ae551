// Package intern deduplicates display strings that are formatted over and
// over across frames (labels, counts, headers). Interned strings share one
// backing allocation; the table is a bounded LRU so that strings for deleted
// entities age out instead of accumulating.
package intern

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity bounds the number of distinct strings kept.
const DefaultCapacity = 4096

// Stats counts interner activity.
type Stats struct {
	Hits      uint64 // lookups that returned an existing string
	Misses    uint64 // lookups that inserted a new string
	Formats   uint64 // calls to Sprintf
	Evictions uint64
	Len       int
}

// Interner is not safe for concurrent use; it is owned by a single frame
// loop.
type Interner struct {
	table *lru.Cache[string, string]
	stats Stats
}

// New returns an interner holding at most capacity strings. A capacity < 1
// falls back to DefaultCapacity.
func New(capacity int) *Interner {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	in := &Interner{}
	table, err := lru.NewWithEvict[string, string](capacity, func(string, string) {
		in.stats.Evictions++
	})
	if err != nil {
		// Only returned for non-positive sizes, which we rule out above.
		panic(err)
	}
	in.table = table
	return in
}

// Intern returns the canonical copy of s.
func (in *Interner) Intern(s string) string {
	if v, ok := in.table.Get(s); ok {
		in.stats.Hits++
		return v
	}
	in.stats.Misses++
	in.table.Add(s, s)
	return s
}

// Sprintf formats and interns the result. Every call counts as a format, so
// the Formats counter doubles as a "did we do any display work" probe.
func (in *Interner) Sprintf(format string, args ...any) string {
	in.stats.Formats++
	return in.Intern(fmt.Sprintf(format, args...))
}

// Purge drops every interned string.
func (in *Interner) Purge() {
	in.table.Purge()
}

func (in *Interner) Stats() Stats {
	s := in.stats
	s.Len = in.table.Len()
	return s
}
