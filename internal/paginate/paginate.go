// Package paginate splits ordered collections into pages sized by a
// complexity budget rather than a fixed item count. A page of many cheap
// items and a page of a few expensive ones cost roughly the same to draw.
package paginate

// Default tuning. Cost units are whatever the caller's cost function
// returns, typically vertex counts.
const (
	DefaultBudget   = 50_000
	DefaultMinItems = 5
	DefaultMaxItems = 100
)

// Page is the half-open index range [Start, End) of a collection.
type Page struct {
	Start int
	End   int
	Count int
	Cost  int64
}

// Planner holds the page bounds.
type Planner struct {
	Budget   int64 `yaml:"budget"`
	MinItems int   `yaml:"min_items"`
	MaxItems int   `yaml:"max_items"`
}

func DefaultPlanner() Planner {
	return Planner{Budget: DefaultBudget, MinItems: DefaultMinItems, MaxItems: DefaultMaxItems}
}

// Normalize fills unset bounds with defaults and keeps MinItems <=
// MaxItems.
func (p Planner) Normalize() Planner {
	if p.Budget <= 0 {
		p.Budget = DefaultBudget
	}
	if p.MinItems < 1 {
		p.MinItems = 1
	}
	if p.MaxItems < 1 {
		p.MaxItems = DefaultMaxItems
	}
	if p.MinItems > p.MaxItems {
		p.MinItems = p.MaxItems
	}
	return p
}

// Plan partitions items. A page is closed before adding the next item when
// either the item would push the page over budget and the page already
// holds MinItems, or the page already holds MaxItems. Pages cover [0,
// len(items)) contiguously and in order. An empty input yields no pages.
func Plan[T any](p Planner, items []T, cost func(T) int64) []Page {
	return AppendPlan(nil, p, items, cost)
}

// AppendPlan is Plan appending into dst, for callers that keep a page slice
// across frames.
func AppendPlan[T any](dst []Page, p Planner, items []T, cost func(T) int64) []Page {
	p = p.Normalize()
	if len(items) == 0 {
		return dst
	}
	cur := Page{}
	for i, it := range items {
		c := cost(it)
		if c < 0 {
			c = 0
		}
		if cur.Count > 0 &&
			((cur.Cost+c > p.Budget && cur.Count >= p.MinItems) || cur.Count >= p.MaxItems) {
			dst = append(dst, cur)
			cur = Page{Start: i}
		}
		cur.End = i + 1
		cur.Count++
		cur.Cost += c
	}
	return append(dst, cur)
}

// Find returns the index of the page holding item, or -1.
func Find(pages []Page, item int) int {
	lo, hi := 0, len(pages)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case item < pages[mid].Start:
			hi = mid
		case item >= pages[mid].End:
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// Clamp bounds a page index to the plan. It returns 0 for an empty plan.
func Clamp(pages []Page, page int) int {
	if page >= len(pages) {
		page = len(pages) - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// TotalCost sums the cost of all pages.
func TotalCost(pages []Page) int64 {
	var n int64
	for _, pg := range pages {
		n += pg.Cost
	}
	return n
}
