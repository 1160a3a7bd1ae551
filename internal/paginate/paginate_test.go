package paginate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(v int64) int64 { return v }

func TestPlanEmpty(t *testing.T) {
	assert.Empty(t, Plan(DefaultPlanner(), []int64(nil), identity))
}

func TestPlanSinglePage(t *testing.T) {
	pages := Plan(DefaultPlanner(), []int64{1, 2, 3}, identity)
	require.Len(t, pages, 1)
	assert.Equal(t, Page{Start: 0, End: 3, Count: 3, Cost: 6}, pages[0])
}

func TestPlanTwoMeshes(t *testing.T) {
	p := Planner{Budget: 2500, MinItems: 1, MaxItems: 100}
	pages := Plan(p, []int64{1000, 2000}, identity)
	assert.Equal(t, []Page{
		{Start: 0, End: 1, Count: 1, Cost: 1000},
		{Start: 1, End: 2, Count: 1, Cost: 2000},
	}, pages)
}

func TestPlanMaxItems(t *testing.T) {
	items := make([]int64, 250)
	for i := range items {
		items[i] = 1
	}
	pages := Plan(DefaultPlanner(), items, identity)
	require.Len(t, pages, 3)
	assert.Equal(t, 100, pages[0].Count)
	assert.Equal(t, 100, pages[1].Count)
	assert.Equal(t, 50, pages[2].Count)
}

func TestPlanMinItemsHoldsHugeItems(t *testing.T) {
	p := Planner{Budget: 10, MinItems: 3, MaxItems: 100}
	pages := Plan(p, []int64{100, 100, 100, 100, 100, 100, 100}, identity)
	require.Len(t, pages, 3)
	assert.Equal(t, 3, pages[0].Count)
	assert.Equal(t, 3, pages[1].Count)
	assert.Equal(t, 1, pages[2].Count)
}

func TestPlanProperties(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		n := 1 + r.Intn(400)
		items := make([]int64, n)
		for i := range items {
			items[i] = r.Int63n(5000)
		}
		p := Planner{
			Budget:   1 + r.Int63n(20000),
			MinItems: 1 + r.Intn(8),
			MaxItems: 8 + r.Intn(60),
		}
		pages := Plan(p, items, identity)
		require.NotEmpty(t, pages)

		next := 0
		for i, pg := range pages {
			assert.Equal(t, next, pg.Start, "pages must be contiguous")
			assert.Equal(t, pg.End-pg.Start, pg.Count)
			assert.GreaterOrEqual(t, pg.Count, 1)
			assert.LessOrEqual(t, pg.Count, p.MaxItems)

			var cost int64
			for _, it := range items[pg.Start:pg.End] {
				cost += it
			}
			assert.Equal(t, cost, pg.Cost)

			if i < len(pages)-1 && pg.Count < p.MinItems {
				t.Fatalf("page %d has %d items, below min %d", i, pg.Count, p.MinItems)
			}
			next = pg.End
		}
		assert.Equal(t, n, next, "pages must cover every item")
		assert.Equal(t, pages, AppendPlan(nil, p, items, identity))
	}
}

func TestFindAndClamp(t *testing.T) {
	pages := []Page{{Start: 0, End: 3}, {Start: 3, End: 5}, {Start: 5, End: 9}}
	assert.Equal(t, 0, Find(pages, 2))
	assert.Equal(t, 1, Find(pages, 3))
	assert.Equal(t, 2, Find(pages, 8))
	assert.Equal(t, -1, Find(pages, 9))
	assert.Equal(t, -1, Find(nil, 0))

	assert.Equal(t, 2, Clamp(pages, 7))
	assert.Equal(t, 0, Clamp(pages, -1))
	assert.Equal(t, 0, Clamp(nil, 3))
}

func TestNormalize(t *testing.T) {
	p := Planner{MinItems: 50, MaxItems: 10}.Normalize()
	assert.Equal(t, int64(DefaultBudget), p.Budget)
	assert.Equal(t, 10, p.MinItems)
}
