package intern

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternSharesBacking(t *testing.T) {
	in := New(8)

	a := in.Intern(strings.Repeat("x", 16))
	b := in.Intern(strings.Repeat("x", 16))
	require.Equal(t, a, b)
	assert.Equal(t, unsafe.StringData(a), unsafe.StringData(b))

	st := in.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, 1, st.Len)
}

func TestSprintf(t *testing.T) {
	in := New(8)
	s := in.Sprintf("Meshes (%d)", 3)
	assert.Equal(t, "Meshes (3)", s)
	in.Sprintf("Meshes (%d)", 3)

	st := in.Stats()
	assert.Equal(t, uint64(2), st.Formats)
	assert.Equal(t, uint64(1), st.Hits)
}

func TestBoundedCapacity(t *testing.T) {
	in := New(2)
	in.Intern("a")
	in.Intern("b")
	in.Intern("c")

	st := in.Stats()
	assert.Equal(t, 2, st.Len)
	assert.Equal(t, uint64(1), st.Evictions)

	in.Purge()
	assert.Equal(t, 0, in.Stats().Len)
}

func TestDefaultCapacity(t *testing.T) {
	in := New(0)
	for i := 0; i < 10; i++ {
		in.Intern(strings.Repeat("y", i+1))
	}
	assert.Equal(t, 10, in.Stats().Len)
}
