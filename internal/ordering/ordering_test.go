package ordering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	key   string
	order int
	sets  int
}

func (e *entry) OrderKey() string   { return e.key }
func (e *entry) CurrentOrder() int  { return e.order }
func (e *entry) SetSortOrder(n int) { e.order = n; e.sets++ }

func list(keys ...string) []*entry {
	out := make([]*entry, len(keys))
	for i, k := range keys {
		out[i] = &entry{key: k, order: i}
	}
	return out
}

func keys(items []*entry) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.key
	}
	return out
}

func assertContiguous(t *testing.T, items []*entry) {
	t.Helper()
	require.NoError(t, Contiguous[string](items))
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name   string
		anchor Anchor[string]
		want   []string
	}{
		{"top", Top[string](), []string{"x", "a", "b", "c"}},
		{"end", End[string](), []string{"a", "b", "c", "x"}},
		{"after middle", After("b"), []string{"a", "b", "x", "c"}},
		{"after last", After("c"), []string{"a", "b", "c", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := list("a", "b", "c")
			out, err := Insert(items, &entry{key: "x", order: -1}, tt.anchor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(out))
			assertContiguous(t, out)
			assert.Equal(t, []string{"a", "b", "c"}, keys(items))
		})
	}
}

func TestInsert_UnknownAnchor(t *testing.T) {
	items := list("a")
	_, err := Insert(items, &entry{key: "x"}, After("zzz"))
	assert.ErrorIs(t, err, ErrUnknownAnchor)
	assert.Equal(t, 0, items[0].order)
}

func TestRemove(t *testing.T) {
	items := list("a", "b", "c", "d")
	out, ok := Remove(items, "b")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c", "d"}, keys(out))
	assertContiguous(t, out)

	same, ok := Remove(out, "missing")
	assert.False(t, ok)
	assert.Equal(t, keys(out), keys(same))
}

func TestMove_TouchesOnlyTheSpan(t *testing.T) {
	items := list("a", "b", "c", "d", "e", "f")
	out, err := Move(items, "e", After("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "e", "b", "c", "d", "f"}, keys(out))
	assertContiguous(t, out)

	touched := map[string]int{}
	for _, it := range out {
		touched[it.key] = it.sets
	}
	assert.Equal(t, 0, touched["a"])
	assert.Equal(t, 0, touched["f"])
	assert.Equal(t, 1, touched["e"])
	assert.Equal(t, 1, touched["b"])
	assert.Equal(t, 1, touched["d"])
}

func TestMove_Anchors(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		anchor Anchor[string]
		want   []string
	}{
		{"to top", "c", Top[string](), []string{"c", "a", "b", "d"}},
		{"to end", "a", End[string](), []string{"b", "c", "d", "a"}},
		{"down", "a", After("c"), []string{"b", "c", "a", "d"}},
		{"after itself", "b", After("b"), []string{"a", "b", "c", "d"}},
		{"after predecessor", "c", After("b"), []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Move(list("a", "b", "c", "d"), tt.key, tt.anchor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(out))
			assertContiguous(t, out)
		})
	}
}

func TestMove_Errors(t *testing.T) {
	items := list("a", "b")
	_, err := Move(items, "zzz", Top[string]())
	assert.ErrorIs(t, err, ErrUnknownItem)

	_, err = Move(items, "a", After("zzz"))
	assert.ErrorIs(t, err, ErrUnknownAnchor)
	assert.Equal(t, []string{"a", "b"}, keys(items))
	assertContiguous(t, items)
}

func TestRenumberAndContiguous(t *testing.T) {
	items := []*entry{{key: "a", order: 3}, {key: "b", order: 1}, {key: "c", order: 7}}
	var gap *GapError
	require.ErrorAs(t, Contiguous[string](items), &gap)
	assert.Equal(t, 0, gap.Index)

	assert.Equal(t, 2, Renumber[string](items))
	assertContiguous(t, items)
	assert.Equal(t, 1, IndexOf(items, "b"))
	assert.Equal(t, -1, IndexOf(items, "z"))
}
