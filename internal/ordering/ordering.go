// Package ordering keeps sibling lists densely numbered from 0 under insert, delete and move.
package ordering

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAnchor = errors.New("ordering: anchor not in list")
	ErrUnknownItem   = errors.New("ordering: item not in list")
)

// Item is an element of an ordered sibling list. Items are usually pointers so that renumbering
// is visible to the caller.
type Item[K comparable] interface {
	OrderKey() K
	CurrentOrder() int
	SetSortOrder(int)
}

type anchorKind int

const (
	anchorEnd anchorKind = iota
	anchorTop
	anchorAfter
)

// Anchor names the position an item goes to: the top, the end, or right after a sibling.
type Anchor[K comparable] struct {
	kind anchorKind
	key  K
}

func Top[K comparable]() Anchor[K] { return Anchor[K]{kind: anchorTop} }

func End[K comparable]() Anchor[K] { return Anchor[K]{kind: anchorEnd} }

func After[K comparable](key K) Anchor[K] { return Anchor[K]{kind: anchorAfter, key: key} }

func (a Anchor[K]) IsTop() bool { return a.kind == anchorTop }

func (a Anchor[K]) IsEnd() bool { return a.kind == anchorEnd }

// Key returns the sibling an After anchor refers to.
func (a Anchor[K]) Key() (K, bool) {
	return a.key, a.kind == anchorAfter
}

// IndexOf returns the position of key, or -1.
func IndexOf[K comparable, T Item[K]](items []T, key K) int {
	for i, it := range items {
		if it.OrderKey() == key {
			return i
		}
	}
	return -1
}

// Insert places item at anchor and renumbers. The input slice is left untouched.
func Insert[K comparable, T Item[K]](items []T, item T, at Anchor[K]) ([]T, error) {
	pos, err := position(items, at)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:pos]...)
	out = append(out, item)
	out = append(out, items[pos:]...)
	Renumber[K, T](out)
	return out, nil
}

// Remove drops key and renumbers. It reports false, with a copy of items, when key is absent.
func Remove[K comparable, T Item[K]](items []T, key K) ([]T, bool) {
	idx := IndexOf(items, key)
	out := make([]T, 0, len(items))
	if idx < 0 {
		return append(out, items...), false
	}
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	Renumber[K, T](out)
	return out, true
}

// Move relocates key to anchor. Only the moved item and the items between its old and new
// position change sort order. On error nothing is modified.
func Move[K comparable, T Item[K]](items []T, key K, at Anchor[K]) ([]T, error) {
	idx := IndexOf(items, key)
	if idx < 0 {
		return nil, ErrUnknownItem
	}
	if k, ok := at.Key(); ok && k == key {
		out := append([]T(nil), items...)
		Renumber[K, T](out)
		return out, nil
	}
	item := items[idx]
	rest := make([]T, 0, len(items)-1)
	rest = append(rest, items[:idx]...)
	rest = append(rest, items[idx+1:]...)

	pos, err := position(rest, at)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	out = append(out, rest[:pos]...)
	out = append(out, item)
	out = append(out, rest[pos:]...)
	Renumber[K, T](out)
	return out, nil
}

// Renumber sets every sort order to the item's index and returns how many changed.
func Renumber[K comparable, T Item[K]](items []T) int {
	changed := 0
	for i, it := range items {
		if it.CurrentOrder() != i {
			it.SetSortOrder(i)
			changed++
		}
	}
	return changed
}

// Contiguous reports an error when sort orders are not exactly 0..n-1 in slice order.
func Contiguous[K comparable, T Item[K]](items []T) error {
	for i, it := range items {
		if it.CurrentOrder() != i {
			return &GapError{Index: i, SortOrder: it.CurrentOrder()}
		}
	}
	return nil
}

type GapError struct {
	Index     int
	SortOrder int
}

func (e *GapError) Error() string {
	return fmt.Sprintf("ordering: item at index %d has sort order %d", e.Index, e.SortOrder)
}

func position[K comparable, T Item[K]](items []T, at Anchor[K]) (int, error) {
	switch at.kind {
	case anchorTop:
		return 0, nil
	case anchorEnd:
		return len(items), nil
	}
	idx := IndexOf(items, at.key)
	if idx < 0 {
		return 0, ErrUnknownAnchor
	}
	return idx + 1, nil
}
