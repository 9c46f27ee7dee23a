package store

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/answersheet-service/internal/errors"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
)

type funcSubscriber struct {
	fns []func(map[string]any)
}

func (f funcSubscriber) Notify(map[string]any) {}

func newTestStore() *Store {
	return New(utils.NewDevelopmentLogger())
}

func TestStore_SetWithoutSubscriberWarns(t *testing.T) {
	var buf bytes.Buffer
	s := New(utils.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	s.Set("orphan", 1)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "key=orphan")

	buf.Reset()
	require.NoError(t, s.Subscribe("watched", NewListener(func(map[string]any) {})))
	s.Set("watched", 1)
	assert.Empty(t, buf.String())
}

func TestStore_SetNotifiesWithFullMap(t *testing.T) {
	s := newTestStore()
	s.Set("columns", []string{"name"})

	var got []map[string]any
	l := NewListener(func(values map[string]any) { got = append(got, values) })
	require.NoError(t, s.Subscribe("modules", l))

	s.Set("modules", 1)
	s.Set("modules", 2)
	s.Set("other", 3)

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1]["modules"])
	assert.Equal(t, []string{"name"}, got[1]["columns"])
	_, hasOther := got[1]["other"]
	assert.False(t, hasOther)
}

func TestStore_SetWithoutSubscribers(t *testing.T) {
	s := newTestStore()
	assert.NotPanics(t, func() { s.Set("lonely", "v") })

	v, ok := s.Get("lonely")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_DuplicateSubscribeIsNoop(t *testing.T) {
	s := newTestStore()
	calls := 0
	l := NewListener(func(map[string]any) { calls++ })

	require.NoError(t, s.Subscribe("k", l))
	require.NoError(t, s.Subscribe("k", l))
	s.Set("k", true)

	assert.Equal(t, 1, calls)
}

func TestStore_AllSubscribersNotifiedInOrder(t *testing.T) {
	s := newTestStore()
	var order []string
	a := NewListener(func(map[string]any) { order = append(order, "a") })
	b := NewListener(func(map[string]any) { order = append(order, "b") })
	require.NoError(t, s.Subscribe("k", a))
	require.NoError(t, s.Subscribe("k", b))

	s.Set("k", 1)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestStore_SubscriberMayReadStore(t *testing.T) {
	s := newTestStore()
	var seen any
	l := NewListener(func(map[string]any) { seen, _ = s.Get("k") })
	require.NoError(t, s.Subscribe("k", l))

	s.Set("k", "value")
	assert.Equal(t, "value", seen)
}

func TestStore_SubscriberMapsAreIndependent(t *testing.T) {
	s := newTestStore()
	a := NewListener(func(values map[string]any) { values["k"] = "mutated" })
	var seen any
	b := NewListener(func(values map[string]any) { seen = values["k"] })
	require.NoError(t, s.Subscribe("k", a))
	require.NoError(t, s.Subscribe("k", b))

	s.Set("k", "original")
	assert.Equal(t, "original", seen)
	v, _ := s.Get("k")
	assert.Equal(t, "original", v)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := newTestStore()
	calls := 0
	l := NewListener(func(map[string]any) { calls++ })
	require.NoError(t, s.Subscribe("a", l))
	require.NoError(t, s.Subscribe("b", l))

	s.Unsubscribe(l)
	s.Set("a", 1)
	s.Set("b", 1)

	assert.Zero(t, calls)
}

func TestStore_SubscribeInvalidArguments(t *testing.T) {
	s := newTestStore()
	var nilListener *Listener

	tests := []struct {
		name string
		key  string
		sub  Subscriber
	}{
		{"empty key", "", NewListener(func(map[string]any) {})},
		{"nil subscriber", "k", nil},
		{"nil pointer subscriber", "k", nilListener},
		{"non comparable subscriber", "k", funcSubscriber{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Subscribe(tt.key, tt.sub)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		})
	}
}

func TestStore_Snapshot(t *testing.T) {
	s := newTestStore()
	s.Set("a", 1)
	snap := s.Snapshot()
	snap["a"] = 2

	v, _ := s.Get("a")
	assert.Equal(t, 1, v)
}
