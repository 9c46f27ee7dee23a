// Package store is a small keyed observable used to hand editor state to whoever renders it.
package store

import (
	"reflect"
	"sync"

	apperrors "github.com/SAP-F-2025/answersheet-service/internal/errors"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
)

// Subscriber receives the full value map after a key it listens on changes.
// Implementations must be comparable so they can be unsubscribed.
type Subscriber interface {
	Notify(values map[string]any)
}

// Listener adapts a function to Subscriber. Use NewListener; each call yields a distinct subscriber.
type Listener struct {
	fn func(map[string]any)
}

func NewListener(fn func(map[string]any)) *Listener {
	return &Listener{fn: fn}
}

func (l *Listener) Notify(values map[string]any) {
	if l != nil && l.fn != nil {
		l.fn(values)
	}
}

type Store struct {
	mu     sync.Mutex
	values map[string]any
	subs   map[string][]Subscriber
	logger utils.Logger
}

func New(logger utils.Logger) *Store {
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &Store{
		values: make(map[string]any),
		subs:   make(map[string][]Subscriber),
		logger: logger,
	}
}

// Set replaces the value under key and synchronously notifies that key's subscribers.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	subs := append([]Subscriber(nil), s.subs[key]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if len(subs) == 0 {
		s.logger.Warn("store key has no subscribers", "key", key)
		return
	}
	for i, sub := range subs {
		// every subscriber gets its own map
		if i > 0 {
			snapshot = cloneValues(snapshot)
		}
		sub.Notify(snapshot)
	}
}

func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Subscribe registers sub for key. Registering the same pair twice is a no-op.
func (s *Store) Subscribe(key string, sub Subscriber) error {
	if key == "" {
		return apperrors.NewInvalidArgument("key", "must not be empty")
	}
	if !validSubscriber(sub) {
		return apperrors.NewInvalidArgument("subscriber", "must be a non-nil comparable value")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs[key] {
		if existing == sub {
			return nil
		}
	}
	s.subs[key] = append(s.subs[key], sub)
	return nil
}

// Unsubscribe removes every registration of sub, across all keys.
func (s *Store) Unsubscribe(sub Subscriber) {
	if !validSubscriber(sub) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, list := range s.subs {
		kept := list[:0]
		for _, existing := range list {
			if existing != sub {
				kept = append(kept, existing)
			}
		}
		if len(kept) == 0 {
			delete(s.subs, key)
			continue
		}
		s.subs[key] = kept
	}
}

func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() map[string]any {
	return cloneValues(s.values)
}

func cloneValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func validSubscriber(sub Subscriber) bool {
	if sub == nil {
		return false
	}
	v := reflect.ValueOf(sub)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return false
	}
	return v.Type().Comparable()
}
