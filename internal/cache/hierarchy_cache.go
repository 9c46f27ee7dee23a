package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
)

const (
	hierarchyKeyPrefix = "answersheet:question:"
	DefaultTTL         = 10 * time.Minute
)

// HierarchyKey is the cache key of one question's answer sheet.
func HierarchyKey(questionID uint) string {
	return fmt.Sprintf("%s%d", hierarchyKeyPrefix, questionID)
}

// HierarchyCache holds fetched answer sheets between writes.
type HierarchyCache interface {
	GetHierarchy(ctx context.Context, questionID uint) (models.Document, bool, error)
	SetHierarchy(ctx context.Context, questionID uint, doc models.Document) error
	Invalidate(ctx context.Context, questionID uint) error
	InvalidateAll(ctx context.Context) error
}

type hierarchyCache struct {
	store CacheService
	ttl   time.Duration
}

// NewHierarchyCache stores answer sheets in store with the given ttl. A ttl of
// zero uses DefaultTTL.
func NewHierarchyCache(store CacheService, ttl time.Duration) HierarchyCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &hierarchyCache{store: store, ttl: ttl}
}

func (c *hierarchyCache) GetHierarchy(ctx context.Context, questionID uint) (models.Document, bool, error) {
	var doc models.Document
	if err := c.store.Get(ctx, HierarchyKey(questionID), &doc); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}

func (c *hierarchyCache) SetHierarchy(ctx context.Context, questionID uint, doc models.Document) error {
	if doc == nil {
		doc = models.Document{}
	}
	return c.store.Set(ctx, HierarchyKey(questionID), doc, c.ttl)
}

func (c *hierarchyCache) Invalidate(ctx context.Context, questionID uint) error {
	return c.store.Delete(ctx, HierarchyKey(questionID))
}

func (c *hierarchyCache) InvalidateAll(ctx context.Context) error {
	return c.store.DeletePattern(ctx, hierarchyKeyPrefix+"*")
}

// NoopCache never holds anything. Used when redis is not configured.
type NoopCache struct{}

func (NoopCache) GetHierarchy(context.Context, uint) (models.Document, bool, error) {
	return nil, false, nil
}
func (NoopCache) SetHierarchy(context.Context, uint, models.Document) error { return nil }
func (NoopCache) Invalidate(context.Context, uint) error                    { return nil }
func (NoopCache) InvalidateAll(context.Context) error                       { return nil }

// MemoryCache keeps answer sheets in process without expiry.
type MemoryCache struct {
	mu   sync.RWMutex
	docs map[uint]models.Document
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{docs: map[uint]models.Document{}}
}

func (c *MemoryCache) GetHierarchy(_ context.Context, questionID uint) (models.Document, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[questionID]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

func (c *MemoryCache) SetHierarchy(_ context.Context, questionID uint, doc models.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[questionID] = doc.Clone()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, questionID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, questionID)
	return nil
}

func (c *MemoryCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = map[uint]models.Document{}
	return nil
}
