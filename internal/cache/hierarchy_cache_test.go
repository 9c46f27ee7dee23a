package cache

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheService) DeletePattern(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

func sampleDocument() models.Document {
	return models.Document{{
		ID:          models.Persisted(1),
		SortOrder:   1,
		Kind:        models.SingleChoice,
		OptionCount: 4,
		Rows: []models.DocumentRow{{
			ID:        models.Persisted(10),
			SortOrder: 1,
			Cells:     []models.DocumentCell{{Column: models.ColumnAnswer, Value: "B"}},
		}},
	}}
}

func TestHierarchyKey(t *testing.T) {
	assert.Equal(t, "answersheet:question:42", HierarchyKey(42))
}

func TestHierarchyCacheUsesKeyAndTTL(t *testing.T) {
	ctx := context.Background()
	store := new(MockCacheService)
	c := NewHierarchyCache(store, time.Minute)

	doc := sampleDocument()
	store.On("Set", ctx, "answersheet:question:7", doc, time.Minute).Return(nil)
	store.On("Delete", ctx, "answersheet:question:7").Return(nil)
	store.On("DeletePattern", ctx, "answersheet:question:*").Return(nil)

	require.NoError(t, c.SetHierarchy(ctx, 7, doc))
	require.NoError(t, c.Invalidate(ctx, 7))
	require.NoError(t, c.InvalidateAll(ctx))
	store.AssertExpectations(t)
}

func TestHierarchyCacheMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := new(MockCacheService)
	c := NewHierarchyCache(store, 0)

	store.On("Get", ctx, "answersheet:question:7", mock.Anything).Return(ErrCacheMiss)

	doc, ok, err := c.GetHierarchy(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestRedisCacheReportsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewHierarchyCache(NewRedisCache(client, utils.NewDevelopmentLogger()), time.Minute)
	_, ok, err := c.GetHierarchy(context.Background(), 7)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	doc := sampleDocument()
	require.NoError(t, c.SetHierarchy(ctx, 7, doc))

	doc[0].Rows[0].Cells[0].Value = "C"
	got, ok, err := c.GetHierarchy(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", got[0].Rows[0].Cells[0].Value)

	require.NoError(t, c.Invalidate(ctx, 7))
	_, ok, _ = c.GetHierarchy(ctx, 7)
	assert.False(t, ok)
}

func TestNoopCache(t *testing.T) {
	var c HierarchyCache = NoopCache{}
	require.NoError(t, c.SetHierarchy(context.Background(), 1, sampleDocument()))
	_, ok, err := c.GetHierarchy(context.Background(), 1)
	assert.NoError(t, err)
	assert.False(t, ok)
}
