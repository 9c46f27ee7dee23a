package services

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/SAP-F-2025/answersheet-service/internal/cache"
	"github.com/SAP-F-2025/answersheet-service/internal/events"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type serviceFixture struct {
	svc       AnswersheetService
	repo      *memory.AnswersheetMemory
	cache     *cache.MemoryCache
	publisher *events.MockEventPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &serviceFixture{
		repo:      memory.NewAnswersheetMemory(),
		cache:     cache.NewMemoryCache(),
		publisher: events.NewMockEventPublisher(logger),
	}
	f.svc = NewAnswersheetService(f.repo, logger, nil, AnswersheetConfig{
		Cache:     f.cache,
		Publisher: f.publisher,
	})
	return f
}

func (f *serviceFixture) module(t *testing.T, questionID uint, name string) *models.Module {
	t.Helper()
	m, err := f.svc.CreateModule(context.Background(), models.ModuleFields{QuestionID: questionID, Name: name})
	require.NoError(t, err)
	return m
}

func (f *serviceFixture) rowOrder(t *testing.T, moduleID uint) []uint {
	t.Helper()
	rows, err := f.repo.ListRows(context.Background(), nil, moduleID)
	require.NoError(t, err)
	ids := make([]uint, len(rows))
	for i, r := range rows {
		assert.Equal(t, i, r.SortOrder)
		ids[i] = r.ID
	}
	return ids
}

func (f *serviceFixture) moduleOrder(t *testing.T, questionID uint) []uint {
	t.Helper()
	modules, err := f.svc.ListModules(context.Background(), questionID)
	require.NoError(t, err)
	ids := make([]uint, len(modules))
	for i, m := range modules {
		assert.Equal(t, i, m.SortOrder)
		ids[i] = m.ID
	}
	return ids
}

func docRow(id models.EntityID, name, options, answer string) models.DocumentRow {
	return models.DocumentRow{
		ID: id,
		Cells: []models.DocumentCell{
			{Column: models.ColumnName, Value: name},
			{Column: models.ColumnOptions, Value: options},
			{Column: models.ColumnAnswer, Value: answer},
			{Column: models.ColumnFeedback},
		},
	}
}

func TestAnswersheetService_CreateModule(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first := f.module(t, 7, "Part 1")
	assert.NotZero(t, first.ID)
	assert.Equal(t, models.SingleChoice, first.Kind)
	assert.Equal(t, models.DefaultOptionCount, first.OptionCount)
	assert.Equal(t, models.DefaultPointWeight, first.PointWeight)
	assert.Equal(t, 0, first.SortOrder)
	require.Len(t, first.Rows, 1)
	assert.Empty(t, first.Rows[0].Name)
	assert.JSONEq(t, `["-","A","B","C","D"]`, string(first.Rows[0].Options))

	second := f.module(t, 7, "Part 2")
	assert.Equal(t, 1, second.SortOrder)

	// another question numbers from zero
	other := f.module(t, 8, "")
	assert.Equal(t, 0, other.SortOrder)

	_, err := f.svc.CreateModule(ctx, models.ModuleFields{Name: "no question"})
	assert.True(t, IsValidation(err))

	_, err = f.svc.CreateModule(ctx, models.ModuleFields{QuestionID: 7, Kind: models.SingleChoice, OptionCount: 11})
	var rule *BusinessRuleError
	require.ErrorAs(t, err, &rule)
	assert.True(t, IsBusinessRule(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "option_limit", rule.Rule)
	assert.Equal(t, 10, rule.Context["max"])
	assert.Equal(t, 11, rule.Context["option_count"])

	letters, err := f.svc.CreateModule(ctx, models.ModuleFields{QuestionID: 7, Kind: models.LetterSequence, OptionCount: 12})
	require.NoError(t, err)
	assert.Equal(t, 2, letters.SortOrder)

	assert.Equal(t, []events.EventType{
		events.EventModuleCreated, events.EventModuleCreated, events.EventModuleCreated, events.EventModuleCreated,
	}, f.publisher.Types())
}

func TestAnswersheetService_CreateRow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	m := f.module(t, 1, "")
	r0 := m.Rows[0].ID

	end, err := f.svc.CreateRow(ctx, 1, m.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, end.SortOrder)
	assert.Equal(t, m.ID, end.ModuleID)

	middle, err := f.svc.CreateRow(ctx, 1, m.ID, r0)
	require.NoError(t, err)
	assert.Equal(t, 1, middle.SortOrder)
	assert.Equal(t, []uint{r0, middle.ID, end.ID}, f.rowOrder(t, m.ID))

	_, err = f.svc.CreateRow(ctx, 1, m.ID, 999)
	assert.True(t, IsNotFound(err))

	_, err = f.svc.CreateRow(ctx, 2, m.ID, 0)
	assert.True(t, IsNotFound(err), "module belongs to another question")
}

func TestAnswersheetService_DeleteRow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	m := f.module(t, 1, "")
	r0 := m.Rows[0].ID

	deleted, err := f.svc.DeleteRow(ctx, 1, r0)
	require.NoError(t, err)
	assert.False(t, deleted, "the only row of a module stays")
	assert.Equal(t, []uint{r0}, f.rowOrder(t, m.ID))

	r1, err := f.svc.CreateRow(ctx, 1, m.ID, 0)
	require.NoError(t, err)
	r2, err := f.svc.CreateRow(ctx, 1, m.ID, 0)
	require.NoError(t, err)

	deleted, err = f.svc.DeleteRow(ctx, 1, r1.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []uint{r0, r2.ID}, f.rowOrder(t, m.ID))

	_, err = f.svc.DeleteRow(ctx, 1, r1.ID)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, f.publisher.Types(), events.EventRowDeleted)
}

func TestAnswersheetService_DeleteModule(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	a := f.module(t, 1, "a")
	b := f.module(t, 1, "b")
	c := f.module(t, 1, "c")

	deleted, err := f.svc.DeleteModule(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []uint{a.ID, c.ID}, f.moduleOrder(t, 1))

	_, err = f.repo.GetRow(ctx, nil, b.Rows[0].ID)
	assert.Error(t, err, "rows go with their module")

	_, err = f.svc.DeleteModule(ctx, 2, a.ID)
	assert.True(t, IsNotFound(err))
}

func TestAnswersheetService_UpdateSortOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	a := f.module(t, 1, "a")
	b := f.module(t, 1, "b")
	c := f.module(t, 1, "c")

	moved, err := f.svc.UpdateSortOrder(ctx, 1, models.ReorderModule, c.ID, 0)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []uint{c.ID, a.ID, b.ID}, f.moduleOrder(t, 1))

	_, err = f.svc.UpdateSortOrder(ctx, 1, models.ReorderModule, c.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID, c.ID}, f.moduleOrder(t, 1))

	r0 := a.Rows[0].ID
	r1, err := f.svc.CreateRow(ctx, 1, a.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.UpdateSortOrder(ctx, 1, models.ReorderRow, r1.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{r1.ID, r0}, f.rowOrder(t, a.ID))

	_, err = f.svc.UpdateSortOrder(ctx, 1, models.ReorderKind("cell"), r1.ID, 0)
	assert.True(t, IsValidation(err))

	_, err = f.svc.UpdateSortOrder(ctx, 1, models.ReorderModule, 999, 0)
	assert.True(t, IsNotFound(err))

	_, err = f.svc.UpdateSortOrder(ctx, 1, models.ReorderRow, r1.ID, b.Rows[0].ID)
	assert.True(t, IsNotFound(err), "anchor row lives in another module")
}

func TestAnswersheetService_SetDataRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	existing := f.module(t, 3, "old")

	doc := models.Document{
		{
			ID:          models.Pending("m1"),
			Name:        "Listening",
			Kind:        models.SingleChoice,
			OptionCount: 4,
			Rows: []models.DocumentRow{
				docRow(models.Pending("r1"), "1", "B", ""),
				docRow(models.Pending("r2"), "2", "-", "D"),
			},
		},
		{
			ID:          models.Pending("m2"),
			Name:        "Spelling",
			Kind:        models.LetterSequence,
			OptionCount: 5,
			Rows:        []models.DocumentRow{docRow(models.EntityID{}, "3", "", " house ")},
		},
	}

	assigned, err := f.svc.SetData(ctx, 3, doc)
	require.NoError(t, err)
	assert.Len(t, assigned.Modules, 2)
	assert.Len(t, assigned.Rows, 2, "rows without an id get one but are not reported")
	assert.NotZero(t, assigned.Modules["tmp-m1"])
	assert.NotZero(t, assigned.Rows["tmp-r2"])

	// the module that was not in the document is gone
	_, err = f.repo.GetModule(ctx, nil, existing.ID)
	assert.Error(t, err)

	modules, err := f.svc.ListModules(ctx, 3)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "2", modules[0].Rows[0].Answer)
	assert.Equal(t, "4", modules[0].Rows[1].Answer)
	assert.Equal(t, "house", modules[1].Rows[0].Answer)

	got, err := f.svc.GetData(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.Persisted(assigned.Modules["tmp-m1"]), got[0].ID)
	assert.Equal(t, "4 ( A - D )", got[0].Indicator)
	assert.Equal(t, "B", got[0].Rows[0].Value(models.ColumnOptions))
	assert.Equal(t, "B", got[0].Rows[0].Value(models.ColumnAnswer))
	assert.Equal(t, "D", got[0].Rows[1].Value(models.ColumnAnswer))
	assert.Equal(t, "house", got[1].Rows[0].Value(models.ColumnAnswer))
	assert.Empty(t, got[1].Rows[0].Value(models.ColumnOptions))
	assert.Equal(t, 1, got[1].SortOrder)

	// saving what was fetched changes nothing
	again, err := f.svc.SetData(ctx, 3, got)
	require.NoError(t, err)
	assert.True(t, again.Empty())
	after, err := f.svc.GetData(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, got, after)

	assert.Equal(t, events.EventHierarchySaved, f.publisher.Types()[len(f.publisher.Types())-1])
}

func TestAnswersheetService_SetDataMovesRowsAcrossModules(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	a := f.module(t, 1, "a")
	b := f.module(t, 1, "b")
	moving := a.Rows[0].ID

	doc, err := f.svc.GetData(ctx, 1)
	require.NoError(t, err)
	doc[0].Rows = []models.DocumentRow{docRow(models.Pending("fresh"), "n", "", "")}
	doc[1].Rows = append(doc[1].Rows, docRow(models.Persisted(moving), "moved", "A", ""))

	_, err = f.svc.SetData(ctx, 1, doc)
	require.NoError(t, err)

	row, err := f.repo.GetRow(ctx, nil, moving)
	require.NoError(t, err)
	assert.Equal(t, b.ID, row.ModuleID)
	assert.Equal(t, 1, row.SortOrder)
	assert.Equal(t, "moved", row.Name)
}

func TestAnswersheetService_SetDataRecreatesMissingIDs(t *testing.T) {
	f := newServiceFixture(t)
	doc := models.Document{{
		ID:          models.Persisted(404),
		Kind:        models.FreeText,
		OptionCount: 1,
		Rows:        []models.DocumentRow{docRow(models.Persisted(405), "1", "", "yes")},
	}}

	assigned, err := f.svc.SetData(context.Background(), 9, doc)
	require.NoError(t, err)
	assert.NotZero(t, assigned.Modules["404"])
	assert.NotZero(t, assigned.Rows["405"])
}

func TestAnswersheetService_SetDataValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetData(ctx, 1, models.Document{{
		ID: models.Pending("m"), Kind: models.SingleChoice, OptionCount: 4,
	}})
	assert.True(t, IsValidation(err), "a module needs a row")

	_, err = f.svc.SetData(ctx, 0, models.Document{})
	assert.True(t, IsNotFound(err))
	assert.Empty(t, f.publisher.GetPublishedEvents())
}

// stalledRepo pauses the first non-transactional module listing after arm, once the rows
// have been read, so a write can commit while a cache fill is in flight.
type stalledRepo struct {
	*memory.AnswersheetMemory
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (r *stalledRepo) arm() {
	r.read = make(chan struct{})
	r.release = make(chan struct{})
	r.armed.Store(true)
}

func (r *stalledRepo) ListModules(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.Module, error) {
	modules, err := r.AnswersheetMemory.ListModules(ctx, tx, questionID)
	if r.armed.CompareAndSwap(true, false) {
		close(r.read)
		<-r.release
	}
	return modules, err
}

func TestAnswersheetService_WriteDuringCacheFillIsNotServedStale(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &stalledRepo{AnswersheetMemory: memory.NewAnswersheetMemory()}
	memCache := cache.NewMemoryCache()
	svc := NewAnswersheetService(repo, logger, nil, AnswersheetConfig{Cache: memCache})
	ctx := context.Background()

	m, err := svc.CreateModule(ctx, models.ModuleFields{QuestionID: 4})
	require.NoError(t, err)

	repo.arm()
	type result struct {
		doc models.Document
		err error
	}
	done := make(chan result, 1)
	go func() {
		doc, err := svc.GetData(ctx, 4)
		done <- result{doc, err}
	}()
	<-repo.read

	deleted, err := svc.DeleteModule(ctx, 4, m.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	close(repo.release)
	first := <-done
	require.NoError(t, first.err)
	assert.Len(t, first.doc, 1, "the read started before the delete")

	_, cached, err := memCache.GetHierarchy(ctx, 4)
	require.NoError(t, err)
	assert.False(t, cached, "a fill that raced a write must not land")

	doc, err := svc.GetData(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestAnswersheetService_CacheInvalidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	m := f.module(t, 5, "")

	doc, err := f.svc.GetData(ctx, 5)
	require.NoError(t, err)
	require.Len(t, doc[0].Rows, 1)

	_, ok, err := f.cache.GetHierarchy(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	// callers get their own copy
	doc[0].Name = "changed locally"
	again, err := f.svc.GetData(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, again[0].Name)

	_, err = f.svc.CreateRow(ctx, 5, m.ID, 0)
	require.NoError(t, err)
	_, ok, _ = f.cache.GetHierarchy(ctx, 5)
	assert.False(t, ok)

	doc, err = f.svc.GetData(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, doc[0].Rows, 2)

	_, err = f.svc.GetData(ctx, 0)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestAnswersheetService_GetColumns(t *testing.T) {
	f := newServiceFixture(t)
	cols := f.svc.GetColumns(context.Background())
	require.Len(t, cols, 4)
	assert.Equal(t, models.ColumnName, cols[0].Column)
	assert.Equal(t, models.ColumnFeedback, cols[3].Column)
}
