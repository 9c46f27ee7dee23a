package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedModule(t *testing.T, repo *AnswersheetMemory, questionID uint, order int, rows int) *models.Module {
	t.Helper()
	m := &models.Module{QuestionID: questionID, SortOrder: order, Kind: models.SingleChoice, OptionCount: 4, PointWeight: 1}
	for i := 0; i < rows; i++ {
		m.Rows = append(m.Rows, models.AnswerRow{SortOrder: i + 1, Name: "r"})
	}
	require.NoError(t, repo.CreateModule(context.Background(), nil, m))
	return m
}

func TestCreateModuleAssignsIDs(t *testing.T) {
	repo := NewAnswersheetMemory()
	m := seedModule(t, repo, 7, 1, 2)

	assert.Equal(t, uint(1), m.ID)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, uint(1), m.Rows[0].ID)
	assert.Equal(t, uint(2), m.Rows[1].ID)
	assert.Equal(t, m.ID, m.Rows[1].ModuleID)

	got, err := repo.GetModule(context.Background(), nil, m.ID)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 2)
}

func TestListModulesSorted(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswersheetMemory()
	a := seedModule(t, repo, 7, 2, 1)
	b := seedModule(t, repo, 7, 1, 1)
	seedModule(t, repo, 8, 1, 1)

	modules, err := repo.ListModules(ctx, nil, 7)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, b.ID, modules[0].ID)
	assert.Equal(t, a.ID, modules[1].ID)

	next, err := repo.GetNextModuleOrder(ctx, nil, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswersheetMemory()
	m := seedModule(t, repo, 7, 1, 1)

	got, err := repo.GetModule(ctx, nil, m.ID)
	require.NoError(t, err)
	got.Name = "changed"
	got.Rows[0].Name = "changed"

	again, err := repo.GetModule(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Name)
	assert.Equal(t, "r", again.Rows[0].Name)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswersheetMemory()

	_, err := repo.GetModule(ctx, nil, 42)
	assert.True(t, repositories.IsNotFoundError(err))
	_, err = repo.GetRow(ctx, nil, 42)
	assert.True(t, repositories.IsNotFoundError(err))
	assert.True(t, repositories.IsNotFoundError(repo.DeleteRow(ctx, nil, 42)))
	assert.True(t, repositories.IsNotFoundError(repo.CreateRow(ctx, nil, &models.AnswerRow{ModuleID: 42})))
}

func TestDeleteModuleCascadesRows(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswersheetMemory()
	m := seedModule(t, repo, 7, 1, 3)

	require.NoError(t, repo.DeleteModule(ctx, nil, m.ID))
	n, err := repo.CountRows(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteExcept(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswersheetMemory()
	a := seedModule(t, repo, 7, 1, 3)
	b := seedModule(t, repo, 7, 2, 1)

	require.NoError(t, repo.DeleteRowsExcept(ctx, nil, a.ID, []uint{a.Rows[1].ID}))
	rows, err := repo.ListRows(ctx, nil, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.Rows[1].ID, rows[0].ID)

	require.NoError(t, repo.DeleteModulesExcept(ctx, nil, 7, []uint{a.ID}))
	_, err = repo.GetModule(ctx, nil, b.ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestUpdateOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswersheetMemory()
	m := seedModule(t, repo, 7, 1, 2)

	require.NoError(t, repo.UpdateRowOrders(ctx, nil, m.ID, []repositories.EntityOrder{
		{ID: m.Rows[0].ID, SortOrder: 2},
		{ID: m.Rows[1].ID, SortOrder: 1},
	}))
	rows, err := repo.ListRows(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Rows[1].ID, rows[0].ID)
}

func TestWithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswersheetMemory()
	m := seedModule(t, repo, 7, 1, 1)

	boom := errors.New("boom")
	err := repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		require.NoError(t, repo.DeleteModule(ctx, tx, m.ID))
		seedModule(t, repo, 7, 2, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	modules, err := repo.ListModules(ctx, nil, 7)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, m.ID, modules[0].ID)

	// the rollback restored the id counters too
	next := seedModule(t, repo, 7, 2, 0)
	assert.Equal(t, uint(2), next.ID)
}
