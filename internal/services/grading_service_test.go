package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gradingFixture struct {
	svc            GradingService
	r1, r2, r3, r4 uint
	choice, free   uint
}

// newGradingFixture stores the key B, D | house | Café (weight 2).
func newGradingFixture(t *testing.T) *gradingFixture {
	t.Helper()
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.svc.SetData(ctx, 1, models.Document{
		{
			Kind: models.SingleChoice, OptionCount: 4,
			Rows: []models.DocumentRow{
				docRow(models.EntityID{}, "1", "B", ""),
				docRow(models.EntityID{}, "2", "", "D"),
			},
		},
		{
			Kind: models.LetterSequence, OptionCount: 5,
			Rows: []models.DocumentRow{docRow(models.EntityID{}, "3", "", "house")},
		},
		{
			Kind: models.FreeText, OptionCount: 1, PointWeight: 2,
			Rows: []models.DocumentRow{docRow(models.EntityID{}, "4", "", "Café")},
		},
	})
	require.NoError(t, err)

	modules, err := f.svc.ListModules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, modules, 3)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &gradingFixture{
		svc:    NewGradingService(f.repo, logger),
		r1:     modules[0].Rows[0].ID,
		r2:     modules[0].Rows[1].ID,
		r3:     modules[1].Rows[0].ID,
		r4:     modules[2].Rows[0].ID,
		choice: modules[0].ID,
		free:   modules[2].ID,
	}
}

func TestGradingService_Grade(t *testing.T) {
	g := newGradingFixture(t)

	result, err := g.svc.Grade(context.Background(), 1, Response{
		g.r1: "2", // index of B
		g.r2: "A",
		g.r3: " HOUSE ",
		g.r4: "cafe",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowsRight)
	assert.Equal(t, 4, result.RowsTotal)
	assert.InDelta(t, 0.75, result.Fraction, 1e-9)
	assert.Equal(t, GradedPartial, result.State)
	assert.InDelta(t, 4.0, result.Points, 1e-9)
	assert.InDelta(t, 5.0, result.MaxPoints, 1e-9)

	require.Len(t, result.Rows, 4)
	assert.Equal(t, "B", result.Rows[0].Response)
	assert.True(t, result.Rows[0].Correct)
	assert.Equal(t, g.choice, result.Rows[0].ModuleID)
	assert.False(t, result.Rows[1].Correct)
	assert.Equal(t, "D", result.Rows[1].Expected)
	assert.Equal(t, g.free, result.Rows[3].ModuleID)
}

func TestGradingService_GradeStates(t *testing.T) {
	g := newGradingFixture(t)
	ctx := context.Background()

	right, err := g.svc.Grade(ctx, 1, Response{g.r1: "B", g.r2: "d", g.r3: "house", g.r4: "Café"})
	require.NoError(t, err)
	assert.Equal(t, GradedRight, right.State)
	assert.InDelta(t, 1.0, right.Fraction, 1e-9)

	empty, err := g.svc.Grade(ctx, 1, Response{g.r1: "0", g.r2: "-"})
	require.NoError(t, err)
	assert.Equal(t, GradedWrong, empty.State)
	assert.False(t, empty.Rows[0].Answered)
	assert.False(t, empty.Rows[1].Answered)

	outOfRange, err := g.svc.Grade(ctx, 1, Response{g.r1: "9"})
	require.NoError(t, err)
	assert.False(t, outOfRange.Rows[0].Answered)
}

func TestStateForFraction(t *testing.T) {
	tests := []struct {
		fraction float64
		want     GradeState
	}{
		{0, GradedWrong},
		{1e-9, GradedWrong},
		{0.5, GradedPartial},
		{1 - 1e-9, GradedRight},
		{1, GradedRight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StateForFraction(tt.fraction), "fraction %v", tt.fraction)
	}
}

func TestGradingService_ClearWrong(t *testing.T) {
	g := newGradingFixture(t)
	in := Response{g.r1: "B", g.r2: "A", g.r3: "hose", 999: "kept"}

	out, err := g.svc.ClearWrong(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, Response{g.r1: "B", 999: "kept"}, out)
	assert.Len(t, in, 4, "input is not modified")
}

func TestGradingService_CompleteAndGradable(t *testing.T) {
	g := newGradingFixture(t)
	ctx := context.Background()

	complete, err := g.svc.IsComplete(ctx, 1, Response{g.r1: "A", g.r2: "A", g.r3: "x", g.r4: "y"})
	require.NoError(t, err)
	assert.True(t, complete)

	complete, err = g.svc.IsComplete(ctx, 1, Response{g.r1: "A", g.r2: "A", g.r3: "x", g.r4: "  "})
	require.NoError(t, err)
	assert.False(t, complete)

	gradable, err := g.svc.IsGradable(ctx, 1, Response{})
	require.NoError(t, err)
	assert.False(t, gradable)

	gradable, err = g.svc.IsGradable(ctx, 1, Response{g.r1: "0"})
	require.NoError(t, err)
	assert.False(t, gradable, "index 0 is the placeholder")

	gradable, err = g.svc.IsGradable(ctx, 1, Response{g.r3: "x"})
	require.NoError(t, err)
	assert.True(t, gradable)
}

func TestGradingService_Summarise(t *testing.T) {
	g := newGradingFixture(t)

	summary, err := g.svc.Summarise(context.Background(), 1, Response{g.r1: "2", g.r3: "house"})
	require.NoError(t, err)
	assert.Equal(t, "1 -> B, 2 -> house", summary)

	summary, err = g.svc.Summarise(context.Background(), 1, Response{})
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestGradingService_CorrectResponseAndFinalGrade(t *testing.T) {
	g := newGradingFixture(t)
	ctx := context.Background()

	correct, err := g.svc.CorrectResponse(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Response{g.r1: "B", g.r2: "D", g.r3: "house", g.r4: "Café"}, correct)

	full, err := g.svc.Grade(ctx, 1, correct)
	require.NoError(t, err)
	assert.Equal(t, GradedRight, full.State)

	final, err := g.svc.FinalGrade(ctx, 1, []Response{{g.r1: "A"}, {g.r1: "B"}}, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.9/4, final, 1e-9)

	final, err = g.svc.FinalGrade(ctx, 1, []Response{correct}, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, final, 1e-9)
}

func TestGradingService_UnansweredChoiceReadsBackEmpty(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetData(ctx, 3, models.Document{{
		Kind: models.SingleChoice, OptionCount: 4,
		Rows: []models.DocumentRow{
			docRow(models.EntityID{}, "1", "", "C"),
			docRow(models.EntityID{}, "2", "", ""),
		},
	}})
	require.NoError(t, err)

	doc, err := f.svc.GetData(ctx, 3)
	require.NoError(t, err)
	require.Len(t, doc, 1)
	require.Len(t, doc[0].Rows, 2)
	assert.Equal(t, "C", doc[0].Rows[0].Value(models.ColumnAnswer))
	assert.Equal(t, "", doc[0].Rows[1].Value(models.ColumnAnswer))
	assert.Equal(t, "", doc[0].Rows[1].Value(models.ColumnOptions))

	svc := NewGradingService(f.repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	correct, err := svc.CorrectResponse(ctx, 3)
	require.NoError(t, err)
	modules, err := f.svc.ListModules(ctx, 3)
	require.NoError(t, err)
	rows := modules[0].Rows
	assert.Equal(t, Response{rows[0].ID: "C", rows[1].ID: ""}, correct)
}

func TestGradingService_NoAnswerKey(t *testing.T) {
	g := newGradingFixture(t)

	_, err := g.svc.Grade(context.Background(), 42, Response{})
	assert.True(t, IsNotFound(err))

	_, err = g.svc.Summarise(context.Background(), 0, Response{})
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}
