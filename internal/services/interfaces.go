package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
)

// AnswersheetService is the server side of the persistence façade.
type AnswersheetService interface {
	GetColumns(ctx context.Context) []models.Column
	// GetData returns the answer sheet of a question with human answer values.
	GetData(ctx context.Context, questionID uint) (models.Document, error)
	// SetData replaces the answer sheet of a question with doc and returns the ids
	// created for entities that had none.
	SetData(ctx context.Context, questionID uint, doc models.Document) (models.IDAssignments, error)
	// CreateModule appends a module holding one default row.
	CreateModule(ctx context.Context, fields models.ModuleFields) (*models.Module, error)
	// CreateRow inserts a row after prevRowID, or at the end when prevRowID is 0.
	CreateRow(ctx context.Context, questionID, moduleID, prevRowID uint) (*models.AnswerRow, error)
	DeleteModule(ctx context.Context, questionID, moduleID uint) (bool, error)
	// DeleteRow reports false without error for the only row of a module.
	DeleteRow(ctx context.Context, questionID, rowID uint) (bool, error)
	// UpdateSortOrder moves a row or module after prevID, or to the top when prevID is 0.
	UpdateSortOrder(ctx context.Context, questionID uint, kind models.ReorderKind, id, prevID uint) (bool, error)
	// ListModules returns the persisted modules with stored values.
	ListModules(ctx context.Context, questionID uint) ([]*models.Module, error)
}

// GradingService grades responses against the answer key of a question.
type GradingService interface {
	Grade(ctx context.Context, questionID uint, response Response) (*GradeResult, error)
	ClearWrong(ctx context.Context, questionID uint, response Response) (Response, error)
	IsComplete(ctx context.Context, questionID uint, response Response) (bool, error)
	IsGradable(ctx context.Context, questionID uint, response Response) (bool, error)
	Summarise(ctx context.Context, questionID uint, response Response) (string, error)
	CorrectResponse(ctx context.Context, questionID uint) (Response, error)
	FinalGrade(ctx context.Context, questionID uint, tries []Response, penalty float64) (float64, error)
}

// ImportExportService moves answer keys in and out as spreadsheets.
type ImportExportService interface {
	ExportXLSX(ctx context.Context, questionID uint, w io.Writer) error
	ImportXLSX(ctx context.Context, questionID uint, r io.Reader) (*ImportResult, error)
}
