package grid

import (
	"context"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
)

// Backend is the persistence side the editor talks to. Every call may fail; the editor never
// retries and never rolls back local state on failure.
type Backend interface {
	FetchSchema(ctx context.Context) ([]models.Column, error)
	FetchHierarchy(ctx context.Context, questionID uint) (models.Document, error)
	// CreateModule returns the stored module, including the default row the server created.
	CreateModule(ctx context.Context, fields models.ModuleFields) (*models.Module, error)
	// CreateRow inserts an empty row after afterRowID, or at the end when afterRowID is 0.
	CreateRow(ctx context.Context, moduleID, afterRowID uint) (uint, error)
	DeleteModule(ctx context.Context, moduleID uint) (bool, error)
	DeleteRow(ctx context.Context, rowID uint) (bool, error)
	// Reorder moves an entity after afterID, or to the top when afterID is 0.
	Reorder(ctx context.Context, kind models.ReorderKind, entityID, afterID uint) (bool, error)
	SaveHierarchy(ctx context.Context, questionID uint, doc models.Document) (models.IDAssignments, error)
}
