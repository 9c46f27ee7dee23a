package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned (wrapped) when a module or row does not exist.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means the requested record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// EntityOrder assigns a sort order to one module or row.
type EntityOrder struct {
	ID        uint `json:"id"`
	SortOrder int  `json:"sort_order"`
}

// AnswersheetRepository persists the modules and answer rows of a question.
// A nil tx runs the call outside any transaction.
type AnswersheetRepository interface {
	// Modules
	CreateModule(ctx context.Context, tx *gorm.DB, module *models.Module) error
	GetModule(ctx context.Context, tx *gorm.DB, id uint) (*models.Module, error)
	UpdateModule(ctx context.Context, tx *gorm.DB, module *models.Module) error
	DeleteModule(ctx context.Context, tx *gorm.DB, id uint) error
	ListModules(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.Module, error)
	UpdateModuleOrders(ctx context.Context, tx *gorm.DB, questionID uint, orders []EntityOrder) error
	GetNextModuleOrder(ctx context.Context, tx *gorm.DB, questionID uint) (int, error)
	DeleteModulesExcept(ctx context.Context, tx *gorm.DB, questionID uint, keep []uint) error

	// Rows
	CreateRow(ctx context.Context, tx *gorm.DB, row *models.AnswerRow) error
	GetRow(ctx context.Context, tx *gorm.DB, id uint) (*models.AnswerRow, error)
	UpdateRow(ctx context.Context, tx *gorm.DB, row *models.AnswerRow) error
	DeleteRow(ctx context.Context, tx *gorm.DB, id uint) error
	ListRows(ctx context.Context, tx *gorm.DB, moduleID uint) ([]*models.AnswerRow, error)
	CountRows(ctx context.Context, tx *gorm.DB, moduleID uint) (int64, error)
	UpdateRowOrders(ctx context.Context, tx *gorm.DB, moduleID uint, orders []EntityOrder) error
	DeleteRowsExcept(ctx context.Context, tx *gorm.DB, moduleID uint, keep []uint) error

	// WithTransaction runs fn in one transaction and rolls back when it returns an error.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
