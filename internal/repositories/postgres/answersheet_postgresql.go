package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
	"gorm.io/gorm"
)

type AnswersheetPostgreSQL struct {
	db *gorm.DB
}

func NewAnswersheetPostgreSQL(db *gorm.DB) repositories.AnswersheetRepository {
	return &AnswersheetPostgreSQL{db: db}
}

func (r *AnswersheetPostgreSQL) getDB(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// ===== MODULES =====

// CreateModule inserts the module together with any rows attached to it.
func (r *AnswersheetPostgreSQL) CreateModule(ctx context.Context, tx *gorm.DB, module *models.Module) error {
	if err := r.getDB(ctx, tx).Create(module).Error; err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	return nil
}

// GetModule loads a module with its rows in sort order
func (r *AnswersheetPostgreSQL) GetModule(ctx context.Context, tx *gorm.DB, id uint) (*models.Module, error) {
	var module models.Module
	err := r.getDB(ctx, tx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		First(&module, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("module %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return &module, nil
}

// UpdateModule saves the module columns. Rows are left untouched.
func (r *AnswersheetPostgreSQL) UpdateModule(ctx context.Context, tx *gorm.DB, module *models.Module) error {
	result := r.getDB(ctx, tx).
		Model(&models.Module{}).
		Where("id = ?", module.ID).
		Updates(map[string]interface{}{
			"sort_order":   module.SortOrder,
			"name":         module.Name,
			"answer_kind":  module.Kind,
			"option_count": module.OptionCount,
			"point_weight": module.PointWeight,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update module: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("module %d: %w", module.ID, repositories.ErrNotFound)
	}
	return nil
}

// DeleteModule removes the module and its rows
func (r *AnswersheetPostgreSQL) DeleteModule(ctx context.Context, tx *gorm.DB, id uint) error {
	return r.inTx(ctx, tx, func(db *gorm.DB) error {
		if err := db.Where("module_id = ?", id).Delete(&models.AnswerRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete rows of module %d: %w", id, err)
		}
		result := db.Delete(&models.Module{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete module: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("module %d: %w", id, repositories.ErrNotFound)
		}
		return nil
	})
}

// ListModules returns the modules of a question with their rows, both in sort order
func (r *AnswersheetPostgreSQL) ListModules(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.Module, error) {
	var modules []*models.Module
	err := r.getDB(ctx, tx).
		Where("question_id = ?", questionID).
		Preload("Rows", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Order("sort_order ASC, id ASC").
		Find(&modules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

// UpdateModuleOrders applies new sort orders to modules of one question
func (r *AnswersheetPostgreSQL) UpdateModuleOrders(ctx context.Context, tx *gorm.DB, questionID uint, orders []repositories.EntityOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return r.inTx(ctx, tx, func(db *gorm.DB) error {
		for _, o := range orders {
			if err := db.Model(&models.Module{}).
				Where("question_id = ? AND id = ?", questionID, o.ID).
				Update("sort_order", o.SortOrder).Error; err != nil {
				return fmt.Errorf("failed to update order for module %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

// GetNextModuleOrder returns the sort order a module appended to the question gets.
// Orders start at 0.
func (r *AnswersheetPostgreSQL) GetNextModuleOrder(ctx context.Context, tx *gorm.DB, questionID uint) (int, error) {
	var next int
	if err := r.getDB(ctx, tx).
		Model(&models.Module{}).
		Where("question_id = ?", questionID).
		Select("COALESCE(MAX(sort_order) + 1, 0)").
		Scan(&next).Error; err != nil {
		return 0, fmt.Errorf("failed to get next module order: %w", err)
	}
	return next, nil
}

// DeleteModulesExcept drops every module of the question whose id is not in keep
func (r *AnswersheetPostgreSQL) DeleteModulesExcept(ctx context.Context, tx *gorm.DB, questionID uint, keep []uint) error {
	return r.inTx(ctx, tx, func(db *gorm.DB) error {
		var ids []uint
		query := db.Model(&models.Module{}).Where("question_id = ?", questionID)
		if len(keep) > 0 {
			query = query.Where("id NOT IN ?", keep)
		}
		if err := query.Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to find stale modules: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := db.Where("module_id IN ?", ids).Delete(&models.AnswerRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete rows of stale modules: %w", err)
		}
		if err := db.Delete(&models.Module{}, ids).Error; err != nil {
			return fmt.Errorf("failed to delete stale modules: %w", err)
		}
		return nil
	})
}

// ===== ROWS =====

func (r *AnswersheetPostgreSQL) CreateRow(ctx context.Context, tx *gorm.DB, row *models.AnswerRow) error {
	if err := r.getDB(ctx, tx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create row: %w", err)
	}
	return nil
}

func (r *AnswersheetPostgreSQL) GetRow(ctx context.Context, tx *gorm.DB, id uint) (*models.AnswerRow, error) {
	var row models.AnswerRow
	if err := r.getDB(ctx, tx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("row %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get row: %w", err)
	}
	return &row, nil
}

func (r *AnswersheetPostgreSQL) UpdateRow(ctx context.Context, tx *gorm.DB, row *models.AnswerRow) error {
	result := r.getDB(ctx, tx).
		Model(&models.AnswerRow{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"module_id":  row.ModuleID,
			"answer_id":  row.AnswerID,
			"sort_order": row.SortOrder,
			"name":       row.Name,
			"options":    row.Options,
			"answer":     row.Answer,
			"feedback":   row.Feedback,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update row: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("row %d: %w", row.ID, repositories.ErrNotFound)
	}
	return nil
}

func (r *AnswersheetPostgreSQL) DeleteRow(ctx context.Context, tx *gorm.DB, id uint) error {
	result := r.getDB(ctx, tx).Delete(&models.AnswerRow{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete row: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("row %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

// ListRows returns the rows of a module in sort order
func (r *AnswersheetPostgreSQL) ListRows(ctx context.Context, tx *gorm.DB, moduleID uint) ([]*models.AnswerRow, error) {
	var rows []*models.AnswerRow
	if err := r.getDB(ctx, tx).
		Where("module_id = ?", moduleID).
		Order("sort_order ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}
	return rows, nil
}

func (r *AnswersheetPostgreSQL) CountRows(ctx context.Context, tx *gorm.DB, moduleID uint) (int64, error) {
	var count int64
	if err := r.getDB(ctx, tx).
		Model(&models.AnswerRow{}).
		Where("module_id = ?", moduleID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// UpdateRowOrders applies new sort orders to rows of one module
func (r *AnswersheetPostgreSQL) UpdateRowOrders(ctx context.Context, tx *gorm.DB, moduleID uint, orders []repositories.EntityOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return r.inTx(ctx, tx, func(db *gorm.DB) error {
		for _, o := range orders {
			if err := db.Model(&models.AnswerRow{}).
				Where("module_id = ? AND id = ?", moduleID, o.ID).
				Update("sort_order", o.SortOrder).Error; err != nil {
				return fmt.Errorf("failed to update order for row %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

// DeleteRowsExcept drops every row of the module whose id is not in keep
func (r *AnswersheetPostgreSQL) DeleteRowsExcept(ctx context.Context, tx *gorm.DB, moduleID uint, keep []uint) error {
	query := r.getDB(ctx, tx).Where("module_id = ?", moduleID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	if err := query.Delete(&models.AnswerRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete stale rows: %w", err)
	}
	return nil
}

// ===== TRANSACTIONS =====

func (r *AnswersheetPostgreSQL) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// inTx reuses an open transaction or starts one for multi-statement writes.
func (r *AnswersheetPostgreSQL) inTx(ctx context.Context, tx *gorm.DB, fn func(db *gorm.DB) error) error {
	if tx != nil {
		return fn(tx.WithContext(ctx))
	}
	return r.db.WithContext(ctx).Transaction(fn)
}
