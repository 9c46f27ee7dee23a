// Package facade connects the grid editor to the answer sheet service, either in process or
// over the HTTP API.
package facade

import (
	"context"

	"github.com/SAP-F-2025/answersheet-service/internal/grid"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/services"
)

// ServiceBackend calls the answer sheet service directly. It is bound to one question.
type ServiceBackend struct {
	service    services.AnswersheetService
	questionID uint
}

var _ grid.Backend = (*ServiceBackend)(nil)

func NewServiceBackend(service services.AnswersheetService, questionID uint) *ServiceBackend {
	return &ServiceBackend{service: service, questionID: questionID}
}

func (b *ServiceBackend) FetchSchema(ctx context.Context) ([]models.Column, error) {
	return b.service.GetColumns(ctx), nil
}

func (b *ServiceBackend) FetchHierarchy(ctx context.Context, questionID uint) (models.Document, error) {
	return b.service.GetData(ctx, questionID)
}

func (b *ServiceBackend) CreateModule(ctx context.Context, fields models.ModuleFields) (*models.Module, error) {
	if fields.QuestionID == 0 {
		fields.QuestionID = b.questionID
	}
	return b.service.CreateModule(ctx, fields)
}

func (b *ServiceBackend) CreateRow(ctx context.Context, moduleID, afterRowID uint) (uint, error) {
	row, err := b.service.CreateRow(ctx, b.questionID, moduleID, afterRowID)
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (b *ServiceBackend) DeleteModule(ctx context.Context, moduleID uint) (bool, error) {
	return b.service.DeleteModule(ctx, b.questionID, moduleID)
}

func (b *ServiceBackend) DeleteRow(ctx context.Context, rowID uint) (bool, error) {
	return b.service.DeleteRow(ctx, b.questionID, rowID)
}

func (b *ServiceBackend) Reorder(ctx context.Context, kind models.ReorderKind, entityID, afterID uint) (bool, error) {
	return b.service.UpdateSortOrder(ctx, b.questionID, kind, entityID, afterID)
}

func (b *ServiceBackend) SaveHierarchy(ctx context.Context, questionID uint, doc models.Document) (models.IDAssignments, error) {
	return b.service.SetData(ctx, questionID, doc)
}
