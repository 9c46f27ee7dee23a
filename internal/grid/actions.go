package grid

import (
	"context"

	apperrors "github.com/SAP-F-2025/answersheet-service/internal/errors"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
)

type ActionType string

const (
	ActionAddRow                  ActionType = "add-row"
	ActionDeleteRow               ActionType = "delete-row"
	ActionAddModule               ActionType = "add-module"
	ActionDeleteModule            ActionType = "delete-module"
	ActionEditCell                ActionType = "edit-cell"
	ActionChangeModuleName        ActionType = "change-module-name"
	ActionChangeModuleKind        ActionType = "change-module-kind"
	ActionChangeModuleOptionCount ActionType = "change-module-option-count"
	ActionChangeModulePoints      ActionType = "change-module-points"
	ActionReorderRow              ActionType = "reorder-row"
	ActionReorderModule           ActionType = "reorder-module"
	ActionSaveNow                 ActionType = "save-now"
)

// Action is one inbound user action. Only the fields its type needs are read.
type Action struct {
	Type        ActionType        `json:"type"`
	ModuleID    models.EntityID   `json:"module_id"`
	RowID       models.EntityID   `json:"row_id"`
	After       models.EntityID   `json:"after"`
	Column      string            `json:"column,omitempty"`
	Value       string            `json:"value,omitempty"`
	Kind        models.AnswerKind `json:"answer_kind,omitempty"`
	OptionCount int               `json:"option_count,omitempty"`
	Delta       int               `json:"delta,omitempty"`
	PointWeight int               `json:"point_weight,omitempty"`
}

// Result carries the id an add action produced.
type Result struct {
	ID models.EntityID `json:"id"`
}

// Dispatch routes an action to the matching editor operation.
func (e *Editor) Dispatch(ctx context.Context, a Action) (Result, error) {
	switch a.Type {
	case ActionAddRow:
		id, err := e.AddRow(ctx, a.ModuleID, a.After)
		return Result{ID: id}, err
	case ActionDeleteRow:
		return Result{}, e.DeleteRow(ctx, a.RowID)
	case ActionAddModule:
		id, err := e.AddModule(ctx)
		return Result{ID: id}, err
	case ActionDeleteModule:
		return Result{}, e.DeleteModule(ctx, a.ModuleID)
	case ActionEditCell:
		return Result{}, e.EditCell(a.RowID, a.Column, a.Value)
	case ActionChangeModuleName:
		return Result{}, e.RenameModule(a.ModuleID, a.Value)
	case ActionChangeModuleKind:
		return Result{}, e.ChangeModuleKind(a.ModuleID, a.Kind, a.OptionCount)
	case ActionChangeModuleOptionCount:
		if a.Delta == 0 && a.OptionCount > 0 {
			m, ok := e.Module(a.ModuleID)
			if !ok {
				return Result{}, apperrors.NewInvalidArgument("module_id", "unknown module "+a.ModuleID.String())
			}
			a.Delta = a.OptionCount - m.OptionCount
		}
		return Result{}, e.ChangeOptionCount(a.ModuleID, a.Delta)
	case ActionChangeModulePoints:
		return Result{}, e.SetPointWeight(a.ModuleID, a.PointWeight)
	case ActionReorderRow:
		return Result{}, e.MoveRow(ctx, a.RowID, a.After)
	case ActionReorderModule:
		return Result{}, e.MoveModule(ctx, a.ModuleID, a.After)
	case ActionSaveNow:
		return Result{}, e.SaveNow(ctx)
	}
	return Result{}, apperrors.NewInvalidArgument("type", "unknown action "+string(a.Type))
}
