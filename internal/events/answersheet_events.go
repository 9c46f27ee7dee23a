package events

import (
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/google/uuid"
)

// EventType represents the kinds of answer sheet change events
type EventType string

const (
	EventModuleCreated     EventType = "answersheet.module_created"
	EventModuleDeleted     EventType = "answersheet.module_deleted"
	EventRowCreated        EventType = "answersheet.row_created"
	EventRowDeleted        EventType = "answersheet.row_deleted"
	EventSortOrderUpdated  EventType = "answersheet.sort_order_updated"
	EventHierarchySaved    EventType = "answersheet.hierarchy_saved"
	EventHierarchyImported EventType = "answersheet.hierarchy_imported"
)

const (
	eventSource  = "answersheet-service"
	eventVersion = "1.0"
)

// AnswersheetEvent is the envelope of every published change
type AnswersheetEvent struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	QuestionID uint                   `json:"question_id"`
	Timestamp  time.Time              `json:"timestamp"`
	Source     string                 `json:"source"`
	Version    string                 `json:"version"`
	Data       interface{}            `json:"data"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type ModuleEvent struct {
	ModuleID    uint              `json:"module_id"`
	SortOrder   int               `json:"sort_order"`
	Kind        models.AnswerKind `json:"answer_kind,omitempty"`
	OptionCount int               `json:"option_count,omitempty"`
}

type RowEvent struct {
	ModuleID  uint `json:"module_id"`
	RowID     uint `json:"row_id"`
	SortOrder int  `json:"sort_order"`
}

type SortOrderEvent struct {
	Kind     models.ReorderKind `json:"kind"`
	EntityID uint               `json:"entity_id"`
	AfterID  uint               `json:"after_id"`
}

type HierarchyEvent struct {
	Modules  int  `json:"modules"`
	Rows     int  `json:"rows"`
	Created  int  `json:"created"`
	Replaced bool `json:"replaced"`
}

// Event factory functions

func newEvent(eventType EventType, questionID uint, data interface{}) *AnswersheetEvent {
	return &AnswersheetEvent{
		ID:         GenerateEventID(),
		Type:       eventType,
		QuestionID: questionID,
		Timestamp:  time.Now(),
		Source:     eventSource,
		Version:    eventVersion,
		Data:       data,
	}
}

func NewModuleCreatedEvent(questionID uint, module *models.Module) *AnswersheetEvent {
	return newEvent(EventModuleCreated, questionID, ModuleEvent{
		ModuleID:    module.ID,
		SortOrder:   module.SortOrder,
		Kind:        module.Kind,
		OptionCount: module.OptionCount,
	})
}

func NewModuleDeletedEvent(questionID, moduleID uint) *AnswersheetEvent {
	return newEvent(EventModuleDeleted, questionID, ModuleEvent{ModuleID: moduleID})
}

func NewRowCreatedEvent(questionID uint, row *models.AnswerRow) *AnswersheetEvent {
	return newEvent(EventRowCreated, questionID, RowEvent{
		ModuleID:  row.ModuleID,
		RowID:     row.ID,
		SortOrder: row.SortOrder,
	})
}

func NewRowDeletedEvent(questionID, moduleID, rowID uint) *AnswersheetEvent {
	return newEvent(EventRowDeleted, questionID, RowEvent{ModuleID: moduleID, RowID: rowID})
}

func NewSortOrderUpdatedEvent(questionID uint, kind models.ReorderKind, entityID, afterID uint) *AnswersheetEvent {
	return newEvent(EventSortOrderUpdated, questionID, SortOrderEvent{
		Kind:     kind,
		EntityID: entityID,
		AfterID:  afterID,
	})
}

func NewHierarchySavedEvent(questionID uint, doc models.Document, assigned models.IDAssignments) *AnswersheetEvent {
	return newEvent(EventHierarchySaved, questionID, HierarchyEvent{
		Modules:  len(doc),
		Rows:     doc.RowCount(),
		Created:  len(assigned.Modules) + len(assigned.Rows),
		Replaced: true,
	})
}

func NewHierarchyImportedEvent(questionID uint, modules, rows int) *AnswersheetEvent {
	return newEvent(EventHierarchyImported, questionID, HierarchyEvent{
		Modules:  modules,
		Rows:     rows,
		Created:  modules + rows,
		Replaced: true,
	})
}

// GenerateEventID returns a fresh random event id
func GenerateEventID() string {
	return uuid.NewString()
}
