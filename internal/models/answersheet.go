package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type AnswerKind int

const (
	SingleChoice   AnswerKind = 1
	LetterSequence AnswerKind = 2
	FreeText       AnswerKind = 3
)

const (
	DefaultOptionCount = 4
	DefaultPointWeight = 1
)

func (k AnswerKind) String() string {
	switch k {
	case SingleChoice:
		return "single_choice"
	case LetterSequence:
		return "letter_sequence"
	case FreeText:
		return "free_text"
	default:
		return fmt.Sprintf("answer_kind(%d)", int(k))
	}
}

func (k AnswerKind) Valid() bool {
	return k == SingleChoice || k == LetterSequence || k == FreeText
}

// ParseAnswerKind accepts the names returned by String as well as the numeric codes.
func ParseAnswerKind(s string) (AnswerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single_choice", "1":
		return SingleChoice, nil
	case "letter_sequence", "2":
		return LetterSequence, nil
	case "free_text", "3":
		return FreeText, nil
	}
	return 0, fmt.Errorf("unknown answer kind %q", s)
}

// Module groups answer rows that share one answer kind and option configuration.
type Module struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	QuestionID  uint       `json:"question_id" gorm:"not null;index"`
	SortOrder   int        `json:"sort_order" gorm:"not null;default:0"`
	Name        string     `json:"name" gorm:"size:255"`
	Kind        AnswerKind `json:"answer_kind" gorm:"column:answer_kind;not null;default:1"`
	OptionCount int        `json:"option_count" gorm:"not null;default:4"`
	PointWeight int        `json:"point_weight" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Rows []AnswerRow `json:"rows" gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
}

func (Module) TableName() string {
	return "answersheet_modules"
}

// AnswerRow is one gradable unit of a module. Answer holds the persisted representation.
type AnswerRow struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ModuleID  uint           `json:"module_id" gorm:"not null;index"`
	AnswerID  uint           `json:"answer_id" gorm:"not null;default:0"`
	SortOrder int            `json:"sort_order" gorm:"not null;default:0"`
	Name      string         `json:"name" gorm:"size:50"`
	Options   datatypes.JSON `json:"options" gorm:"type:jsonb"`
	Answer    string         `json:"answer" gorm:"type:text"`
	Feedback  string         `json:"feedback" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AnswerRow) TableName() string {
	return "answersheet_answers"
}

// Value returns the stored value of one schema column.
func (r *AnswerRow) Value(column string) string {
	switch column {
	case ColumnName:
		return r.Name
	case ColumnOptions:
		return string(r.Options)
	case ColumnAnswer:
		return r.Answer
	case ColumnFeedback:
		return r.Feedback
	}
	return ""
}

// SetValue stores a value for one schema column. Unknown columns are ignored.
func (r *AnswerRow) SetValue(column, value string) {
	switch column {
	case ColumnName:
		r.Name = value
	case ColumnOptions:
		if value == "" {
			r.Options = nil
			return
		}
		r.Options = datatypes.JSON(value)
	case ColumnAnswer:
		r.Answer = value
	case ColumnFeedback:
		r.Feedback = value
	}
}

// ModuleFields carries what is needed to create a module.
type ModuleFields struct {
	QuestionID  uint       `json:"question_id" validate:"required"`
	Name        string     `json:"name" validate:"max=255"`
	Kind        AnswerKind `json:"answer_kind" validate:"omitempty,answer_kind"`
	OptionCount int        `json:"option_count" validate:"omitempty,min=1,max=100"`
	PointWeight int        `json:"point_weight" validate:"omitempty,min=1"`
}

// ReorderKind names the sibling list a reorder applies to.
type ReorderKind string

const (
	ReorderRow    ReorderKind = "row"
	ReorderModule ReorderKind = "module"
)

func (k ReorderKind) Valid() bool {
	return k == ReorderRow || k == ReorderModule
}

// OrderKey, CurrentOrder and SetSortOrder let persisted modules and rows go
// through the sort-order engine.

func (m *Module) OrderKey() uint         { return m.ID }
func (m *Module) CurrentOrder() int      { return m.SortOrder }
func (m *Module) SetSortOrder(order int) { m.SortOrder = order }

func (r *AnswerRow) OrderKey() uint         { return r.ID }
func (r *AnswerRow) CurrentOrder() int      { return r.SortOrder }
func (r *AnswerRow) SetSortOrder(order int) { r.SortOrder = order }
