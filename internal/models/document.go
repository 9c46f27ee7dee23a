package models

// DocumentCell is the serialized value of one cell.
type DocumentCell struct {
	Column string     `json:"column" validate:"required,column_name"`
	Value  string     `json:"value"`
	Kind   ColumnKind `json:"kind"`
}

type DocumentRow struct {
	ID        EntityID       `json:"id"`
	SortOrder int            `json:"sort_order"`
	AnswerID  uint           `json:"answer_id,omitempty"`
	Cells     []DocumentCell `json:"cells" validate:"dive"`
}

// Value returns the value of column, or "" when the row carries no such cell.
func (r DocumentRow) Value(column string) string {
	for _, c := range r.Cells {
		if c.Column == column {
			return c.Value
		}
	}
	return ""
}

type DocumentModule struct {
	ID          EntityID      `json:"id"`
	SortOrder   int           `json:"sort_order"`
	Name        string        `json:"name" validate:"max=255"`
	Kind        AnswerKind    `json:"answer_kind" validate:"answer_kind"`
	OptionCount int           `json:"option_count" validate:"min=1,max=100"`
	PointWeight int           `json:"point_weight,omitempty" validate:"omitempty,min=1"`
	Indicator   string        `json:"indicator,omitempty"`
	Rows        []DocumentRow `json:"rows" validate:"dive"`
}

// Document is the whole answer key of one question as exchanged between the editor and the
// server. Answer values are in their human-editable form.
type Document []DocumentModule

// RowCount returns the number of rows across all modules.
func (d Document) RowCount() int {
	n := 0
	for _, m := range d {
		n += len(m.Rows)
	}
	return n
}

// IDAssignments maps pending tokens to the ids the server allocated for them.
type IDAssignments struct {
	Modules map[string]uint `json:"modules"`
	Rows    map[string]uint `json:"rows"`
}

func NewIDAssignments() IDAssignments {
	return IDAssignments{Modules: map[string]uint{}, Rows: map[string]uint{}}
}

func (a IDAssignments) Empty() bool {
	return len(a.Modules) == 0 && len(a.Rows) == 0
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, m := range d {
		rows := make([]DocumentRow, len(m.Rows))
		for j, r := range m.Rows {
			r.Cells = append([]DocumentCell(nil), r.Cells...)
			rows[j] = r
		}
		m.Rows = rows
		out[i] = m
	}
	return out
}
