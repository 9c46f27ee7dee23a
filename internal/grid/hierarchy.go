package grid

import (
	"strings"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/normalize"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
)

// Row is the in-memory form of an answer row. Cells follow the column order of the editor.
type Row struct {
	ID        models.EntityID `json:"id"`
	SortOrder int             `json:"sort_order"`
	AnswerID  uint            `json:"answer_id,omitempty"`
	Cells     []models.Cell   `json:"cells"`
}

func (r *Row) OrderKey() models.EntityID { return r.ID }
func (r *Row) CurrentOrder() int         { return r.SortOrder }
func (r *Row) SetSortOrder(n int)        { r.SortOrder = n }

// Module is the in-memory form of an answer sheet module.
type Module struct {
	ID          models.EntityID   `json:"id"`
	SortOrder   int               `json:"sort_order"`
	Name        string            `json:"name"`
	Kind        models.AnswerKind `json:"answer_kind"`
	OptionCount int               `json:"option_count"`
	PointWeight int               `json:"point_weight"`
	Indicator   string            `json:"indicator"`
	Rows        []*Row            `json:"rows"`
}

func (m *Module) OrderKey() models.EntityID { return m.ID }
func (m *Module) CurrentOrder() int         { return m.SortOrder }
func (m *Module) SetSortOrder(n int)        { m.SortOrder = n }

// Cell returns the cell of column, or nil.
func (r *Row) Cell(column string) *models.Cell {
	for i := range r.Cells {
		if r.Cells[i].Column == column {
			return &r.Cells[i]
		}
	}
	return nil
}

// Value returns the live value of column.
func (r *Row) Value(column string) string {
	if c := r.Cell(column); c != nil {
		return c.Value
	}
	return ""
}

func (r *Row) clone() *Row {
	out := *r
	out.Cells = make([]models.Cell, len(r.Cells))
	for i, c := range r.Cells {
		out.Cells[i] = c
		if c.Options != nil {
			out.Cells[i].Options = append([]models.Option(nil), c.Options...)
		}
	}
	return &out
}

func (m *Module) clone() Module {
	out := *m
	out.Rows = make([]*Row, len(m.Rows))
	for i, r := range m.Rows {
		out.Rows[i] = r.clone()
	}
	return out
}

// Candidates returns the option names the module's select cells offer.
func (m *Module) Candidates() []string {
	return schema.Candidates(m.OptionCount)
}

func (m *Module) refreshIndicator() {
	m.Indicator = normalize.Indicator(m.Kind, m.OptionCount)
}

// Row returns the row with id, or nil.
func (m *Module) Row(id models.EntityID) *Row {
	for _, r := range m.Rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// moduleColumn narrows the select column's candidates to the module's option count.
func moduleColumn(col models.Column, m *Module) models.Column {
	if col.Kind != models.KindSelect {
		return col
	}
	out := col.Clone()
	names := m.Candidates()
	out.Options = make([]models.Option, len(names))
	for i, n := range names {
		out.Options[i] = models.Option{Name: n}
	}
	return out
}

// buildRow lays out one cell per column, taking values from values when present.
func buildRow(id models.EntityID, columns []models.Column, m *Module, values func(string) (string, bool)) *Row {
	row := &Row{ID: id, Cells: make([]models.Cell, 0, len(columns))}
	for _, col := range columns {
		v := col.Kind.DefaultValue()
		if values != nil {
			if got, ok := values(col.Column); ok {
				v = got
			}
		}
		row.Cells = append(row.Cells, models.MergeColumnIntoCell(models.Cell{Value: v}, moduleColumn(col, m)))
	}
	return row
}

// rebuildCells re-merges every cell with its column, keeping values. Select values that the
// module no longer offers fall back to the placeholder. For single choice modules the select is
// re-derived from the answer, and an answer the module no longer offers is cleared.
func rebuildCells(m *Module, columns []models.Column) {
	candidates := m.Candidates()
	for _, r := range m.Rows {
		old := r
		rebuilt := buildRow(r.ID, columns, m, func(column string) (string, bool) {
			c := old.Cell(column)
			if c == nil {
				return "", false
			}
			if c.Kind == models.KindSelect && !contains(candidates, c.Value) {
				return "", true
			}
			return c.Value, true
		})
		r.Cells = rebuilt.Cells
		if m.Kind == models.SingleChoice {
			answer := strings.TrimSpace(r.Value(models.ColumnAnswer))
			if answer == schema.Placeholder || !contains(candidates, answer) {
				answer = ""
			}
			setCell(m, r, models.ColumnAnswer, answer)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
