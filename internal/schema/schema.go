// Package schema holds the fixed column definitions shared by every answer row.
package schema

import "github.com/SAP-F-2025/answersheet-service/internal/models"

// Placeholder is the first candidate of every option list and means "no answer".
const Placeholder = "-"

// Letters are the candidate names the options column can offer after the placeholder.
var Letters = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

var columns = []models.Column{
	{Column: models.ColumnName, Kind: models.KindText, Label: "No", MaxLength: 50, Editable: true, Visible: true},
	{Column: models.ColumnOptions, Kind: models.KindSelect, Label: "Correct", MaxLength: 1000, Editable: true, Visible: true},
	{Column: models.ColumnAnswer, Kind: models.KindText, Label: "Text", MaxLength: 1000, Editable: true, Visible: true},
	{Column: models.ColumnFeedback, Kind: models.KindText, Label: "Feedback", MaxLength: 1000, Editable: true, Visible: false},
}

func init() {
	opts := make([]models.Option, 0, len(Letters)+1)
	opts = append(opts, models.Option{Name: Placeholder, Selected: true})
	for _, l := range Letters {
		opts = append(opts, models.Option{Name: l})
	}
	columns[1].Options = opts
}

// Columns returns the schema in display order. Callers get their own copy.
func Columns() []models.Column {
	out := make([]models.Column, len(columns))
	for i, c := range columns {
		out[i] = c.Clone()
	}
	return out
}

func Lookup(name string) (models.Column, bool) {
	for _, c := range columns {
		if c.Column == name {
			return c.Clone(), true
		}
	}
	return models.Column{}, false
}

func Names() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Column
	}
	return names
}

// Candidates returns the placeholder followed by the first optionCount letters.
func Candidates(optionCount int) []string {
	if optionCount < 0 {
		optionCount = 0
	}
	if optionCount > len(Letters) {
		optionCount = len(Letters)
	}
	out := make([]string, 0, optionCount+1)
	out = append(out, Placeholder)
	return append(out, Letters[:optionCount]...)
}

// IsColumn reports whether name belongs to the schema.
func IsColumn(name string) bool {
	_, ok := Lookup(name)
	return ok
}
