package services

import (
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/normalize"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
	"gorm.io/datatypes"
)

// moduleCandidates returns the option list a row was stored with, or the one its module
// offers when the row has none.
func moduleCandidates(m *models.Module, row *models.AnswerRow) []string {
	if row != nil && len(row.Options) > 0 {
		if c := normalize.CandidatesFromJSON(string(row.Options)); len(c) > 0 {
			return c
		}
	}
	return schema.Candidates(m.OptionCount)
}

// toDocument converts persisted modules into the editor form with human answer values.
func toDocument(modules []*models.Module) models.Document {
	doc := make(models.Document, 0, len(modules))
	columns := schema.Columns()
	for _, m := range modules {
		dm := models.DocumentModule{
			ID:          models.Persisted(m.ID),
			SortOrder:   m.SortOrder,
			Name:        m.Name,
			Kind:        m.Kind,
			OptionCount: m.OptionCount,
			PointWeight: m.PointWeight,
			Indicator:   normalize.Indicator(m.Kind, m.OptionCount),
			Rows:        make([]models.DocumentRow, 0, len(m.Rows)),
		}
		for i := range m.Rows {
			row := &m.Rows[i]
			human := normalize.HumanString(row.Answer, m.Kind, moduleCandidates(m, row))
			dr := models.DocumentRow{
				ID:        models.Persisted(row.ID),
				SortOrder: row.SortOrder,
				AnswerID:  row.AnswerID,
				Cells:     make([]models.DocumentCell, 0, len(columns)),
			}
			for _, col := range columns {
				var value string
				switch col.Column {
				case models.ColumnOptions:
					if m.Kind == models.SingleChoice {
						value = human
					}
				case models.ColumnAnswer:
					value = human
				default:
					value = row.Value(col.Column)
				}
				dr.Cells = append(dr.Cells, models.DocumentCell{Column: col.Column, Value: value, Kind: col.Kind})
			}
			dm.Rows = append(dm.Rows, dr)
		}
		doc = append(doc, dm)
	}
	return doc
}

// humanAnswer picks the answer a document row carries. Single choice rows fall back to the
// options cell when the answer cell is empty.
func humanAnswer(dr models.DocumentRow, kind models.AnswerKind) string {
	answer := dr.Value(models.ColumnAnswer)
	if kind == models.SingleChoice && answer == "" {
		if sel := dr.Value(models.ColumnOptions); sel != schema.Placeholder {
			answer = sel
		}
	}
	return answer
}

// fillRow writes the stored form of a document row into row.
func fillRow(row *models.AnswerRow, dr models.DocumentRow, kind models.AnswerKind, optionCount int) {
	candidates := schema.Candidates(optionCount)
	row.AnswerID = dr.AnswerID
	row.Name = truncated(models.ColumnName, dr.Value(models.ColumnName))
	row.Feedback = truncated(models.ColumnFeedback, dr.Value(models.ColumnFeedback))
	row.Answer = truncated(models.ColumnAnswer, normalize.StoredString(humanAnswer(dr, kind), kind, candidates))
	row.Options = datatypes.JSON(normalize.CandidatesJSON(candidates))
}

// defaultRow is the empty row a module is created with.
func defaultRow(kind models.AnswerKind, optionCount int) models.AnswerRow {
	row := models.AnswerRow{}
	fillRow(&row, models.DocumentRow{}, kind, optionCount)
	return row
}

func truncated(column, value string) string {
	col, ok := schema.Lookup(column)
	if !ok {
		return value
	}
	return models.MergeColumnIntoCell(models.Cell{Value: value}, col).Truncated()
}
