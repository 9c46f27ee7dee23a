package validator

import (
	"testing"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() models.Document {
	return models.Document{{
		ID:          models.Persisted(1),
		Kind:        models.SingleChoice,
		OptionCount: 4,
		Rows: []models.DocumentRow{{
			ID: models.Persisted(10),
			Cells: []models.DocumentCell{
				{Column: models.ColumnName, Value: "1"},
				{Column: models.ColumnAnswer, Value: "B"},
			},
		}},
	}}
}

func TestValidateDocument(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		mutate func(doc models.Document) models.Document
		rule   string
	}{
		{"valid", func(d models.Document) models.Document { return d }, ""},
		{"unknown column", func(d models.Document) models.Document {
			d[0].Rows[0].Cells[0].Column = "colour"
			return d
		}, "column_name"},
		{"bad kind", func(d models.Document) models.Document {
			d[0].Kind = 9
			return d
		}, "answer_kind"},
		{"no rows", func(d models.Document) models.Document {
			d[0].Rows = nil
			return d
		}, "module_rows"},
		{"too many choices", func(d models.Document) models.Document {
			d[0].OptionCount = 11
			return d
		}, "option_count"},
		{"duplicate row", func(d models.Document) models.Document {
			d[0].Rows = append(d[0].Rows, d[0].Rows[0])
			return d
		}, "duplicate_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDocument(tt.mutate(validDocument()))
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errs := ToValidationErrors(err)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.rule, errs[0].Rule)
		})
	}
}

func TestLetterSequenceAllowsLongOptionCounts(t *testing.T) {
	doc := validDocument()
	doc[0].Kind = models.LetterSequence
	doc[0].OptionCount = 40
	assert.NoError(t, New().ValidateDocument(doc))
}

func TestModuleFieldsTags(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateStruct(models.ModuleFields{QuestionID: 1}))
	assert.Error(t, v.ValidateStruct(models.ModuleFields{}))
	assert.Error(t, v.ValidateStruct(models.ModuleFields{QuestionID: 1, Kind: 5}))
}

func TestReorderKindTag(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateVar("row", "reorder_kind"))
	assert.NoError(t, v.ValidateVar("module", "reorder_kind"))
	assert.Error(t, v.ValidateVar("cell", "reorder_kind"))
}
