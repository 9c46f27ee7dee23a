package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/answersheet-service/internal/events"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
	"github.com/xuri/excelize/v2"
)

type importExportService struct {
	answersheet AnswersheetService
	publisher   events.EventPublisher
	logger      *slog.Logger
	validator   *validator.Validator
}

func NewImportExportService(answersheet AnswersheetService, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) ImportExportService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewMockEventPublisher(logger)
	}
	if v == nil {
		v = validator.New()
	}
	return &importExportService{
		answersheet: answersheet,
		publisher:   publisher,
		logger:      logger,
		validator:   v,
	}
}

// ===== IMPORT OPERATIONS =====

type ImportResult struct {
	TotalRows     int                            `json:"total_rows"`
	ProcessedRows int                            `json:"processed_rows"`
	SuccessCount  int                            `json:"success_count"`
	ErrorCount    int                            `json:"error_count"`
	Errors        []models.ImportValidationError `json:"errors"`
	Modules       int                            `json:"modules"`
	Rows          int                            `json:"rows"`
	Status        models.ImportStatus            `json:"status"`
}

// importedModule remembers the spreadsheet reference a module was declared with.
type importedModule struct {
	ref    string
	module models.DocumentModule
}

// ImportXLSX replaces the answer key of a question with the content of a workbook written by
// ExportXLSX. Nothing is saved when any cell is invalid.
func (s *importExportService) ImportXLSX(ctx context.Context, questionID uint, r io.Reader) (*ImportResult, error) {
	if questionID == 0 {
		return nil, ErrQuestionNotFound
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	moduleRows, err := f.GetRows(models.SheetModules)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %q sheet", ErrUnsupportedFormat, models.SheetModules)
	}
	answerRows, err := f.GetRows(models.SheetRows)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %q sheet", ErrUnsupportedFormat, models.SheetRows)
	}

	result := &ImportResult{Status: models.ImportCompleted}

	modules, byRef := s.parseModules(moduleRows, result)
	s.parseRows(answerRows, byRef, result)

	if result.Errors == nil {
		result.Errors = []models.ImportValidationError{}
	}
	if result.ErrorCount > 0 {
		result.Status = models.ImportValidationFailed
		s.logger.Warn("Answer key import rejected",
			"question_id", questionID,
			"total_rows", result.TotalRows,
			"error_count", result.ErrorCount)
		return result, nil
	}

	doc := make(models.Document, 0, len(modules))
	for _, im := range modules {
		if len(im.module.Rows) == 0 {
			im.module.Rows = []models.DocumentRow{importedRow("", "", "")}
		}
		doc = append(doc, im.module)
	}
	if _, err := s.answersheet.SetData(ctx, questionID, doc); err != nil {
		return nil, err
	}
	result.Modules = len(doc)
	result.Rows = doc.RowCount()

	if err := s.publisher.PublishAnswersheetEvent(ctx, events.NewHierarchyImportedEvent(questionID, result.Modules, result.Rows)); err != nil {
		s.logger.Error("Failed to publish answersheet event", "event_type", events.EventHierarchyImported, "question_id", questionID, "error", err)
	}

	s.logger.Info("Answer key import completed",
		"question_id", questionID,
		"modules", result.Modules,
		"rows", result.Rows)
	return result, nil
}

func (s *importExportService) parseModules(rows [][]string, result *ImportResult) ([]*importedModule, map[string]*importedModule) {
	var modules []*importedModule
	byRef := map[string]*importedModule{}
	seen := map[string]bool{}
	fail := func(line int, column, message, value, code string) {
		result.Errors = append(result.Errors, models.ImportValidationError{
			Sheet: models.SheetModules, Row: line, Column: column, Message: message, Value: value, Code: code,
		})
	}

	for i, record := range dataRows(rows) {
		if record == nil {
			continue
		}
		line := i + 2
		result.TotalRows++
		result.ProcessedRows++
		before := len(result.Errors)

		ref := cellAt(record, 0)
		if ref == "" {
			fail(line, "Module", "module reference is required", ref, "required")
		} else if seen[ref] {
			fail(line, "Module", "module reference is used twice", ref, "duplicate")
		}
		seen[ref] = true

		kind := models.SingleChoice
		if raw := cellAt(record, 2); raw != "" {
			k, err := models.ParseAnswerKind(raw)
			if err != nil {
				fail(line, "Answer Kind", err.Error(), raw, "answer_kind")
			} else {
				kind = k
			}
		}

		optionCount := parseIntCell(record, 3, models.DefaultOptionCount, func(raw string) {
			fail(line, "Option Count", "option count must be a number", raw, "number")
		})
		if err := s.validator.Document().ValidateOptionCount(kind, optionCount); err != nil {
			fail(line, "Option Count", err.Error(), strconv.Itoa(optionCount), "option_count")
		}

		weight := parseIntCell(record, 4, models.DefaultPointWeight, func(raw string) {
			fail(line, "Point Weight", "point weight must be a number", raw, "number")
		})
		if weight < 1 {
			fail(line, "Point Weight", "point weight must be positive", strconv.Itoa(weight), "min")
		}

		if len(result.Errors) > before {
			result.ErrorCount++
			continue
		}
		im := &importedModule{
			ref: ref,
			module: models.DocumentModule{
				Name:        cellAt(record, 1),
				Kind:        kind,
				OptionCount: optionCount,
				PointWeight: weight,
			},
		}
		modules = append(modules, im)
		byRef[ref] = im
		result.SuccessCount++
	}
	return modules, byRef
}

func (s *importExportService) parseRows(rows [][]string, byRef map[string]*importedModule, result *ImportResult) {
	for i, record := range dataRows(rows) {
		if record == nil {
			continue
		}
		line := i + 2
		result.TotalRows++
		result.ProcessedRows++

		ref := cellAt(record, 0)
		im, ok := byRef[ref]
		if !ok {
			result.Errors = append(result.Errors, models.ImportValidationError{
				Sheet: models.SheetRows, Row: line, Column: "Module", Message: "unknown module reference", Value: ref, Code: "reference",
			})
			result.ErrorCount++
			continue
		}

		answer := cellAt(record, 2)
		if im.module.Kind == models.SingleChoice && answer != "" {
			answer = strings.ToUpper(answer)
			if !isCandidate(answer, im.module.OptionCount) {
				result.Errors = append(result.Errors, models.ImportValidationError{
					Sheet: models.SheetRows, Row: line, Column: "Answer", Message: "answer is not one of the module options", Value: answer, Code: "option",
				})
				result.ErrorCount++
				continue
			}
		}
		im.module.Rows = append(im.module.Rows, importedRow(cellAt(record, 1), answer, cellAt(record, 3)))
		result.SuccessCount++
	}
}

func importedRow(name, answer, feedback string) models.DocumentRow {
	return models.DocumentRow{
		Cells: []models.DocumentCell{
			{Column: models.ColumnName, Value: name},
			{Column: models.ColumnOptions},
			{Column: models.ColumnAnswer, Value: answer},
			{Column: models.ColumnFeedback, Value: feedback},
		},
	}
}

func isCandidate(answer string, optionCount int) bool {
	for _, c := range schema.Candidates(optionCount) {
		if c == answer && c != schema.Placeholder {
			return true
		}
	}
	return false
}

// dataRows drops the header row. Blank rows come back as nil so callers keep line numbers.
func dataRows(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	out := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if strings.TrimSpace(strings.Join(r, "")) == "" {
			out = append(out, nil)
			continue
		}
		out = append(out, r)
	}
	// trailing blank rows are padding, interior ones still count for line numbers
	for len(out) > 0 && out[len(out)-1] == nil {
		out = out[:len(out)-1]
	}
	return out
}

func cellAt(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

func parseIntCell(record []string, i, fallback int, onError func(raw string)) int {
	raw := cellAt(record, i)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		onError(raw)
		return fallback
	}
	return n
}

// ===== EXPORT OPERATIONS =====

// ExportXLSX writes the answer key of a question as a workbook with a module sheet and a
// row sheet. Answers are written in their human form.
func (s *importExportService) ExportXLSX(ctx context.Context, questionID uint, w io.Writer) error {
	doc, err := s.answersheet.GetData(ctx, questionID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), models.SheetModules); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if _, err := f.NewSheet(models.SheetRows); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := writeSheetRow(f, models.SheetModules, 1, toCells(models.ModuleSheetHeaders)); err != nil {
		return err
	}
	if err := writeSheetRow(f, models.SheetRows, 1, toCells(models.RowSheetHeaders)); err != nil {
		return err
	}

	line := 2
	for i, m := range doc {
		ref := strconv.Itoa(i + 1)
		if err := writeSheetRow(f, models.SheetModules, i+2, []interface{}{
			ref, m.Name, m.Kind.String(), m.OptionCount, m.PointWeight,
		}); err != nil {
			return err
		}
		for _, r := range m.Rows {
			if err := writeSheetRow(f, models.SheetRows, line, []interface{}{
				ref, r.Value(models.ColumnName), humanAnswer(r, m.Kind), r.Value(models.ColumnFeedback),
			}); err != nil {
				return err
			}
			line++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	s.logger.Debug("Answer key exported", "question_id", questionID, "modules", len(doc), "rows", doc.RowCount())
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, line int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, line, err)
	}
	return nil
}

func toCells(headers []string) []interface{} {
	out := make([]interface{}, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}
