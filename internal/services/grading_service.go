package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/normalize"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
)

// Response holds a student's answers keyed by row id.
type Response map[uint]string

type GradeState string

const (
	GradedRight   GradeState = "gradedright"
	GradedPartial GradeState = "gradedpartial"
	GradedWrong   GradeState = "gradedwrong"
)

const fractionTolerance = 1e-7

// StateForFraction classifies a fraction in [0, 1].
func StateForFraction(fraction float64) GradeState {
	switch {
	case fraction >= 1-fractionTolerance:
		return GradedRight
	case fraction <= fractionTolerance:
		return GradedWrong
	default:
		return GradedPartial
	}
}

type RowResult struct {
	RowID    uint   `json:"row_id"`
	ModuleID uint   `json:"module_id"`
	Response string `json:"response"`
	Expected string `json:"expected"`
	Answered bool   `json:"answered"`
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback,omitempty"`
}

type GradeResult struct {
	QuestionID uint        `json:"question_id"`
	Fraction   float64     `json:"fraction"`
	State      GradeState  `json:"state"`
	RowsRight  int         `json:"rows_right"`
	RowsTotal  int         `json:"rows_total"`
	Points     float64     `json:"points"`
	MaxPoints  float64     `json:"max_points"`
	Rows       []RowResult `json:"rows"`
}

// RowsAnswered counts the rows the response gave a value for.
func (r *GradeResult) RowsAnswered() int {
	n := 0
	for _, row := range r.Rows {
		if row.Answered {
			n++
		}
	}
	return n
}

type gradingService struct {
	repo      repositories.AnswersheetRepository
	logger    *slog.Logger
	svcLogger *ServiceLogger
}

func NewGradingService(repo repositories.AnswersheetRepository, logger *slog.Logger) GradingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &gradingService{
		repo:      repo,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, LogConfig{Service: "answersheet-service", Component: "grading"}),
	}
}

// keyRow is one row of the answer key with its expected human value.
type keyRow struct {
	module     *models.Module
	row        *models.AnswerRow
	candidates []string
	expected   string
}

func (s *gradingService) answerKey(ctx context.Context, questionID uint) ([]keyRow, error) {
	if questionID == 0 {
		return nil, ErrQuestionNotFound
	}
	modules, err := s.repo.ListModules(ctx, nil, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	var key []keyRow
	for _, m := range modules {
		for i := range m.Rows {
			row := &m.Rows[i]
			candidates := moduleCandidates(m, row)
			key = append(key, keyRow{
				module:     m,
				row:        row,
				candidates: candidates,
				expected:   normalize.HumanString(row.Answer, m.Kind, candidates),
			})
		}
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %d has no answer key", ErrQuestionNotFound, questionID)
	}
	return key, nil
}

// responseValue returns the human form of the response for k, or "" when the row is unanswered.
// Single choice responses may carry the candidate index or the letter itself.
func (k keyRow) responseValue(response Response) string {
	raw := strings.TrimSpace(response[k.row.ID])
	if raw == "" {
		return ""
	}
	if k.module.Kind != models.SingleChoice {
		return raw
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n <= 0 || n >= len(k.candidates) {
			return ""
		}
		return k.candidates[n]
	}
	if raw == schema.Placeholder {
		return ""
	}
	return raw
}

func (k keyRow) correct(value string) bool {
	return value != "" && k.expected != "" && normalize.Equivalent(value, k.expected)
}

func (s *gradingService) Grade(ctx context.Context, questionID uint, response Response) (result *GradeResult, err error) {
	op := s.svcLogger.WithOperation(ctx, "grade", questionID)
	defer func() { op.LogResult(questionID, "response", err) }()

	key, err := s.answerKey(ctx, questionID)
	if err != nil {
		return nil, err
	}

	result = &GradeResult{
		QuestionID: questionID,
		RowsTotal:  len(key),
		Rows:       make([]RowResult, 0, len(key)),
	}
	for _, k := range key {
		value := k.responseValue(response)
		weight := float64(k.module.PointWeight)
		if weight <= 0 {
			weight = models.DefaultPointWeight
		}
		rr := RowResult{
			RowID:    k.row.ID,
			ModuleID: k.module.ID,
			Response: value,
			Expected: k.expected,
			Answered: value != "",
			Correct:  k.correct(value),
		}
		if rr.Answered {
			rr.Feedback = k.row.Feedback
		}
		if rr.Correct {
			result.RowsRight++
			result.Points += weight
		}
		result.MaxPoints += weight
		result.Rows = append(result.Rows, rr)
	}
	result.Fraction = float64(result.RowsRight) / float64(result.RowsTotal)
	result.State = StateForFraction(result.Fraction)
	return result, nil
}

// ClearWrong returns a copy of response without the answers that are wrong. Unanswered and
// unknown rows are kept as they were.
func (s *gradingService) ClearWrong(ctx context.Context, questionID uint, response Response) (Response, error) {
	key, err := s.answerKey(ctx, questionID)
	if err != nil {
		return nil, err
	}
	out := make(Response, len(response))
	for id, v := range response {
		out[id] = v
	}
	for _, k := range key {
		value := k.responseValue(response)
		if value != "" && !k.correct(value) {
			delete(out, k.row.ID)
		}
	}
	return out, nil
}

// IsComplete reports whether every row of the answer key has an answer.
func (s *gradingService) IsComplete(ctx context.Context, questionID uint, response Response) (bool, error) {
	key, err := s.answerKey(ctx, questionID)
	if err != nil {
		return false, err
	}
	for _, k := range key {
		if k.responseValue(response) == "" {
			return false, nil
		}
	}
	return true, nil
}

// IsGradable reports whether at least one row has an answer.
func (s *gradingService) IsGradable(ctx context.Context, questionID uint, response Response) (bool, error) {
	key, err := s.answerKey(ctx, questionID)
	if err != nil {
		return false, err
	}
	for _, k := range key {
		if k.responseValue(response) != "" {
			return true, nil
		}
	}
	return false, nil
}

// Summarise lists the answered rows as "1 -> B, 2 -> C", numbering answered rows only.
func (s *gradingService) Summarise(ctx context.Context, questionID uint, response Response) (string, error) {
	key, err := s.answerKey(ctx, questionID)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, k := range key {
		value := k.responseValue(response)
		if value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d -> %s", len(parts)+1, value))
	}
	return strings.Join(parts, ", "), nil
}

// CorrectResponse returns the response that scores full marks.
func (s *gradingService) CorrectResponse(ctx context.Context, questionID uint) (Response, error) {
	key, err := s.answerKey(ctx, questionID)
	if err != nil {
		return nil, err
	}
	out := make(Response, len(key))
	for _, k := range key {
		out[k.row.ID] = k.expected
	}
	return out, nil
}

// FinalGrade scores a sequence of tries. A row counts when its last try is right, reduced by
// penalty for each try up to its last wrong one.
func (s *gradingService) FinalGrade(ctx context.Context, questionID uint, tries []Response, penalty float64) (float64, error) {
	key, err := s.answerKey(ctx, questionID)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, k := range key {
		lastWrong := -1
		right := false
		for i, try := range tries {
			right = k.correct(k.responseValue(try))
			if !right {
				lastWrong = i
			}
		}
		if right {
			total += math.Max(0, 1-float64(lastWrong+1)*penalty)
		}
	}
	return total / float64(len(key)), nil
}
