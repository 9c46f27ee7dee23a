package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/grid"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the answer sheet API.
type APIError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("answersheet api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("answersheet api: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// HTTPBackend talks to the gin API. It is bound to one question.
type HTTPBackend struct {
	baseURL    string
	client     *http.Client
	questionID uint
}

var _ grid.Backend = (*HTTPBackend)(nil)

// NewHTTPBackend targets baseURL, e.g. "http://localhost:8080". A nil client gets a default
// one with a timeout.
func NewHTTPBackend(baseURL string, questionID uint, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPBackend{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		client:     client,
		questionID: questionID,
	}
}

func (b *HTTPBackend) questionPath(questionID uint, parts ...string) string {
	p := fmt.Sprintf("/questions/%d", questionID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string          `json:"message"`
			Details json.RawMessage `json:"details"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Message
			apiErr.Details = payload.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

func (b *HTTPBackend) FetchSchema(ctx context.Context) ([]models.Column, error) {
	var columns []models.Column
	if err := b.do(ctx, http.MethodGet, "/answersheet/columns", nil, &columns); err != nil {
		return nil, err
	}
	return columns, nil
}

func (b *HTTPBackend) FetchHierarchy(ctx context.Context, questionID uint) (models.Document, error) {
	var doc models.Document
	if err := b.do(ctx, http.MethodGet, b.questionPath(questionID, "answersheet"), nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *HTTPBackend) CreateModule(ctx context.Context, fields models.ModuleFields) (*models.Module, error) {
	questionID := fields.QuestionID
	if questionID == 0 {
		questionID = b.questionID
	}
	body := map[string]interface{}{
		"name":         fields.Name,
		"answer_kind":  fields.Kind,
		"option_count": fields.OptionCount,
		"point_weight": fields.PointWeight,
	}
	var module models.Module
	if err := b.do(ctx, http.MethodPost, b.questionPath(questionID, "modules"), body, &module); err != nil {
		return nil, err
	}
	return &module, nil
}

func (b *HTTPBackend) CreateRow(ctx context.Context, moduleID, afterRowID uint) (uint, error) {
	var row models.AnswerRow
	path := b.questionPath(b.questionID, "modules", fmt.Sprint(moduleID), "rows")
	if err := b.do(ctx, http.MethodPost, path, map[string]uint{"prev_row_id": afterRowID}, &row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (b *HTTPBackend) DeleteModule(ctx context.Context, moduleID uint) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	if err := b.do(ctx, http.MethodDelete, b.questionPath(b.questionID, "modules", fmt.Sprint(moduleID)), nil, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

func (b *HTTPBackend) DeleteRow(ctx context.Context, rowID uint) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	if err := b.do(ctx, http.MethodDelete, b.questionPath(b.questionID, "rows", fmt.Sprint(rowID)), nil, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

func (b *HTTPBackend) Reorder(ctx context.Context, kind models.ReorderKind, entityID, afterID uint) (bool, error) {
	body := map[string]interface{}{
		"kind":    kind,
		"id":      entityID,
		"prev_id": afterID,
	}
	var out struct {
		Moved bool `json:"moved"`
	}
	if err := b.do(ctx, http.MethodPut, b.questionPath(b.questionID, "sort-order"), body, &out); err != nil {
		return false, err
	}
	return out.Moved, nil
}

func (b *HTTPBackend) SaveHierarchy(ctx context.Context, questionID uint, doc models.Document) (models.IDAssignments, error) {
	if doc == nil {
		doc = models.Document{}
	}
	assigned := models.NewIDAssignments()
	if err := b.do(ctx, http.MethodPut, b.questionPath(questionID, "answersheet"), doc, &assigned); err != nil {
		return models.IDAssignments{}, err
	}
	if assigned.Modules == nil {
		assigned.Modules = map[string]uint{}
	}
	if assigned.Rows == nil {
		assigned.Rows = map[string]uint{}
	}
	return assigned, nil
}
