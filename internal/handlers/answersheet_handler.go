package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/services"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxImportSize bounds uploaded workbooks.
const maxImportSize = 10 << 20

type AnswersheetHandler struct {
	BaseHandler
	service      services.AnswersheetService
	importExport services.ImportExportService
}

type CreateModuleRequest struct {
	Name        string            `json:"name" validate:"max=255"`
	Kind        models.AnswerKind `json:"answer_kind" validate:"omitempty,answer_kind"`
	OptionCount int               `json:"option_count" validate:"omitempty,min=1,max=100"`
	PointWeight int               `json:"point_weight" validate:"omitempty,min=1"`
}

type CreateRowRequest struct {
	PrevRowID uint `json:"prev_row_id"`
}

type UpdateSortOrderRequest struct {
	Kind   models.ReorderKind `json:"kind" validate:"required,reorder_kind"`
	ID     uint               `json:"id" validate:"required"`
	PrevID uint               `json:"prev_id"`
}

type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

type MovedResponse struct {
	Moved bool `json:"moved"`
}

func NewAnswersheetHandler(
	service services.AnswersheetService,
	importExport services.ImportExportService,
	v *validator.Validator,
	logger utils.Logger,
) *AnswersheetHandler {
	return &AnswersheetHandler{
		BaseHandler:  NewBaseHandler(logger, v),
		service:      service,
		importExport: importExport,
	}
}

// GetColumns returns the column schema of the answer grid
// @Router /answersheet/columns [get]
func (h *AnswersheetHandler) GetColumns(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetColumns(c.Request.Context()))
}

// GetData returns the answer sheet of a question with human answer values
// @Router /questions/{id}/answersheet [get]
func (h *AnswersheetHandler) GetData(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	doc, err := h.service.GetData(c.Request.Context(), questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if doc == nil {
		doc = models.Document{}
	}
	c.JSON(http.StatusOK, doc)
}

// SetData replaces the answer sheet of a question
// @Router /questions/{id}/answersheet [put]
func (h *AnswersheetHandler) SetData(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var doc models.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	h.LogRequest(c, "Saving answer sheet", "question_id", questionID, "modules", len(doc), "rows", doc.RowCount())

	assigned, err := h.service.SetData(c.Request.Context(), questionID, doc)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assigned)
}

// CreateModule appends a module with one default row
// @Router /questions/{id}/modules [post]
func (h *AnswersheetHandler) CreateModule(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var req CreateModuleRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	module, err := h.service.CreateModule(c.Request.Context(), models.ModuleFields{
		QuestionID:  questionID,
		Name:        req.Name,
		Kind:        req.Kind,
		OptionCount: req.OptionCount,
		PointWeight: req.PointWeight,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, module)
}

// DeleteModule deletes a module and its rows
// @Router /questions/{id}/modules/{module_id} [delete]
func (h *AnswersheetHandler) DeleteModule(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	deleted, err := h.service.DeleteModule(c.Request.Context(), questionID, moduleID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: deleted})
}

// CreateRow inserts a row after prev_row_id, or at the end of the module
// @Router /questions/{id}/modules/{module_id}/rows [post]
func (h *AnswersheetHandler) CreateRow(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	var req CreateRowRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	row, err := h.service.CreateRow(c.Request.Context(), questionID, moduleID, req.PrevRowID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// DeleteRow deletes a row. The only row of a module is kept and reported as not deleted.
// @Router /questions/{id}/rows/{row_id} [delete]
func (h *AnswersheetHandler) DeleteRow(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}
	rowID := h.parseIDParam(c, "row_id")
	if rowID == 0 {
		return
	}

	deleted, err := h.service.DeleteRow(c.Request.Context(), questionID, rowID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: deleted})
}

// UpdateSortOrder moves a row or a module after prev_id, or to the top
// @Router /questions/{id}/sort-order [put]
func (h *AnswersheetHandler) UpdateSortOrder(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var req UpdateSortOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	moved, err := h.service.UpdateSortOrder(c.Request.Context(), questionID, req.Kind, req.ID, req.PrevID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MovedResponse{Moved: moved})
}

// Export downloads the answer key as a workbook
// @Router /questions/{id}/answersheet/export [get]
func (h *AnswersheetHandler) Export(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var buf bytes.Buffer
	if err := h.importExport.ExportXLSX(c.Request.Context(), questionID, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="answersheet-%d.xlsx"`, questionID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Import replaces the answer key with an uploaded workbook (form field "file")
// @Router /questions/{id}/answersheet/import [post]
func (h *AnswersheetHandler) Import(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "File is required", err, err.Error())
		return
	}
	if header.Size > maxImportSize {
		h.RespondWithError(c, http.StatusRequestEntityTooLarge, "File too large", nil, header.Size)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unreadable file", err, err.Error())
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing answer sheet", "question_id", questionID, "filename", header.Filename, "size", header.Size)

	result, err := h.importExport.ImportXLSX(c.Request.Context(), questionID, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if result.Status == models.ImportValidationFailed {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
