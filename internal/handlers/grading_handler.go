package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/answersheet-service/internal/services"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

// GradeRequest carries a response keyed by row id, e.g. {"response": {"12": "B"}}.
type GradeRequest struct {
	Response services.Response `json:"response" validate:"required"`
}

type GradeResponse struct {
	*services.GradeResult
	Complete bool   `json:"complete"`
	Gradable bool   `json:"gradable"`
	Summary  string `json:"summary"`
}

type FinalGradeRequest struct {
	Tries   []services.Response `json:"tries" validate:"required,min=1"`
	Penalty float64             `json:"penalty" validate:"min=0,max=1"`
}

type FinalGradeResponse struct {
	Fraction float64             `json:"fraction"`
	State    services.GradeState `json:"state"`
}

func NewGradingHandler(
	gradingService services.GradingService,
	v *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger, v),
		gradingService: gradingService,
	}
}

// Grade grades a response against the answer key of a question
// @Router /questions/{id}/grade [post]
func (h *GradingHandler) Grade(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var req GradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	result, err := h.gradingService.Grade(ctx, questionID, req.Response)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	complete, err := h.gradingService.IsComplete(ctx, questionID, req.Response)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	summary, err := h.gradingService.Summarise(ctx, questionID, req.Response)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, GradeResponse{
		GradeResult: result,
		Complete:    complete,
		Gradable:    result.RowsAnswered() > 0,
		Summary:     summary,
	})
}

// ClearWrong returns the response without its wrong answers
// @Router /questions/{id}/grade/clear-wrong [post]
func (h *GradingHandler) ClearWrong(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var req GradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cleared, err := h.gradingService.ClearWrong(c.Request.Context(), questionID, req.Response)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, GradeRequest{Response: cleared})
}

// FinalGrade scores a sequence of tries with a penalty per wrong try
// @Router /questions/{id}/grade/final [post]
func (h *GradingHandler) FinalGrade(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var req FinalGradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	fraction, err := h.gradingService.FinalGrade(c.Request.Context(), questionID, req.Tries, req.Penalty)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, FinalGradeResponse{Fraction: fraction, State: services.StateForFraction(fraction)})
}

// CorrectResponse returns the response that scores full marks
// @Router /questions/{id}/correct-response [get]
func (h *GradingHandler) CorrectResponse(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	response, err := h.gradingService.CorrectResponse(c.Request.Context(), questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, GradeRequest{Response: response})
}
