package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/answersheet-service/internal/services"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger    utils.Logger
	validator *validator.Validator
}

func NewBaseHandler(logger utils.Logger, v *validator.Validator) BaseHandler {
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	if v == nil {
		v = validator.New()
	}
	return BaseHandler{
		logger:    logger,
		validator: v,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetString(utils.RequestIDKey),
	}
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetString(utils.RequestIDKey),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)
	h.logger.LogError(err, message, fields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.logger.Warn(message, "status_code", statusCode, "path", c.Request.URL.Path, "request_id", c.GetString(utils.RequestIDKey))
	}

	c.JSON(statusCode, errorResp)
}

// bindJSON decodes and validates the request body. It writes the 400 response itself and
// reports false when the body is unusable.
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validator.ToValidationErrors(err))
		return false
	}
	return true
}

// parseIDParam returns 0 after writing a 400 response when the path parameter is not a
// positive integer.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		details := "ID must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: details,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuestionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Question not found", err)
	case errors.Is(err, services.ErrModuleNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Module not found", err)
	case errors.Is(err, services.ErrRowNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Row not found", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request", err, err.Error())
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
