package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/utils"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, questionID uint, resourceID uint, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		// Adjust log level based on error type
		if IsValidation(err) || IsBusinessRule(err) {
			level = slog.LevelWarn
			status = "validation_error"
		} else if IsNotFound(err) {
			level = slog.LevelInfo
			status = "not_found"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Uint64("question_id", uint64(questionID)),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErr ValidationErrors
		var businessErr *BusinessRuleError
		if errors.As(err, &validationErr) {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		} else if errors.As(err, &businessErr) {
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		}

		if pc, file, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				attrs = append(attrs,
					slog.String("caller_func", fn.Name()),
					slog.String("caller_file", file),
					slog.Int("caller_line", line),
				)
			}
		}
	}

	if requestID := utils.RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	if level == slog.LevelInfo && err == nil && !l.config.EnableDebug {
		level = slog.LevelDebug
	}
	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation string, questionID uint, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Uint64("question_id", uint64(questionID)),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i == 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

func (l *ServiceLogger) LogBusinessRuleViolation(ctx context.Context, operation string, questionID uint, rule *BusinessRuleError) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Uint64("question_id", uint64(questionID)),
		slog.String("rule", rule.Rule),
		slog.String("message", rule.Message),
	}
	for key, value := range rule.Context {
		attrs = append(attrs, slog.Any("context_"+key, value))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Business rule violation", attrs...)
}

// ===== CONTEXTUAL LOGGER =====

// ContextualLogger times one operation and logs its outcome
type ContextualLogger struct {
	logger     *ServiceLogger
	operation  string
	questionID uint
	startTime  time.Time
	ctx        context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, questionID uint) *ContextualLogger {
	return &ContextualLogger{
		logger:     l,
		operation:  operation,
		questionID: questionID,
		startTime:  time.Now(),
		ctx:        ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID uint, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.questionID, resourceID, resourceType, time.Since(cl.startTime), err)

	if err == nil {
		return
	}
	var validationErrors ValidationErrors
	var businessErr *BusinessRuleError
	if errors.As(err, &validationErrors) {
		cl.logger.LogValidationError(cl.ctx, cl.operation, cl.questionID, validationErrors)
	} else if errors.As(err, &businessErr) {
		cl.logger.LogBusinessRuleViolation(cl.ctx, cl.operation, cl.questionID, businessErr)
	}
}
