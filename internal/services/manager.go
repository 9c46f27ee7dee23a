package services

import (
	"log/slog"

	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
)

// ServiceManager hands out the services built over one repository.
type ServiceManager interface {
	Answersheet() AnswersheetService
	Grading() GradingService
	ImportExport() ImportExportService
}

type serviceManager struct {
	answersheet  AnswersheetService
	grading      GradingService
	importExport ImportExportService
}

func NewServiceManager(repo repositories.AnswersheetRepository, logger *slog.Logger, v *validator.Validator, cfg AnswersheetConfig) ServiceManager {
	if v == nil {
		v = validator.New()
	}
	answersheet := NewAnswersheetService(repo, logger, v, cfg)
	return &serviceManager{
		answersheet:  answersheet,
		grading:      NewGradingService(repo, logger),
		importExport: NewImportExportService(answersheet, cfg.Publisher, logger, v),
	}
}

func (m *serviceManager) Answersheet() AnswersheetService   { return m.answersheet }
func (m *serviceManager) Grading() GradingService           { return m.grading }
func (m *serviceManager) ImportExport() ImportExportService { return m.importExport }
