package pkg

import (
	"fmt"

	"github.com/SAP-F-2025/answersheet-service/internal/config"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Environment == "production" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Module{}, &models.AnswerRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate answer sheet tables: %w", err)
	}

	return db, nil
}
