package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/answersheet-service/internal/services"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	answersheetHandler *AnswersheetHandler
	gradingHandler     *GradingHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		answersheetHandler: NewAnswersheetHandler(serviceManager.Answersheet(), serviceManager.ImportExport(), v, logger),
		gradingHandler:     NewGradingHandler(serviceManager.Grading(), v, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/answersheet/columns", hm.answersheetHandler.GetColumns)

		questions := v1.Group("/questions/:id")
		{
			// Answer sheet
			questions.GET("/answersheet", hm.answersheetHandler.GetData)
			questions.PUT("/answersheet", hm.answersheetHandler.SetData)
			questions.GET("/answersheet/export", hm.answersheetHandler.Export)
			questions.POST("/answersheet/import", hm.answersheetHandler.Import)

			// Modules and rows
			questions.POST("/modules", hm.answersheetHandler.CreateModule)
			questions.DELETE("/modules/:module_id", hm.answersheetHandler.DeleteModule)
			questions.POST("/modules/:module_id/rows", hm.answersheetHandler.CreateRow)
			questions.DELETE("/rows/:row_id", hm.answersheetHandler.DeleteRow)
			questions.PUT("/sort-order", hm.answersheetHandler.UpdateSortOrder)

			// Grading
			questions.POST("/grade", hm.gradingHandler.Grade)
			questions.POST("/grade/clear-wrong", hm.gradingHandler.ClearWrong)
			questions.POST("/grade/final", hm.gradingHandler.FinalGrade)
			questions.GET("/correct-response", hm.gradingHandler.CorrectResponse)
		}
	}
}

// NewRouter builds the gin engine with the service middlewares and all routes.
func NewRouter(hm *HandlerManager, logger utils.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.RequestID())
	router.Use(utils.LoggerMiddleware(logger))
	hm.SetupRoutes(router)
	return router
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "answersheet-service",
	})
}
