package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/insights/internal/api/handler"
	"github.com/timmy/insights/internal/api/middleware"
	"github.com/timmy/insights/internal/config"
	"github.com/timmy/insights/internal/logger"
	"github.com/timmy/insights/internal/service"
)

// Deps are the collaborators the routes are served from.
type Deps struct {
	Store    handler.DatasetStore
	Analysis *service.AnalysisService
	Chat     *service.ChatService
	Rules    *service.RuleAssistant
	Logger   *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, cfg *config.Config) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	if cfg.Upload.MaxBytes > 0 {
		r.MaxMultipartMemory = cfg.Upload.MaxBytes
	}

	healthHandler := handler.NewHealthHandler(deps.Store)
	datasetHandler := handler.NewDatasetHandler(deps.Store, deps.Analysis, cfg.Upload.MaxBytes)
	chatHandler := handler.NewChatHandler(deps.Chat, deps.Rules)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Datasets
		datasets := v1.Group("/datasets")
		datasets.GET("", datasetHandler.List)
		datasets.POST("", datasetHandler.Upload)
		datasets.GET("/summary", datasetHandler.Summary)
		datasets.GET("/events", datasetHandler.Events)
		datasets.GET("/correlations", datasetHandler.Correlations)
		datasets.POST("/load", datasetHandler.Load)
		datasets.POST("/analyze", datasetHandler.AnalyzeAll)
		datasets.GET("/:id", datasetHandler.Get)
		datasets.DELETE("/:id", datasetHandler.Delete)
		datasets.POST("/:id/analyze", datasetHandler.Analyze)

		// Analysis
		v1.GET("/analysis/insights/:id", datasetHandler.Insights)

		// Assistant
		v1.GET("/chat/messages", chatHandler.Messages)
		v1.POST("/chat", chatHandler.Send)
		v1.POST("/voice/process", chatHandler.Voice)
	}

	return r
}
