package main

import (
	"context"
	"log"
	"net/http"

	"webfaq-backend/config"
	"webfaq-backend/handlers"
	"webfaq-backend/llm"
	"webfaq-backend/pubmed"
	"webfaq-backend/service"
	"webfaq-backend/sheetfaq"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load .env from the working directory first, then the project root
	// (relative to cmd/server/).
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := buildLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	llmClient, err := buildLLMClient(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize completion client", zap.Error(err))
	}
	logger.Info("completion client initialized", zap.String("provider", cfg.LLM.Provider))

	pubmedClient := pubmed.NewClient(
		pubmed.WithBaseURL(cfg.PubMed.BaseURL),
		pubmed.WithEmail(cfg.PubMed.Email),
		pubmed.WithTool(cfg.PubMed.Tool),
		pubmed.WithTimeout(cfg.PubMed.Timeout),
		pubmed.WithLogger(logger),
	)

	curatedService := sheetfaq.NewService(
		sheetfaq.WithCSVURL(cfg.Sheet.CSVURL),
		sheetfaq.WithSheetURL(cfg.Sheet.SheetURL),
		sheetfaq.WithTimeout(cfg.Sheet.Timeout),
		sheetfaq.WithLogger(logger),
	)

	faqService := service.NewFAQService(
		service.FAQWithSearcher(pubmedClient),
		service.FAQWithLogger(logger),
	)

	evaluatorService := service.NewEvaluatorService(
		service.EvaluatorWithLLM(llmClient),
		service.EvaluatorWithLogger(logger),
	)

	telehealthService := service.NewTelehealthService(
		service.TelehealthWithFAQService(faqService),
		service.TelehealthWithLLM(llmClient),
		service.TelehealthWithEvaluator(evaluatorService),
		service.TelehealthWithLogger(logger),
		service.TelehealthWithTuning(cfg.Agent.SnippetLength, cfg.Agent.MaxResultsPerQuery, cfg.Agent.AcceptThreshold),
	)

	turnService := service.NewTurnService(telehealthService)

	faqHandler := handlers.NewFAQHandler(faqService, curatedService, logger)
	telehealthHandler := handlers.NewTelehealthHandler(telehealthService, evaluatorService, logger)
	turnHandler := handlers.NewTurnHandler(turnService, telehealthHandler, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(logger))
	r.Use(cors.Default())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":     "WebFAQ: Medical FAQ API",
			"description": "Search PubMed for medical literature and get structured FAQ-style answers",
			"endpoint":    "/faq",
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "webfaq-backend"})
	})

	r.POST("/faq", faqHandler.SearchFAQ)
	r.POST("/faq/niharika", faqHandler.SearchNiharika)
	r.POST("/sources", faqHandler.GetSources)
	r.POST("/ashai", telehealthHandler.Ashai)
	r.POST("/evaluator", telehealthHandler.Evaluate)
	r.POST("/turn", turnHandler.Turn)

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// buildLLMClient selects the completion-service backend from config.
func buildLLMClient(cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAIClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel, cfg.LLM.Timeout, logger)
	default:
		return llm.NewGeminiClient(context.Background(), cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, cfg.LLM.Timeout, logger)
	}
}

func buildLogger(levelStr, format string) *zap.Logger {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var zcfg zap.Config
	if format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zcfg.Build()
	return logger
}
