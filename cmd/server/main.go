package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fedlens/intel-pipeline/internal/api"
	"github.com/fedlens/intel-pipeline/internal/classifier"
	"github.com/fedlens/intel-pipeline/internal/database"
	"github.com/fedlens/intel-pipeline/internal/enrichment"
	"github.com/fedlens/intel-pipeline/internal/insights"
	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/quality"
	"github.com/fedlens/intel-pipeline/internal/relationships"
	"github.com/fedlens/intel-pipeline/internal/repository"
	"github.com/fedlens/intel-pipeline/internal/scoring"
	"github.com/fedlens/intel-pipeline/internal/services"
	"github.com/fedlens/intel-pipeline/pkg/config"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()
	appLogger := logger.NewSimpleLogger()

	// Initialize database and apply schema
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Wire services
	repos := repository.NewRepositories(db.DB)
	profiles := enrichment.NewProfileClient(cfg.ProfileAPIEndpoint)
	defer profiles.Close()
	awards := enrichment.NewAwardsClient(cfg.AwardsAPIEndpoint, cfg.AwardsAPIKey)
	defer awards.Close()

	calculator := scoring.NewCalculator(repos, appLogger)
	backfiller := classifier.NewBackfiller(repos, appLogger)
	intel := relationships.NewIntelligence(repos, appLogger)
	insightEngine := insights.NewEngine(repos, calculator, intel, appLogger)
	agent := quality.NewAgent(repos, backfiller, calculator, cfg, appLogger)
	flywheel := services.NewFlywheel(repos, profiles, awards, calculator, cfg, appLogger)

	flywheel.Start()
	defer flywheel.Stop()

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	api.SetupRoutes(r, api.Dependencies{
		DB:       db,
		Flywheel: flywheel,
		Agent:    agent,
		Insights: insightEngine,
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
