package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fedlens/intel-pipeline/internal/classifier"
	"github.com/fedlens/intel-pipeline/internal/database"
	"github.com/fedlens/intel-pipeline/internal/enrichment"
	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/metrics"
	"github.com/fedlens/intel-pipeline/internal/quality"
	"github.com/fedlens/intel-pipeline/internal/repository"
	"github.com/fedlens/intel-pipeline/internal/scoring"
	"github.com/fedlens/intel-pipeline/internal/services"
	"github.com/fedlens/intel-pipeline/pkg/config"
)

func main() {
	fmt.Println("🎯 Entity Intelligence Pipeline")
	fmt.Println("================================")

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
		log.Fatal("Failed to apply migrations:", err)
	}

	// Wire the pipeline
	repos := repository.NewRepositories(db.DB)
	profiles := enrichment.NewProfileClient(cfg.ProfileAPIEndpoint)
	defer profiles.Close()
	awards := enrichment.NewAwardsClient(cfg.AwardsAPIEndpoint, cfg.AwardsAPIKey)
	defer awards.Close()

	calculator := scoring.NewCalculator(repos, appLogger)
	backfiller := classifier.NewBackfiller(repos, appLogger)
	agent := quality.NewAgent(repos, backfiller, calculator, cfg, appLogger)
	flywheel := services.NewFlywheel(repos, profiles, awards, calculator, cfg, appLogger)

	fmt.Printf("📋 Flywheel Configuration:\n")
	fmt.Printf("   • Interval: %v\n", cfg.FlywheelInterval)
	fmt.Printf("   • Batch Size: %d entities\n", cfg.FlywheelBatchSize)
	fmt.Printf("   • Stale After: %d days\n", cfg.StaleAfterDays)

	// Check if this is a one-time run
	if len(os.Args) > 1 && os.Args[1] == "--once" {
		fmt.Println("\n🔄 Running one-time enrichment cycle...")
		stats, err := flywheel.RunOnce(context.Background())
		if err != nil {
			log.Fatalf("❌ One-time cycle failed: %v", err)
		}

		fmt.Printf("\n✅ One-time cycle completed: %s\n", stats.Summary())
		return
	}

	// Start the flywheel and the daily audit loop
	flywheel.Start()

	auditStop := make(chan struct{})
	go runAuditLoop(agent, appLogger, auditStop)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("\n🚀 Enrichment flywheel is running...")
	fmt.Println("Press Ctrl+C to stop gracefully")

	<-sigChan
	fmt.Println("\n🛑 Shutdown signal received, stopping pipeline...")

	close(auditStop)
	flywheel.Stop()
	fmt.Println("✅ Pipeline stopped successfully")
}

// runAuditLoop runs the data quality audit once a day, starting immediately
func runAuditLoop(agent *quality.Agent, appLogger logger.Logger, stop chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	runAudit(agent, appLogger)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			runAudit(agent, appLogger)
		}
	}
}

func runAudit(agent *quality.Agent, appLogger logger.Logger) {
	results := agent.RunDailyAudit(context.Background())
	fixed := 0
	for _, result := range results {
		if result.Fixed > 0 {
			metrics.AuditFixes.WithLabelValues(result.Type).Add(float64(result.Fixed))
		}
		fixed += result.Fixed
	}
	appLogger.Info(fmt.Sprintf("🧹 Daily audit completed: %d passes, %d records fixed", len(results), fixed))

	if score, err := agent.GetQualityScore(); err != nil {
		appLogger.Error("failed to compute quality score", err)
	} else {
		metrics.QualityScore.Set(float64(score))
		appLogger.Info(fmt.Sprintf("📊 Data quality score: %d/100", score))
	}
}
