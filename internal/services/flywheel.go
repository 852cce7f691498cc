package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fedlens/intel-pipeline/internal/enrichment"
	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/metrics"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/repository"
	"github.com/fedlens/intel-pipeline/internal/scoring"
	"github.com/fedlens/intel-pipeline/pkg/config"
)

// Enrichment source labels stored on facts
const (
	sourceProfileAPI = "company_profile_api"
	sourceAwardsAPI  = "awards_api"
	sourceGrantData  = "grant_records"
)

// Flywheel is the background enrichment scheduler. Each cycle it picks the
// stalest entities, re-enriches them from the external providers, bumps
// their staleness clocks, and backfills missing health scores.
type Flywheel struct {
	repos      *repository.Repositories
	profiles   *enrichment.ProfileClient
	awards     *enrichment.AwardsClient
	calculator *scoring.Calculator
	logger     logger.Logger

	interval      time.Duration
	batchSize     int
	staleAfter    time.Duration
	contractLimit int
	scoreBackfill int
	now           func() time.Time

	trigger   chan struct{}
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool

	// cycleMu serializes cycles so a manual trigger can never overlap the
	// ticker-driven run
	cycleMu sync.Mutex

	lastCycle   *CycleStats
	lastCycleAt time.Time
}

// NewFlywheel creates the enrichment flywheel from configuration
func NewFlywheel(repos *repository.Repositories, profiles *enrichment.ProfileClient, awards *enrichment.AwardsClient, calculator *scoring.Calculator, cfg *config.Config, log logger.Logger) *Flywheel {
	return &Flywheel{
		repos:         repos,
		profiles:      profiles,
		awards:        awards,
		calculator:    calculator,
		logger:        log,
		interval:      cfg.FlywheelInterval,
		batchSize:     cfg.FlywheelBatchSize,
		staleAfter:    time.Duration(cfg.StaleAfterDays) * 24 * time.Hour,
		contractLimit: cfg.ContractEnrichLimit,
		scoreBackfill: cfg.ScoreBackfillLimit,
		now:           time.Now,
		trigger:       make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
	}
}

// CycleStats summarizes one flywheel cycle
type CycleStats struct {
	EntitiesEnriched       int           `json:"entities_enriched"`
	FactsInserted          int           `json:"facts_inserted"`
	ContractsEnriched      int           `json:"contracts_enriched"`
	HealthScoresCalculated int           `json:"health_scores_calculated"`
	Errors                 int           `json:"errors"`
	Duration               time.Duration `json:"duration"`
}

// Summary returns a one-line human-readable summary
func (s *CycleStats) Summary() string {
	return fmt.Sprintf("enriched %d entities, inserted %d facts, enriched %d contracts, calculated %d scores, %d errors in %v",
		s.EntitiesEnriched, s.FactsInserted, s.ContractsEnriched, s.HealthScoresCalculated, s.Errors, s.Duration.Round(time.Millisecond))
}

// Status describes the scheduler for the ops API
type Status struct {
	Running     bool        `json:"running"`
	Interval    string      `json:"interval"`
	BatchSize   int         `json:"batch_size"`
	LastCycle   *CycleStats `json:"last_cycle,omitempty"`
	LastCycleAt *time.Time  `json:"last_cycle_at,omitempty"`
}

// Start launches the scheduler loop. Calling Start on a running flywheel is
// a no-op.
func (f *Flywheel) Start() {
	f.mu.Lock()
	if f.isRunning {
		f.mu.Unlock()
		return
	}
	f.isRunning = true
	f.mu.Unlock()

	f.wg.Add(1)
	go f.run()

	f.logger.Info(fmt.Sprintf("🔄 Enrichment flywheel started: interval=%v, batch_size=%d", f.interval, f.batchSize))
}

// Stop gracefully stops the scheduler and waits for an in-flight cycle
func (f *Flywheel) Stop() {
	f.mu.Lock()
	if !f.isRunning {
		f.mu.Unlock()
		return
	}
	f.isRunning = false
	f.mu.Unlock()

	close(f.stopChan)
	f.wg.Wait()
	f.stopChan = make(chan struct{})

	f.logger.Info("🛑 Enrichment flywheel stopped")
}

// IsRunning reports whether the scheduler loop is active
func (f *Flywheel) IsRunning() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.isRunning
}

// Trigger requests an immediate cycle without waiting for the ticker. The
// request is dropped if one is already queued.
func (f *Flywheel) Trigger() {
	select {
	case f.trigger <- struct{}{}:
	default:
	}
}

// GetStatus returns the scheduler state and the last cycle's stats
func (f *Flywheel) GetStatus() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()

	status := Status{
		Running:   f.isRunning,
		Interval:  f.interval.String(),
		BatchSize: f.batchSize,
		LastCycle: f.lastCycle,
	}
	if !f.lastCycleAt.IsZero() {
		at := f.lastCycleAt
		status.LastCycleAt = &at
	}
	return status
}

// run is the scheduler loop. The first cycle fires immediately.
func (f *Flywheel) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	ctx := context.Background()
	f.executeCycle(ctx)

	for {
		select {
		case <-f.stopChan:
			return
		case <-f.trigger:
			f.executeCycle(ctx)
		case <-ticker.C:
			f.executeCycle(ctx)
		}
	}
}

func (f *Flywheel) executeCycle(ctx context.Context) {
	stats, err := f.RunOnce(ctx)
	if err != nil {
		metrics.FlywheelCycleFailures.Inc()
		f.logger.Error("❌ Flywheel cycle failed", err)
		return
	}
	f.logger.Info(fmt.Sprintf("✅ Flywheel cycle completed: %s", stats.Summary()))
}

// RunOnce executes a single enrichment cycle. Cycles are serialized: a
// caller entering while another cycle is in flight waits for it to finish.
func (f *Flywheel) RunOnce(ctx context.Context) (*CycleStats, error) {
	f.cycleMu.Lock()
	defer f.cycleMu.Unlock()

	start := f.now()
	stats := &CycleStats{}

	entities, err := f.repos.Entity.GetStale(start.Add(-f.staleAfter), f.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale entities: %w", err)
	}

	for idx := range entities {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}
		f.enrichEntity(ctx, &entities[idx], stats)
	}

	scored, err := f.calculator.ScoreUnscored(ctx, f.scoreBackfill)
	if err != nil {
		f.logger.Error("score backfill failed", err)
		stats.Errors++
	} else {
		stats.HealthScoresCalculated = scored.Scored
		stats.Errors += scored.Errors
	}

	stats.Duration = f.now().Sub(start)

	metrics.FlywheelCycles.Inc()
	metrics.EntitiesEnriched.Add(float64(stats.EntitiesEnriched))
	metrics.FactsInserted.Add(float64(stats.FactsInserted))
	metrics.HealthScoresCalculated.Add(float64(stats.HealthScoresCalculated))
	metrics.CycleDuration.Observe(stats.Duration.Seconds())

	f.mu.Lock()
	f.lastCycle = stats
	f.lastCycleAt = f.now()
	f.mu.Unlock()

	return stats, nil
}

// enrichEntity fans out the three enrichment sources in parallel. A source
// failure is logged and counted but never blocks the others, and the
// staleness clock is bumped regardless so one flaky provider cannot pin an
// entity at the front of the queue.
func (f *Flywheel) enrichEntity(ctx context.Context, entity *models.Entity, stats *CycleStats) {
	f.logger.Info("🔍 Enriching entity", "entity_id", entity.ID, "name", entity.Name)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(3)

	go func() {
		defer wg.Done()
		inserted, err := f.enrichProfile(ctx, entity)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			f.logger.Warn("profile enrichment failed", "entity_id", entity.ID, "error", err)
			stats.Errors++
			return
		}
		stats.FactsInserted += inserted
	}()

	go func() {
		defer wg.Done()
		enriched, inserted, err := f.enrichContracts(ctx, entity)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			f.logger.Warn("contract enrichment failed", "entity_id", entity.ID, "error", err)
			stats.Errors++
			return
		}
		stats.ContractsEnriched += enriched
		stats.FactsInserted += inserted
	}()

	go func() {
		defer wg.Done()
		inserted, err := f.enrichGrants(ctx, entity)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			f.logger.Warn("grant enrichment failed", "entity_id", entity.ID, "error", err)
			stats.Errors++
			return
		}
		stats.FactsInserted += inserted
	}()

	wg.Wait()

	if err := f.repos.Entity.TouchUpdatedAt(entity.ID, f.now()); err != nil {
		f.logger.Error("failed to bump staleness clock", err, "entity_id", entity.ID)
		stats.Errors++
	}
	stats.EntitiesEnriched++
}

// enrichProfile looks the entity up on the profile provider and stores the
// extracted fields as facts
func (f *Flywheel) enrichProfile(ctx context.Context, entity *models.Entity) (int, error) {
	profile, err := f.profiles.Lookup(ctx, entity.Name)
	if err != nil {
		return 0, err
	}
	if profile.IsEmpty() {
		return 0, nil
	}

	facts := make([]models.Fact, 0, 4)
	add := func(factType, value string) {
		if value == "" {
			return
		}
		facts = append(facts, models.Fact{
			EntityID:   entity.ID,
			FactType:   factType,
			FactValue:  value,
			SourceName: sourceProfileAPI,
			Confidence: 0.7,
		})
	}
	add(models.FactTypeWebsite, profile.Website)
	add(models.FactTypeDescription, profile.Description)
	add(models.FactTypeLocation, profile.Location)
	add(models.FactTypeEmployeeCount, profile.EmployeeCount)

	return f.repos.Intel.InsertFacts(facts)
}

// enrichContracts re-fetches detail for the entity's most recent contracts
// from the awards API. Each detail becomes one award_detail fact; per-award
// failures only reduce the enriched count.
func (f *Flywheel) enrichContracts(ctx context.Context, entity *models.Entity) (int, int, error) {
	contracts, err := f.repos.Award.GetContractsByEntity(entity.ID, f.contractLimit)
	if err != nil {
		return 0, 0, err
	}

	enriched := 0
	facts := make([]models.Fact, 0, len(contracts))
	for _, contract := range contracts {
		select {
		case <-ctx.Done():
			return enriched, 0, ctx.Err()
		default:
		}
		if contract.AwardIdentifier == "" {
			continue
		}

		detail, err := f.awards.GetAwardDetail(ctx, contract.AwardIdentifier)
		if err != nil {
			f.logger.Debug("award detail lookup failed",
				"award_identifier", contract.AwardIdentifier, "error", err)
			continue
		}
		enriched++

		payload, err := json.Marshal(detail)
		if err != nil {
			continue
		}
		facts = append(facts, models.Fact{
			EntityID:   entity.ID,
			FactType:   models.FactTypeAwardDetail,
			FactValue:  string(payload),
			SourceName: sourceAwardsAPI,
			Confidence: 0.9,
		})
	}

	inserted, err := f.repos.Intel.InsertFacts(facts)
	return enriched, inserted, err
}

// grantProjectFact is the JSON payload stored for each grant-derived fact
type grantProjectFact struct {
	ProjectTitle string  `json:"project_title"`
	Amount       float64 `json:"amount"`
}

// enrichGrants records each grant's project title and amount as a fact
func (f *Flywheel) enrichGrants(ctx context.Context, entity *models.Entity) (int, error) {
	grants, err := f.repos.Award.GetGrantsByEntity(entity.ID, f.contractLimit)
	if err != nil {
		return 0, err
	}

	facts := make([]models.Fact, 0, len(grants))
	for _, grant := range grants {
		if grant.ProjectTitle == "" {
			continue
		}
		payload, err := json.Marshal(grantProjectFact{
			ProjectTitle: grant.ProjectTitle,
			Amount:       grant.Amount,
		})
		if err != nil {
			continue
		}
		facts = append(facts, models.Fact{
			EntityID:   entity.ID,
			FactType:   models.FactTypeGrantProject,
			FactValue:  string(payload),
			SourceName: sourceGrantData,
			Confidence: 0.9,
		})
	}

	return f.repos.Intel.InsertFacts(facts)
}
