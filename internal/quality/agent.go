package quality

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fedlens/intel-pipeline/internal/classifier"
	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/repository"
	"github.com/fedlens/intel-pipeline/internal/scoring"
	"github.com/fedlens/intel-pipeline/pkg/config"
)

// Pass bounds
const (
	defaultOrphanBatchSize = 100
	classificationBatch    = 50
	scoreBackfillBatch     = 25
	staleThreshold         = 7 * 24 * time.Hour
	freshnessWindow        = 24 * time.Hour
	fuzzyMatchPrefixLength = 20
)

// Quality score weights
const (
	weightScoring        = 0.40
	weightLinkage        = 0.30
	weightClassification = 0.30
)

// Agent orchestrates the recurring data-quality audit: a fixed sequence of
// repair and reporting passes across the whole entity population
type Agent struct {
	repos       *repository.Repositories
	backfiller  *classifier.Backfiller
	calculator  *scoring.Calculator
	logger      logger.Logger
	orphanBatch int
	now         func() time.Time
}

// NewAgent creates a data quality agent
func NewAgent(repos *repository.Repositories, backfiller *classifier.Backfiller, calculator *scoring.Calculator, cfg *config.Config, log logger.Logger) *Agent {
	orphanBatch := cfg.AuditOrphanBatchSize
	if orphanBatch <= 0 {
		orphanBatch = defaultOrphanBatchSize
	}
	return &Agent{
		repos:       repos,
		backfiller:  backfiller,
		calculator:  calculator,
		logger:      log,
		orphanBatch: orphanBatch,
		now:         time.Now,
	}
}

// AuditResult summarizes one audit pass
type AuditResult struct {
	Type    string `json:"type"`
	Found   int    `json:"found"`
	Fixed   int    `json:"fixed"`
	Details string `json:"details,omitempty"`
}

// RunDailyAudit executes the five audit passes in fixed sequence. A pass
// failure is recorded in its result and never aborts the remaining passes.
func (a *Agent) RunDailyAudit(ctx context.Context) []AuditResult {
	a.logger.Info("starting daily data quality audit")

	results := []AuditResult{
		a.repairOrphans(ctx),
		a.scanStaleness(),
		a.backfillClassifications(ctx),
		a.backfillScores(ctx),
		a.checkFreshness(),
	}

	for _, result := range results {
		a.logger.Info("audit pass complete",
			"type", result.Type, "found", result.Found, "fixed", result.Fixed)
	}

	return results
}

// repairOrphans links awards with a missing entity reference via a fuzzy
// name match. A reference is only written when exactly one candidate
// matches; ambiguous or empty matches are left for a human.
func (a *Agent) repairOrphans(ctx context.Context) AuditResult {
	result := AuditResult{Type: "orphan_repair"}

	orphans, err := a.repos.Award.GetOrphans(a.orphanBatch)
	if err != nil {
		result.Details = fmt.Sprintf("failed to fetch orphans: %v", err)
		return result
	}
	result.Found = len(orphans)

	for _, orphan := range orphans {
		select {
		case <-ctx.Done():
			result.Details = "canceled"
			return result
		default:
		}

		prefix := namePrefix(orphan.RecipientName)
		if prefix == "" {
			continue
		}

		matches, err := a.repos.Entity.MatchByNamePrefix(prefix)
		if err != nil {
			a.logger.Error("orphan match query failed", err, "award_id", orphan.ID)
			continue
		}
		if len(matches) != 1 {
			continue
		}

		linked, err := a.repos.Award.LinkOrphan(orphan.Kind, orphan.ID, matches[0].ID)
		if err != nil {
			a.logger.Error("failed to link orphan", err, "award_id", orphan.ID)
			continue
		}
		if linked {
			result.Fixed++
		}
	}

	return result
}

// scanStaleness reports entities overdue for re-enrichment. Refreshing them
// is the flywheel's job; this pass is a signal only.
func (a *Agent) scanStaleness() AuditResult {
	result := AuditResult{Type: "staleness_scan"}

	count, err := a.repos.Entity.CountStale(a.now().Add(-staleThreshold))
	if err != nil {
		result.Details = fmt.Sprintf("failed to count stale entities: %v", err)
		return result
	}

	result.Found = count
	result.Details = fmt.Sprintf("%d entities not updated in 7+ days", count)
	return result
}

// backfillClassifications classifies a bounded slice of unclassified awards
func (a *Agent) backfillClassifications(ctx context.Context) AuditResult {
	result := AuditResult{Type: "classification_backfill"}

	count, err := a.repos.Award.CountUnclassified()
	if err != nil {
		result.Details = fmt.Sprintf("failed to count unclassified awards: %v", err)
		return result
	}
	result.Found = count
	if count == 0 {
		return result
	}

	stats, err := a.backfiller.ClassifyPending(ctx, classificationBatch)
	if err != nil {
		result.Details = fmt.Sprintf("backfill failed: %v", err)
		return result
	}

	result.Fixed = stats.Classified
	if stats.Errors > 0 {
		result.Details = fmt.Sprintf("%d classification errors", stats.Errors)
	}
	return result
}

// backfillScores computes health scores for a bounded slice of unscored
// canonical entities
func (a *Agent) backfillScores(ctx context.Context) AuditResult {
	result := AuditResult{Type: "score_backfill"}

	total, err := a.repos.Entity.CountCanonical()
	if err != nil {
		result.Details = fmt.Sprintf("failed to count entities: %v", err)
		return result
	}
	scored, err := a.repos.Intel.CountHealthScores()
	if err != nil {
		result.Details = fmt.Sprintf("failed to count health scores: %v", err)
		return result
	}

	result.Found = total - scored
	if result.Found <= 0 {
		result.Found = 0
		return result
	}

	stats, err := a.calculator.ScoreUnscored(ctx, scoreBackfillBatch)
	if err != nil {
		result.Details = fmt.Sprintf("score backfill failed: %v", err)
		return result
	}

	result.Fixed = stats.Scored
	if stats.Errors > 0 {
		result.Details = fmt.Sprintf("%d scoring errors", stats.Errors)
	}
	return result
}

// checkFreshness verifies that new awards or facts arrived within the last
// 24 hours
func (a *Agent) checkFreshness() AuditResult {
	result := AuditResult{Type: "freshness_check"}
	cutoff := a.now().Add(-freshnessWindow)

	awardsFresh, err := a.repos.Award.AnyCreatedSince(cutoff)
	if err != nil {
		result.Details = fmt.Sprintf("failed to check award freshness: %v", err)
		return result
	}
	factsFresh, err := a.repos.Intel.AnyFactCreatedSince(cutoff)
	if err != nil {
		result.Details = fmt.Sprintf("failed to check fact freshness: %v", err)
		return result
	}

	if awardsFresh || factsFresh {
		result.Details = "data is fresh"
	} else {
		result.Found = 1
		result.Details = "no new awards or facts in the last 24 hours"
	}
	return result
}

// GetQualityScore computes the aggregate 0-100 quality score from true
// coverage ratios: scored entities, linked awards, classified awards
func (a *Agent) GetQualityScore() (int, error) {
	totalEntities, err := a.repos.Entity.CountCanonical()
	if err != nil {
		return 0, err
	}
	scored, err := a.repos.Intel.CountHealthScores()
	if err != nil {
		return 0, err
	}
	totalAwards, err := a.repos.Award.CountAwards()
	if err != nil {
		return 0, err
	}
	orphans, err := a.repos.Award.CountOrphans()
	if err != nil {
		return 0, err
	}
	classified, err := a.repos.Intel.CountClassifications()
	if err != nil {
		return 0, err
	}

	scoringCoverage := ratio(scored, totalEntities)
	linkageCoverage := 1 - ratio(orphans, totalAwards)
	classificationCoverage := ratio(classified, totalAwards)

	score := int(math.Round(100 * (weightScoring*scoringCoverage +
		weightLinkage*linkageCoverage +
		weightClassification*classificationCoverage)))

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score, nil
}

// ratio returns n/d treating an empty denominator as full coverage
func ratio(n, d int) float64 {
	if d <= 0 {
		return 1
	}
	v := float64(n) / float64(d)
	if v > 1 {
		return 1
	}
	return v
}

// namePrefix normalizes the first characters of a recipient name for the
// fuzzy match. Truncation is rune-aware so multi-byte names never produce
// an invalid pattern.
func namePrefix(name string) string {
	trimmed := strings.TrimSpace(name)
	if runes := []rune(trimmed); len(runes) > fuzzyMatchPrefixLength {
		trimmed = string(runes[:fuzzyMatchPrefixLength])
	}
	return strings.TrimSpace(trimmed)
}
