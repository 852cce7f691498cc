package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/relationships"
	"github.com/fedlens/intel-pipeline/internal/repository"
	"github.com/fedlens/intel-pipeline/internal/scoring"
)

// Rule thresholds
const (
	strongScoreThreshold   = 80
	lowDensityThreshold    = 30
	lowDiversityThreshold  = 30
	concentrationThreshold = 0.70
	contractSampleLimit    = 500
	insightsBatchPageSize  = 25
)

// Engine evaluates the insight rule table against freshly computed scores,
// market shifts, and contract-value concentration, and persists the matched
// insights
type Engine struct {
	repos      *repository.Repositories
	calculator *scoring.Calculator
	intel      *relationships.Intelligence
	logger     logger.Logger
	now        func() time.Time
}

// NewEngine creates an insight engine
func NewEngine(repos *repository.Repositories, calculator *scoring.Calculator, intel *relationships.Intelligence, log logger.Logger) *Engine {
	return &Engine{
		repos:      repos,
		calculator: calculator,
		intel:      intel,
		logger:     log,
		now:        time.Now,
	}
}

// BatchStats summarizes one batch insight run
type BatchStats struct {
	Processed         int `json:"processed"`
	InsightsGenerated int `json:"insights_generated"`
}

// GenerateEntityInsights evaluates every rule for one entity, persists each
// matched insight, and returns them
func (e *Engine) GenerateEntityInsights(ctx context.Context, entityID uuid.UUID) ([]models.Insight, error) {
	entity, err := e.repos.Entity.GetByID(entityID)
	if err != nil {
		return nil, err
	}

	score, err := e.calculator.Calculate(ctx, entityID)
	if err != nil {
		return nil, err
	}

	shift, err := e.intel.DetectMarketShift(ctx, entityID)
	if err != nil {
		return nil, err
	}

	concentration, err := e.analyzeConcentration(entityID)
	if err != nil {
		return nil, err
	}

	// Candidate partners back the low-density opportunity; discovery failure
	// only leaves that insight without suggestions
	var partnerIDs []string
	if score.RelationshipDensity < lowDensityThreshold {
		partners, err := e.intel.DiscoverTeamingPartners(ctx, entityID)
		if err != nil {
			e.logger.Warn("teaming partner discovery failed", "entity_id", entityID, "error", err)
		}
		for _, partner := range partners {
			partnerIDs = append(partnerIDs, partner.EntityID.String())
		}
	}

	insights := e.evaluateRules(entity, score, shift, concentration, partnerIDs)

	for idx := range insights {
		if err := e.repos.Intel.UpsertInsight(&insights[idx]); err != nil {
			e.logger.Error("failed to persist insight", err,
				"entity_id", entityID, "insight_type", insights[idx].InsightType)
		}
	}

	return insights, nil
}

// GenerateBatch generates insights for a page of canonical entities.
// Per-entity failures are logged and skipped.
func (e *Engine) GenerateBatch(ctx context.Context, limit int) (BatchStats, error) {
	stats := BatchStats{}
	if limit <= 0 {
		limit = insightsBatchPageSize
	}

	entities, err := e.repos.Entity.GetCanonical(limit, 0)
	if err != nil {
		return stats, err
	}

	for _, entity := range entities {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		generated, err := e.GenerateEntityInsights(ctx, entity.ID)
		if err != nil {
			e.logger.Error("failed to generate insights", err, "entity_id", entity.ID)
			continue
		}
		stats.Processed++
		stats.InsightsGenerated += len(generated)
	}

	return stats, nil
}

// concentrationResult is the per-agency share of the entity's total
// contract value
type concentrationResult struct {
	topAgency  string
	topShare   float64
	totalValue float64
}

func (e *Engine) analyzeConcentration(entityID uuid.UUID) (*concentrationResult, error) {
	contracts, err := e.repos.Award.GetContractsByEntity(entityID, contractSampleLimit)
	if err != nil {
		return nil, err
	}

	result := &concentrationResult{}
	byAgency := make(map[string]float64)
	for _, contract := range contracts {
		byAgency[contract.AwardingAgency] += contract.Amount
		result.totalValue += contract.Amount
	}
	if result.totalValue == 0 {
		return result, nil
	}

	for agency, value := range byAgency {
		share := value / result.totalValue
		if share > result.topShare || (share == result.topShare && agency < result.topAgency) {
			result.topAgency = agency
			result.topShare = share
		}
	}

	return result, nil
}

// evaluateRules applies the fixed rule table. Each matched rule yields one
// insight with the underlying numbers attached.
func (e *Engine) evaluateRules(entity *models.Entity, score *models.HealthScore, shift *relationships.MarketShift, concentration *concentrationResult, partnerIDs []string) []models.Insight {
	var matched []models.Insight

	scoreData := &models.ScoreData{
		OverallScore:          score.OverallScore,
		ContractVelocity:      score.ContractVelocity,
		GrantSuccess:          score.GrantSuccess,
		RelationshipDensity:   score.RelationshipDensity,
		MarketDiversification: score.MarketDiversification,
		TrendDirection:        score.TrendDirection,
	}

	if score.TrendDirection == models.TrendDown {
		matched = append(matched, e.build(entity, models.InsightWarning, models.SeverityHigh,
			"declining_activity",
			fmt.Sprintf("%s shows declining award activity", entity.Name),
			fmt.Sprintf("No awards in the last six months against %d historical contracts. Health score is %d.",
				entity.ContractCount, score.OverallScore),
			models.SupportingData{
				Score: scoreData,
				Actions: []string{
					"Review open solicitations with historical awarding agencies",
					"Re-engage known teaming partners",
				},
			}))
	}

	if score.OverallScore >= strongScoreThreshold {
		matched = append(matched, e.build(entity, models.InsightSuccess, models.SeverityLow,
			"strong_health",
			fmt.Sprintf("%s has a strong health score of %d", entity.Name, score.OverallScore),
			fmt.Sprintf("Composite health is %d/100 with velocity %d and diversification %d.",
				score.OverallScore, score.ContractVelocity, score.MarketDiversification),
			models.SupportingData{
				Score:   scoreData,
				Actions: []string{"Highlight as a priority account"},
			}))
	}

	if score.RelationshipDensity < lowDensityThreshold {
		insight := e.build(entity, models.InsightOpportunity, models.SeverityMedium,
			"low_relationship_density",
			fmt.Sprintf("%s has few known partners", entity.Name),
			fmt.Sprintf("Relationship density is %d/100. Teaming introductions could open new agencies.",
				score.RelationshipDensity),
			models.SupportingData{
				Score:   scoreData,
				Actions: []string{"Run teaming-partner discovery", "Suggest partner introductions"},
			})
		insight.RelatedEntities = partnerIDs
		matched = append(matched, insight)
	}

	if score.MarketDiversification < lowDiversityThreshold {
		matched = append(matched, e.build(entity, models.InsightWarning, models.SeverityMedium,
			"low_diversification",
			fmt.Sprintf("%s is concentrated in few markets", entity.Name),
			fmt.Sprintf("Market diversification is %d/100 across %d NAICS codes.",
				score.MarketDiversification, len(entity.NaicsCodes)),
			models.SupportingData{
				Score:   scoreData,
				Actions: []string{"Identify adjacent NAICS codes", "Evaluate grant programs"},
			}))
	}

	shiftData := &models.MarketShiftData{
		NewMarkets:     shift.NewMarkets,
		LostMarkets:    shift.LostMarkets,
		VelocityChange: shift.ContractVelocityChange,
		Trend:          shift.Trend,
	}

	if len(shift.NewMarkets) > 0 {
		matched = append(matched, e.build(entity, models.InsightOpportunity, models.SeverityMedium,
			"new_markets",
			fmt.Sprintf("%s entered %d new agency markets", entity.Name, len(shift.NewMarkets)),
			fmt.Sprintf("New awarding agencies in the last 90 days: %s.", strings.Join(shift.NewMarkets, ", ")),
			models.SupportingData{
				MarketShift: shiftData,
				Actions:     []string{"Pursue follow-on work with new agencies"},
			}))
	}

	if len(shift.LostMarkets) > 0 {
		matched = append(matched, e.build(entity, models.InsightThreat, models.SeverityHigh,
			"lost_markets",
			fmt.Sprintf("%s lost presence in %d agency markets", entity.Name, len(shift.LostMarkets)),
			fmt.Sprintf("No recent awards from: %s.", strings.Join(shift.LostMarkets, ", ")),
			models.SupportingData{
				MarketShift: shiftData,
				Actions:     []string{"Investigate lost incumbencies", "Monitor recompete schedules"},
			}))
	}

	if shift.Trend == relationships.TrendExpanding {
		matched = append(matched, e.build(entity, models.InsightSuccess, models.SeverityLow,
			"expanding",
			fmt.Sprintf("%s is expanding", entity.Name),
			fmt.Sprintf("Contract velocity is up %d awards quarter over quarter.", shift.ContractVelocityChange),
			models.SupportingData{
				MarketShift: shiftData,
				Actions:     []string{"Track capacity for concurrent performance"},
			}))
	}

	if concentration.topShare > concentrationThreshold {
		matched = append(matched, e.build(entity, models.InsightWarning, models.SeverityHigh,
			"agency_concentration",
			fmt.Sprintf("%s depends on a single agency", entity.Name),
			fmt.Sprintf("%s accounts for %.0f%% of total contract value.",
				concentration.topAgency, concentration.topShare*100),
			models.SupportingData{
				Concentration: &models.ConcentrationData{
					TopAgency:  concentration.topAgency,
					Share:      concentration.topShare,
					TotalValue: concentration.totalValue,
				},
				Actions: []string{"Diversify agency pipeline", "Assess recompete risk"},
			}))
	}

	return matched
}

// build assembles one insight with its content-derived dedup key
func (e *Engine) build(entity *models.Entity, insightType, severity, ruleName, title, description string, data models.SupportingData) models.Insight {
	return models.Insight{
		ScopeType:      "entity",
		ScopeValue:     entity.ID.String(),
		InsightType:    insightType,
		Title:          title,
		Description:    description,
		Severity:       severity,
		SupportingData: data,
		DedupKey:       dedupKey(entity.ID, ruleName, e.now()),
		CreatedAt:      e.now(),
	}
}

// dedupKey derives a stable key from entity, rule, and UTC day so a rerun
// under unchanged conditions upserts instead of duplicating
func dedupKey(entityID uuid.UUID, ruleName string, at time.Time) string {
	sum := sha256.Sum256([]byte(
		entityID.String() + "|" + ruleName + "|" + at.UTC().Format("2006-01-02"),
	))
	return hex.EncodeToString(sum[:16])
}
