package insights

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/relationships"
	"github.com/fedlens/intel-pipeline/internal/repository/repotest"
	"github.com/fedlens/intel-pipeline/internal/scoring"
)

func newEngine(t *testing.T) (*Engine, *repotest.Store) {
	t.Helper()
	repos, store := repotest.New()
	log := logger.NewSimpleLogger()
	engine := NewEngine(repos, scoring.NewCalculator(repos, log), relationships.NewIntelligence(repos, log), log)
	engine.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
	return engine, store
}

func addContractValue(store *repotest.Store, entityID uuid.UUID, agency string, amount float64) {
	id := entityID
	store.Contracts = append(store.Contracts, models.Contract{
		ID:                uuid.New(),
		RecipientEntityID: &id,
		Amount:            amount,
		AwardingAgency:    agency,
		AwardDate:         time.Now().Add(-30 * 24 * time.Hour),
	})
}

func findInsight(insights []models.Insight, title string) *models.Insight {
	for idx := range insights {
		if insights[idx].Title == title {
			return &insights[idx]
		}
	}
	return nil
}

func hasType(insights []models.Insight, insightType string) bool {
	for _, insight := range insights {
		if insight.InsightType == insightType {
			return true
		}
	}
	return false
}

func TestGenerateEntityInsightsDecliningEntity(t *testing.T) {
	engine, store := newEngine(t)

	// History but no recent activity: trend down, low density, low diversity
	entity := store.AddEntity(models.Entity{
		Name:          "Declining Corp",
		ContractCount: 10,
	})

	generated, err := engine.GenerateEntityInsights(context.Background(), entity.ID)
	if err != nil {
		t.Fatalf("GenerateEntityInsights() error = %v", err)
	}

	warning := findInsight(generated, "Declining Corp shows declining award activity")
	if warning == nil {
		t.Fatal("expected a declining-activity warning")
	}
	if warning.InsightType != models.InsightWarning {
		t.Errorf("InsightType = %q, want %q", warning.InsightType, models.InsightWarning)
	}
	if warning.Severity != models.SeverityHigh {
		t.Errorf("Severity = %q, want %q", warning.Severity, models.SeverityHigh)
	}
	if warning.SupportingData.Score == nil {
		t.Error("expected score payload on the warning")
	}
	if len(warning.SupportingData.Actions) == 0 {
		t.Error("expected suggested actions on the warning")
	}

	// Every generated insight was persisted under its dedup key
	if len(store.Insights) != len(generated) {
		t.Errorf("persisted = %d, generated = %d", len(store.Insights), len(generated))
	}
}

func TestGenerateEntityInsightsStrongEntity(t *testing.T) {
	engine, store := newEngine(t)

	id := uuid.New()
	store.AddEntity(models.Entity{
		ID:                 id,
		Name:               "Strong Corp",
		ContractCount:      20,
		GrantCount:         10,
		TotalContractValue: 50_000_000,
		TotalGrantValue:    5_000_000,
		NaicsCodes:         []string{"541511", "541512", "236220"},
		BusinessTypes:      []string{"8a", "sdvosb"},
	})
	for i := 0; i < 6; i++ {
		store.Relationships = append(store.Relationships, models.Relationship{
			ID:               uuid.New(),
			FromEntityID:     id,
			ToEntityID:       uuid.New(),
			RelationshipType: models.RelationshipTeamingPartner,
		})
	}
	// Recent awards across several agencies keep the trend up
	addContractValue(store, id, "Agency A", 1_000_000)
	addContractValue(store, id, "Agency B", 1_000_000)
	addContractValue(store, id, "Agency C", 1_000_000)

	generated, err := engine.GenerateEntityInsights(context.Background(), id)
	if err != nil {
		t.Fatalf("GenerateEntityInsights() error = %v", err)
	}

	if !hasType(generated, models.InsightSuccess) {
		t.Fatalf("expected a success insight, got %+v", generated)
	}
	for _, insight := range generated {
		if insight.Title == "Strong Corp shows declining award activity" {
			t.Error("a growing entity must not get the declining-activity warning")
		}
	}
}

func TestLowDensityInsightSuggestsPartners(t *testing.T) {
	engine, store := newEngine(t)

	subject := store.AddEntity(models.Entity{Name: "Lonely Co"})
	candidate := store.AddEntity(models.Entity{Name: "Candidate Partner"})
	addContractValue(store, subject.ID, "Agency A", 500_000)
	addContractValue(store, candidate.ID, "Agency A", 500_000)

	generated, err := engine.GenerateEntityInsights(context.Background(), subject.ID)
	if err != nil {
		t.Fatalf("GenerateEntityInsights() error = %v", err)
	}

	opportunity := findInsight(generated, "Lonely Co has few known partners")
	if opportunity == nil {
		t.Fatal("expected the low-density opportunity")
	}
	found := false
	for _, related := range opportunity.RelatedEntities {
		if related == candidate.ID.String() {
			found = true
		}
	}
	if !found {
		t.Errorf("RelatedEntities = %v, want the candidate partner id", opportunity.RelatedEntities)
	}
}

func TestConcentrationBoundary(t *testing.T) {
	t.Run("exactly 70 percent does not fire", func(t *testing.T) {
		engine, store := newEngine(t)
		entity := store.AddEntity(models.Entity{Name: "Balanced Co"})
		addContractValue(store, entity.ID, "Agency A", 700_000)
		addContractValue(store, entity.ID, "Agency B", 300_000)

		generated, err := engine.GenerateEntityInsights(context.Background(), entity.ID)
		if err != nil {
			t.Fatalf("GenerateEntityInsights() error = %v", err)
		}
		if findInsight(generated, "Balanced Co depends on a single agency") != nil {
			t.Error("concentration insight fired at exactly the threshold")
		}
	})

	t.Run("above 70 percent fires", func(t *testing.T) {
		engine, store := newEngine(t)
		entity := store.AddEntity(models.Entity{Name: "Dependent Co"})
		addContractValue(store, entity.ID, "Agency A", 710_000)
		addContractValue(store, entity.ID, "Agency B", 290_000)

		generated, err := engine.GenerateEntityInsights(context.Background(), entity.ID)
		if err != nil {
			t.Fatalf("GenerateEntityInsights() error = %v", err)
		}

		insight := findInsight(generated, "Dependent Co depends on a single agency")
		if insight == nil {
			t.Fatal("expected the concentration warning above the threshold")
		}
		if insight.SupportingData.Concentration == nil {
			t.Fatal("expected a concentration payload")
		}
		if insight.SupportingData.Concentration.TopAgency != "Agency A" {
			t.Errorf("TopAgency = %q, want Agency A", insight.SupportingData.Concentration.TopAgency)
		}
	})

	t.Run("no contracts means no concentration", func(t *testing.T) {
		engine, store := newEngine(t)
		entity := store.AddEntity(models.Entity{Name: "Empty Co"})

		generated, err := engine.GenerateEntityInsights(context.Background(), entity.ID)
		if err != nil {
			t.Fatalf("GenerateEntityInsights() error = %v", err)
		}
		if findInsight(generated, "Empty Co depends on a single agency") != nil {
			t.Error("concentration insight fired with zero contract value")
		}
	})
}

func TestInsightDedupKeyStable(t *testing.T) {
	entityID := uuid.New()
	day := time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)
	later := time.Date(2026, 6, 15, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2026, 6, 16, 3, 0, 0, 0, time.UTC)

	if dedupKey(entityID, "declining_activity", day) != dedupKey(entityID, "declining_activity", later) {
		t.Error("same entity, rule, and day should share a dedup key")
	}
	if dedupKey(entityID, "declining_activity", day) == dedupKey(entityID, "declining_activity", nextDay) {
		t.Error("different days should not share a dedup key")
	}
	if dedupKey(entityID, "declining_activity", day) == dedupKey(entityID, "low_diversification", day) {
		t.Error("different rules should not share a dedup key")
	}
}

func TestGenerateEntityInsightsRerunUpserts(t *testing.T) {
	engine, store := newEngine(t)
	entity := store.AddEntity(models.Entity{Name: "Repeat Co", ContractCount: 10})

	first, err := engine.GenerateEntityInsights(context.Background(), entity.ID)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	second, err := engine.GenerateEntityInsights(context.Background(), entity.ID)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if len(first) != len(second) {
		t.Errorf("runs generated %d and %d insights, want identical", len(first), len(second))
	}
	if len(store.Insights) != len(first) {
		t.Errorf("persisted = %d after rerun, want %d", len(store.Insights), len(first))
	}
}

func TestGenerateBatch(t *testing.T) {
	engine, store := newEngine(t)
	store.AddEntity(models.Entity{Name: "Batch A", ContractCount: 10})
	store.AddEntity(models.Entity{Name: "Batch B", ContractCount: 10})

	stats, err := engine.GenerateBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}
	if stats.Processed != 2 {
		t.Errorf("Processed = %d, want 2", stats.Processed)
	}
	if stats.InsightsGenerated == 0 {
		t.Error("expected insights for entities with declining history")
	}
}
