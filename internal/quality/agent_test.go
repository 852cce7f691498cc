package quality

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/classifier"
	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/repository/repotest"
	"github.com/fedlens/intel-pipeline/internal/scoring"
	"github.com/fedlens/intel-pipeline/pkg/config"
)

func newAgent(t *testing.T) (*Agent, *repotest.Store) {
	return newAgentWithConfig(t, &config.Config{AuditOrphanBatchSize: 100})
}

func newAgentWithConfig(t *testing.T, cfg *config.Config) (*Agent, *repotest.Store) {
	t.Helper()
	repos, store := repotest.New()
	log := logger.NewSimpleLogger()
	agent := NewAgent(repos, classifier.NewBackfiller(repos, log), scoring.NewCalculator(repos, log), cfg, log)
	agent.now = func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) }
	return agent, store
}

func orphanContract(store *repotest.Store, recipientName string) uuid.UUID {
	contract := models.Contract{
		ID:            uuid.New(),
		RecipientName: recipientName,
		Amount:        10_000,
	}
	store.Contracts = append(store.Contracts, contract)
	return contract.ID
}

func TestRepairOrphansLinksUniqueMatch(t *testing.T) {
	agent, store := newAgent(t)

	entity := store.AddEntity(models.Entity{Name: "Acme Federal Solutions LLC"})
	orphanID := orphanContract(store, "ACME FEDERAL SOLUTIONS LLC")

	result := agent.repairOrphans(context.Background())

	if result.Found != 1 {
		t.Errorf("Found = %d, want 1", result.Found)
	}
	if result.Fixed != 1 {
		t.Errorf("Fixed = %d, want 1", result.Fixed)
	}

	for _, contract := range store.Contracts {
		if contract.ID == orphanID {
			if contract.RecipientEntityID == nil || *contract.RecipientEntityID != entity.ID {
				t.Error("orphan was not linked to the matching entity")
			}
		}
	}
}

func TestRepairOrphansSkipsAmbiguousMatch(t *testing.T) {
	agent, store := newAgent(t)

	store.AddEntity(models.Entity{Name: "Acme Federal East"})
	store.AddEntity(models.Entity{Name: "Acme Federal West"})
	orphanID := orphanContract(store, "Acme Federal")

	result := agent.repairOrphans(context.Background())

	if result.Fixed != 0 {
		t.Errorf("Fixed = %d, want 0 for ambiguous match", result.Fixed)
	}
	for _, contract := range store.Contracts {
		if contract.ID == orphanID && contract.RecipientEntityID != nil {
			t.Error("ambiguous orphan must stay unlinked")
		}
	}
}

func TestRepairOrphansNoMatch(t *testing.T) {
	agent, store := newAgent(t)

	store.AddEntity(models.Entity{Name: "Unrelated Corp"})
	orphanContract(store, "Totally Different Name")

	result := agent.repairOrphans(context.Background())

	if result.Found != 1 {
		t.Errorf("Found = %d, want 1", result.Found)
	}
	if result.Fixed != 0 {
		t.Errorf("Fixed = %d, want 0", result.Fixed)
	}
}

func TestRepairOrphansNeverRelinks(t *testing.T) {
	agent, store := newAgent(t)

	linked := store.AddEntity(models.Entity{Name: "Linked Co"})
	id := linked.ID
	store.Contracts = append(store.Contracts, models.Contract{
		ID:                uuid.New(),
		RecipientEntityID: &id,
		RecipientName:     "Linked Co",
	})

	result := agent.repairOrphans(context.Background())
	if result.Found != 0 {
		t.Errorf("Found = %d, want 0 - linked awards are not orphans", result.Found)
	}
}

func TestRepairOrphansMultibyteName(t *testing.T) {
	agent, store := newAgent(t)

	// 24 runes of 3 bytes each: a byte-indexed cut at 20 would split a rune
	name := strings.Repeat("株", 24)
	entity := store.AddEntity(models.Entity{Name: name})
	orphanID := orphanContract(store, name)

	result := agent.repairOrphans(context.Background())

	if result.Fixed != 1 {
		t.Errorf("Fixed = %d, want 1", result.Fixed)
	}
	for _, contract := range store.Contracts {
		if contract.ID == orphanID {
			if contract.RecipientEntityID == nil || *contract.RecipientEntityID != entity.ID {
				t.Error("multibyte orphan was not linked")
			}
		}
	}
}

func TestNamePrefixRuneBoundaries(t *testing.T) {
	long := strings.Repeat("株", 24)
	prefix := namePrefix(long)

	if !utf8.ValidString(prefix) {
		t.Fatalf("prefix %q is not valid UTF-8", prefix)
	}
	if got := utf8.RuneCountInString(prefix); got != fuzzyMatchPrefixLength {
		t.Errorf("prefix runes = %d, want %d", got, fuzzyMatchPrefixLength)
	}

	short := "Ärzte GmbH"
	if namePrefix(short) != short {
		t.Errorf("namePrefix(%q) = %q, want unchanged", short, namePrefix(short))
	}
}

func TestRepairOrphansHonorsBatchSize(t *testing.T) {
	agent, store := newAgentWithConfig(t, &config.Config{AuditOrphanBatchSize: 1})

	store.AddEntity(models.Entity{Name: "First Orphaned Co"})
	store.AddEntity(models.Entity{Name: "Second Orphaned Co"})
	orphanContract(store, "First Orphaned Co")
	orphanContract(store, "Second Orphaned Co")

	result := agent.repairOrphans(context.Background())

	if result.Found != 1 {
		t.Errorf("Found = %d, want 1 with a batch size of 1", result.Found)
	}
	if result.Fixed != 1 {
		t.Errorf("Fixed = %d, want 1", result.Fixed)
	}
}

func TestRunDailyAuditOrderAndIsolation(t *testing.T) {
	agent, store := newAgent(t)

	// One stale entity and one fresh contract
	stale := store.AddEntity(models.Entity{Name: "Stale Co"})
	stale.UpdatedAt = agent.now().Add(-30 * 24 * time.Hour)
	id := stale.ID
	store.Contracts = append(store.Contracts, models.Contract{
		ID:                uuid.New(),
		RecipientEntityID: &id,
		RecipientName:     "Stale Co",
		CreatedAt:         agent.now().Add(-1 * time.Hour),
	})

	results := agent.RunDailyAudit(context.Background())

	wantOrder := []string{
		"orphan_repair",
		"staleness_scan",
		"classification_backfill",
		"score_backfill",
		"freshness_check",
	}
	if len(results) != len(wantOrder) {
		t.Fatalf("passes = %d, want %d", len(results), len(wantOrder))
	}
	for idx, want := range wantOrder {
		if results[idx].Type != want {
			t.Errorf("pass[%d] = %q, want %q", idx, results[idx].Type, want)
		}
	}

	if results[1].Found != 1 {
		t.Errorf("staleness Found = %d, want 1", results[1].Found)
	}
	if results[3].Fixed != 1 {
		t.Errorf("score backfill Fixed = %d, want 1", results[3].Fixed)
	}
}

func TestRunDailyAuditTwiceNeverLowersScore(t *testing.T) {
	agent, store := newAgent(t)

	// One repairable orphan and one unscored entity
	store.AddEntity(models.Entity{Name: "Recoverable Systems"})
	orphanContract(store, "Recoverable Systems")

	before, err := agent.GetQualityScore()
	if err != nil {
		t.Fatalf("GetQualityScore() error = %v", err)
	}

	first := agent.RunDailyAudit(context.Background())
	afterFirst, err := agent.GetQualityScore()
	if err != nil {
		t.Fatalf("GetQualityScore() error = %v", err)
	}

	second := agent.RunDailyAudit(context.Background())
	afterSecond, err := agent.GetQualityScore()
	if err != nil {
		t.Fatalf("GetQualityScore() error = %v", err)
	}

	if afterFirst < before {
		t.Errorf("score fell from %d to %d after the first audit", before, afterFirst)
	}
	if afterSecond < afterFirst {
		t.Errorf("score fell from %d to %d after the second audit", afterFirst, afterSecond)
	}

	if first[0].Type != "orphan_repair" || first[0].Fixed != 1 {
		t.Errorf("first orphan_repair = %+v, want 1 fix", first[0])
	}
	// Everything repairable was handled in the first run
	if second[0].Found != 0 {
		t.Errorf("second orphan_repair Found = %d, want 0", second[0].Found)
	}
}

func TestBackfillClassifications(t *testing.T) {
	agent, store := newAgent(t)

	store.Unclassified = append(store.Unclassified,
		models.UnclassifiedAward{
			ID:          uuid.New(),
			Kind:        models.AwardKindContract,
			Description: "cybersecurity network monitoring services",
			NaicsCode:   "541512",
		},
		models.UnclassifiedAward{
			ID:          uuid.New(),
			Kind:        models.AwardKindGrant,
			Description: "clinical research program",
		},
	)

	result := agent.backfillClassifications(context.Background())

	if result.Found != 2 {
		t.Errorf("Found = %d, want 2", result.Found)
	}
	if result.Fixed != 2 {
		t.Errorf("Fixed = %d, want 2", result.Fixed)
	}
	if len(store.Classifications) != 2 {
		t.Errorf("stored classifications = %d, want 2", len(store.Classifications))
	}
}

func TestCheckFreshness(t *testing.T) {
	t.Run("stale data is flagged", func(t *testing.T) {
		agent, store := newAgent(t)
		id := store.AddEntity(models.Entity{Name: "Old Co"}).ID
		store.Contracts = append(store.Contracts, models.Contract{
			ID:                uuid.New(),
			RecipientEntityID: &id,
			CreatedAt:         agent.now().Add(-48 * time.Hour),
		})

		result := agent.checkFreshness()
		if result.Found != 1 {
			t.Errorf("Found = %d, want 1 for stale data", result.Found)
		}
	})

	t.Run("fresh facts satisfy the check", func(t *testing.T) {
		agent, store := newAgent(t)
		store.Facts = append(store.Facts, models.Fact{
			ID:        uuid.New(),
			EntityID:  uuid.New(),
			FactType:  models.FactTypeWebsite,
			FactValue: "https://example.com",
			CreatedAt: agent.now().Add(-1 * time.Hour),
		})

		result := agent.checkFreshness()
		if result.Found != 0 {
			t.Errorf("Found = %d, want 0 with fresh facts", result.Found)
		}
	})
}

func TestGetQualityScore(t *testing.T) {
	t.Run("empty datastore scores full coverage", func(t *testing.T) {
		agent, _ := newAgent(t)
		score, err := agent.GetQualityScore()
		if err != nil {
			t.Fatalf("GetQualityScore() error = %v", err)
		}
		if score != 100 {
			t.Errorf("score = %d, want 100 when there is nothing to cover", score)
		}
	})

	t.Run("orphans and missing scores reduce the score", func(t *testing.T) {
		agent, store := newAgent(t)

		scored := store.AddEntity(models.Entity{Name: "Scored Co"})
		store.Scores[scored.ID] = &models.HealthScore{EntityID: scored.ID, OverallScore: 50}
		store.AddEntity(models.Entity{Name: "Unscored Co"})

		id := scored.ID
		store.Contracts = append(store.Contracts,
			models.Contract{ID: uuid.New(), RecipientEntityID: &id},
			models.Contract{ID: uuid.New()}, // orphan
		)

		score, err := agent.GetQualityScore()
		if err != nil {
			t.Fatalf("GetQualityScore() error = %v", err)
		}

		// scoring 1/2, linkage 1/2, classification 0/2
		// 100 * (0.4*0.5 + 0.3*0.5 + 0.3*0) = 35
		if score != 35 {
			t.Errorf("score = %d, want 35", score)
		}
	})

	t.Run("repair raises the score", func(t *testing.T) {
		agent, store := newAgent(t)

		entity := store.AddEntity(models.Entity{Name: "Fixable Industries"})
		store.Scores[entity.ID] = &models.HealthScore{EntityID: entity.ID, OverallScore: 60}
		orphanContract(store, "Fixable Industries")

		before, err := agent.GetQualityScore()
		if err != nil {
			t.Fatalf("GetQualityScore() error = %v", err)
		}

		agent.repairOrphans(context.Background())

		after, err := agent.GetQualityScore()
		if err != nil {
			t.Fatalf("GetQualityScore() error = %v", err)
		}
		if after <= before {
			t.Errorf("score after repair = %d, want above %d", after, before)
		}
	})
}
