package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/models"
)

// intelRepository implements IntelRepository
type intelRepository struct {
	db dbExecutor
}

// NewIntelRepository creates a new derived-intelligence repository
func NewIntelRepository(db dbExecutor) IntelRepository {
	return &intelRepository{db: db}
}

// InsertFact inserts a fact. The content-level unique index makes retried
// inserts no-ops.
func (r *intelRepository) InsertFact(fact *models.Fact) error {
	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO entity_facts (id, entity_id, fact_type, fact_value, source_name, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_id, fact_type, fact_value, source_name) DO NOTHING
	`

	_, err := r.db.Exec(query,
		fact.ID, fact.EntityID, fact.FactType, fact.FactValue,
		fact.SourceName, fact.Confidence, fact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fact: %w", err)
	}

	return nil
}

// InsertFacts inserts a batch of facts, returning the number attempted
// successfully. Individual failures do not abort the batch.
func (r *intelRepository) InsertFacts(facts []models.Fact) (int, error) {
	inserted := 0
	var lastErr error
	for i := range facts {
		if err := r.InsertFact(&facts[i]); err != nil {
			lastErr = err
			continue
		}
		inserted++
	}
	if inserted == 0 && lastErr != nil {
		return 0, lastErr
	}
	return inserted, nil
}

// AnyFactCreatedSince reports whether any fact was created after the cutoff
func (r *intelRepository) AnyFactCreatedSince(since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM entity_facts WHERE created_at >= $1)`,
		since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fact freshness: %w", err)
	}
	return exists, nil
}

// UpsertRelationship inserts or refreshes an edge on its natural key
// (from, to, type)
func (r *intelRepository) UpsertRelationship(rel *models.Relationship) error {
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	now := time.Now()

	query := `
		INSERT INTO entity_relationships
			(id, from_entity_id, to_entity_id, relationship_type, strength, confidence, evidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (from_entity_id, to_entity_id, relationship_type) DO UPDATE SET
			strength = EXCLUDED.strength,
			confidence = EXCLUDED.confidence,
			evidence = EXCLUDED.evidence,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(query,
		rel.ID, rel.FromEntityID, rel.ToEntityID, rel.RelationshipType,
		rel.Strength, rel.Confidence, rel.Evidence, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert relationship: %w", err)
	}

	return nil
}

// CountRelationshipsByEntity counts edges touching the entity in either
// direction
func (r *intelRepository) CountRelationshipsByEntity(entityID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM entity_relationships WHERE from_entity_id = $1 OR to_entity_id = $1`,
		entityID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	return count, nil
}

// UpsertClassification inserts or refreshes a classification keyed by award id
func (r *intelRepository) UpsertClassification(c *models.Classification) error {
	if c.ClassifiedAt.IsZero() {
		c.ClassifiedAt = time.Now()
	}

	query := `
		INSERT INTO award_classifications
			(award_id, award_kind, primary_category, secondary_categories, capabilities, confidence, classified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (award_id) DO UPDATE SET
			primary_category = EXCLUDED.primary_category,
			secondary_categories = EXCLUDED.secondary_categories,
			capabilities = EXCLUDED.capabilities,
			confidence = EXCLUDED.confidence,
			classified_at = EXCLUDED.classified_at
	`

	_, err := r.db.Exec(query,
		c.AwardID, c.AwardKind, c.PrimaryCategory, c.SecondaryCategories,
		c.Capabilities, c.Confidence, c.ClassifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert classification: %w", err)
	}

	return nil
}

// CountClassifications counts stored classification rows
func (r *intelRepository) CountClassifications() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM award_classifications`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return count, nil
}

// GetHealthScore retrieves the stored health score for an entity, or nil
// when none exists
func (r *intelRepository) GetHealthScore(entityID uuid.UUID) (*models.HealthScore, error) {
	query := `
		SELECT entity_id, overall_score, contract_velocity, grant_success,
			   relationship_density, market_diversification, trend_direction, calculated_at
		FROM entity_health_scores WHERE entity_id = $1
	`

	score := &models.HealthScore{}
	err := r.db.QueryRow(query, entityID).Scan(
		&score.EntityID, &score.OverallScore, &score.ContractVelocity,
		&score.GrantSuccess, &score.RelationshipDensity,
		&score.MarketDiversification, &score.TrendDirection, &score.CalculatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get health score: %w", err)
	}

	return score, nil
}

// UpsertHealthScore stores the latest computation keyed by entity id
func (r *intelRepository) UpsertHealthScore(score *models.HealthScore) error {
	query := `
		INSERT INTO entity_health_scores
			(entity_id, overall_score, contract_velocity, grant_success,
			 relationship_density, market_diversification, trend_direction, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (entity_id) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			contract_velocity = EXCLUDED.contract_velocity,
			grant_success = EXCLUDED.grant_success,
			relationship_density = EXCLUDED.relationship_density,
			market_diversification = EXCLUDED.market_diversification,
			trend_direction = EXCLUDED.trend_direction,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(query,
		score.EntityID, score.OverallScore, score.ContractVelocity,
		score.GrantSuccess, score.RelationshipDensity,
		score.MarketDiversification, score.TrendDirection, score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert health score: %w", err)
	}

	return nil
}

// CountHealthScores counts entities with a stored score
func (r *intelRepository) CountHealthScores() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM entity_health_scores`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count health scores: %w", err)
	}
	return count, nil
}

// UpsertInsight inserts an insight, refreshing the existing row when the
// content-derived dedup key already exists
func (r *intelRepository) UpsertInsight(insight *models.Insight) error {
	if insight.ID == uuid.Nil {
		insight.ID = uuid.New()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO entity_insights
			(id, scope_type, scope_value, insight_type, title, description,
			 severity, supporting_data, related_entities, dedup_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (dedup_key) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			supporting_data = EXCLUDED.supporting_data,
			related_entities = EXCLUDED.related_entities
	`

	_, err := r.db.Exec(query,
		insight.ID, insight.ScopeType, insight.ScopeValue, insight.InsightType,
		insight.Title, insight.Description, insight.Severity,
		insight.SupportingData, insight.RelatedEntities, insight.DedupKey,
		insight.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert insight: %w", err)
	}

	return nil
}

// GetInsightsByEntity retrieves stored insights for an entity, newest first
func (r *intelRepository) GetInsightsByEntity(entityID uuid.UUID, limit int) ([]models.Insight, error) {
	query := `
		SELECT id, scope_type, scope_value, insight_type, title, description,
			   severity, supporting_data, related_entities, dedup_key, created_at
		FROM entity_insights
		WHERE scope_type = 'entity' AND scope_value = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, entityID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []models.Insight
	for rows.Next() {
		var insight models.Insight
		err := rows.Scan(
			&insight.ID, &insight.ScopeType, &insight.ScopeValue,
			&insight.InsightType, &insight.Title, &insight.Description,
			&insight.Severity, &insight.SupportingData, &insight.RelatedEntities,
			&insight.DedupKey, &insight.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, insight)
	}

	return insights, rows.Err()
}
