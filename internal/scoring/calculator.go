package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/repository"
)

// recentWindow is the lookback used for the recent-transaction count
const recentWindow = 6 * 30 * 24 * time.Hour

// Calculator is the stateful wrapper around the pure score computation.
// It fetches the relationship and recent-activity counts, computes the
// score, and upserts the result keyed by entity id.
type Calculator struct {
	repos  *repository.Repositories
	logger logger.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewCalculator creates a health score calculator
func NewCalculator(repos *repository.Repositories, log logger.Logger) *Calculator {
	return &Calculator{
		repos:  repos,
		logger: log,
		now:    time.Now,
	}
}

// Calculate computes and stores a fresh health score for the entity
func (c *Calculator) Calculate(ctx context.Context, entityID uuid.UUID) (*models.HealthScore, error) {
	entity, err := c.repos.Entity.GetByID(entityID)
	if err != nil {
		return nil, err
	}

	relationshipCount, err := c.repos.Intel.CountRelationshipsByEntity(entityID)
	if err != nil {
		return nil, err
	}

	recentCount, err := c.repos.Award.CountRecentByEntity(entityID, c.now().Add(-recentWindow))
	if err != nil {
		return nil, err
	}

	score := Compute(MetricsFromEntity(entity, relationshipCount, recentCount))
	score.EntityID = entityID
	score.CalculatedAt = c.now()

	if err := c.repos.Intel.UpsertHealthScore(&score); err != nil {
		return nil, err
	}

	return &score, nil
}

// GetOrCompute returns the stored score if present, computing and storing
// one on demand otherwise. Concurrent callers for the same entity share a
// single computation.
func (c *Calculator) GetOrCompute(ctx context.Context, entityID uuid.UUID) (*models.HealthScore, error) {
	stored, err := c.repos.Intel.GetHealthScore(entityID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}

	result, err, _ := c.group.Do(entityID.String(), func() (interface{}, error) {
		return c.Calculate(ctx, entityID)
	})
	if err != nil {
		return nil, err
	}

	return result.(*models.HealthScore), nil
}

// BackfillStats summarizes one score-backfill run
type BackfillStats struct {
	Scored int `json:"scored"`
	Errors int `json:"errors"`
}

// ScoreUnscored computes scores for up to limit canonical entities lacking
// one. Per-entity failures increment the error counter and never abort the
// batch.
func (c *Calculator) ScoreUnscored(ctx context.Context, limit int) (BackfillStats, error) {
	stats := BackfillStats{}

	entities, err := c.repos.Entity.GetUnscored(limit)
	if err != nil {
		return stats, err
	}

	for _, entity := range entities {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if _, err := c.Calculate(ctx, entity.ID); err != nil {
			c.logger.Error("failed to score entity", err, "entity_id", entity.ID)
			stats.Errors++
			continue
		}
		stats.Scored++
	}

	return stats, nil
}
