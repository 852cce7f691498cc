package classifier

import (
	"context"
	"time"

	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/repository"
)

// Backfiller pages through unclassified awards and stores classifications
type Backfiller struct {
	engine *Engine
	repos  *repository.Repositories
	logger logger.Logger
}

// NewBackfiller creates a classification backfill runner
func NewBackfiller(repos *repository.Repositories, log logger.Logger) *Backfiller {
	return &Backfiller{
		engine: NewEngine(),
		repos:  repos,
		logger: log,
	}
}

// BackfillStats summarizes one backfill run
type BackfillStats struct {
	Classified int `json:"classified"`
	Errors     int `json:"errors"`
}

// ClassifyPending classifies up to batchSize unclassified awards. Store
// failures increment the error counter and never abort the batch.
func (b *Backfiller) ClassifyPending(ctx context.Context, batchSize int) (BackfillStats, error) {
	stats := BackfillStats{}

	awards, err := b.repos.Award.GetUnclassified(batchSize)
	if err != nil {
		return stats, err
	}

	for _, award := range awards {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		result := b.engine.Classify(award.Description, award.NaicsCode, award.PscCode)

		classification := &models.Classification{
			AwardID:             award.ID,
			AwardKind:           award.Kind,
			PrimaryCategory:     result.PrimaryCategory,
			SecondaryCategories: result.SecondaryCategories,
			Capabilities:        result.Capabilities,
			Confidence:          result.Confidence,
			ClassifiedAt:        time.Now(),
		}

		if err := b.repos.Intel.UpsertClassification(classification); err != nil {
			b.logger.Error("failed to store classification", err, "award_id", award.ID)
			stats.Errors++
			continue
		}
		stats.Classified++
	}

	return stats, nil
}
