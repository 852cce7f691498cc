package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/models"
)

// EntityRepository defines the interface for entity data access
type EntityRepository interface {
	GetByID(id uuid.UUID) (*models.Entity, error)

	// Selection for pipeline passes
	GetStale(olderThan time.Time, limit int) ([]models.Entity, error)
	GetCanonical(limit, offset int) ([]models.Entity, error)
	GetUnscored(limit int) ([]models.Entity, error)
	GetByState(state string, excludeID uuid.UUID, limit int) ([]models.Entity, error)
	MatchByNamePrefix(prefix string) ([]models.Entity, error)

	// Counters
	CountCanonical() (int, error)
	CountStale(olderThan time.Time) (int, error)

	// TouchUpdatedAt bumps the staleness clock after an enrichment cycle
	TouchUpdatedAt(id uuid.UUID, now time.Time) error
}

// AwardRepository defines the interface for contract/grant data access.
// Award rows are produced externally; this core reads them and may repair
// a missing entity reference.
type AwardRepository interface {
	GetContractsByEntity(entityID uuid.UUID, limit int) ([]models.Contract, error)
	GetContractsInWindow(entityID uuid.UUID, from, to time.Time) ([]models.Contract, error)
	GetPartnerContractsByAgencies(agencies []string, excludeEntityID uuid.UUID, limit int) ([]PartnerContract, error)
	GetGrantsByEntity(entityID uuid.UUID, limit int) ([]models.Grant, error)

	GetOrphans(limit int) ([]models.OrphanAward, error)
	LinkOrphan(kind models.AwardKind, awardID, entityID uuid.UUID) (bool, error)
	CountOrphans() (int, error)
	CountAwards() (int, error)

	GetUnclassified(limit int) ([]models.UnclassifiedAward, error)
	CountUnclassified() (int, error)

	CountRecentByEntity(entityID uuid.UUID, since time.Time) (int, error)
	AnyCreatedSince(since time.Time) (bool, error)
}

// IntelRepository defines the interface for derived-intelligence data
// access (facts, relationships, classifications, scores, insights)
type IntelRepository interface {
	InsertFact(fact *models.Fact) error
	InsertFacts(facts []models.Fact) (int, error)
	AnyFactCreatedSince(since time.Time) (bool, error)

	UpsertRelationship(rel *models.Relationship) error
	CountRelationshipsByEntity(entityID uuid.UUID) (int, error)

	UpsertClassification(c *models.Classification) error
	CountClassifications() (int, error)

	GetHealthScore(entityID uuid.UUID) (*models.HealthScore, error)
	UpsertHealthScore(score *models.HealthScore) error
	CountHealthScores() (int, error)

	UpsertInsight(insight *models.Insight) error
	GetInsightsByEntity(entityID uuid.UUID, limit int) ([]models.Insight, error)
}

// TransactionManager defines the interface for database transaction management
type TransactionManager interface {
	WithTransaction(fn func(repos *Repositories) error) error
}

// Repositories groups all repository interfaces
type Repositories struct {
	Entity EntityRepository
	Award  AwardRepository
	Intel  IntelRepository
	Tx     TransactionManager
}

// PartnerContract is a contract row joined with its recipient entity,
// used by teaming-partner discovery
type PartnerContract struct {
	EntityID   uuid.UUID
	EntityName string
	Agency     string
	NaicsCode  string
}
