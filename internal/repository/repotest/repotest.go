// Package repotest provides an in-memory implementation of the repository
// interfaces for service-level tests, so no live database is required.
package repotest

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/errors"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/repository"
)

// Store holds the seeded data. All fields may be populated directly before
// exercising the code under test. Setting Err makes every call fail with it.
type Store struct {
	Entities        map[uuid.UUID]*models.Entity
	Contracts       []models.Contract
	Grants          []models.Grant
	Facts           []models.Fact
	Relationships   []models.Relationship
	Classifications map[uuid.UUID]*models.Classification
	Scores          map[uuid.UUID]*models.HealthScore
	Insights        map[string]models.Insight
	Unclassified    []models.UnclassifiedAward
	Touched         map[uuid.UUID]time.Time

	Err error
}

// New creates an empty store wrapped in a Repositories value
func New() (*repository.Repositories, *Store) {
	s := &Store{
		Entities:        make(map[uuid.UUID]*models.Entity),
		Classifications: make(map[uuid.UUID]*models.Classification),
		Scores:          make(map[uuid.UUID]*models.HealthScore),
		Insights:        make(map[string]models.Insight),
		Touched:         make(map[uuid.UUID]time.Time),
	}
	repos := &repository.Repositories{
		Entity: (*entityStore)(s),
		Award:  (*awardStore)(s),
		Intel:  (*intelStore)(s),
	}
	repos.Tx = &txStore{repos: repos, store: s}
	return repos, s
}

// AddEntity seeds one entity and returns it
func (s *Store) AddEntity(e models.Entity) *models.Entity {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if !e.IsCanonical {
		e.IsCanonical = true
	}
	s.Entities[e.ID] = &e
	return &e
}

type entityStore Store

func (s *entityStore) GetByID(id uuid.UUID) (*models.Entity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	entity, ok := s.Entities[id]
	if !ok {
		return nil, errors.NotFound("entity not found", nil)
	}
	copied := *entity
	return &copied, nil
}

func (s *entityStore) GetStale(olderThan time.Time, limit int) ([]models.Entity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var stale []models.Entity
	for _, entity := range s.Entities {
		if entity.IsCanonical && entity.UpdatedAt.Before(olderThan) {
			stale = append(stale, *entity)
		}
	}
	sort.Slice(stale, func(a, b int) bool {
		return stale[a].UpdatedAt.Before(stale[b].UpdatedAt)
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *entityStore) GetCanonical(limit, offset int) ([]models.Entity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var canonical []models.Entity
	for _, entity := range s.Entities {
		if entity.IsCanonical {
			canonical = append(canonical, *entity)
		}
	}
	sort.Slice(canonical, func(a, b int) bool {
		return canonical[a].Name < canonical[b].Name
	})
	if offset >= len(canonical) {
		return nil, nil
	}
	canonical = canonical[offset:]
	if len(canonical) > limit {
		canonical = canonical[:limit]
	}
	return canonical, nil
}

func (s *entityStore) GetUnscored(limit int) ([]models.Entity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var unscored []models.Entity
	for _, entity := range s.Entities {
		if entity.IsCanonical && s.Scores[entity.ID] == nil {
			unscored = append(unscored, *entity)
		}
	}
	sort.Slice(unscored, func(a, b int) bool {
		return unscored[a].Name < unscored[b].Name
	})
	if len(unscored) > limit {
		unscored = unscored[:limit]
	}
	return unscored, nil
}

func (s *entityStore) GetByState(state string, excludeID uuid.UUID, limit int) ([]models.Entity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var neighbors []models.Entity
	for _, entity := range s.Entities {
		if entity.IsCanonical && entity.State == state && entity.ID != excludeID {
			neighbors = append(neighbors, *entity)
		}
	}
	sort.Slice(neighbors, func(a, b int) bool {
		return neighbors[a].TotalContractValue > neighbors[b].TotalContractValue
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (s *entityStore) MatchByNamePrefix(prefix string) ([]models.Entity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	lowered := strings.ToLower(prefix)
	var matches []models.Entity
	for _, entity := range s.Entities {
		if strings.HasPrefix(strings.ToLower(entity.Name), lowered) {
			matches = append(matches, *entity)
		}
	}
	sort.Slice(matches, func(a, b int) bool {
		return matches[a].Name < matches[b].Name
	})
	if len(matches) > 5 {
		matches = matches[:5]
	}
	return matches, nil
}

func (s *entityStore) CountCanonical() (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, entity := range s.Entities {
		if entity.IsCanonical {
			count++
		}
	}
	return count, nil
}

func (s *entityStore) CountStale(olderThan time.Time) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, entity := range s.Entities {
		if entity.IsCanonical && entity.UpdatedAt.Before(olderThan) {
			count++
		}
	}
	return count, nil
}

func (s *entityStore) TouchUpdatedAt(id uuid.UUID, now time.Time) error {
	if s.Err != nil {
		return s.Err
	}
	entity, ok := s.Entities[id]
	if !ok {
		return errors.NotFound("entity not found", nil)
	}
	entity.UpdatedAt = now
	s.Touched[id] = now
	return nil
}

type awardStore Store

func (s *awardStore) GetContractsByEntity(entityID uuid.UUID, limit int) ([]models.Contract, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var contracts []models.Contract
	for _, contract := range s.Contracts {
		if contract.RecipientEntityID != nil && *contract.RecipientEntityID == entityID {
			contracts = append(contracts, contract)
		}
	}
	sort.Slice(contracts, func(a, b int) bool {
		return contracts[a].AwardDate.After(contracts[b].AwardDate)
	})
	if len(contracts) > limit {
		contracts = contracts[:limit]
	}
	return contracts, nil
}

func (s *awardStore) GetContractsInWindow(entityID uuid.UUID, from, to time.Time) ([]models.Contract, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var contracts []models.Contract
	for _, contract := range s.Contracts {
		if contract.RecipientEntityID == nil || *contract.RecipientEntityID != entityID {
			continue
		}
		if !contract.AwardDate.Before(from) && contract.AwardDate.Before(to) {
			contracts = append(contracts, contract)
		}
	}
	return contracts, nil
}

func (s *awardStore) GetPartnerContractsByAgencies(agencies []string, excludeEntityID uuid.UUID, limit int) ([]repository.PartnerContract, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	agencySet := make(map[string]bool, len(agencies))
	for _, agency := range agencies {
		agencySet[agency] = true
	}

	var partners []repository.PartnerContract
	for _, contract := range s.Contracts {
		if contract.RecipientEntityID == nil || *contract.RecipientEntityID == excludeEntityID {
			continue
		}
		if !agencySet[contract.AwardingAgency] {
			continue
		}
		name := contract.RecipientName
		if entity, ok := s.Entities[*contract.RecipientEntityID]; ok {
			name = entity.Name
		}
		partners = append(partners, repository.PartnerContract{
			EntityID:   *contract.RecipientEntityID,
			EntityName: name,
			Agency:     contract.AwardingAgency,
			NaicsCode:  contract.NaicsCode,
		})
		if len(partners) == limit {
			break
		}
	}
	return partners, nil
}

func (s *awardStore) GetGrantsByEntity(entityID uuid.UUID, limit int) ([]models.Grant, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var grants []models.Grant
	for _, grant := range s.Grants {
		if grant.RecipientEntityID != nil && *grant.RecipientEntityID == entityID {
			grants = append(grants, grant)
		}
	}
	if len(grants) > limit {
		grants = grants[:limit]
	}
	return grants, nil
}

func (s *awardStore) GetOrphans(limit int) ([]models.OrphanAward, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var orphans []models.OrphanAward
	for _, contract := range s.Contracts {
		if contract.RecipientEntityID == nil {
			orphans = append(orphans, models.OrphanAward{
				ID:            contract.ID,
				Kind:          models.AwardKindContract,
				RecipientName: contract.RecipientName,
			})
		}
	}
	for _, grant := range s.Grants {
		if grant.RecipientEntityID == nil {
			orphans = append(orphans, models.OrphanAward{
				ID:            grant.ID,
				Kind:          models.AwardKindGrant,
				RecipientName: grant.RecipientName,
			})
		}
	}
	if len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return orphans, nil
}

func (s *awardStore) LinkOrphan(kind models.AwardKind, awardID, entityID uuid.UUID) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	switch kind {
	case models.AwardKindContract:
		for idx := range s.Contracts {
			if s.Contracts[idx].ID == awardID && s.Contracts[idx].RecipientEntityID == nil {
				linked := entityID
				s.Contracts[idx].RecipientEntityID = &linked
				return true, nil
			}
		}
	case models.AwardKindGrant:
		for idx := range s.Grants {
			if s.Grants[idx].ID == awardID && s.Grants[idx].RecipientEntityID == nil {
				linked := entityID
				s.Grants[idx].RecipientEntityID = &linked
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *awardStore) CountOrphans() (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, contract := range s.Contracts {
		if contract.RecipientEntityID == nil {
			count++
		}
	}
	for _, grant := range s.Grants {
		if grant.RecipientEntityID == nil {
			count++
		}
	}
	return count, nil
}

func (s *awardStore) CountAwards() (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return len(s.Contracts) + len(s.Grants), nil
}

func (s *awardStore) GetUnclassified(limit int) ([]models.UnclassifiedAward, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var pending []models.UnclassifiedAward
	for _, award := range s.Unclassified {
		if s.Classifications[award.ID] == nil {
			pending = append(pending, award)
		}
	}
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *awardStore) CountUnclassified() (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, award := range s.Unclassified {
		if s.Classifications[award.ID] == nil {
			count++
		}
	}
	return count, nil
}

func (s *awardStore) CountRecentByEntity(entityID uuid.UUID, since time.Time) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, contract := range s.Contracts {
		if contract.RecipientEntityID != nil && *contract.RecipientEntityID == entityID && contract.AwardDate.After(since) {
			count++
		}
	}
	for _, grant := range s.Grants {
		if grant.RecipientEntityID != nil && *grant.RecipientEntityID == entityID && grant.AwardDate.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *awardStore) AnyCreatedSince(since time.Time) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	for _, contract := range s.Contracts {
		if contract.CreatedAt.After(since) {
			return true, nil
		}
	}
	for _, grant := range s.Grants {
		if grant.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

type intelStore Store

func (s *intelStore) InsertFact(fact *models.Fact) error {
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.Facts {
		if existing.EntityID == fact.EntityID && existing.FactType == fact.FactType &&
			existing.FactValue == fact.FactValue && existing.SourceName == fact.SourceName {
			return nil
		}
	}
	stored := *fact
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.Facts = append(s.Facts, stored)
	return nil
}

func (s *intelStore) InsertFacts(facts []models.Fact) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	before := len(s.Facts)
	for idx := range facts {
		if err := s.InsertFact(&facts[idx]); err != nil {
			return len(s.Facts) - before, err
		}
	}
	return len(s.Facts) - before, nil
}

func (s *intelStore) AnyFactCreatedSince(since time.Time) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	for _, fact := range s.Facts {
		if fact.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *intelStore) UpsertRelationship(rel *models.Relationship) error {
	if s.Err != nil {
		return s.Err
	}
	for idx := range s.Relationships {
		existing := &s.Relationships[idx]
		if existing.FromEntityID == rel.FromEntityID && existing.ToEntityID == rel.ToEntityID &&
			existing.RelationshipType == rel.RelationshipType {
			existing.Strength = rel.Strength
			existing.Confidence = rel.Confidence
			existing.Evidence = rel.Evidence
			existing.UpdatedAt = time.Now()
			return nil
		}
	}
	stored := *rel
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	s.Relationships = append(s.Relationships, stored)
	return nil
}

func (s *intelStore) CountRelationshipsByEntity(entityID uuid.UUID) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, rel := range s.Relationships {
		if rel.FromEntityID == entityID || rel.ToEntityID == entityID {
			count++
		}
	}
	return count, nil
}

func (s *intelStore) UpsertClassification(c *models.Classification) error {
	if s.Err != nil {
		return s.Err
	}
	stored := *c
	s.Classifications[c.AwardID] = &stored
	return nil
}

func (s *intelStore) CountClassifications() (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return len(s.Classifications), nil
}

func (s *intelStore) GetHealthScore(entityID uuid.UUID) (*models.HealthScore, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	score, ok := s.Scores[entityID]
	if !ok {
		return nil, nil
	}
	copied := *score
	return &copied, nil
}

func (s *intelStore) UpsertHealthScore(score *models.HealthScore) error {
	if s.Err != nil {
		return s.Err
	}
	stored := *score
	s.Scores[score.EntityID] = &stored
	return nil
}

func (s *intelStore) CountHealthScores() (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return len(s.Scores), nil
}

func (s *intelStore) UpsertInsight(insight *models.Insight) error {
	if s.Err != nil {
		return s.Err
	}
	stored := *insight
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	s.Insights[insight.DedupKey] = stored
	return nil
}

func (s *intelStore) GetInsightsByEntity(entityID uuid.UUID, limit int) ([]models.Insight, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var matched []models.Insight
	for _, insight := range s.Insights {
		if insight.ScopeType == "entity" && insight.ScopeValue == entityID.String() {
			matched = append(matched, insight)
		}
	}
	sort.Slice(matched, func(a, b int) bool {
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type txStore struct {
	repos *repository.Repositories
	store *Store
}

func (t *txStore) WithTransaction(fn func(repos *repository.Repositories) error) error {
	if t.store.Err != nil {
		return t.store.Err
	}
	return fn(t.repos)
}
