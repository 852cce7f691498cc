package relationships

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/logger"
	"github.com/fedlens/intel-pipeline/internal/models"
	"github.com/fedlens/intel-pipeline/internal/repository"
)

// Analysis bounds
const (
	partnerCandidateLimit = 200
	maxTeamingPartners    = 15
	maxCompetitors        = 10
	minPartnerStrength    = 0.1

	shiftWindow = 90 * 24 * time.Hour
)

// Strength weights for teaming-partner scoring
const (
	sharedAgencyWeight = 0.15
	sharedNaicsWeight  = 0.10
)

// Intelligence discovers teaming partners and competitors for an entity
// and detects market-position shifts over time
type Intelligence struct {
	repos  *repository.Repositories
	logger logger.Logger
	now    func() time.Time
}

// NewIntelligence creates a relationship intelligence analyzer
func NewIntelligence(repos *repository.Repositories, log logger.Logger) *Intelligence {
	return &Intelligence{
		repos:  repos,
		logger: log,
		now:    time.Now,
	}
}

// TeamingPartner is a candidate partner with the evidence that produced it
type TeamingPartner struct {
	EntityID       uuid.UUID `json:"entity_id"`
	EntityName     string    `json:"entity_name"`
	SharedAgencies []string  `json:"shared_agencies"`
	SharedNaics    []string  `json:"shared_naics"`
	Strength       float64   `json:"strength"`
}

// MarketShift compares the entity's agency footprint across two adjacent
// 90-day windows
type MarketShift struct {
	NewMarkets             []string `json:"new_markets"`
	LostMarkets            []string `json:"lost_markets"`
	ContractVelocityChange int      `json:"contract_velocity_change"`
	Trend                  string   `json:"trend"`
}

// Market trend labels
const (
	TrendExpanding   = "expanding"
	TrendContracting = "contracting"
	TrendStable      = "stable"
)

// Competitor is an entity competing in the same geographic region
type Competitor struct {
	EntityID   uuid.UUID `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	Score      float64   `json:"score"`
}

// DiscoverTeamingPartners finds entities that repeatedly win work from the
// same agencies, persists them as teaming_partner edges, and returns the
// ranked list. An entity with no transaction history yields an empty
// result, not an error.
func (i *Intelligence) DiscoverTeamingPartners(ctx context.Context, entityID uuid.UUID) ([]TeamingPartner, error) {
	contracts, err := i.repos.Award.GetContractsByEntity(entityID, partnerCandidateLimit)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return []TeamingPartner{}, nil
	}

	ownAgencies := make(map[string]bool)
	ownNaics := make(map[string]bool)
	for _, contract := range contracts {
		if contract.AwardingAgency != "" {
			ownAgencies[contract.AwardingAgency] = true
		}
		if contract.NaicsCode != "" {
			ownNaics[contract.NaicsCode] = true
		}
	}

	agencies := make([]string, 0, len(ownAgencies))
	for agency := range ownAgencies {
		agencies = append(agencies, agency)
	}

	candidates, err := i.repos.Award.GetPartnerContractsByAgencies(agencies, entityID, partnerCandidateLimit)
	if err != nil {
		return nil, err
	}

	type aggregate struct {
		name     string
		agencies map[string]bool
		naics    map[string]bool
	}

	byEntity := make(map[uuid.UUID]*aggregate)
	for _, candidate := range candidates {
		agg, ok := byEntity[candidate.EntityID]
		if !ok {
			agg = &aggregate{
				name:     candidate.EntityName,
				agencies: make(map[string]bool),
				naics:    make(map[string]bool),
			}
			byEntity[candidate.EntityID] = agg
		}
		if ownAgencies[candidate.Agency] {
			agg.agencies[candidate.Agency] = true
		}
		if candidate.NaicsCode != "" {
			agg.naics[candidate.NaicsCode] = true
		}
	}

	partners := make([]TeamingPartner, 0, len(byEntity))
	for candidateID, agg := range byEntity {
		sharedNaics := make([]string, 0)
		for code := range agg.naics {
			if ownNaics[code] {
				sharedNaics = append(sharedNaics, code)
			}
		}

		strength := sharedAgencyWeight*float64(len(agg.agencies)) + sharedNaicsWeight*float64(len(sharedNaics))
		if strength > 1 {
			strength = 1
		}
		if strength <= minPartnerStrength {
			continue
		}

		sharedAgencies := make([]string, 0, len(agg.agencies))
		for agency := range agg.agencies {
			sharedAgencies = append(sharedAgencies, agency)
		}
		sort.Strings(sharedAgencies)
		sort.Strings(sharedNaics)

		partners = append(partners, TeamingPartner{
			EntityID:       candidateID,
			EntityName:     agg.name,
			SharedAgencies: sharedAgencies,
			SharedNaics:    sharedNaics,
			Strength:       strength,
		})
	}

	sort.Slice(partners, func(a, b int) bool {
		if partners[a].Strength != partners[b].Strength {
			return partners[a].Strength > partners[b].Strength
		}
		return partners[a].EntityName < partners[b].EntityName
	})
	if len(partners) > maxTeamingPartners {
		partners = partners[:maxTeamingPartners]
	}

	for _, partner := range partners {
		evidence, _ := json.Marshal(map[string]interface{}{
			"shared_agencies": partner.SharedAgencies,
			"shared_naics":    partner.SharedNaics,
		})

		rel := &models.Relationship{
			FromEntityID:     entityID,
			ToEntityID:       partner.EntityID,
			RelationshipType: models.RelationshipTeamingPartner,
			Strength:         partner.Strength,
			Confidence:       0.6,
			Evidence:         string(evidence),
		}
		if err := i.repos.Intel.UpsertRelationship(rel); err != nil {
			i.logger.Error("failed to persist teaming partner", err,
				"from", entityID, "to", partner.EntityID)
		}
	}

	return partners, nil
}

// DetectMarketShift compares awarding agencies in the most recent 90-day
// window against the prior 90-day window
func (i *Intelligence) DetectMarketShift(ctx context.Context, entityID uuid.UUID) (*MarketShift, error) {
	now := i.now()

	recent, err := i.repos.Award.GetContractsInWindow(entityID, now.Add(-shiftWindow), now)
	if err != nil {
		return nil, err
	}
	previous, err := i.repos.Award.GetContractsInWindow(entityID, now.Add(-2*shiftWindow), now.Add(-shiftWindow))
	if err != nil {
		return nil, err
	}

	recentAgencies := agencySet(recent)
	previousAgencies := agencySet(previous)

	shift := &MarketShift{
		NewMarkets:             setDifference(recentAgencies, previousAgencies),
		LostMarkets:            setDifference(previousAgencies, recentAgencies),
		ContractVelocityChange: len(recent) - len(previous),
	}

	switch {
	case len(shift.NewMarkets) > len(shift.LostMarkets) && shift.ContractVelocityChange > 0:
		shift.Trend = TrendExpanding
	case len(shift.LostMarkets) > len(shift.NewMarkets) || shift.ContractVelocityChange < -2:
		shift.Trend = TrendContracting
	default:
		shift.Trend = TrendStable
	}

	return shift, nil
}

// FindCompetitors ranks entities in the same geographic region by
// normalized contract value. This is a coarse regional proxy; it does not
// require NAICS overlap with the subject.
func (i *Intelligence) FindCompetitors(ctx context.Context, entityID uuid.UUID) ([]Competitor, error) {
	entity, err := i.repos.Entity.GetByID(entityID)
	if err != nil {
		return nil, err
	}
	if entity.State == "" {
		return []Competitor{}, nil
	}

	neighbors, err := i.repos.Entity.GetByState(entity.State, entityID, maxCompetitors)
	if err != nil {
		return nil, err
	}

	competitors := make([]Competitor, 0, len(neighbors))
	for _, neighbor := range neighbors {
		score := neighbor.TotalContractValue / 1e8
		if score > 1 {
			score = 1
		}
		competitors = append(competitors, Competitor{
			EntityID:   neighbor.ID,
			EntityName: neighbor.Name,
			Score:      score,
		})
	}

	sort.Slice(competitors, func(a, b int) bool {
		return competitors[a].Score > competitors[b].Score
	})

	return competitors, nil
}

func agencySet(contracts []models.Contract) map[string]bool {
	set := make(map[string]bool)
	for _, contract := range contracts {
		if contract.AwardingAgency != "" {
			set[contract.AwardingAgency] = true
		}
	}
	return set
}

// setDifference returns the sorted members of a that are absent from b
func setDifference(a, b map[string]bool) []string {
	diff := make([]string, 0)
	for member := range a {
		if !b[member] {
			diff = append(diff, member)
		}
	}
	sort.Strings(diff)
	return diff
}
