package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Entity represents a canonical organization record
type Entity struct {
	ID                 uuid.UUID      `json:"id" db:"id"`
	Name               string         `json:"name" db:"name"`
	ContractCount      int            `json:"contract_count" db:"contract_count"`
	GrantCount         int            `json:"grant_count" db:"grant_count"`
	TotalContractValue float64        `json:"total_contract_value" db:"total_contract_value"`
	TotalGrantValue    float64        `json:"total_grant_value" db:"total_grant_value"`
	NaicsCodes         pq.StringArray `json:"naics_codes" db:"naics_codes"`
	BusinessTypes      pq.StringArray `json:"business_types" db:"business_types"`
	City               string         `json:"city" db:"city"`
	State              string         `json:"state" db:"state"`
	IsCanonical        bool           `json:"is_canonical" db:"is_canonical"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// Fact represents a single typed observation attached to an entity
type Fact struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EntityID   uuid.UUID `json:"entity_id" db:"entity_id"`
	FactType   string    `json:"fact_type" db:"fact_type"`
	FactValue  string    `json:"fact_value" db:"fact_value"`
	SourceName string    `json:"source_name" db:"source_name"`
	Confidence float64   `json:"confidence" db:"confidence"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Fact types produced by the enrichment flywheel
const (
	FactTypeWebsite       = "website"
	FactTypeDescription   = "description"
	FactTypeLocation      = "location"
	FactTypeEmployeeCount = "employee_count"
	FactTypeAwardDetail   = "award_detail"
	FactTypeGrantProject  = "grant_project"
)

// Relationship represents a directed, typed, strength-weighted edge
// between two entities
type Relationship struct {
	ID               uuid.UUID `json:"id" db:"id"`
	FromEntityID     uuid.UUID `json:"from_entity_id" db:"from_entity_id"`
	ToEntityID       uuid.UUID `json:"to_entity_id" db:"to_entity_id"`
	RelationshipType string    `json:"relationship_type" db:"relationship_type"`
	Strength         float64   `json:"strength" db:"strength"`
	Confidence       float64   `json:"confidence" db:"confidence"`
	Evidence         string    `json:"evidence" db:"evidence"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Relationship types
const (
	RelationshipTeamingPartner = "teaming_partner"
	RelationshipCompetitor     = "competitor"
)

// OtherEndpoint returns the endpoint of the edge that is not the given
// entity. Direction is only meaningful for some relationship types, so
// callers should always resolve the far side this way.
func (r *Relationship) OtherEndpoint(entityID uuid.UUID) uuid.UUID {
	if r.FromEntityID == entityID {
		return r.ToEntityID
	}
	return r.FromEntityID
}

// HealthScore represents the latest composite health computation for an
// entity. Only the most recent computation is retained.
type HealthScore struct {
	EntityID              uuid.UUID `json:"entity_id" db:"entity_id"`
	OverallScore          int       `json:"overall_score" db:"overall_score"`
	ContractVelocity      int       `json:"contract_velocity" db:"contract_velocity"`
	GrantSuccess          int       `json:"grant_success" db:"grant_success"`
	RelationshipDensity   int       `json:"relationship_density" db:"relationship_density"`
	MarketDiversification int       `json:"market_diversification" db:"market_diversification"`
	TrendDirection        string    `json:"trend_direction" db:"trend_direction"`
	CalculatedAt          time.Time `json:"calculated_at" db:"calculated_at"`
}

// Trend directions
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)
