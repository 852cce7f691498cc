package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Classification holds the category/capability tags derived for a single
// award record, keyed by award id
type Classification struct {
	AwardID             uuid.UUID      `json:"award_id" db:"award_id"`
	AwardKind           AwardKind      `json:"award_kind" db:"award_kind"`
	PrimaryCategory     string         `json:"primary_category" db:"primary_category"`
	SecondaryCategories pq.StringArray `json:"secondary_categories" db:"secondary_categories"`
	Capabilities        pq.StringArray `json:"capabilities" db:"capabilities"`
	Confidence          float64        `json:"confidence" db:"confidence"`
	ClassifiedAt        time.Time      `json:"classified_at" db:"classified_at"`
}

// Insight represents a single prioritized, human-readable signal about an
// entity. Insights carry a content-derived dedup key so regenerating under
// unchanged conditions upserts instead of duplicating.
type Insight struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	ScopeType       string         `json:"scope_type" db:"scope_type"`
	ScopeValue      string         `json:"scope_value" db:"scope_value"`
	InsightType     string         `json:"insight_type" db:"insight_type"`
	Title           string         `json:"title" db:"title"`
	Description     string         `json:"description" db:"description"`
	Severity        string         `json:"severity" db:"severity"`
	SupportingData  SupportingData `json:"supporting_data" db:"supporting_data"`
	RelatedEntities pq.StringArray `json:"related_entities" db:"related_entities"`
	DedupKey        string         `json:"dedup_key" db:"dedup_key"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// Insight types
const (
	InsightWarning     = "warning"
	InsightSuccess     = "success"
	InsightOpportunity = "opportunity"
	InsightThreat      = "threat"
)

// Insight severities
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// SupportingData carries the numbers behind an insight as JSON. Exactly one
// of the typed payload fields is populated per insight type.
type SupportingData struct {
	Score         *ScoreData         `json:"score,omitempty"`
	Concentration *ConcentrationData `json:"concentration,omitempty"`
	MarketShift   *MarketShiftData   `json:"market_shift,omitempty"`
	Actions       []string           `json:"suggested_actions,omitempty"`
}

// ScoreData backs score-driven insights
type ScoreData struct {
	OverallScore          int    `json:"overall_score"`
	ContractVelocity      int    `json:"contract_velocity"`
	GrantSuccess          int    `json:"grant_success"`
	RelationshipDensity   int    `json:"relationship_density"`
	MarketDiversification int    `json:"market_diversification"`
	TrendDirection        string `json:"trend_direction"`
}

// ConcentrationData backs the agency-concentration warning
type ConcentrationData struct {
	TopAgency  string  `json:"top_agency"`
	Share      float64 `json:"share"`
	TotalValue float64 `json:"total_value"`
}

// MarketShiftData backs market expansion/contraction insights
type MarketShiftData struct {
	NewMarkets     []string `json:"new_markets"`
	LostMarkets    []string `json:"lost_markets"`
	VelocityChange int      `json:"velocity_change"`
	Trend          string   `json:"trend"`
}

// Value implements driver.Valuer for SupportingData
func (s SupportingData) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for SupportingData
func (s *SupportingData) Scan(value interface{}) error {
	if value == nil {
		*s = SupportingData{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into SupportingData", value)
	}

	return json.Unmarshal(bytes, s)
}
