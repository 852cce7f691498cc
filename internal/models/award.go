package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract represents a contract award record. Awards are produced by an
// external ingestion layer; this core only reads them and may repair a
// missing entity reference.
type Contract struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	AwardIdentifier   string     `json:"award_identifier" db:"award_identifier"`
	RecipientEntityID *uuid.UUID `json:"recipient_entity_id" db:"recipient_entity_id"`
	RecipientName     string     `json:"recipient_name" db:"recipient_name"`
	Amount            float64    `json:"amount" db:"amount"`
	AwardingAgency    string     `json:"awarding_agency" db:"awarding_agency"`
	NaicsCode         string     `json:"naics_code" db:"naics_code"`
	PscCode           string     `json:"psc_code" db:"psc_code"`
	Description       string     `json:"description" db:"description"`
	AwardDate         time.Time  `json:"award_date" db:"award_date"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Grant represents a grant award record
type Grant struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	AwardIdentifier   string     `json:"award_identifier" db:"award_identifier"`
	RecipientEntityID *uuid.UUID `json:"recipient_entity_id" db:"recipient_entity_id"`
	RecipientName     string     `json:"recipient_name" db:"recipient_name"`
	Amount            float64    `json:"amount" db:"amount"`
	AwardingAgency    string     `json:"awarding_agency" db:"awarding_agency"`
	ProjectTitle      string     `json:"project_title" db:"project_title"`
	Description       string     `json:"description" db:"description"`
	AwardDate         time.Time  `json:"award_date" db:"award_date"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// AwardKind distinguishes the two transactional record tables
type AwardKind string

const (
	AwardKindContract AwardKind = "contract"
	AwardKindGrant    AwardKind = "grant"
)

// OrphanAward is an award with no linked entity reference, surfaced for
// the orphan-repair pass
type OrphanAward struct {
	ID            uuid.UUID `json:"id"`
	Kind          AwardKind `json:"kind"`
	RecipientName string    `json:"recipient_name"`
}

// UnclassifiedAward carries the fields the classification engine needs
type UnclassifiedAward struct {
	ID          uuid.UUID `json:"id"`
	Kind        AwardKind `json:"kind"`
	Description string    `json:"description"`
	NaicsCode   string    `json:"naics_code"`
	PscCode     string    `json:"psc_code"`
}
