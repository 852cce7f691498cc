package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fedlens/intel-pipeline/internal/models"
)

// awardRepository implements AwardRepository
type awardRepository struct {
	db dbExecutor
}

// NewAwardRepository creates a new award repository
func NewAwardRepository(db dbExecutor) AwardRepository {
	return &awardRepository{db: db}
}

const contractColumns = `id, award_identifier, recipient_entity_id, recipient_name,
	amount, awarding_agency, naics_code, psc_code, description, award_date, created_at`

// GetContractsByEntity retrieves contracts linked to an entity, most recent first
func (r *awardRepository) GetContractsByEntity(entityID uuid.UUID, limit int) ([]models.Contract, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM contracts
		WHERE recipient_entity_id = $1
		ORDER BY award_date DESC
		LIMIT $2
	`, contractColumns)

	return r.queryContracts(query, entityID, limit)
}

// GetContractsInWindow retrieves an entity's contracts awarded in [from, to)
func (r *awardRepository) GetContractsInWindow(entityID uuid.UUID, from, to time.Time) ([]models.Contract, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM contracts
		WHERE recipient_entity_id = $1 AND award_date >= $2 AND award_date < $3
		ORDER BY award_date DESC
	`, contractColumns)

	return r.queryContracts(query, entityID, from, to)
}

// GetPartnerContractsByAgencies retrieves other entities' contracts awarded
// by any of the given agencies, joined with the recipient entity
func (r *awardRepository) GetPartnerContractsByAgencies(agencies []string, excludeEntityID uuid.UUID, limit int) ([]PartnerContract, error) {
	if len(agencies) == 0 {
		return nil, nil
	}

	query := `
		SELECT c.recipient_entity_id, e.name, c.awarding_agency, c.naics_code
		FROM contracts c
		JOIN entities e ON e.id = c.recipient_entity_id
		WHERE c.awarding_agency = ANY($1)
		  AND c.recipient_entity_id IS NOT NULL
		  AND c.recipient_entity_id != $2
		ORDER BY c.award_date DESC
		LIMIT $3
	`

	rows, err := r.db.Query(query, pq.Array(agencies), excludeEntityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query partner contracts: %w", err)
	}
	defer rows.Close()

	var contracts []PartnerContract
	for rows.Next() {
		var pc PartnerContract
		if err := rows.Scan(&pc.EntityID, &pc.EntityName, &pc.Agency, &pc.NaicsCode); err != nil {
			return nil, fmt.Errorf("failed to scan partner contract: %w", err)
		}
		contracts = append(contracts, pc)
	}

	return contracts, rows.Err()
}

// GetGrantsByEntity retrieves grants linked to an entity, most recent first
func (r *awardRepository) GetGrantsByEntity(entityID uuid.UUID, limit int) ([]models.Grant, error) {
	query := `
		SELECT id, award_identifier, recipient_entity_id, recipient_name, amount,
			   awarding_agency, project_title, description, award_date, created_at
		FROM grants
		WHERE recipient_entity_id = $1
		ORDER BY award_date DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		var grant models.Grant
		err := rows.Scan(
			&grant.ID, &grant.AwardIdentifier, &grant.RecipientEntityID,
			&grant.RecipientName, &grant.Amount, &grant.AwardingAgency,
			&grant.ProjectTitle, &grant.Description, &grant.AwardDate, &grant.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, grant)
	}

	return grants, rows.Err()
}

// GetOrphans retrieves awards with no linked entity reference across both
// award tables, bounded by limit
func (r *awardRepository) GetOrphans(limit int) ([]models.OrphanAward, error) {
	query := `
		SELECT id, 'contract' AS kind, recipient_name FROM contracts
		WHERE recipient_entity_id IS NULL AND recipient_name != ''
		UNION ALL
		SELECT id, 'grant' AS kind, recipient_name FROM grants
		WHERE recipient_entity_id IS NULL AND recipient_name != ''
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphan awards: %w", err)
	}
	defer rows.Close()

	var orphans []models.OrphanAward
	for rows.Next() {
		var orphan models.OrphanAward
		if err := rows.Scan(&orphan.ID, &orphan.Kind, &orphan.RecipientName); err != nil {
			return nil, fmt.Errorf("failed to scan orphan award: %w", err)
		}
		orphans = append(orphans, orphan)
	}

	return orphans, rows.Err()
}

// LinkOrphan sets an award's entity reference. The guard on
// recipient_entity_id IS NULL means an already-populated reference is never
// overwritten; returns whether a row was updated.
func (r *awardRepository) LinkOrphan(kind models.AwardKind, awardID, entityID uuid.UUID) (bool, error) {
	table := "contracts"
	if kind == models.AwardKindGrant {
		table = "grants"
	}

	query := fmt.Sprintf(
		`UPDATE %s SET recipient_entity_id = $2 WHERE id = $1 AND recipient_entity_id IS NULL`,
		table,
	)

	result, err := r.db.Exec(query, awardID, entityID)
	if err != nil {
		return false, fmt.Errorf("failed to link orphan award: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// CountOrphans counts awards with no entity reference
func (r *awardRepository) CountOrphans() (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM contracts WHERE recipient_entity_id IS NULL)
			 + (SELECT COUNT(*) FROM grants WHERE recipient_entity_id IS NULL)
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orphan awards: %w", err)
	}
	return count, nil
}

// CountAwards counts all award records
func (r *awardRepository) CountAwards() (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM contracts) + (SELECT COUNT(*) FROM grants)
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count awards: %w", err)
	}
	return count, nil
}

// GetUnclassified retrieves awards with no classification row
func (r *awardRepository) GetUnclassified(limit int) ([]models.UnclassifiedAward, error) {
	query := `
		SELECT c.id, 'contract' AS kind, c.description, c.naics_code, c.psc_code
		FROM contracts c
		WHERE NOT EXISTS (SELECT 1 FROM award_classifications ac WHERE ac.award_id = c.id)
		UNION ALL
		SELECT g.id, 'grant' AS kind, g.description, '' AS naics_code, '' AS psc_code
		FROM grants g
		WHERE NOT EXISTS (SELECT 1 FROM award_classifications ac WHERE ac.award_id = g.id)
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassified awards: %w", err)
	}
	defer rows.Close()

	var awards []models.UnclassifiedAward
	for rows.Next() {
		var award models.UnclassifiedAward
		err := rows.Scan(&award.ID, &award.Kind, &award.Description, &award.NaicsCode, &award.PscCode)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unclassified award: %w", err)
		}
		awards = append(awards, award)
	}

	return awards, rows.Err()
}

// CountUnclassified counts awards with no classification row
func (r *awardRepository) CountUnclassified() (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM contracts c
				WHERE NOT EXISTS (SELECT 1 FROM award_classifications ac WHERE ac.award_id = c.id))
			 + (SELECT COUNT(*) FROM grants g
				WHERE NOT EXISTS (SELECT 1 FROM award_classifications ac WHERE ac.award_id = g.id))
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unclassified awards: %w", err)
	}
	return count, nil
}

// CountRecentByEntity counts an entity's awards dated since the cutoff
func (r *awardRepository) CountRecentByEntity(entityID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM contracts WHERE recipient_entity_id = $1 AND award_date >= $2)
			 + (SELECT COUNT(*) FROM grants WHERE recipient_entity_id = $1 AND award_date >= $2)
	`, entityID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent awards: %w", err)
	}
	return count, nil
}

// AnyCreatedSince reports whether any award row was created after the cutoff
func (r *awardRepository) AnyCreatedSince(since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM contracts WHERE created_at >= $1)
			OR EXISTS (SELECT 1 FROM grants WHERE created_at >= $1)
	`, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check award freshness: %w", err)
	}
	return exists, nil
}

func (r *awardRepository) queryContracts(query string, args ...interface{}) ([]models.Contract, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		var contract models.Contract
		err := rows.Scan(
			&contract.ID, &contract.AwardIdentifier, &contract.RecipientEntityID,
			&contract.RecipientName, &contract.Amount, &contract.AwardingAgency,
			&contract.NaicsCode, &contract.PscCode, &contract.Description,
			&contract.AwardDate, &contract.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}

	return contracts, rows.Err()
}
