package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/models"
)

// entityRepository implements EntityRepository
type entityRepository struct {
	db dbExecutor
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db dbExecutor) EntityRepository {
	return &entityRepository{db: db}
}

const entityColumns = `id, name, contract_count, grant_count, total_contract_value,
	total_grant_value, naics_codes, business_types, city, state, is_canonical,
	created_at, updated_at`

func scanEntity(row interface{ Scan(...interface{}) error }) (*models.Entity, error) {
	entity := &models.Entity{}
	err := row.Scan(
		&entity.ID, &entity.Name, &entity.ContractCount, &entity.GrantCount,
		&entity.TotalContractValue, &entity.TotalGrantValue, &entity.NaicsCodes,
		&entity.BusinessTypes, &entity.City, &entity.State, &entity.IsCanonical,
		&entity.CreatedAt, &entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetByID retrieves an entity by ID
func (r *entityRepository) GetByID(id uuid.UUID) (*models.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM entities WHERE id = $1`, entityColumns)

	entity, err := scanEntity(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("entity not found")
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return entity, nil
}

// GetStale retrieves entities whose updated_at is older than the cutoff,
// oldest first
func (r *entityRepository) GetStale(olderThan time.Time, limit int) ([]models.Entity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM entities
		WHERE is_canonical = TRUE AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, entityColumns)

	return r.queryEntities(query, olderThan, limit)
}

// GetCanonical retrieves a page of canonical entities
func (r *entityRepository) GetCanonical(limit, offset int) ([]models.Entity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM entities
		WHERE is_canonical = TRUE
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, entityColumns)

	return r.queryEntities(query, limit, offset)
}

// GetUnscored retrieves canonical entities that have no stored health score
func (r *entityRepository) GetUnscored(limit int) ([]models.Entity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM entities e
		WHERE e.is_canonical = TRUE
		  AND NOT EXISTS (
			SELECT 1 FROM entity_health_scores hs WHERE hs.entity_id = e.id
		  )
		ORDER BY e.updated_at DESC
		LIMIT $1
	`, entityColumns)

	return r.queryEntities(query, limit)
}

// GetByState retrieves canonical entities sharing a geographic region,
// largest contract value first
func (r *entityRepository) GetByState(state string, excludeID uuid.UUID, limit int) ([]models.Entity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM entities
		WHERE is_canonical = TRUE AND state = $1 AND id != $2
		ORDER BY total_contract_value DESC
		LIMIT $3
	`, entityColumns)

	return r.queryEntities(query, state, excludeID, limit)
}

// MatchByNamePrefix finds canonical entities whose name matches the given
// prefix case-insensitively. Used by the orphan-repair fuzzy match.
func (r *entityRepository) MatchByNamePrefix(prefix string) ([]models.Entity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM entities
		WHERE is_canonical = TRUE AND LOWER(name) LIKE LOWER($1) || '%%'
		LIMIT 5
	`, entityColumns)

	return r.queryEntities(query, prefix)
}

// CountCanonical counts canonical entities
func (r *entityRepository) CountCanonical() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM entities WHERE is_canonical = TRUE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

// CountStale counts entities older than the cutoff
func (r *entityRepository) CountStale(olderThan time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM entities WHERE is_canonical = TRUE AND updated_at < $1`,
		olderThan,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale entities: %w", err)
	}
	return count, nil
}

// TouchUpdatedAt bumps an entity's staleness clock
func (r *entityRepository) TouchUpdatedAt(id uuid.UUID, now time.Time) error {
	result, err := r.db.Exec(`UPDATE entities SET updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("failed to touch entity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("entity not found")
	}

	return nil
}

func (r *entityRepository) queryEntities(query string, args ...interface{}) ([]models.Entity, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, *entity)
	}

	return entities, rows.Err()
}
