package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newEntityMock(t *testing.T) (EntityRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewEntityRepository(db), mock, func() { db.Close() }
}

func entityRow(id uuid.UUID, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "contract_count", "grant_count", "total_contract_value",
		"total_grant_value", "naics_codes", "business_types", "city", "state",
		"is_canonical", "created_at", "updated_at",
	}).AddRow(
		id, name, 5, 2, 1_000_000.0, 250_000.0,
		[]byte("{541511,541512}"), []byte("{8a}"), "Reston", "VA",
		true, time.Now(), time.Now(),
	)
}

func TestEntityGetByID(t *testing.T) {
	repo, mock, cleanup := newEntityMock(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM entities WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(entityRow(id, "Acme Federal"))

	entity, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if entity.Name != "Acme Federal" {
		t.Errorf("Name = %q, want Acme Federal", entity.Name)
	}
	if len(entity.NaicsCodes) != 2 {
		t.Errorf("NaicsCodes = %v, want 2 codes", entity.NaicsCodes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEntityGetByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newEntityMock(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM entities WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(id); err == nil {
		t.Error("GetByID() should fail for a missing entity")
	}
}

func TestEntityGetStale(t *testing.T) {
	repo, mock, cleanup := newEntityMock(t)
	defer cleanup()

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectQuery("SELECT (.+) FROM entities WHERE is_canonical = TRUE AND updated_at < \\$1").
		WithArgs(cutoff, 5).
		WillReturnRows(entityRow(uuid.New(), "Stale Co"))

	entities, err := repo.GetStale(cutoff, 5)
	if err != nil {
		t.Fatalf("GetStale() error = %v", err)
	}
	if len(entities) != 1 {
		t.Errorf("entities = %d, want 1", len(entities))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEntityTouchUpdatedAt(t *testing.T) {
	repo, mock, cleanup := newEntityMock(t)
	defer cleanup()

	id := uuid.New()
	now := time.Now()
	mock.ExpectExec("UPDATE entities SET updated_at = \\$2 WHERE id = \\$1").
		WithArgs(id, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.TouchUpdatedAt(id, now); err != nil {
		t.Errorf("TouchUpdatedAt() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEntityTouchUpdatedAtMissing(t *testing.T) {
	repo, mock, cleanup := newEntityMock(t)
	defer cleanup()

	id := uuid.New()
	now := time.Now()
	mock.ExpectExec("UPDATE entities SET updated_at = \\$2 WHERE id = \\$1").
		WithArgs(id, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.TouchUpdatedAt(id, now); err == nil {
		t.Error("TouchUpdatedAt() should fail when no row matches")
	}
}

func TestEntityCountCanonical(t *testing.T) {
	repo, mock, cleanup := newEntityMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM entities WHERE is_canonical = TRUE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountCanonical()
	if err != nil {
		t.Fatalf("CountCanonical() error = %v", err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}
}
