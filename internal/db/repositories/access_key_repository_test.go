package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/service-auth/service-auth/internal/db/models"
)

var accessKeyCols = []string{"id", "access_key_id", "secret_hash", "client_id", "environment", "rate_limit", "is_active", "revoked_at", "created_at", "updated_at"}

func sampleKeyRow() *sqlmock.Rows {
	return sqlmock.NewRows(accessKeyCols).
		AddRow("key-1", "ak_live_abc", "$2a$12$hash", "client-1", models.EnvironmentLive,
			1000, true, nil, time.Now(), time.Now())
}

func newAccessKeyRepo(t *testing.T) (*AccessKeyRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAccessKeyRepository(db), mock
}

func TestAccessKeyCreate(t *testing.T) {
	repo, mock := newAccessKeyRepo(t)
	mock.ExpectExec("INSERT INTO service_access_keys").
		WillReturnResult(sqlmock.NewResult(0, 1))

	key := &models.ServiceAccessKey{
		AccessKeyID: "ak_live_abc",
		SecretHash:  "$2a$12$hash",
		ClientID:    "client-1",
		Environment: models.EnvironmentLive,
		RateLimit:   1000,
		Active:      true,
	}
	if err := repo.Create(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.ID == "" {
		t.Error("expected ID to be assigned")
	}
}

func TestGetActiveByAccessKeyID_Found(t *testing.T) {
	repo, mock := newAccessKeyRepo(t)
	mock.ExpectQuery("SELECT.*FROM service_access_keys.*WHERE access_key_id").
		WithArgs("ak_live_abc").
		WillReturnRows(sampleKeyRow())

	key, err := repo.GetActiveByAccessKeyID(context.Background(), "ak_live_abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key == nil {
		t.Fatal("expected key, got nil")
	}
	if key.RateLimit != 1000 {
		t.Errorf("RateLimit = %d, want 1000", key.RateLimit)
	}
}

func TestGetActiveByAccessKeyID_InactiveIsNotFound(t *testing.T) {
	repo, mock := newAccessKeyRepo(t)
	mock.ExpectQuery("SELECT.*FROM service_access_keys.*WHERE access_key_id").
		WithArgs("ak_live_revoked").
		WillReturnRows(sqlmock.NewRows(accessKeyCols))

	key, err := repo.GetActiveByAccessKeyID(context.Background(), "ak_live_revoked")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != nil {
		t.Errorf("expected nil for inactive key, got %v", key)
	}
}

func TestGetByAccessKeyIDAndClient_WrongOwner(t *testing.T) {
	repo, mock := newAccessKeyRepo(t)
	mock.ExpectQuery("SELECT.*FROM service_access_keys.*WHERE access_key_id").
		WithArgs("ak_live_abc", "client-2").
		WillReturnRows(sqlmock.NewRows(accessKeyCols))

	key, err := repo.GetByAccessKeyIDAndClient(context.Background(), "ak_live_abc", "client-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != nil {
		t.Errorf("expected nil for non-owning client, got %v", key)
	}
}

func TestAccessKeyDelete(t *testing.T) {
	repo, mock := newAccessKeyRepo(t)
	mock.ExpectExec("DELETE FROM service_access_keys WHERE id").
		WithArgs("key-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "key-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListActiveByClient(t *testing.T) {
	repo, mock := newAccessKeyRepo(t)
	rows := sqlmock.NewRows(accessKeyCols).
		AddRow("key-2", "ak_test_new", "h2", "client-1", models.EnvironmentTest, 500, true, nil, time.Now(), time.Now()).
		AddRow("key-1", "ak_live_old", "h1", "client-1", models.EnvironmentLive, 1000, true, nil, time.Now().Add(-time.Hour), time.Now())
	mock.ExpectQuery("SELECT.*FROM service_access_keys.*ORDER BY created_at DESC").
		WithArgs("client-1").
		WillReturnRows(rows)

	keys, err := repo.ListActiveByClient(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("len(keys) = %d, want 2", len(keys))
	}
	if keys[0].AccessKeyID != "ak_test_new" {
		t.Errorf("first key = %s, want newest first", keys[0].AccessKeyID)
	}
}
