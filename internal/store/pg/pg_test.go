package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"medialens.io/internal/auth"
	"medialens.io/internal/clients"
	"medialens.io/internal/insights"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestUsersFindByEmail(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash", "role", "active", "client_id", "created_at", "updated_at",
	}).AddRow("u1", "admin@medialens.kz", "Admin", "aa:bb", "ADMIN", true, "", now, now)
	mock.ExpectQuery("select .* from users where lower\\(email\\) = lower\\(\\$1\\)").
		WithArgs("admin@medialens.kz").
		WillReturnRows(rows)

	u, err := store.AuthStore().Users().FindByEmail(context.Background(), "admin@medialens.kz")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != "u1" || u.Role != auth.RoleAdmin {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUsersCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into users").
		WithArgs("u1", "dup@medialens.kz", "Dup", "hash", "GENERAL", true, "").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.AuthStore().Users().Create(context.Background(), &auth.User{
		ID: "u1", Email: "dup@medialens.kz", Name: "Dup",
		PasswordHash: "hash", Role: auth.RoleGeneral, Active: true,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	tokens := store.AuthStore().RefreshTokens()

	mock.ExpectExec("insert into refresh_tokens").
		WithArgs("t1", "u1", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := tokens.Create(context.Background(), &auth.RefreshToken{
		ID: "t1", UserID: "u1", TokenHash: "hash", ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked"}).
		AddRow("t1", "u1", "hash", now.Add(time.Hour), now, false)
	mock.ExpectQuery("select id, user_id, token_hash, expires_at, created_at, revoked").
		WithArgs("t1").
		WillReturnRows(rows)
	tok, err := tokens.Find(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if tok.UserID != "u1" || tok.Revoked {
		t.Fatalf("unexpected token: %+v", tok)
	}

	mock.ExpectExec("update refresh_tokens set revoked = true where id").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := tokens.MarkRevoked(context.Background(), "t1"); err != nil {
		t.Fatalf("MarkRevoked: %v", err)
	}

	mock.ExpectExec("update refresh_tokens set revoked = true where id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := tokens.MarkRevoked(context.Background(), "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec("delete from refresh_tokens where expires_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := tokens.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientDeleteMapsForeignKeyToInUse(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from clients").
		WithArgs("c1").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	err := store.ClientStore().Delete(context.Background(), "c1")
	if !errors.Is(err, clients.ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsightCreateMapsUniqueViolationToConflict(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into insights").
		WithArgs("i1", "Title", "https://example.kz/a", "", "", "", sqlmock.AnyArg(), "pending").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.InsightStore().Create(context.Background(), &insights.Insight{
		ID: "i1", Title: "Title", URL: "https://example.kz/a",
		PublishedAt: time.Now().UTC(), Status: insights.StatusPending,
	})
	if !errors.Is(err, insights.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsightListBuildsFilteredQuery(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "title", "url", "outlet_id", "client_id", "summary",
		"published_at", "status", "triaged_by", "triaged_at", "created_at",
	}).AddRow("i2", "Title", "https://example.kz/a", "", "c1", "", now, "pending", "", nil, now)

	mock.ExpectQuery("select .* from insights where 1=1 and status = \\$1 and client_id = \\$2 and id < \\$3 order by id desc limit \\$4").
		WithArgs("pending", "c1", "i9", 10).
		WillReturnRows(rows)

	out, err := store.InsightStore().List(context.Background(), insights.ListFilter{
		Status:   insights.StatusPending,
		ClientID: "c1",
		Before:   "i9",
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].ID != "i2" || out[0].Status != insights.StatusPending {
		t.Fatalf("unexpected result: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
