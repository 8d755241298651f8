package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/userforge/user-service/internal/common"
	"github.com/userforge/user-service/internal/models"
)

func newMockRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewUserRepository(db), mock, func() { db.Close() }
}

func userRows(users ...*models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "active", "created_at", "updated_at"})
	for _, u := range users {
		rows.AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.Active, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func sampleUser() *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           "usr-abc123DEF0",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$fakehash",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreate(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	user := sampleUser()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(user.ID, user.Username, user.Email, user.PasswordHash, user.Active, user.CreatedAt, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("sql expectations: %v", err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		wantField  string
	}{
		{"username index", "users_username_key", "username"},
		{"email index", "users_email_key", "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, closeDB := newMockRepo(t)
			defer closeDB()

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})

			err := repo.Create(context.Background(), sampleUser())
			if !errors.Is(err, common.ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}
			if !regexp.MustCompile(tt.wantField).MatchString(err.Error()) {
				t.Errorf("expected %q in error, got %q", tt.wantField, err.Error())
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	user := sampleUser()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(user.ID).
		WillReturnRows(userRows(user))

	got, found, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !found || got.Username != user.Username {
		t.Errorf("expected %q found, got found=%v user=%+v", user.Username, found, got)
	}
}

func TestGetByID_Absent(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WillReturnError(sql.ErrNoRows)

	got, found, err := repo.GetByID(context.Background(), "usr-missing000")
	if err != nil {
		t.Fatalf("absence must not be an error, got %v", err)
	}
	if found || got != nil {
		t.Errorf("expected not found, got found=%v user=%+v", found, got)
	}
}

func TestExistsByUsername(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.ExistsByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ExistsByUsername error: %v", err)
	}
	if !found {
		t.Error("expected true")
	}
}

func TestListActive(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	a, b := sampleUser(), sampleUser()
	b.ID, b.Username = "usr-second0000", "bob"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = TRUE") + ".*" + regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(20, 0).
		WillReturnRows(userRows(a, b))

	users, err := repo.ListActive(context.Background(), "created_at DESC", 20, 0)
	if err != nil {
		t.Fatalf("ListActive error: %v", err)
	}
	if len(users) != 2 || users[1].Username != "bob" {
		t.Errorf("unexpected result: %+v", users)
	}
}

func TestSearchActive_EscapesPattern(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta("username ILIKE $1 OR email ILIKE $1")).
		WithArgs(`%50\%\_off%`, 20, 0).
		WillReturnRows(userRows())

	if _, err := repo.SearchActive(context.Background(), "50%_off", "created_at DESC", 20, 0); err != nil {
		t.Fatalf("SearchActive error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("sql expectations: %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), sampleUser())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_UniqueViolation(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Update(context.Background(), sampleUser())
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("usr-abc123DEF0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "usr-abc123DEF0"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("usr-missing000").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "usr-missing000"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	now := time.Now().UTC()

	t.Run("flag flipped", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(regexp.QuoteMeta("SET active = $2")).
			WithArgs("usr-abc123DEF0", false, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.SetActive(context.Background(), "usr-abc123DEF0", false, now); err != nil {
			t.Fatalf("SetActive error: %v", err)
		}
	})

	t.Run("already in requested state is a no-op", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(regexp.QuoteMeta("SET active = $2")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		if err := repo.SetActive(context.Background(), "usr-abc123DEF0", false, now); err != nil {
			t.Fatalf("no-op must not error, got %v", err)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		repo, mock, closeDB := newMockRepo(t)
		defer closeDB()

		mock.ExpectExec(regexp.QuoteMeta("SET active = $2")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		if err := repo.SetActive(context.Background(), "usr-missing000", false, now); !errors.Is(err, common.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "%alice%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
