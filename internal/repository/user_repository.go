package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/userforge/user-service/internal/common"
	"github.com/userforge/user-service/internal/models"
)

const userColumns = "id, username, email, password_hash, active, created_at, updated_at"

// UserRepository is a thin query layer over the users table.
// Postgres is the source of truth; its unique indexes on username and email
// arbitrate races that the service-layer pre-checks cannot.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.Active, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if converted := uniqueViolation(err); converted != nil {
			return converted
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID fetches the full entity including PasswordHash. Absence is reported
// through the bool, not an error.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, bool, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*models.User, bool, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	return user, true, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = $1", username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = $1", email)
}

func (r *UserRepository) exists(ctx context.Context, where string, arg any) (bool, error) {
	var found bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE ` + where + `)`
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return found, nil
}

// ListActive returns one page of active users. orderBy must come from the
// service-layer whitelist; it is interpolated, never bound.
func (r *UserRepository) ListActive(ctx context.Context, orderBy string, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = TRUE
		ORDER BY ` + orderBy + `
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *UserRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE active = TRUE`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// SearchActive performs a case-insensitive substring match on username or
// email, restricted to active users.
func (r *UserRepository) SearchActive(ctx context.Context, search, orderBy string, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = TRUE AND (username ILIKE $1 OR email ILIKE $1)
		ORDER BY ` + orderBy + `
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, likePattern(search), limit, offset)
}

func (r *UserRepository) CountSearchActive(ctx context.Context, search string) (int64, error) {
	var n int64
	query := `
		SELECT COUNT(*)
		FROM users
		WHERE active = TRUE AND (username ILIKE $1 OR email ILIKE $1)
	`
	if err := r.db.QueryRowContext(ctx, query, likePattern(search)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) list(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = $2, email = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.UpdatedAt)
	if err != nil {
		if converted := uniqueViolation(err); converted != nil {
			return converted
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(result)
}

// SetActive flips the active flag. Re-applying the current state is a no-op:
// the updated_at timestamp only moves when the flag actually changes.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	query := `
		UPDATE users
		SET active = $2, updated_at = $3
		WHERE id = $1 AND active <> $2
	`
	result, err := r.db.ExecContext(ctx, query, id, active, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	// Either the user is already in the requested state or it does not exist.
	found, err := r.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return common.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "id = $1", id)
}

type scannable interface {
	Scan(dest ...any) error
}

// scanUser centralises column mapping so column changes touch one place.
func scanUser(row scannable) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Active, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return common.ErrNotFound
	}
	return nil
}

// uniqueViolation translates a Postgres 23505 into the same domain failure as
// the service-layer pre-check, naming the offending field where possible.
func uniqueViolation(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "username"):
		return fmt.Errorf("username already exists: %w", common.ErrAlreadyExists)
	case strings.Contains(pqErr.Constraint, "email"):
		return fmt.Errorf("email already exists: %w", common.ErrAlreadyExists)
	default:
		return common.ErrAlreadyExists
	}
}

// likePattern escapes LIKE metacharacters in the user-supplied search term and
// wraps it for substring matching.
func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(search) + "%"
}
