package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/userforge/user-service/internal/common"
	"github.com/userforge/user-service/internal/models"
	"github.com/userforge/user-service/internal/utils"
)

// UserStore is the persistence contract the user service depends on,
// implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, bool, error)
	GetByUsername(ctx context.Context, username string) (*models.User, bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListActive(ctx context.Context, orderBy string, limit, offset int) ([]*models.User, error)
	CountActive(ctx context.Context) (int64, error)
	SearchActive(ctx context.Context, search, orderBy string, limit, offset int) ([]*models.User, error)
	CountSearchActive(ctx context.Context, search string) (int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
}

type CreateUserParams struct {
	Username string
	Email    string
	Password string
}

type UpdateUserParams struct {
	Username string
	Email    string
}

// PageRequest carries the paging and sorting parameters of a listing call.
// Sort uses the "field,direction" form, e.g. "createdAt,desc".
type PageRequest struct {
	Page int
	Size int
	Sort string
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	defaultOrderBy  = "created_at DESC"
)

// sortColumns whitelists the sortable fields. Anything else falls back to the
// default ordering; the resolved value is interpolated into SQL.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"username":  "username",
	"email":     "email",
}

// UserService enforces the business invariants around the user lifecycle:
// username/email uniqueness and the active/inactive flag. It holds no state of
// its own; everything lives in the store.
type UserService struct {
	store      UserStore
	bcryptCost int
}

func NewUserService(store UserStore, bcryptCost int) *UserService {
	return &UserService{store: store, bcryptCost: bcryptCost}
}

// Create persists a new active user. Uniqueness is pre-checked here as an
// early exit; the database unique indexes remain the authoritative guard, and
// a violation during the insert surfaces as the same ErrAlreadyExists.
func (s *UserService) Create(ctx context.Context, params CreateUserParams) (*models.UserView, error) {
	taken, err := s.store.ExistsByUsername(ctx, params.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("username already exists: %w", common.ErrAlreadyExists)
	}
	taken, err = s.store.ExistsByEmail(ctx, params.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("email already exists: %w", common.ErrAlreadyExists)
	}

	passwordHash, err := utils.HashPassword(params.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           utils.GenerateID("usr"),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user.View(), nil
}

// GetByID returns the user's view if present. Absence is a normal outcome
// reported through the bool, not an error.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.UserView, bool, error) {
	user, found, err := s.store.GetByID(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}
	return user.View(), true, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.UserView, bool, error) {
	user, found, err := s.store.GetByUsername(ctx, username)
	if err != nil || !found {
		return nil, false, err
	}
	return user.View(), true, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.UserView, bool, error) {
	user, found, err := s.store.GetByEmail(ctx, email)
	if err != nil || !found {
		return nil, false, err
	}
	return user.View(), true, nil
}

// ListActive returns one page of active users, newest first by default.
func (s *UserService) ListActive(ctx context.Context, page PageRequest) (*models.Page[models.UserView], error) {
	pageNum, size := page.normalize()
	users, err := s.store.ListActive(ctx, resolveOrderBy(page.Sort), size, pageNum*size)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	return models.NewPage(toViews(users), pageNum, size, total), nil
}

// Search matches the term case-insensitively against username or email among
// active users. A blank term behaves exactly like ListActive.
func (s *UserService) Search(ctx context.Context, search string, page PageRequest) (*models.Page[models.UserView], error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return s.ListActive(ctx, page)
	}
	pageNum, size := page.normalize()
	users, err := s.store.SearchActive(ctx, search, resolveOrderBy(page.Sort), size, pageNum*size)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountSearchActive(ctx, search)
	if err != nil {
		return nil, err
	}
	return models.NewPage(toViews(users), pageNum, size, total), nil
}

// Update changes username and email. A collision only counts against a
// different user; updating a user to its own current values never conflicts.
func (s *UserService) Update(ctx context.Context, id string, params UpdateUserParams) (*models.UserView, error) {
	user, found, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.ErrNotFound
	}

	if user.Username != params.Username {
		taken, err := s.store.ExistsByUsername(ctx, params.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("username already exists: %w", common.ErrAlreadyExists)
		}
	}
	if user.Email != params.Email {
		taken, err := s.store.ExistsByEmail(ctx, params.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("email already exists: %w", common.ErrAlreadyExists)
		}
	}

	user.Username = params.Username
	user.Email = params.Email
	user.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.View(), nil
}

// Delete permanently removes the record.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Deactivate flips the user to inactive. Idempotent.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	return s.store.SetActive(ctx, id, false, time.Now().UTC())
}

// Activate flips the user back to active. Idempotent.
func (s *UserService) Activate(ctx context.Context, id string) error {
	return s.store.SetActive(ctx, id, true, time.Now().UTC())
}

func (s *UserService) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.store.ExistsByUsername(ctx, username)
}

func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.store.ExistsByEmail(ctx, email)
}

// VerifyCredentials authenticates a username/password pair against an active
// stored user. Unknown user and wrong password are indistinguishable.
func (s *UserService) VerifyCredentials(ctx context.Context, username, password string) (*models.UserView, error) {
	user, found, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found || !user.Active || !utils.CheckPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	return user.View(), nil
}

// normalize clamps the request to sane bounds and returns the effective page
// number and size.
func (p PageRequest) normalize() (int, int) {
	size := p.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	pageNum := p.Page
	if pageNum < 0 {
		pageNum = 0
	}
	return pageNum, size
}

func resolveOrderBy(sort string) string {
	field, direction, _ := strings.Cut(sort, ",")
	column, ok := sortColumns[strings.TrimSpace(field)]
	if !ok {
		return defaultOrderBy
	}
	if strings.EqualFold(strings.TrimSpace(direction), "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}

func toViews(users []*models.User) []models.UserView {
	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, *u.View())
	}
	return views
}
