package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/userforge/user-service/internal/middleware"
	"github.com/userforge/user-service/internal/models"
	"github.com/userforge/user-service/internal/service"
)

// UserServicer defines the operations UserHandler delegates to.
type UserServicer interface {
	Create(ctx context.Context, params service.CreateUserParams) (*models.UserView, error)
	GetByID(ctx context.Context, id string) (*models.UserView, bool, error)
	GetByUsername(ctx context.Context, username string) (*models.UserView, bool, error)
	ListActive(ctx context.Context, page service.PageRequest) (*models.Page[models.UserView], error)
	Search(ctx context.Context, search string, page service.PageRequest) (*models.Page[models.UserView], error)
	Update(ctx context.Context, id string, params service.UpdateUserParams) (*models.UserView, error)
	Delete(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
}

// UserHandler binds and validates user payloads, then routes to the service.
// All error-to-status mapping goes through middleware.RespondWithDomainError.
type UserHandler struct {
	users UserServicer
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
}

func NewUserHandler(users UserServicer) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrors := middleware.ValidateRequest(req); fieldErrors != nil {
		middleware.RespondWithValidationErrors(c, fieldErrors)
		return
	}

	view, err := h.users.Create(c.Request.Context(), service.CreateUserParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	view, found, err := h.users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	if !found {
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) GetUserByUsername(c *gin.Context) {
	view, found, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	if !found {
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListUsers serves GET /api/users. A non-blank search parameter switches from
// plain active-user listing to substring search; the two are otherwise
// identical in paging and ordering.
func (h *UserHandler) ListUsers(c *gin.Context) {
	page := service.PageRequest{
		Page: intQuery(c, "page", 0),
		Size: intQuery(c, "size", service.DefaultPageSize),
		Sort: c.DefaultQuery("sort", "createdAt,desc"),
	}

	result, err := h.users.Search(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fieldErrors := middleware.ValidateRequest(req); fieldErrors != nil {
		middleware.RespondWithValidationErrors(c, fieldErrors)
		return
	}

	view, err := h.users.Update(c.Request.Context(), c.Param("id"), service.UpdateUserParams{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) DeactivateUser(c *gin.Context) {
	if err := h.users.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) ActivateUser(c *gin.Context) {
	if err := h.users.Activate(c.Request.Context(), c.Param("id")); err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	value := c.Query(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
