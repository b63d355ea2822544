package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/handlers/render"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/service/user"
)

type userService interface {
	Create(ctx context.Context, params user.CreateParams) (models.User, error)
	GetByID(ctx context.Context, userID int64) (models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, userID int64) error
}

type UserHandler struct {
	users userService
}

func NewUsers(users userService) *UserHandler {
	return &UserHandler{users: users}
}

// Handler routes user endpoints. Create and delete mutate other accounts, so
// they go through the adminOnly wrapper.
func (h *UserHandler) Handler(adminOnly func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /all", h.list)
	mux.HandleFunc("GET /uid/{uid}", h.get)
	mux.Handle("POST /", adminOnly(http.HandlerFunc(h.create)))
	mux.Handle("DELETE /uid/{uid}", adminOnly(http.HandlerFunc(h.delete)))

	return mux
}

type userResponse struct {
	ID        int64     `json:"uid"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListActive(r.Context())
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]userResponse, 0, len(users))
	for _, u := range users {
		response = append(response, toUserResponse(u))
	}

	render.JSON(w, response)
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(r.PathValue("uid"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Bad user id", http.StatusBadRequest)
		return
	}

	u, err := h.users.GetByID(r.Context(), uid)
	switch {
	case err == nil && u.IsActive:
		render.JSON(w, toUserResponse(u))
	case errors.Is(err, apperrors.ErrUserNotFound), err == nil:
		// Inactive users read as absent
		render.ServiceError(w, "User not found", http.StatusNotFound)
	default:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateUserRequest struct {
		Username string `json:"username" validate:"required,min=2,max=50"`
		Password string `json:"password" validate:"required,min=8,max=50"`
		IsAdmin  bool   `json:"is_admin"`
	}

	data, err := render.BindAndValidate[CreateUserRequest](w, r)
	if err != nil {
		return
	}

	u, err := h.users.Create(r.Context(), user.CreateParams{
		Username: data.Username,
		Password: data.Password,
		IsAdmin:  data.IsAdmin,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toUserResponse(u))
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	type DeleteSuccessResponse struct {
		Message string `json:"message"`
	}

	uid, err := strconv.ParseInt(r.PathValue("uid"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Bad user id", http.StatusBadRequest)
		return
	}

	err = h.users.Delete(r.Context(), uid)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, DeleteSuccessResponse{Message: "User deleted"})
}
