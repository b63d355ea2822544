package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/handlers/render"
	"github.com/nkiryanov/authd/internal/models"
)

type authService interface {
	// Login user with username and password
	// Has to return apperrors.ErrUserNotFound on any credential failure
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Rotate refresh token into a new pair
	// Every rotation failure has to surface as apperrors.ErrTokenInvalid
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Authoritative token check with zero leeway
	CheckToken(ctx context.Context, tokenString string) error
}

type AuthHandler struct {
	auth authService
}

func NewAuth(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /token/refresh", h.refresh)
	mux.HandleFunc("POST /token/check", h.check)

	return mux
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Username string `json:"username" validate:"required,max=50"`
		Password string `json:"password" validate:"required,max=50"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Login(r.Context(), data.Username, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Incorrect username or password", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, tokenPairResponse{
		Access:  pair.Access.Value,
		Refresh: pair.Refresh.Value,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), data.Refresh)
	if err != nil {
		// One generic answer for every cause, no oracle for attackers
		switch {
		case errors.Is(err, apperrors.ErrTokenInvalid):
			render.ServiceError(w, "Bad refresh token", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, tokenPairResponse{
		Access:  pair.Access.Value,
		Refresh: pair.Refresh.Value,
	})
}

func (h *AuthHandler) check(w http.ResponseWriter, r *http.Request) {
	type CheckRequest struct {
		Token string `json:"token" validate:"required"`
	}
	type CheckSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[CheckRequest](w, r)
	if err != nil {
		return
	}

	if err := h.auth.CheckToken(r.Context(), data.Token); err != nil {
		render.ServiceError(w, "Bad token", http.StatusUnauthorized)
		return
	}

	render.JSON(w, CheckSuccessResponse{Message: "Token is valid"})
}
