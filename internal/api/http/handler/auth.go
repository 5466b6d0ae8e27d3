package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/cookie"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/model"
)

// AuthService defines the session lifecycle operations exposed over HTTP.
type AuthService interface {
	Register(ctx context.Context, input model.RegisterInput) (model.User, error)
	Login(ctx context.Context, input model.LoginInput, presentedRefreshToken string) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (model.User, error)
}

// UserView is the public representation of a user.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenView carries a freshly issued access token.
type TokenView struct {
	AccessToken string `json:"accessToken"`
}

func newUserView(u model.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Auth handles the /auth endpoints of the identity service.
type Auth struct {
	authService    AuthService
	cookies        *cookie.Codec
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, cookies *cookie.Codec, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		cookies:        cookies,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register creates an account. The caller logs in separately.
func (h *Auth) Register(c *gin.Context) {
	var input model.RegisterInput
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		response.Abort(c, apperror.NewValidation("invalid request body"))
		return
	}

	h.logger.Debug("Auth handler: processing registration request",
		"email", input.Email)

	user, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		response.Abort(c, err)
		return
	}

	response.OK(c, http.StatusCreated, "User registered successfully. Please login.", newUserView(user))
}

// Login opens a session, returns the access token and sets the refresh token cookie.
func (h *Auth) Login(c *gin.Context) {
	var input model.LoginInput
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		response.Abort(c, apperror.NewValidation("invalid request body"))
		return
	}

	presented, _ := h.cookies.Read(c.Request)
	pair, err := h.authService.Login(c.Request.Context(), input, presented)
	if err != nil {
		response.Abort(c, err)
		return
	}

	if err := h.cookies.Set(c.Writer, pair.RefreshToken); err != nil {
		h.logger.Error("Auth handler: failed to encode refresh cookie",
			"error", err.Error())
		response.Abort(c, apperror.NewInternal("failed to set session cookie", err))
		return
	}

	response.OK(c, http.StatusOK, "User logged in successfully", TokenView{AccessToken: pair.AccessToken})
}

// Refresh issues a new access token for the session in the refresh token cookie.
func (h *Auth) Refresh(c *gin.Context) {
	refreshToken, _ := h.cookies.Read(c.Request)

	accessToken, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		response.Abort(c, err)
		return
	}

	response.OK(c, http.StatusOK, "Get new access token", TokenView{AccessToken: accessToken})
}

// Logout closes the session and clears the cookie.
func (h *Auth) Logout(c *gin.Context) {
	refreshToken, _ := h.cookies.Read(c.Request)

	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		response.Abort(c, err)
		return
	}

	h.cookies.Clear(c.Writer)
	response.OK(c, http.StatusOK, "Logout successfully", nil)
}

// Me returns the user identified by the relayed identity header.
func (h *Auth) Me(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		response.Abort(c, apperror.NewMissingToken())
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		response.Abort(c, err)
		return
	}

	response.OK(c, http.StatusOK, "Current user", newUserView(user))
}
