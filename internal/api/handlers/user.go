package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/database"
	"github.com/quantfold/equilens-ai-go/internal/middleware"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// UserHandler serves registration, login and profile endpoints.
type UserHandler struct {
	pool     database.DatabasePool
	auth     *middleware.AuthMiddleware
	security config.SecurityConfig
	validate *validator.Validate
	logger   *logrus.Logger
}

type registerRequest struct {
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8"`
	TelegramChatID *string `json:"telegram_chat_id,omitempty" validate:"omitempty,numeric"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	TelegramChatID *string `json:"telegram_chat_id" validate:"omitempty,numeric"`
}

type loginResponse struct {
	User  models.UserResponse `json:"user"`
	Token string              `json:"token"`
}

// NewUserHandler creates the handler.
func NewUserHandler(pool database.DatabasePool, auth *middleware.AuthMiddleware, security config.SecurityConfig, logger *logrus.Logger) *UserHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserHandler{
		pool:     pool,
		auth:     auth,
		security: security,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register handles POST /api/v1/users/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and a password of at least 8 characters are required"})
		return
	}

	ctx := c.Request.Context()
	exists, err := h.emailTaken(ctx, req.Email)
	if err != nil {
		h.logger.WithError(err).Error("failed to check email uniqueness")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}

	cost := h.security.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		h.logger.WithError(err).Error("password hashing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := models.User{
		ID:             uuid.New().String(),
		Email:          req.Email,
		PasswordHash:   string(hash),
		TelegramChatID: req.TelegramChatID,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	query := `
		INSERT INTO users (id, email, password_hash, telegram_chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := h.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.TelegramChatID, user.CreatedAt, user.UpdatedAt); err != nil {
		h.logger.WithError(err).Error("failed to insert user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(&user)})
}

// Login handles POST /api/v1/users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.userByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	expiry := 24 * time.Hour
	if h.security.JWTExpiry != "" {
		if d, err := time.ParseDuration(h.security.JWTExpiry); err == nil {
			expiry = d
		}
	}
	token, err := h.auth.GenerateToken(user.ID, user.Email, expiry)
	if err != nil {
		h.logger.WithError(err).Error("token generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// Profile handles GET /api/v1/users/profile. Requires JWT auth.
func (h *UserHandler) Profile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.userByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// UpdateProfile handles PUT /api/v1/users/profile. Requires JWT auth.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "telegram_chat_id must be numeric"})
		return
	}

	query := `
		UPDATE users SET telegram_chat_id = $2, updated_at = $3 WHERE id = $1
	`
	if _, err := h.pool.Exec(c.Request.Context(), query, userID, req.TelegramChatID, time.Now().UTC()); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("profile update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	user, err := h.userByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load updated profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h *UserHandler) emailTaken(ctx context.Context, email string) (bool, error) {
	var count int
	err := h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE email = $1", email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *UserHandler) userByEmail(ctx context.Context, email string) (*models.User, error) {
	return h.scanUser(h.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, telegram_chat_id, created_at, updated_at
		FROM users WHERE email = $1
	`, email))
}

func (h *UserHandler) userByID(ctx context.Context, id string) (*models.User, error) {
	return h.scanUser(h.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, telegram_chat_id, created_at, updated_at
		FROM users WHERE id = $1
	`, id))
}

func (h *UserHandler) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash,
		&user.TelegramChatID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func toUserResponse(user *models.User) models.UserResponse {
	resp := models.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	if user.TelegramChatID != nil {
		resp.TelegramChatID = *user.TelegramChatID
	}
	return resp
}
