// Package accounts is the first-party identity boundary: registration and
// the login endpoint that mints the bearer tokens every other handler
// requires.
package accounts

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/middleware"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
	"github.com/oki-dokii/FlowSpaceE/internal/storage"
)

var (
	logger = log.With().Str("component", "accounts").Logger()
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9-_]{4,24}$`)
)

const minPasswordLength = 8

type Service struct {
	db   *gormw.DB
	auth *middleware.Auth
}

func NewService(db *gormw.DB, auth *middleware.Auth) *Service {
	return &Service{db: db, auth: auth}
}

func (s *Service) RegisterHandlers(rg *gin.RouterGroup) {
	authRoutes := rg.Group("/auth")
	{
		authRoutes.POST("/register", s.handleRegister)
		authRoutes.POST("/login", s.handleLogin)
	}
}

type registerParams struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Service) handleRegister(c *gin.Context) {
	params := &registerParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required parameters"})
		return
	}

	if !usernameRegex.MatchString(params.Username) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid username format. Must be 4-24 characters and contain only letters, numbers, hyphens, and underscores."})
		return
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if err := checkmail.ValidateFormat(email); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid email format."})
		return
	}

	if len(params.Password) < minPasswordLength {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Password must be at least 8 characters long."})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error processing registration."})
		return
	}

	user := &models.User{
		Username:       params.Username,
		Name:           params.Name,
		Email:          email,
		HashedPassword: string(hashedPassword),
	}
	if err := storage.CreateUser(s.db, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"message": "Username or email already registered."})
			return
		}
		logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

type loginParams struct {
	Username string `json:"username" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}

func (s *Service) handleLogin(c *gin.Context) {
	params := &loginParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required parameters"})
		return
	}

	user, err := storage.GetUserByUsernameOrEmail(s.db, params.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		logger.Error().Err(err).Msg("Database error during login")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	if !user.CheckPassword(params.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	accessToken, err := s.auth.SignAccessToken(user)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to sign access token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   s.auth.AccessTokenTTL(),
	})
}
