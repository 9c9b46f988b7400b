// Package invites orchestrates the invite lifecycle: owners mint
// time-limited single-use tokens, invitees redeem them for membership,
// and the stores below guarantee each token is consumed exactly once.
package invites

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/middleware"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
	"github.com/oki-dokii/FlowSpaceE/internal/notify"
	"github.com/oki-dokii/FlowSpaceE/internal/realtime"
	"github.com/oki-dokii/FlowSpaceE/internal/storage"
)

var (
	logger = log.With().Str("component", "invites").Logger()
)

type Config struct {
	// BaseURL is the public origin invite links point at, e.g.
	// https://flowspace.example.com
	BaseURL string `yaml:"base_url"`
}

func (c *Config) Validate() {
	if c.BaseURL == "" {
		logger.Fatal().Msg("invites.base_url is missing")
	}
}

type Service struct {
	config    *Config
	db        *gormw.DB
	mailer    notify.Mailer
	publisher realtime.Publisher
	users     *storage.UserDirectory
}

func NewService(config *Config, db *gormw.DB, mailer notify.Mailer, publisher realtime.Publisher) *Service {
	return &Service{
		config:    config,
		db:        db,
		mailer:    mailer,
		publisher: publisher,
		users:     storage.NewUserDirectory(db),
	}
}

func (s *Service) RegisterHandlers(rg *gin.RouterGroup) {
	rg.POST("/boards/:id/invites", s.handleCreateInvite)
	rg.GET("/boards/:id/invites", s.handleListInvites)
	rg.POST("/invites/:token/accept", s.handleAcceptInvite)
}

func (s *Service) inviteLink(token string) string {
	return fmt.Sprintf("%s/invite/%s", s.config.BaseURL, token)
}

type createInviteParams struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

func (s *Service) handleCreateInvite(c *gin.Context) {
	params := &createInviteParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Email required"})
		return
	}
	if params.Role == "" {
		params.Role = string(models.RoleEditor)
	}

	// Validation happens before any store mutation.
	email := storage.NormalizeEmail(params.Email)
	if err := checkmail.ValidateFormat(email); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid email format."})
		return
	}
	role, err := models.ParseInviteRole(params.Role)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionCreateInvite)
	if !ok {
		return
	}
	userID, _ := middleware.CurrentUserID(c)

	invite, err := storage.CreateInvite(s.db, board.ID, email, role, userID)
	if err != nil {
		logger.Error().Err(err).Str("board_id", board.ID).Msg("Failed to create invite")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create invite"})
		return
	}

	resp := gin.H{
		"inviteId":   invite.ID,
		"token":      invite.Token,
		"inviteLink": s.inviteLink(invite.Token),
		"expiresAt":  invite.ExpiresAt,
		"status":     invite.Status,
	}

	// Mail is best effort: the invite exists either way, the caller just
	// learns whether the invitee was told about it.
	if err := s.mailer.SendInvite(c.Request.Context(), email, s.inviteLink(invite.Token), board.Title, role); err != nil {
		logger.Warn().Err(err).Str("email", email).Msg("Invite created but email delivery failed")
		resp["warning"] = "Email delivery failed. Share the invite link manually."
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleAcceptInvite(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}

	token := c.Param("token")
	invite, err := storage.AcceptInvite(s.db, token, userID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInviteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Invite not found"})
		case errors.Is(err, storage.ErrInviteExpired):
			c.JSON(http.StatusGone, gin.H{"message": "Invite has expired"})
		case errors.Is(err, storage.ErrInviteAlreadyConsumed):
			c.JSON(http.StatusConflict, gin.H{"message": "Invite already used"})
		default:
			logger.Error().Err(err).Msg("Failed to accept invite")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to accept invite"})
		}
		return
	}

	board, err := storage.GetBoardByID(s.db, invite.BoardID)
	if err != nil {
		logger.Error().Err(err).Str("board_id", invite.BoardID).Msg("Accepted invite but board lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	s.publisher.Publish(board.ID, realtime.EventMemberJoined, realtime.MemberJoined{
		UserID: userID,
		Role:   string(invite.Role),
	})

	c.JSON(http.StatusOK, gin.H{
		"board": gin.H{
			"id":          board.ID,
			"title":       board.Title,
			"description": board.Description,
		},
		"role": invite.Role,
	})
}

func (s *Service) handleListInvites(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionListInvites)
	if !ok {
		return
	}

	invites, err := storage.ListInvitesByBoard(s.db, board.ID)
	if err != nil {
		logger.Error().Err(err).Str("board_id", board.ID).Msg("Failed to list invites")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(invites))
	for _, invite := range invites {
		row := gin.H{
			"id":        invite.ID,
			"email":     invite.Email,
			"role":      invite.Role,
			"status":    invite.Status,
			"createdAt": invite.CreatedAt,
			"expiresAt": invite.ExpiresAt,
		}
		if inviter, ok := s.users.Lookup(invite.InvitedBy); ok {
			row["invitedBy"] = gin.H{
				"id":       inviter.ID,
				"username": inviter.Username,
				"name":     inviter.Name,
			}
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"invites": out})
}
