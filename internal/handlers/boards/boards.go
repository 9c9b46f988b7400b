// Package boards exposes the board, membership and card surface. Every
// board-scoped route goes through middleware.RequireBoardRole.
package boards

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
	"gorm.io/gorm"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/middleware"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
	"github.com/oki-dokii/FlowSpaceE/internal/realtime"
	"github.com/oki-dokii/FlowSpaceE/internal/storage"
)

var (
	logger = log.With().Str("component", "boards").Logger()
)

type Service struct {
	db  *gormw.DB
	hub *realtime.Hub
}

func NewService(db *gormw.DB, hub *realtime.Hub) *Service {
	return &Service{db: db, hub: hub}
}

func (s *Service) RegisterHandlers(rg *gin.RouterGroup) {
	rg.POST("/boards", s.handleCreateBoard)
	rg.GET("/boards", s.handleListBoards)
	rg.GET("/boards/:id", s.handleGetBoard)
	rg.DELETE("/boards/:id", s.handleDeleteBoard)

	rg.GET("/boards/:id/members", s.handleListMembers)
	rg.DELETE("/boards/:id/members/:userID", s.handleRemoveMember)

	rg.GET("/boards/:id/cards", s.handleListCards)
	rg.POST("/boards/:id/cards", s.handleCreateCard)
	rg.PUT("/boards/:id/cards/:cardID", s.handleUpdateCard)
	rg.DELETE("/boards/:id/cards/:cardID", s.handleDeleteCard)

	rg.GET("/boards/:id/socket", s.handleBoardSocket)
}

type createBoardParams struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (s *Service) handleCreateBoard(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}

	params := &createBoardParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required parameters"})
		return
	}

	board := &models.Board{
		Title:       params.Title,
		Description: params.Description,
		OwnerID:     userID,
	}
	if err := storage.CreateBoard(s.db, board); err != nil {
		logger.Error().Err(err).Msg("Failed to create board")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create board"})
		return
	}

	c.JSON(http.StatusCreated, boardJSON(board))
}

func (s *Service) handleListBoards(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}

	boards, err := storage.ListBoardsForUser(s.db, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list boards")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(boards))
	for i := range boards {
		out = append(out, boardJSON(&boards[i]))
	}
	c.JSON(http.StatusOK, gin.H{"boards": out})
}

func (s *Service) handleGetBoard(c *gin.Context) {
	board, role, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionViewBoard)
	if !ok {
		return
	}

	resp := boardJSON(board)
	resp["role"] = role
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleDeleteBoard(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionManageBoard)
	if !ok {
		return
	}

	if err := storage.DeleteBoard(s.db, board.ID); err != nil {
		logger.Error().Err(err).Str("board_id", board.ID).Msg("Failed to delete board")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete board"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": board.ID})
}

func (s *Service) handleListMembers(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionViewBoard)
	if !ok {
		return
	}

	members, err := storage.ListMembers(s.db, board.ID)
	if err != nil {
		logger.Error().Err(err).Str("board_id", board.ID).Msg("Failed to list members")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(members))
	for _, m := range members {
		out = append(out, gin.H{
			"userId":   m.UserID,
			"role":     m.Role,
			"joinedAt": m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

func (s *Service) handleRemoveMember(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionManageBoard)
	if !ok {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid user id"})
		return
	}

	if err := storage.RemoveMember(s.db, board.ID, uint(userID)); err != nil {
		if errors.Is(err, storage.ErrOwnerImmutable) {
			c.JSON(http.StatusConflict, gin.H{"message": "The board owner cannot be removed"})
			return
		}
		logger.Error().Err(err).Str("board_id", board.ID).Msg("Failed to remove member")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": userID})
}

type cardParams struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

func (s *Service) handleListCards(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionViewBoard)
	if !ok {
		return
	}

	cards, err := storage.ListCardsByBoard(s.db, board.ID)
	if err != nil {
		logger.Error().Err(err).Str("board_id", board.ID).Msg("Failed to list cards")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func (s *Service) handleCreateCard(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionEditCards)
	if !ok {
		return
	}
	userID, _ := middleware.CurrentUserID(c)

	params := &cardParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required parameters"})
		return
	}

	card := &models.Card{
		BoardID:   board.ID,
		Title:     params.Title,
		Content:   params.Content,
		Position:  params.Position,
		CreatedBy: userID,
	}
	if err := storage.CreateCard(s.db, card); err != nil {
		logger.Error().Err(err).Str("board_id", board.ID).Msg("Failed to create card")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create card"})
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (s *Service) handleUpdateCard(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionEditCards)
	if !ok {
		return
	}

	card, err := storage.GetCardByID(s.db, board.ID, c.Param("cardID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Card not found"})
			return
		}
		logger.Error().Err(err).Msg("Failed to load card")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	params := &cardParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required parameters"})
		return
	}

	card.Title = params.Title
	card.Content = params.Content
	card.Position = params.Position
	if err := storage.UpdateCard(s.db, card); err != nil {
		logger.Error().Err(err).Msg("Failed to update card")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update card"})
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Service) handleDeleteCard(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionEditCards)
	if !ok {
		return
	}

	if err := storage.DeleteCard(s.db, board.ID, c.Param("cardID")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Card not found"})
			return
		}
		logger.Error().Err(err).Msg("Failed to delete card")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("cardID")})
}

// handleBoardSocket upgrades a member's connection and parks it in the
// board's realtime room until the peer hangs up.
func (s *Service) handleBoardSocket(c *gin.Context) {
	board, _, ok := middleware.RequireBoardRole(c, s.db, c.Param("id"), models.ActionViewBoard)
	if !ok {
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		s.hub.Attach(board.ID, conn)
	}).ServeHTTP(c.Writer, c.Request)
}

func boardJSON(b *models.Board) gin.H {
	return gin.H{
		"id":          b.ID,
		"title":       b.Title,
		"description": b.Description,
		"ownerId":     b.OwnerID,
		"createdAt":   b.CreatedAt,
	}
}
