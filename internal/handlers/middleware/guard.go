package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
	"github.com/oki-dokii/FlowSpaceE/internal/storage"
)

// RequireBoardRole is the single permission gate for board-scoped
// handlers. It resolves the board, the caller's membership, and the
// capability table, writing the response itself on any denial:
// 404 for an unknown board, 403 for non-members and for members whose
// role does not cover the action. The two forbidden cases are logged
// apart for auditing but answered identically so responses do not leak
// membership.
func RequireBoardRole(c *gin.Context, db *gormw.DB, boardID string, action models.Action) (*models.Board, models.Role, bool) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return nil, "", false
	}

	board, err := storage.GetBoardByID(db, boardID)
	if err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Board not found"})
		} else {
			logger.Error().Err(err).Str("board_id", boardID).Msg("Failed to load board")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		}
		return nil, "", false
	}

	role, member, err := storage.RoleOf(db, boardID, userID)
	if err != nil {
		logger.Error().Err(err).Str("board_id", boardID).Uint("user_id", userID).Msg("Failed to resolve membership")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return nil, "", false
	}
	if !member {
		logger.Warn().Str("board_id", boardID).Uint("user_id", userID).Msg("Denied: not a member")
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
		return nil, "", false
	}
	if !role.Can(action) {
		logger.Warn().Str("board_id", boardID).Uint("user_id", userID).
			Str("role", string(role)).Str("action", string(action)).Msg("Denied: insufficient role")
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
		return nil, "", false
	}

	return board, role, true
}
