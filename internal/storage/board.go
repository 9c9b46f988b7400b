package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

// CreateBoard persists the board and its owner membership in one
// transaction. A board is never visible without its owner row.
func CreateBoard(db *gormw.DB, board *models.Board) error {
	if board.ID == "" {
		board.ID = uuid.NewString()
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return err
		}
		member := &models.Member{
			BoardID: board.ID,
			UserID:  board.OwnerID,
			Role:    models.RoleOwner,
		}
		return tx.Create(member).Error
	})
}

func GetBoardByID(db *gormw.DB, id string) (*models.Board, error) {
	board := &models.Board{}
	if err := db.Where("id = ?", id).First(board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}
	return board, nil
}

func ListBoardsForUser(db *gormw.DB, userID uint) ([]models.Board, error) {
	var boards []models.Board
	err := db.
		Joins("JOIN members ON members.board_id = boards.id").
		Where("members.user_id = ?", userID).
		Order("boards.created_at DESC").
		Find(&boards).Error
	return boards, err
}

// DeleteBoard removes the board with its members and cards, and revokes
// any invites still pending against it.
func DeleteBoard(db *gormw.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Board{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBoardNotFound
		}
		if err := tx.Where("board_id = ?", id).Delete(&models.Member{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Invite{}).
			Where("board_id = ? AND status = ?", id, models.InvitePending).
			Updates(map[string]any{"status": models.InviteRevoked, "updated_at": time.Now()}).Error
	})
}
