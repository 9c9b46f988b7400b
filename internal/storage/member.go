package storage

import (
	"errors"

	"gorm.io/gorm"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

// RoleOf returns the caller's role on the board. The second return is
// false for non-members; callers must treat that as forbidden, not as a
// viewer.
func RoleOf(db *gormw.DB, boardID string, userID uint) (models.Role, bool, error) {
	member := &models.Member{}
	err := db.Where("board_id = ? AND user_id = ?", boardID, userID).First(member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return member.Role, true, nil
}

// AddMember grants role on the board. A user who is already a member keeps
// their existing role: duplicate-accept races must degrade to a no-op, so
// both the pre-check and the unique-index violation are treated as success.
func AddMember(db *gormw.DB, boardID string, userID uint, role models.Role) error {
	return addMember(db.DB, boardID, userID, role)
}

func addMember(tx *gorm.DB, boardID string, userID uint, role models.Role) error {
	existing := &models.Member{}
	err := tx.Where("board_id = ? AND user_id = ?", boardID, userID).First(existing).Error
	if err == nil {
		logger.Warn().
			Str("board_id", boardID).
			Uint("user_id", userID).
			Str("role", string(existing.Role)).
			Msg("add member skipped, already a member")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	member := &models.Member{BoardID: boardID, UserID: userID, Role: role}
	if err := tx.Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent add; the row exists, which is
			// all the caller asked for.
			logger.Warn().
				Str("board_id", boardID).
				Uint("user_id", userID).
				Msg("add member lost insert race, already a member")
			return nil
		}
		return err
	}
	return nil
}

func RemoveMember(db *gormw.DB, boardID string, userID uint) error {
	member := &models.Member{}
	err := db.Where("board_id = ? AND user_id = ?", boardID, userID).First(member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if member.Role == models.RoleOwner {
		return ErrOwnerImmutable
	}
	return db.Delete(member).Error
}

func ListMembers(db *gormw.DB, boardID string) ([]models.Member, error) {
	var members []models.Member
	err := db.Where("board_id = ?", boardID).Order("created_at ASC, id ASC").Find(&members).Error
	return members, err
}
