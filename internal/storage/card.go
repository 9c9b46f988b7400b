package storage

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

func CreateCard(db *gormw.DB, card *models.Card) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	return db.Create(card).Error
}

func ListCardsByBoard(db *gormw.DB, boardID string) ([]models.Card, error) {
	var cards []models.Card
	err := db.Where("board_id = ?", boardID).Order("position ASC, created_at ASC").Find(&cards).Error
	return cards, err
}

func GetCardByID(db *gormw.DB, boardID, id string) (*models.Card, error) {
	card := &models.Card{}
	err := db.Where("board_id = ? AND id = ?", boardID, id).First(card).Error
	if err != nil {
		return nil, err
	}
	return card, nil
}

func UpdateCard(db *gormw.DB, card *models.Card) error {
	return db.Save(card).Error
}

func DeleteCard(db *gormw.DB, boardID, id string) error {
	res := db.Where("board_id = ? AND id = ?", boardID, id).Delete(&models.Card{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
