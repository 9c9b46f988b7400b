package models

import "time"

type Card struct {
	ID        string `gorm:"primarykey"`
	BoardID   string `gorm:"index"`
	Title     string
	Content   string
	Position  int
	CreatedBy uint
	CreatedAt time.Time
	UpdatedAt time.Time
}
