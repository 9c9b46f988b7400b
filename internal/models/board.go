package models

import "time"

type Board struct {
	ID          string `gorm:"primarykey"`
	Title       string
	Description string
	OwnerID     uint `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is the durable (user, board, role) relation. The unique index is
// what makes duplicate-join races degrade to a no-op instead of a second row.
type Member struct {
	ID        uint   `gorm:"primarykey"`
	BoardID   string `gorm:"uniqueIndex:idx_member_board_user"`
	UserID    uint   `gorm:"uniqueIndex:idx_member_board_user"`
	Role      Role
	CreatedAt time.Time
}
