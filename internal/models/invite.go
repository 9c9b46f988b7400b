package models

import "time"

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteExpired  InviteStatus = "expired"
	InviteRevoked  InviteStatus = "revoked"
)

// Invite is a single-use credential granting Role on BoardID to whoever
// redeems Token. pending is the only non-terminal status.
type Invite struct {
	ID        uint   `gorm:"primarykey"`
	Token     string `gorm:"uniqueIndex"`
	BoardID   string `gorm:"index:idx_invite_board_email"`
	Email     string `gorm:"index:idx_invite_board_email"` // stored lowercase
	Role      Role
	Status    InviteStatus
	InvitedBy uint
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
