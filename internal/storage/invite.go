package storage

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

// InviteTTL is how long a token stays redeemable. Fixed policy.
const InviteTTL = 7 * 24 * time.Hour

const (
	inviteTokenBytes  = 32 // 256 bits of entropy, URL-safe encoded
	tokenMintAttempts = 3
)

// NewInviteToken mints an unguessable URL-safe token. Uniqueness is
// enforced by the invites token index, not here.
func NewInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NormalizeEmail canonicalizes an invitee address for storage and the
// one-pending-invite-per-address check.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateInvite persists a fresh pending invite for the board. An earlier
// pending invite for the same address is revoked in the same transaction,
// so the new token is the only live one. Token collisions are reminted a
// bounded number of times; running out means the entropy source is broken
// and the error is surfaced, never swallowed.
func CreateInvite(db *gormw.DB, boardID, email string, role models.Role, invitedBy uint) (*models.Invite, error) {
	if role != models.RoleEditor && role != models.RoleViewer {
		return nil, ErrInvalidInviteRole
	}
	email = NormalizeEmail(email)

	if _, err := GetBoardByID(db, boardID); err != nil {
		return nil, err
	}

	now := time.Now()
	var created *models.Invite
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Invite{}).
			Where("board_id = ? AND email = ? AND status = ?", boardID, email, models.InvitePending).
			Updates(map[string]any{"status": models.InviteRevoked, "updated_at": now}).Error
		if err != nil {
			return err
		}

		for attempt := 1; attempt <= tokenMintAttempts; attempt++ {
			token, err := NewInviteToken()
			if err != nil {
				return err
			}
			invite := &models.Invite{
				Token:     token,
				BoardID:   boardID,
				Email:     email,
				Role:      role,
				Status:    models.InvitePending,
				InvitedBy: invitedBy,
				ExpiresAt: now.Add(InviteTTL),
			}
			err = tx.Create(invite).Error
			if err == nil {
				created = invite
				return nil
			}
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			logger.Warn().Int("attempt", attempt).Msg("invite token collision, reminting")
		}
		return ErrTokenMintExhausted
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetInviteByToken looks an invite up by its token. A pending invite past
// its deadline is flipped to expired on the way out; callers never see a
// stale pending status.
func GetInviteByToken(db *gormw.DB, token string) (*models.Invite, error) {
	invite := &models.Invite{}
	if err := db.Where("token = ?", token).First(invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	if invite.Status == models.InvitePending && invite.Expired(time.Now()) {
		if err := lazyExpire(db.DB, invite); err != nil {
			return nil, err
		}
	}
	return invite, nil
}

func ListInvitesByBoard(db *gormw.DB, boardID string) ([]models.Invite, error) {
	var invites []models.Invite
	err := db.Where("board_id = ?", boardID).Order("created_at DESC, id DESC").Find(&invites).Error
	return invites, err
}

// AcceptInvite redeems a token for the calling user. The pending->accepted
// flip is a single conditional update: out of any number of concurrent
// redemptions exactly one sees RowsAffected == 1, and that winner adds the
// membership in the same transaction. Everyone else gets
// ErrInviteAlreadyConsumed.
func AcceptInvite(db *gormw.DB, token string, userID uint, now time.Time) (*models.Invite, error) {
	invite := &models.Invite{}
	if err := db.Where("token = ?", token).First(invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	if invite.Status == models.InvitePending && invite.Expired(now) {
		if err := lazyExpire(db.DB, invite); err != nil {
			return nil, err
		}
	}

	switch invite.Status {
	case models.InvitePending:
		// fall through to redemption
	case models.InviteExpired:
		return nil, ErrInviteExpired
	default:
		return nil, ErrInviteAlreadyConsumed
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invite{}).
			Where("token = ? AND status = ?", token, models.InvitePending).
			Updates(map[string]any{"status": models.InviteAccepted, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent redemption won the conditional update.
			return ErrInviteAlreadyConsumed
		}
		return addMember(tx, invite.BoardID, userID, invite.Role)
	})
	if err != nil {
		return nil, err
	}
	invite.Status = models.InviteAccepted
	return invite, nil
}

// RevokeInvite withdraws a pending invite. Terminal invites stay as they
// are.
func RevokeInvite(db *gormw.DB, token string) error {
	res := db.Model(&models.Invite{}).
		Where("token = ? AND status = ?", token, models.InvitePending).
		Updates(map[string]any{"status": models.InviteRevoked, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := GetInviteByToken(db, token); err != nil {
			return err
		}
		return ErrInviteAlreadyConsumed
	}
	return nil
}

// lazyExpire flips a past-due pending invite to expired. Conditional on
// the status so a concurrent accept or revoke is never clobbered; on a
// lost race the invite is re-read to report the true status.
func lazyExpire(db *gorm.DB, invite *models.Invite) error {
	res := db.Model(&models.Invite{}).
		Where("token = ? AND status = ?", invite.Token, models.InvitePending).
		Updates(map[string]any{"status": models.InviteExpired, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.Where("token = ?", invite.Token).First(invite).Error
	}
	invite.Status = models.InviteExpired
	return nil
}

// Expiry is evaluated lazily on every read; the sweeper only keeps the
// table tidy so listings do not show long-dead pending rows.
func RegisterInviteExpirySweeper(scheduler gocron.Scheduler, db *gormw.DB) {
	_, _ = scheduler.NewJob(
		gocron.CronJob(
			// 4am Daily
			"0 4 * * *",
			false,
		),
		gocron.NewTask(
			func() {
				logger.Info().Msg("Sweeping overdue pending invites")
				db.Model(&models.Invite{}).
					Where("status = ? AND expires_at < ?", models.InvitePending, time.Now()).
					Updates(map[string]any{"status": models.InviteExpired, "updated_at": time.Now()})
			},
		),
	)
}
