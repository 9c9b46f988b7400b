package storage

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

var urlSafeToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestNewInviteToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := NewInviteToken()
		require.NoError(t, err)
		// 32 bytes -> 43 chars of unpadded base64url.
		assert.Len(t, token, 43)
		assert.Regexp(t, urlSafeToken, token)
		assert.False(t, seen[token], "token minted twice")
		seen[token] = true
	}
}

func newTestBoard(t *testing.T, db *gormw.DB, ownerID uint) *models.Board {
	t.Helper()
	board := &models.Board{Title: "Test Board", OwnerID: ownerID}
	require.NoError(t, CreateBoard(db, board))
	return board
}

func TestCreateInviteValidation(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	_, err := CreateInvite(db, board.ID, "a@example.com", models.RoleOwner, 1)
	assert.ErrorIs(t, err, ErrInvalidInviteRole)

	_, err = CreateInvite(db, "no-such-board", "a@example.com", models.RoleEditor, 1)
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestCreateInviteExpiryWindow(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	invite, err := CreateInvite(db, board.ID, "a@example.com", models.RoleEditor, 1)
	require.NoError(t, err)

	assert.Equal(t, models.InvitePending, invite.Status)
	ttl := invite.ExpiresAt.Sub(invite.CreatedAt)
	assert.InDelta(t, InviteTTL.Seconds(), ttl.Seconds(), 60, "expiry should be 7 days out")
}

func TestCreateInviteNormalizesEmail(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	invite, err := CreateInvite(db, board.ID, "  Viewer2@Example.COM ", models.RoleViewer, 1)
	require.NoError(t, err)
	assert.Equal(t, "viewer2@example.com", invite.Email)
}

func TestCreateInviteSupersedesPending(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	first, err := CreateInvite(db, board.ID, "a@example.com", models.RoleEditor, 1)
	require.NoError(t, err)

	// Same address, different case: the earlier pending invite is revoked.
	second, err := CreateInvite(db, board.ID, "A@EXAMPLE.com", models.RoleViewer, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	got, err := GetInviteByToken(db, first.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteRevoked, got.Status)

	got, err = GetInviteByToken(db, second.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InvitePending, got.Status)

	// A pending invite on another board for the same address is untouched.
	elsewhere := newTestBoard(t, db, 1)
	third, err := CreateInvite(db, elsewhere.ID, "b@example.com", models.RoleViewer, 1)
	require.NoError(t, err)
	_, err = CreateInvite(db, board.ID, "b@example.com", models.RoleViewer, 1)
	require.NoError(t, err)
	got, err = GetInviteByToken(db, third.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InvitePending, got.Status)
}

func TestGetInviteByTokenNotFound(t *testing.T) {
	db := setupDB(t)
	_, err := GetInviteByToken(db, "nope")
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

// backdate forces the invite past its deadline.
func backdate(t *testing.T, db *gormw.DB, token string) {
	t.Helper()
	err := db.Model(&models.Invite{}).
		Where("token = ?", token).
		Update("expires_at", time.Now().Add(-time.Hour)).Error
	require.NoError(t, err)
}

func TestGetInviteByTokenLazyExpiry(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	invite, err := CreateInvite(db, board.ID, "a@example.com", models.RoleEditor, 1)
	require.NoError(t, err)
	backdate(t, db, invite.Token)

	// A past-due invite is never reported as pending.
	got, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteExpired, got.Status)

	// And the flip is durable.
	got, err = GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteExpired, got.Status)
}

func TestAcceptInvite(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	invite, err := CreateInvite(db, board.ID, "u2@example.com", models.RoleEditor, 1)
	require.NoError(t, err)

	accepted, err := AcceptInvite(db, invite.Token, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.InviteAccepted, accepted.Status)

	role, ok, err := RoleOf(db, board.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RoleEditor, role)

	// Replay: the token is spent.
	_, err = AcceptInvite(db, invite.Token, 2, time.Now())
	assert.ErrorIs(t, err, ErrInviteAlreadyConsumed)

	members, err := ListMembers(db, board.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestAcceptInviteUnknownToken(t *testing.T) {
	db := setupDB(t)
	_, err := AcceptInvite(db, "never-issued", 2, time.Now())
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestAcceptInviteExpired(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	invite, err := CreateInvite(db, board.ID, "u2@example.com", models.RoleEditor, 1)
	require.NoError(t, err)
	backdate(t, db, invite.Token)

	_, err = AcceptInvite(db, invite.Token, 2, time.Now())
	assert.ErrorIs(t, err, ErrInviteExpired)

	// A retry after expiry keeps reporting expired, never a silent accept.
	_, err = AcceptInvite(db, invite.Token, 2, time.Now())
	assert.ErrorIs(t, err, ErrInviteExpired)

	_, ok, err := RoleOf(db, board.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcceptInviteExistingMemberKeepsRole(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)
	require.NoError(t, AddMember(db, board.ID, 2, models.RoleEditor))

	invite, err := CreateInvite(db, board.ID, "u2@example.com", models.RoleViewer, 1)
	require.NoError(t, err)

	// Accept succeeds and neither duplicates the membership nor
	// downgrades the existing role.
	_, err = AcceptInvite(db, invite.Token, 2, time.Now())
	require.NoError(t, err)

	role, ok, err := RoleOf(db, board.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RoleEditor, role)

	members, err := ListMembers(db, board.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestAcceptInviteConcurrent(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	invite, err := CreateInvite(db, board.ID, "u2@example.com", models.RoleEditor, 1)
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = AcceptInvite(db, invite.Token, 2, time.Now())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrInviteAlreadyConsumed)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent redemption may win")

	// And the user gained exactly one membership row.
	var count int64
	require.NoError(t, db.Model(&models.Member{}).
		Where("board_id = ? AND user_id = ?", board.ID, 2).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRevokeInvite(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	invite, err := CreateInvite(db, board.ID, "a@example.com", models.RoleViewer, 1)
	require.NoError(t, err)

	require.NoError(t, RevokeInvite(db, invite.Token))

	got, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteRevoked, got.Status)

	// Terminal states stay put.
	assert.ErrorIs(t, RevokeInvite(db, invite.Token), ErrInviteAlreadyConsumed)
	assert.ErrorIs(t, RevokeInvite(db, "never-issued"), ErrInviteNotFound)

	// A revoked token cannot be redeemed.
	_, err = AcceptInvite(db, invite.Token, 2, time.Now())
	assert.ErrorIs(t, err, ErrInviteAlreadyConsumed)
}

func TestListInvitesByBoardOrder(t *testing.T) {
	db := setupDB(t)
	board := newTestBoard(t, db, 1)

	first, err := CreateInvite(db, board.ID, "a@example.com", models.RoleViewer, 1)
	require.NoError(t, err)
	second, err := CreateInvite(db, board.ID, "b@example.com", models.RoleEditor, 1)
	require.NoError(t, err)

	invites, err := ListInvitesByBoard(db, board.ID)
	require.NoError(t, err)
	require.Len(t, invites, 2)
	// Newest first.
	assert.Equal(t, second.Token, invites[0].Token)
	assert.Equal(t, first.Token, invites[1].Token)
}
