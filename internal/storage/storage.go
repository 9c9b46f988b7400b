// Package storage holds the persistence layer: free functions over a
// wrapped gorm DB, one file per record kind.
package storage

import (
	"errors"

	"github.com/rs/zerolog/log"
)

var (
	logger = log.With().Str("component", "storage").Logger()
)

// Sentinel errors. Handlers match these with errors.Is and map them to
// HTTP statuses; nothing below this package inspects gorm errors.
var (
	ErrBoardNotFound         = errors.New("board not found")
	ErrInviteNotFound        = errors.New("invite not found")
	ErrInviteExpired         = errors.New("invite expired")
	ErrInviteAlreadyConsumed = errors.New("invite already consumed")
	ErrInvalidInviteRole     = errors.New("invite role must be editor or viewer")
	ErrTokenMintExhausted    = errors.New("invite token generation retries exhausted")
	ErrOwnerImmutable        = errors.New("board owner cannot be removed")
)
