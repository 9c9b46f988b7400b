package storage

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"

	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

const (
	userDirTTL  = 5 * time.Minute
	maxUserDirs = 10000
)

// UserDirectory resolves user ids to display records, memoized with a TTL
// cache. Used by invite listings to show who sent each invite without a
// query per row.
type UserDirectory struct {
	db    *gormw.DB
	cache *ristretto.Cache[uint, *models.User]
}

func NewUserDirectory(db *gormw.DB) *UserDirectory {
	c, err := ristretto.NewCache(&ristretto.Config[uint, *models.User]{
		NumCounters: maxUserDirs,
		MaxCost:     maxUserDirs,
		BufferItems: 64,
	})

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user directory cache")
	}

	return &UserDirectory{
		db:    db,
		cache: c,
	}
}

// Lookup returns the user for id, or false if no such user exists. Staleness
// up to the TTL is fine for display purposes.
func (d *UserDirectory) Lookup(id uint) (*models.User, bool) {
	if user, ok := d.cache.Get(id); ok {
		return user, true
	}
	user, err := GetUserByID(d.db, id)
	if err != nil {
		return nil, false
	}
	d.cache.SetWithTTL(id, user, 1, userDirTTL)
	d.cache.Wait()
	return user, true
}
