package store

import (
	"context"
	"errors"

	"github.com/nestorcolt/blockcatcher/internal/models"
)

var ErrNotFound = errors.New("user not found")

// ProfileStore is read-mostly from the catcher's point of view: the
// session controller only loads profiles. Credential writes come from
// the authenticator and the last-iteration stamp from the driver loop.
type ProfileStore interface {
	GetUser(ctx context.Context, userID string) (models.UserProfile, error)
	SetUserCredentials(ctx context.Context, userID, accessToken, serviceArea string) error
	TouchUser(ctx context.Context, userID string, timestamp int64) error
}
