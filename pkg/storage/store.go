package storage

import (
	"errors"

	"github.com/cuemby/timeclock/pkg/types"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("not found")

// Store defines the interface for local client state storage
type Store interface {
	// Credentials
	SaveToken(token string) error
	GetToken() (string, error)
	DeleteToken() error

	// Cached profile of the logged-in user
	SaveProfile(user *types.User) error
	GetProfile() (*types.User, error)
	DeleteProfile() error

	// Attempt journal
	RecordAttempt(attempt *types.Attempt) error
	ListAttempts(userID string, limit int) ([]*types.Attempt, error)
	PruneAttempts(keep int) (int, error)

	// Utility
	Close() error
}
