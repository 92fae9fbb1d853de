// Package services implements the entity operations the conversation
// engine and HTTP API call into. Services validate, compose store calls,
// and return explicit outcome values for partial failures instead of
// swallowing them.
package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// Users resolves phone numbers to accounts, creating them on first contact.
type Users struct {
	store store.Store
	log   zerolog.Logger

	defaultLanguage string
	defaultTimeZone string
	now             func() time.Time
}

func NewUsers(st store.Store, log zerolog.Logger, language, timeZone string) *Users {
	return &Users{
		store:           st,
		log:             log.With().Str("service", "users").Logger(),
		defaultLanguage: language,
		defaultTimeZone: timeZone,
		now:             time.Now,
	}
}

// GetOrCreate returns the user for phone, creating one with default
// locale settings on first contact. The bool reports whether the user is
// new. A create racing another webhook falls back to re-reading.
func (s *Users) GetOrCreate(ctx context.Context, phone string) (*model.User, bool, error) {
	u, err := s.store.Users().GetByPhone(ctx, phone)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, errors.Wrap(err, "get user by phone")
	}
	u, err = s.store.Users().Create(ctx, &model.User{
		PhoneNumber: phone,
		Language:    s.defaultLanguage,
		TimeZone:    s.defaultTimeZone,
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			u, err = s.store.Users().GetByPhone(ctx, phone)
			return u, false, err
		}
		return nil, false, errors.Wrap(err, "create user")
	}
	s.log.Info().Int64("user_id", u.ID).Msg("new user registered")
	return u, true, nil
}

// Touch updates the user's last-active stamp. Best effort.
func (s *Users) Touch(ctx context.Context, userID int64) {
	if err := s.store.Users().TouchLastActive(ctx, userID, s.now()); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("touch last active failed")
	}
}

// Get returns a user by id.
func (s *Users) Get(ctx context.Context, userID int64) (*model.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// Update persists profile changes.
func (s *Users) Update(ctx context.Context, u *model.User) error {
	return s.store.Users().Update(ctx, u)
}

// List returns all users, used by the admin CLI.
func (s *Users) List(ctx context.Context) ([]*model.User, error) {
	return s.store.Users().List(ctx)
}
