package services

import (
	"context"
	"errors"

	"github.com/retroshop/apiserver/internal/store"
	"github.com/retroshop/apiserver/types"
	"go.uber.org/zap"
)

// UserRepository defines persistence operations for auth users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (types.Profile, error)
	Create(ctx context.Context, profile types.Profile) (types.Profile, error)
	CountByRole(ctx context.Context, role string) (int, error)
	EnsureTable(ctx context.Context) error
}

// SessionService resolves a token subject into a session with a role.
type SessionService struct {
	users    UserRepository
	profiles ProfileRepository
	log      *zap.Logger
}

func NewSessionService(users UserRepository, profiles ProfileRepository, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{users: users, profiles: profiles, log: log}
}

// Resolve loads the user and attaches the role from their profile. A user
// without a profile row resolves to role "user" with ProfileMissing set,
// so callers can tell the fallback apart from a stored role.
func (s *SessionService) Resolve(ctx context.Context, userID string) (types.Session, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Session{}, err
	}

	session := types.Session{
		UserID: user.ID,
		Email:  user.Email,
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.Session{}, err
		}
		s.log.Warn("no profile for user, defaulting role",
			zap.String("user_id", userID))
		session.Role = types.RoleUser
		session.ProfileMissing = true
		return session, nil
	}

	session.Role = profile.Role
	return session, nil
}

// Register creates an auth user plus a profile with the default role.
func (s *SessionService) Register(ctx context.Context, email, fullName, passwordHash string) (types.User, error) {
	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return types.User{}, err
	}

	if _, err := s.profiles.Create(ctx, types.Profile{
		ID:       user.ID,
		FullName: fullName,
		Role:     types.RoleUser,
	}); err != nil {
		s.log.Error("profile create failed after user create",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return types.User{}, err
	}

	return user, nil
}

// GetByEmail loads a user for credential verification.
func (s *SessionService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.users.GetByEmail(ctx, email)
}
