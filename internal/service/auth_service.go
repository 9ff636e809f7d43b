package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-auth/internal/auth"
	"github.com/spec-kit/backoffice-auth/internal/domain"
	"github.com/spec-kit/backoffice-auth/internal/events"
	"github.com/spec-kit/backoffice-auth/internal/repository"
)

// ErrInvalidCredentials covers unknown emails, wrong passwords and inactive accounts alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	issuedViaLogin   = "login"
	issuedViaRefresh = "refresh"
)

// IssuedToken bundles a signed token with its claims.
type IssuedToken struct {
	Token  string
	Claims auth.Claims
}

// AuthService coordinates login and token refresh flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
	}
}

// Login authenticates a user by email and password and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, IssuedToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, IssuedToken{}, ErrInvalidCredentials
		}
		return nil, IssuedToken{}, err
	}
	if !user.Active {
		return nil, IssuedToken{}, ErrInvalidCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, IssuedToken{}, ErrInvalidCredentials
	}

	issued, err := s.issue(ctx, user, issuedViaLogin)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return user, issued, nil
}

// Refresh issues a new signed token for an existing, active user.
func (s *AuthService) Refresh(ctx context.Context, userID string) (IssuedToken, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return IssuedToken{}, ErrInvalidCredentials
		}
		return IssuedToken{}, err
	}
	if !user.Active {
		return IssuedToken{}, ErrInvalidCredentials
	}
	return s.issue(ctx, user, issuedViaRefresh)
}

// ChangePassword verifies the current password before storing the new hash.
// Tokens already issued stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User, via string) (IssuedToken, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email, user.FirstName, user.LastName)
	if err != nil {
		return IssuedToken{}, err
	}

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTokenIssued,
			Subject:   user.ID,
			Timestamp: claims.IssuedAt,
			Payload:   events.TokenIssuedPayload{ExpiresAt: claims.ExpiresAt, Via: via},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish token issued", zap.Error(err))
		}
	}
	return IssuedToken{Token: token, Claims: claims}, nil
}
