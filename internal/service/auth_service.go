package service

import (
	"context"
	"errors"
	"strings"

	"github.com/wallet-insights/internal/auth"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/storage"
)

// UserRepository interface for account persistence
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// PreferencesUpdater stores investment preferences
type PreferencesUpdater interface {
	UpdatePreferences(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.InvestmentPreferences, error)
}

// RegisterInput carries a sign-up request
type RegisterInput struct {
	Email       string
	Password    string
	Preferences *models.PreferencesUpdate
}

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	User         models.PublicUser `json:"user"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
}

// TokenValidation reports whether a token is usable
type TokenValidation struct {
	Valid bool               `json:"valid"`
	User  *models.PublicUser `json:"user,omitempty"`
	Error string             `json:"error,omitempty"`
}

// AuthService handles accounts and sessions
type AuthService struct {
	users       UserRepository
	preferences PreferencesUpdater
	issuer      *auth.Issuer
	hasher      *auth.PasswordHasher
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepository, preferences PreferencesUpdater, issuer *auth.Issuer, hasher *auth.PasswordHasher) *AuthService {
	return &AuthService{
		users:       users,
		preferences: preferences,
		issuer:      issuer,
		hasher:      hasher,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and signs the user in. Preferences supplied at
// sign-up are stored afterwards; failing to store them does not fail the
// registration.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if len(input.Password) < auth.MinPasswordLength {
		return nil, apperrors.NewValidationError("Password must be at least 8 characters")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &models.User{
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.NewConflictError("User already exists")
		}
		return nil, apperrors.NewDatabaseError("create user", err)
	}

	logger := logging.FromContext(ctx).WithField("userId", user.ID)
	logger.Info("User registered")

	if input.Preferences != nil && !input.Preferences.IsEmpty() {
		if _, err := s.preferences.UpdatePreferences(ctx, user.ID, input.Preferences); err != nil {
			logger.WithError(err).Warn("Failed to store preferences at registration")
		}
	}

	return s.issue(user)
}

// Login verifies credentials and returns a new token pair
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewUnauthorizedError("Invalid credentials")
		}
		return nil, apperrors.NewDatabaseError("get user", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorizedError("Invalid credentials")
	}

	return s.issue(user)
}

// ValidateToken reports whether an access token is valid and whose it is
func (s *AuthService) ValidateToken(ctx context.Context, token string) TokenValidation {
	user, err := s.userForToken(ctx, token, auth.TokenAccess)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return TokenValidation{Valid: false, Error: "Token expired"}
		}
		return TokenValidation{Valid: false, Error: "Invalid token"}
	}
	public := user.Public()
	return TokenValidation{Valid: true, User: &public}
}

// Authenticate resolves an access token to its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.PublicUser, error) {
	user, err := s.userForToken(ctx, token, auth.TokenAccess)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("Invalid or expired token")
	}
	public := user.Public()
	return &public, nil
}

// Refresh exchanges a refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	user, err := s.userForToken(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorizedError("Token expired")
		}
		return nil, apperrors.NewUnauthorizedError("Invalid token")
	}
	return s.issue(user)
}

// UpdatePassword replaces the password after checking the current one
func (s *AuthService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < auth.MinPasswordLength {
		return apperrors.NewValidationError("New password must be at least 8 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		return apperrors.NewDatabaseError("get user", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorizedError("Current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		return apperrors.NewDatabaseError("update password", err)
	}
	return nil
}

// DeleteAccount removes the user and everything they own
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		return apperrors.NewDatabaseError("delete user", err)
	}
	logging.FromContext(ctx).WithField("userId", userID).Info("Account deleted")
	return nil
}

func (s *AuthService) userForToken(ctx context.Context, token string, typ auth.TokenType) (*models.User, error) {
	claims, err := s.issuer.Validate(token, typ)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, claims.Subject)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.issuer.GeneratePair(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue tokens", err)
	}
	return &AuthResult{
		User:         user.Public(),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}
