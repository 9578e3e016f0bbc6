package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/repository"
)

// Password and username bounds.
const (
	MinPasswordLen = 6
	MinUsernameLen = 3
	MaxUsernameLen = 20
)

// UserService handles user accounts: registration, authentication and
// profile management.
type UserService struct {
	userRepo   repository.UserRepository
	bcryptCost int
	logger     zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, bcryptCost int, logger zerolog.Logger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput contains the data needed to register a new user.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new user account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	// Check if email already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	// Check if username already exists
	exists, err = s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check username existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.ErrUsernameTaken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.Email, input.Username, string(passwordHash), input.FirstName, input.LastName)

	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent registration can slip past the existence checks;
		// the unique index is the authority.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrEmailTaken
		}
		s.logger.Error().Err(err).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return user, nil
}

// Authenticate verifies credentials by email and returns the user.
// The same error is returned for an unknown email and a wrong password so
// responses don't reveal which accounts exist.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Debug().Msg("unknown email during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Int64("user_id", user.ID).Msg("invalid password during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		// Soft-deleted accounts look like bad credentials; deactivated ones
		// get the explicit inactive error.
		if user.DeletedAt != nil {
			s.logger.Debug().Int64("user_id", user.ID).Msg("deleted user attempted authentication")
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Debug().Int64("user_id", user.ID).Msg("inactive user attempted authentication")
		return nil, domain.ErrUserInactive
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Login still succeeds if the timestamp update fails.
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to update last login time")
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user authenticated")

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// ResolveIdentity looks up the user behind a verified token subject.
// The password hash is stripped before the record leaves the service.
func (s *UserService) ResolveIdentity(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfileInput contains the profile fields a user may change.
// Nil fields are left untouched.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// UpdateProfile updates the caller's profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.AvatarURL != nil {
		user.AvatarURL = *input.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to update profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", userID).Msg("profile updated")

	user.PasswordHash = ""
	return user, nil
}

// ChangePassword verifies the current password and replaces it.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < MinPasswordLen {
		return domain.NewValidationError("newPassword", "password must be at least 6 characters")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}
	user.PasswordHash = string(hash)

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to update password")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", userID).Msg("password changed")

	return nil
}

// Deactivate marks an account inactive. The user keeps their data but can
// no longer authenticate; in-flight tokens stop working on their next
// request because the auth chain re-checks status.
func (s *UserService) Deactivate(ctx context.Context, userID int64) error {
	return s.setStatus(ctx, userID, domain.StatusInactive)
}

// Activate re-enables a deactivated account.
func (s *UserService) Activate(ctx context.Context, userID int64) error {
	return s.setStatus(ctx, userID, domain.StatusActive)
}

func (s *UserService) setStatus(ctx context.Context, userID int64, status string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user.Status = status
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to update user status")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", userID).Str("status", status).Msg("user status changed")

	return nil
}

// SoftDelete marks an account as deleted. The record is kept so existing
// book ownership references stay intact.
func (s *UserService) SoftDelete(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := time.Now().UTC()
	user.DeletedAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to soft delete user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", userID).Msg("user soft deleted")

	return nil
}

// SetRoles replaces a user's role set.
func (s *UserService) SetRoles(ctx context.Context, userID int64, roles []string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user.Roles = roles
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to update roles")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", userID).Strs("roles", roles).Msg("user roles changed")

	return nil
}

// validateRegisterInput checks registration fields, returning field-tagged
// validation errors.
func validateRegisterInput(input RegisterInput) error {
	if input.Email == "" {
		return domain.NewValidationError("email", "email is required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return domain.NewValidationError("email", "invalid email format")
	}
	if len(input.Username) < MinUsernameLen || len(input.Username) > MaxUsernameLen {
		return domain.NewValidationError("username", "username must be between 3 and 20 characters")
	}
	if len(input.Password) < MinPasswordLen {
		return domain.NewValidationError("password", "password must be at least 6 characters")
	}
	if input.FirstName == "" {
		return domain.NewValidationError("firstName", "first name is required")
	}
	if input.LastName == "" {
		return domain.NewValidationError("lastName", "last name is required")
	}
	return nil
}
