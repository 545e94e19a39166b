package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = fmt.Errorf("username already exists: %w", store.ErrConflict)
	ErrSetupComplete      = fmt.Errorf("setup already completed: %w", store.ErrConflict)
	ErrSelfDelete         = fmt.Errorf("cannot delete your own account: %w", store.ErrConflict)
)

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type" example:"Bearer"`
	ExpiresIn   int          `json:"expires_in"` // Access token TTL in seconds
	User        *models.User `json:"user"`
}

// NewUser is the input for registration and admin user creation.
type NewUser struct {
	Username string      `json:"username" example:"nurse.kim"`
	Password string      `json:"password" example:"correct-horse"`
	Role     models.Role `json:"role" example:"CAREGIVER"`
	FullName string      `json:"full_name" example:"Dana Kim"`
	Email    string      `json:"email,omitempty"`
	Phone    string      `json:"phone,omitempty"`
}

// UserUpdate carries the mutable profile fields of a user. A nil Role
// leaves the role unchanged.
type UserUpdate struct {
	FullName string       `json:"full_name"`
	Email    string       `json:"email"`
	Phone    string       `json:"phone"`
	Role     *models.Role `json:"role,omitempty"`
}

// Service provides authentication and user management.
type Service struct {
	store      *UserStore
	tokens     *TokenService
	logger     *zap.Logger
	bcryptCost int
}

// NewService creates an auth Service.
func NewService(store *UserStore, tokens *TokenService, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// SetBcryptCost overrides the password hashing cost. Zero selects
// bcrypt.DefaultCost.
func (s *Service) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}

// Tokens returns the token service for middleware use.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login authenticates a user and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("username", username), zap.Int64("user_id", user.ID))
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.AccessTokenTTL().Seconds()),
		User:        user,
	}, nil
}

// Setup creates the initial admin account. Only works when no users exist.
func (s *Service) Setup(ctx context.Context, nu NewUser) (*models.User, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil, ErrSetupComplete
	}

	nu.Role = models.RoleAdmin
	user, err := s.create(ctx, nu)
	if err != nil {
		return nil, err
	}
	s.logger.Info("initial admin account created", zap.String("username", user.Username))
	return user, nil
}

// NeedsSetup returns true if no users exist (first-run state).
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Register creates an account. Anyone may register a non-admin account;
// only an admin caller may create another admin.
func (s *Service) Register(ctx context.Context, caller *access.Identity, nu NewUser) (*models.User, error) {
	if nu.Role == "" {
		nu.Role = models.RoleFamily
	}
	if nu.Role == models.RoleAdmin && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can create administrator accounts", access.ErrDenied)
	}
	user, err := s.create(ctx, nu)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// Create adds an account on behalf of an administrator.
func (s *Service) Create(ctx context.Context, caller *access.Identity, nu NewUser) (*models.User, error) {
	if err := access.Require(caller, access.ManageUsers); err != nil {
		return nil, err
	}
	return s.Register(ctx, caller, nu)
}

func (s *Service) create(ctx context.Context, nu NewUser) (*models.User, error) {
	nu.Username = strings.TrimSpace(nu.Username)
	if nu.Username == "" {
		return nil, models.Invalid("username is required")
	}
	if !nu.Role.Valid() {
		return nil, models.Invalid("unknown role %q", nu.Role)
	}
	if err := ValidatePassword(nu.Password); err != nil {
		return nil, err
	}

	exists, err := s.store.UsernameExists(ctx, nu.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(nu.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     nu.Username,
		PasswordHash: hash,
		Role:         nu.Role,
		FullName:     nu.FullName,
		Email:        nu.Email,
		Phone:        nu.Phone,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, caller *access.Identity) (*models.User, error) {
	if caller == nil {
		return nil, access.ErrUnauthenticated
	}
	return s.store.Get(ctx, caller.UserID)
}

// List returns all users. Admin only.
func (s *Service) List(ctx context.Context, caller *access.Identity) ([]models.User, error) {
	if err := access.Require(caller, access.ManageUsers); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

// Get returns a user by ID. Admins may read any account, others only
// their own.
func (s *Service) Get(ctx context.Context, caller *access.Identity, id int64) (*models.User, error) {
	if caller == nil {
		return nil, access.ErrUnauthenticated
	}
	if caller.UserID != id {
		if err := access.Require(caller, access.ManageUsers); err != nil {
			return nil, err
		}
	}
	return s.store.Get(ctx, id)
}

// Update changes a user's profile. Admins may update any account including
// its role; other users may update only themselves and never their role.
func (s *Service) Update(ctx context.Context, caller *access.Identity, id int64, upd UserUpdate) (*models.User, error) {
	if caller == nil {
		return nil, access.ErrUnauthenticated
	}
	admin := access.Require(caller, access.ManageUsers) == nil
	if !admin && caller.UserID != id {
		return nil, fmt.Errorf("%w: cannot update another user", access.ErrDenied)
	}

	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Role != nil && *upd.Role != user.Role {
		if !admin {
			return nil, fmt.Errorf("%w: only administrators can change roles", access.ErrDenied)
		}
		if !upd.Role.Valid() {
			return nil, models.Invalid("unknown role %q", *upd.Role)
		}
		user.Role = *upd.Role
	}
	user.FullName = upd.FullName
	user.Email = upd.Email
	user.Phone = upd.Phone

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.Int64("user_id", id), zap.Int64("by", caller.UserID))
	return user, nil
}

// ChangePassword replaces the caller's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, caller *access.Identity, oldPassword, newPassword string) error {
	if caller == nil {
		return access.ErrUnauthenticated
	}
	user, err := s.store.Get(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, caller.UserID, hash)
}

// Delete removes an account. Admin only; an admin cannot delete themself.
func (s *Service) Delete(ctx context.Context, caller *access.Identity, id int64) error {
	if err := access.Require(caller, access.ManageUsers); err != nil {
		return err
	}
	if caller.UserID == id {
		return ErrSelfDelete
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("by", caller.UserID))
	return nil
}
