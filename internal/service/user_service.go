package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/model"
	"tempspec/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

// UpdateUserRequest changes the role and/or password; empty fields are left alone
type UpdateUserRequest struct {
	Role     string `json:"role"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type LoginUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user,omitempty"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	LastLoginAt *string   `json:"last_login_at"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// TokenConfig signs access and refresh tokens.
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actor authz.Actor, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, actor authz.Actor) ([]UserResponse, error)
	UpdateUser(ctx context.Context, actor authz.Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor authz.Actor, id string) error
	EnsureAdmin(ctx context.Context, username string) (password string, created bool, err error)
}

type userService struct {
	repo   repository.UserRepository
	tokens TokenConfig
	now    func() time.Time
	log    *zap.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, tokens TokenConfig, logger *zap.Logger) UserService {
	if tokens.AccessTTL <= 0 {
		tokens.AccessTTL = 24 * time.Hour
	}
	if tokens.RefreshTTL <= 0 {
		tokens.RefreshTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{repo: repo, tokens: tokens, now: time.Now, log: logger.With(zap.String("service", "user"))}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	res := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		ts := user.LastLoginAt.Format(time.RFC3339)
		res.LastLoginAt = &ts
	}
	return res
}

func (s *userService) issueToken(user *model.User, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"typ":  typ,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return token.SignedString(s.tokens.Secret)
}

func (s *userService) issuePair(user *model.User) (*TokenResponse, error) {
	access, err := s.issueToken(user, TokenTypeAccess, s.tokens.AccessTTL)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	refresh, err := s.issueToken(user, TokenTypeRefresh, s.tokens.RefreshTTL)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	return &TokenResponse{Token: access, RefreshToken: refresh, User: mapToResponse(user)}, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New("failed to hash password")
	}
	return string(hashed), nil
}

func (s *userService) CreateUser(ctx context.Context, actor authz.Actor, req CreateUserRequest) (*UserResponse, error) {
	if err := authorize(actor, authz.ActionManageUsers); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationError("username is required")
	}
	if !model.ValidRole(req.Role) {
		return nil, validationError("invalid role: must be viewer, editor or admin")
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", ErrConflict)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Username: username, PasswordHash: hashed, Role: req.Role}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user created", zap.String("username", username), zap.String("role", user.Role))
	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.repo.Update(ctx, user); err != nil {
		s.log.Warn("failed to record last login", zap.String("username", user.Username), zap.Error(err))
	}
	return s.issuePair(user)
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	token, err := jwt.Parse(req.RefreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.tokens.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid refresh token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != TokenTypeRefresh {
		return nil, errors.New("invalid refresh token")
	}
	sub, _ := claims["sub"].(string)
	user, err := s.GetUserModel(ctx, sub)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}
	return s.issuePair(user)
}

// GetUserModel loads a user row; used when the role must be re-read from the database.
func (s *userService) GetUserModel(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, validationError("invalid user id %q", id)
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.GetUserModel(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, actor authz.Actor) ([]UserResponse, error) {
	if err := authorize(actor, authz.ActionManageUsers); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor authz.Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	if err := authorize(actor, authz.ActionManageUsers); err != nil {
		return nil, err
	}
	user, err := s.GetUserModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			return nil, validationError("invalid role: must be viewer, editor or admin")
		}
		if user.ID == actor.UserID && req.Role != model.RoleAdmin {
			return nil, fmt.Errorf("%w: administrators cannot demote themselves", ErrForbidden)
		}
		user.Role = req.Role
	}
	if req.Password != "" {
		hashed, err := hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor authz.Actor, id string) error {
	if err := authorize(actor, authz.ActionManageUsers); err != nil {
		return err
	}
	user, err := s.GetUserModel(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return fmt.Errorf("%w: administrators cannot delete themselves", ErrForbidden)
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.log.Info("user deleted", zap.String("username", user.Username))
	return nil
}

// EnsureAdmin creates username as an admin with a random 12 character
// password when it does not exist yet. The password is returned once.
func (s *userService) EnsureAdmin(ctx context.Context, username string) (string, bool, error) {
	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return "", false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, fmt.Errorf("failed to look up %s: %w", username, err)
	}

	password, err := randomPassword(12)
	if err != nil {
		return "", false, err
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return "", false, err
	}
	if err := s.repo.Create(ctx, &model.User{Username: username, PasswordHash: hashed, Role: model.RoleAdmin}); err != nil {
		return "", false, fmt.Errorf("failed to create %s: %w", username, err)
	}
	return password, true, nil
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomPassword(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		buf[i] = passwordAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
