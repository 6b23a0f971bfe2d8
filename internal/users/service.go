// internal/users/service.go
// Account business logic: registration, sessions, confirmation,
// password lifecycle and account deletion.

package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/ojpierre/mutuals-backend/internal/common/utils"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrAlreadyConfirmed      = errors.New("account already confirmed")
)

// Config holds service configuration
type Config struct {
	JWTSecret          string
	AppURL             string
	BCryptCost         int
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	ConfirmTokenExpiry time.Duration
	ResetTokenExpiry   time.Duration
}

type Service interface {
	// Registration and sessions
	Register(ctx context.Context, req *RegisterRequest) (*User, error)
	Login(ctx context.Context, req *LoginRequest) (*User, *TokenPair, error)
	Logout(ctx context.Context, token string) error
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)

	// Email confirmation
	ConfirmAccount(ctx context.Context, token string) error
	ResendConfirmation(ctx context.Context, email string) error

	// Password lifecycle
	ChangePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) error

	// Profile
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetProfile(ctx context.Context, username string, private bool) (*Summary, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*User, error)
	TouchLastSeen(ctx context.Context, userID int64) error

	// Account removal and search
	DeleteAccount(ctx context.Context, userID int64, req *DeleteAccountRequest) error
	SearchUsers(ctx context.Context, query string, limit int) ([]Summary, error)
}

type service struct {
	repo   Repository
	redis  *redis.Client
	email  EmailProvider
	config *Config
}

func NewService(repo Repository, redisClient *redis.Client, email EmailProvider, config *Config) Service {
	return &service{
		repo:   repo,
		redis:  redisClient,
		email:  email,
		config: config,
	}
}

func (s *service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.ToLower(strings.TrimSpace(req.Username))

	if taken, err := s.repo.IsEmailTaken(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return nil, ErrEmailAlreadyExists
	}

	if taken, err := s.repo.IsUsernameTaken(ctx, username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return nil, ErrUsernameAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hashed),
		AvatarHash:   GravatarHash(email),
	}
	if req.Name != "" {
		name := req.Name
		user.Name = &name
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Delivery failure does not fail registration; resend covers it
	if err := s.sendConfirmation(ctx, user); err != nil {
		log.Printf("failed to send confirmation email to %s: %v", user.Email, err)
	}

	return user, nil
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailedAttempt(ctx, email)
		return nil, nil, ErrInvalidCredentials
	}
	s.clearFailedAttempts(ctx, email)

	if err := s.repo.TouchLastSeen(ctx, user.ID, time.Now().UTC()); err != nil {
		log.Printf("failed to update last seen for user %d: %v", user.ID, err)
	}

	refreshExpiry := s.config.AccessTokenExpiry
	if req.Remember {
		refreshExpiry = s.config.RefreshTokenExpiry
	}

	pair, err := s.issueTokenPair(user, refreshExpiry)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Logout blacklists the access token until its natural expiry
func (s *service) Logout(ctx context.Context, token string) error {
	claims, err := utils.ValidateJWT(token, s.config.JWTSecret)
	if err != nil {
		return ErrInvalidToken
	}

	if s.redis == nil {
		return nil
	}

	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 {
		return nil
	}

	return s.redis.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.ValidateToken(ctx, refreshToken)
	if err != nil || claims.Type != utils.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return s.issueTokenPair(user, s.config.RefreshTokenExpiry)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := utils.ValidateJWT(token, s.config.JWTSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if s.redis != nil {
		if exists, err := s.redis.Exists(ctx, blacklistKey(token)).Result(); err == nil && exists > 0 {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}

func (s *service) ConfirmAccount(ctx context.Context, token string) error {
	claims, err := utils.ValidateJWT(token, s.config.JWTSecret)
	if err != nil || claims.Type != utils.TokenTypeConfirm {
		return ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return ErrInvalidToken
	}

	if user.Confirmed {
		return ErrAlreadyConfirmed
	}

	return s.repo.Confirm(ctx, user.ID)
}

func (s *service) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Do not reveal whether the address is registered
		return nil
	}

	if user.Confirmed {
		return ErrAlreadyConfirmed
	}

	return s.sendConfirmation(ctx, user)
}

func (s *service) ChangePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BCryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, userID, string(hashed))
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Same response either way to prevent address enumeration
		return nil
	}

	token, err := s.generateToken(user, utils.TokenTypeReset, s.config.ResetTokenExpiry)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.AppURL, token)
	return s.email.SendEmail(ctx, PasswordResetEmail(user.Email, user.Username, resetURL))
}

// ResetPassword completes a reset. The token is single use; a redis
// marker burns it on first success.
func (s *service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	claims, err := utils.ValidateJWT(req.Token, s.config.JWTSecret)
	if err != nil || claims.Type != utils.TokenTypeReset {
		return ErrInvalidToken
	}

	if s.redis != nil {
		if used, err := s.redis.Exists(ctx, usedResetKey(req.Token)).Result(); err == nil && used > 0 {
			return ErrInvalidToken
		}
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return ErrInvalidToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if s.redis != nil {
		ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
		if ttl > 0 {
			s.redis.Set(ctx, usedResetKey(req.Token), "1", ttl)
		}
	}

	return nil
}

func (s *service) GetByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *service) GetProfile(ctx context.Context, username string, private bool) (*Summary, error) {
	user, err := s.repo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, err
	}

	summary := user.ToSummary(private)
	return &summary, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = req.Name
	}
	if req.Location != nil {
		user.Location = req.Location
	}
	if req.AboutMe != nil {
		user.AboutMe = req.AboutMe
	}
	user.LastSeen = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

func (s *service) TouchLastSeen(ctx context.Context, userID int64) error {
	return s.repo.TouchLastSeen(ctx, userID, time.Now().UTC())
}

// DeleteAccount verifies the password and removes the account with
// its graph edges and orphaned conversations.
func (s *service) DeleteAccount(ctx context.Context, userID int64, req *DeleteAccountRequest) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return ErrInvalidCredentials
	}

	return s.repo.DeleteCascade(ctx, userID)
}

func (s *service) SearchUsers(ctx context.Context, query string, limit int) ([]Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Summary{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	return s.repo.Search(ctx, query, limit)
}

// Helpers

func (s *service) sendConfirmation(ctx context.Context, user *User) error {
	token, err := s.generateToken(user, utils.TokenTypeConfirm, s.config.ConfirmTokenExpiry)
	if err != nil {
		return fmt.Errorf("failed to generate confirm token: %w", err)
	}

	confirmURL := fmt.Sprintf("%s/confirm?token=%s", s.config.AppURL, token)
	return s.email.SendEmail(ctx, ConfirmationEmail(user.Email, user.Username, confirmURL))
}

func (s *service) issueTokenPair(user *User, refreshExpiry time.Duration) (*TokenPair, error) {
	access, err := s.generateToken(user, utils.TokenTypeAccess, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.generateToken(user, utils.TokenTypeRefresh, refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) generateToken(user *User, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &utils.JWTClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Type:      tokenType,
		ExpiresAt: now.Add(expiry).Unix(),
		IssuedAt:  now.Unix(),
		NotBefore: now.Unix(),
		Issuer:    "mutuals-backend",
		Subject:   fmt.Sprintf("%d", user.ID),
	}

	return utils.GenerateJWT(claims, s.config.JWTSecret)
}

func (s *service) recordFailedAttempt(ctx context.Context, identifier string) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf("failed:%s", identifier)
	s.redis.Incr(ctx, key)
	s.redis.Expire(ctx, key, 15*time.Minute)
}

func (s *service) clearFailedAttempts(ctx context.Context, identifier string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, fmt.Sprintf("failed:%s", identifier))
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func usedResetKey(token string) string {
	return fmt.Sprintf("reset_used:%s", token)
}
