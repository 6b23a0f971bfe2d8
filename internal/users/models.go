// internal/users/models.go

package users

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// User represents a registered account
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Confirmed    bool      `json:"confirmed" db:"confirmed"`
	Name         *string   `json:"name,omitempty" db:"name"`
	Location     *string   `json:"location,omitempty" db:"location"`
	AboutMe      *string   `json:"aboutMe,omitempty" db:"about_me"`
	MemberSince  time.Time `json:"memberSince" db:"member_since"`
	LastSeen     time.Time `json:"lastSeen" db:"last_seen"`
	AvatarHash   string    `json:"-" db:"avatar_hash"`
}

// Summary is the public shape of a user embedded in friend lists and
// search results. Private fields are only present for the requester's
// own friends.
type Summary struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Name        *string    `json:"name"`
	Location    *string    `json:"location"`
	AboutMe     *string    `json:"aboutMe"`
	Gravatar    string     `json:"gravatar"`
	MemberSince *time.Time `json:"memberSince,omitempty"`
	LastSeen    *time.Time `json:"lastSeen,omitempty"`
}

// GravatarHash computes the md5 hash gravatar keys avatars by
func GravatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

// GravatarURL builds the avatar URL for a stored hash
func GravatarURL(hash string) string {
	return fmt.Sprintf("https://secure.gravatar.com/avatar/%s?s=100&d=identicon&r=g", hash)
}

// ToSummary converts a user row to its public shape. When private is
// true the member-since and last-seen timestamps are included.
func (u *User) ToSummary(private bool) Summary {
	s := Summary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Location: u.Location,
		AboutMe:  u.AboutMe,
		Gravatar: GravatarURL(u.AvatarHash),
	}

	if private {
		memberSince := u.MemberSince
		lastSeen := u.LastSeen
		s.MemberSince = &memberSince
		s.LastSeen = &lastSeen
	}

	return s
}

// Request DTOs

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=64"`
	Username string `json:"username" validate:"required,alphanum,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"omitempty,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=64"`
	Location *string `json:"location" validate:"omitempty,max=64"`
	AboutMe  *string `json:"aboutMe" validate:"omitempty,max=2000"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

type ResendConfirmationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// TokenPair is returned on login
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
