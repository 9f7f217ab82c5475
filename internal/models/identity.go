package models

import (
	"fmt"
	"strings"
	"time"
)

// RoleAdmin is the role allowed to submit reviews.
const RoleAdmin = "ADMIN"

// Identity is the authenticated user returned by POST /login.
type Identity struct {
	UserID         string    `json:"user_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	FavoriteGenres []Genre   `json:"favorite_genres"`
	UpdatedAt      time.Time `json:"-"`
}

// Validate checks the fields the auth store relies on.
func (i *Identity) Validate() error {
	if i.UserID == "" {
		return fmt.Errorf("identity has no user id")
	}
	if i.Email == "" {
		return fmt.Errorf("identity has no email")
	}
	return nil
}

// DisplayName returns "First Last", falling back to the email.
func (i *Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

// IsAdmin reports whether the identity may submit admin reviews.
func (i *Identity) IsAdmin() bool {
	return strings.EqualFold(i.Role, RoleAdmin)
}
