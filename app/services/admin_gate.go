package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/pkg/auth"
)

// Session keys written by a successful login.
const (
	KeyAdminLoggedIn = "admin_logged_in"
	KeyAdminID       = "admin_id"
	KeyAdminUsername = "admin_username"
)

// SessionState is the per-client key/value state the gate reads and writes.
// *session.Session satisfies it.
type SessionState interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Delete(key string)
	// Regenerate moves the state to a new identifier.
	Regenerate()
}

// AdminGate authenticates admins and answers whether a session is one.
type AdminGate struct {
	admins store.Admins

	dummyOnce sync.Once
	dummyHash string
}

func NewAdminGate(admins store.Admins) *AdminGate {
	return &AdminGate{admins: admins}
}

// dummy is compared against when the username is unknown so both failure
// paths cost one bcrypt comparison.
func (g *AdminGate) dummy() string {
	g.dummyOnce.Do(func() {
		g.dummyHash, _ = auth.HashPassword("bookstore-dummy-password")
	})
	return g.dummyHash
}

// Login checks the credential and marks sess as admin.
func (g *AdminGate) Login(ctx context.Context, sess SessionState, username, password string) (models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.AdminUser{}, &ValidationError{Fields: map[string]string{
			"username": "username and password are required",
		}}
	}

	admin, err := g.admins.FindAdmin(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		auth.CheckPassword(g.dummy(), password)
		return models.AdminUser{}, ErrInvalidCredentials
	case err != nil:
		return models.AdminUser{}, err
	}

	if !auth.CheckPassword(admin.PasswordHash, password) {
		return models.AdminUser{}, ErrInvalidCredentials
	}

	// A pre-login session id may be known to someone else.
	sess.Regenerate()
	sess.Set(KeyAdminLoggedIn, true)
	sess.Set(KeyAdminID, admin.ID)
	sess.Set(KeyAdminUsername, admin.Username)
	return admin, nil
}

// Logout clears the admin keys. It is safe on a non-admin session.
func (g *AdminGate) Logout(sess SessionState) {
	sess.Delete(KeyAdminLoggedIn)
	sess.Delete(KeyAdminID)
	sess.Delete(KeyAdminUsername)
}

// IsAdmin is true only when the login flag holds the boolean true.
func (g *AdminGate) IsAdmin(sess SessionState) bool {
	if sess == nil {
		return false
	}
	v, ok := sess.Get(KeyAdminLoggedIn)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Username of the logged-in admin, or "".
func (g *AdminGate) Username(sess SessionState) string {
	if !g.IsAdmin(sess) {
		return ""
	}
	v, _ := sess.Get(KeyAdminUsername)
	name, _ := v.(string)
	return name
}

// EnsureAdmin creates or resets an admin account with the given password.
func (g *AdminGate) EnsureAdmin(ctx context.Context, username, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return g.admins.SaveAdmin(ctx, &models.AdminUser{Username: username, PasswordHash: hash})
}
