// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/wardenlog/wardenlog/internal/models"
)

// UserStore resolves login accounts by username.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
}

// ErrUserNotFound is returned by UserStore implementations when no account
// matches the requested username.
var ErrUserNotFound = fmt.Errorf("user not found")

// InMemoryUserStore is a UserStore backed by a map. Accounts are loaded at
// startup from configuration; there is no runtime user-management API.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// NewInMemoryUserStore builds a store seeded with users.
func NewInMemoryUserStore(users ...*models.User) *InMemoryUserStore {
	s := &InMemoryUserStore{users: make(map[string]*models.User, len(users))}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

// GetUser implements UserStore.
func (s *InMemoryUserStore) GetUser(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// HashPassword bcrypt-hashes password for storage in models.User.CredentialHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// dummyHash lets VerifyCredentials run bcrypt's comparison even when the
// user does not exist, so an unknown username takes the same time as a
// known one with a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// VerifyCredentials reports whether password matches user's stored hash.
// user may be nil (unknown username); the comparison still runs against a
// fixed dummy hash so the two cases take comparable time.
func VerifyCredentials(user *models.User, password string) bool {
	hash := dummyHash
	if user != nil {
		hash = []byte(user.CredentialHash)
	}
	match := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
	return user != nil && !user.Disabled && match
}
