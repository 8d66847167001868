package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rulercosta/neuralwired/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService verifies the author's credentials.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService returns a new AuthService instance.
func NewAuthService(gdb *gorm.DB) *AuthService {
	return &AuthService{db: gdb}
}

// Authenticate checks username and password and returns the matching user.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	name := strings.TrimSpace(username)
	if name == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// EditorFor issues the mutation capability for an authenticated user.
func EditorFor(user *db.User) Editor {
	if user == nil {
		return Editor{}
	}
	return Editor{Username: user.Username}
}
