// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Users are keyed by UUID but looked up primarily by OAuth provider identity.
// The provider column names mirror the domain struct fields (facebook_id,
// github_id, google_id); ProviderColumn maps a provider slug to its column.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
)

// Provider slugs accepted by the auth endpoints.
const (
	ProviderFacebook = "facebook"
	ProviderGithub   = "github"
	ProviderGoogle   = "google"
)

// ProviderColumn maps a provider slug to the users column storing that
// provider's account ID. Unknown providers yield an error so a bad slug can
// never become raw SQL.
func ProviderColumn(provider string) (string, error) {
	switch provider {
	case ProviderFacebook:
		return "facebook_id", nil
	case ProviderGithub:
		return "github_id", nil
	case ProviderGoogle:
		return "google_id", nil
	default:
		return "", fmt.Errorf("unknown oauth provider %q", provider)
	}
}

// FindUserByProviderID fetches the user whose provider column equals
// providerID, or ErrNotFound.
func FindUserByProviderID(ctx context.Context, db *gorm.DB, provider, providerID string) (*domain.User, error) {
	col, err := ProviderColumn(provider)
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := db.WithContext(ctx).
		Where(col+" = ?", providerID).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail fetches the user with the given email, or ErrNotFound.
// Blank emails never match (some providers do not expose one).
func FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	var u domain.User
	if err := db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// LinkProviderID stores providerID on an existing user so future logins via
// that provider resolve directly. Returns ErrNotFound if the user is missing.
func LinkProviderID(ctx context.Context, db *gorm.DB, userID, provider, providerID string) error {
	col, err := ProviderColumn(provider)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update(col, providerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateUser inserts a new user from an OAuth profile. The provider identity
// is stored in the matching column and the ID is a fresh UUID.
func CreateUser(ctx context.Context, db *gorm.DB, provider, providerID, email, name, avatarURL, appID string) (*domain.User, error) {
	col, err := ProviderColumn(provider)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
		AppID:     appID,
		CreatedAt: time.Now().UTC(),
	}
	switch col {
	case "facebook_id":
		u.FacebookID = providerID
	case "github_id":
		u.GithubID = providerID
	case "google_id":
		u.GoogleID = providerID
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by ID, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
