// Package services – AuthService
//
// This file implements AuthService: OAuth code exchange against the supported
// providers, profile verification against the user store, and JWT issuing.
//
// Profile verification follows a three-step resolution so one person keeps a
// single account across providers: match by provider ID first, then by email
// (linking the provider ID onto the matched account), and only then create a
// new user.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	googleOAuth "golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/repo"
)

// Profile is the provider-agnostic identity extracted from an OAuth provider.
type Profile struct {
	Provider  string
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// AuthService handles OAuth login and token issuing.
type AuthService struct {
	DB *gorm.DB

	jwtSecret []byte
	tokenTTL  time.Duration
	appID     string
	providers map[string]*oauth2.Config

	// now is the clock used for token timestamps; defaults to time.Now.
	now func() time.Time
}

// AuthOptions configures NewAuthService.
type AuthOptions struct {
	FacebookClientID     string
	FacebookClientSecret string
	GithubClientID       string
	GithubClientSecret   string
	GoogleClientID       string
	GoogleClientSecret   string
	CallbackURL          string // base URL; "/<provider>" is appended
	JWTSecret            string
	TokenTTL             time.Duration
	AppID                string // AppID recorded on users created via this service
}

// NewAuthService creates a new AuthService.
func NewAuthService(db *gorm.DB, opt AuthOptions) *AuthService {
	ttl := opt.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		DB:        db,
		jwtSecret: []byte(opt.JWTSecret),
		tokenTTL:  ttl,
		appID:     opt.AppID,
		providers: map[string]*oauth2.Config{
			repo.ProviderFacebook: {
				ClientID:     opt.FacebookClientID,
				ClientSecret: opt.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"public_profile", "email"},
				RedirectURL:  opt.CallbackURL + "/" + repo.ProviderFacebook,
			},
			repo.ProviderGithub: {
				ClientID:     opt.GithubClientID,
				ClientSecret: opt.GithubClientSecret,
				Endpoint:     github.Endpoint,
				Scopes:       []string{"user:email"},
				RedirectURL:  opt.CallbackURL + "/" + repo.ProviderGithub,
			},
			repo.ProviderGoogle: {
				ClientID:     opt.GoogleClientID,
				ClientSecret: opt.GoogleClientSecret,
				Endpoint:     googleOAuth.Endpoint,
				Scopes:       []string{"openid", "profile", "email"},
				RedirectURL:  opt.CallbackURL + "/" + repo.ProviderGoogle,
			},
		},
		now: time.Now,
	}
}

// AuthURL returns the provider's authorization URL for the given CSRF state.
func (s *AuthService) AuthURL(provider, state string) (string, error) {
	cfg, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown oauth provider %q", provider)
	}
	return cfg.AuthCodeURL(state), nil
}

// Callback exchanges the authorization code, fetches the provider profile,
// resolves it to a user, and returns the user with a signed access token.
func (s *AuthService) Callback(ctx context.Context, provider, code string) (*domain.User, string, error) {
	cfg, ok := s.providers[provider]
	if !ok {
		return nil, "", fmt.Errorf("unknown oauth provider %q", provider)
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%s token exchange: %w", provider, err)
	}

	profile, err := fetchProfile(ctx, provider, token.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s profile: %w", provider, err)
	}

	user, err := s.VerifyProfile(ctx, *profile)
	if err != nil {
		return nil, "", err
	}

	signed, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, signed, nil
}

// VerifyProfile resolves an OAuth profile to a persisted user: by provider ID
// first, then by email (linking the provider ID), else a new account.
func (s *AuthService) VerifyProfile(ctx context.Context, p Profile) (*domain.User, error) {
	user, err := repo.FindUserByProviderID(ctx, s.DB, p.Provider, p.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	user, err = repo.FindUserByEmail(ctx, s.DB, p.Email)
	if err == nil {
		if err := repo.LinkProviderID(ctx, s.DB, user.ID, p.Provider, p.ID); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	return repo.CreateUser(ctx, s.DB, p.Provider, p.ID, p.Email, p.Name, p.AvatarURL, s.appID)
}

// IssueToken signs an access token for the user.
func (s *AuthService) IssueToken(user *domain.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"app": user.AppID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a JWT access token and returns the user and app IDs.
func (s *AuthService) ValidateToken(tokenString string) (userID, appID string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", ErrUnauthorized
	}
	userID, _ = claims["sub"].(string)
	if userID == "" {
		return "", "", ErrUnauthorized
	}
	appID, _ = claims["app"].(string)
	return userID, appID, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

// --- provider profile fetching ---

func fetchProfile(ctx context.Context, provider, accessToken string) (*Profile, error) {
	switch provider {
	case repo.ProviderFacebook:
		return fetchFacebookProfile(ctx, accessToken)
	case repo.ProviderGithub:
		return fetchGithubProfile(ctx, accessToken)
	case repo.ProviderGoogle:
		return fetchGoogleProfile(ctx, accessToken)
	default:
		return nil, fmt.Errorf("unknown oauth provider %q", provider)
	}
}

func getJSON(ctx context.Context, url, accessToken string, extraHeaders map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	return nil
}

func fetchGoogleProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", accessToken, nil, &info); err != nil {
		return nil, err
	}
	return &Profile{
		Provider:  repo.ProviderGoogle,
		ID:        info.ID,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	}, nil
}

func fetchGithubProfile(ctx context.Context, accessToken string) (*Profile, error) {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, "https://api.github.com/user", accessToken, headers, &info); err != nil {
		return nil, err
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	email := info.Email
	if email == "" {
		// The profile email is often hidden; the emails endpoint still lists it.
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := getJSON(ctx, "https://api.github.com/user/emails", accessToken, headers, &emails); err == nil {
			for _, e := range emails {
				if e.Primary {
					email = e.Email
					break
				}
			}
			if email == "" && len(emails) > 0 {
				email = emails[0].Email
			}
		}
	}

	return &Profile{
		Provider:  repo.ProviderGithub,
		ID:        fmt.Sprintf("%d", info.ID),
		Email:     email,
		Name:      name,
		AvatarURL: info.AvatarURL,
	}, nil
}

func fetchFacebookProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var info struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	url := "https://graph.facebook.com/me?fields=id,name,email,picture"
	if err := getJSON(ctx, url, accessToken, nil, &info); err != nil {
		return nil, err
	}
	return &Profile{
		Provider:  repo.ProviderFacebook,
		ID:        info.ID,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture.Data.URL,
	}, nil
}
