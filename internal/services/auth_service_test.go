package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediawise/factcheck-backend/internal/repo"
)

func newAuthSvc(t *testing.T, dbName string) *AuthService {
	t.Helper()
	db := newSvcDB(t, dbName)
	return NewAuthService(db, AuthOptions{
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
		CallbackURL: "http://localhost/callback",
		AppID:       "TEST_APP",
	})
}

func TestVerifyProfile_CreatesThenResolvesByProvider(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_create")
	ctx := context.Background()

	p := Profile{Provider: repo.ProviderGithub, ID: "gh-1", Email: "a@example.org", Name: "Alice"}
	created, err := svc.VerifyProfile(ctx, p)
	if err != nil {
		t.Fatalf("VerifyProfile: %v", err)
	}
	if created.AppID != "TEST_APP" || created.Name != "Alice" {
		t.Fatalf("created user mismatch: %+v", created)
	}

	again, err := svc.VerifyProfile(ctx, p)
	if err != nil || again.ID != created.ID {
		t.Fatalf("second login should resolve the same user: %+v, %v", again, err)
	}
}

func TestVerifyProfile_LinksSecondProviderByEmail(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_link")
	ctx := context.Background()

	first, err := svc.VerifyProfile(ctx, Profile{
		Provider: repo.ProviderGithub, ID: "gh-1", Email: "a@example.org", Name: "Alice",
	})
	if err != nil {
		t.Fatalf("first VerifyProfile: %v", err)
	}

	// Same email through Google: same account, provider linked.
	linked, err := svc.VerifyProfile(ctx, Profile{
		Provider: repo.ProviderGoogle, ID: "goog-1", Email: "a@example.org", Name: "Alice G",
	})
	if err != nil {
		t.Fatalf("second VerifyProfile: %v", err)
	}
	if linked.ID != first.ID {
		t.Fatalf("expected same account, got %q vs %q", linked.ID, first.ID)
	}

	byGoogle, err := repo.FindUserByProviderID(ctx, svc.DB, repo.ProviderGoogle, "goog-1")
	if err != nil || byGoogle.ID != first.ID {
		t.Fatalf("google ID not linked: %+v, %v", byGoogle, err)
	}
}

func TestVerifyProfile_NoEmailAlwaysCreates(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_noemail")
	ctx := context.Background()

	a, err := svc.VerifyProfile(ctx, Profile{Provider: repo.ProviderFacebook, ID: "fb-1"})
	if err != nil {
		t.Fatalf("VerifyProfile: %v", err)
	}
	b, err := svc.VerifyProfile(ctx, Profile{Provider: repo.ProviderFacebook, ID: "fb-2"})
	if err != nil {
		t.Fatalf("VerifyProfile: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("distinct provider IDs without email must be distinct accounts")
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_token")
	ctx := context.Background()

	user, err := svc.VerifyProfile(ctx, Profile{Provider: repo.ProviderGithub, ID: "gh-1", Email: "a@example.org"})
	if err != nil {
		t.Fatalf("VerifyProfile: %v", err)
	}

	signed, err := svc.IssueToken(user)
	if err != nil || signed == "" {
		t.Fatalf("IssueToken: %q, %v", signed, err)
	}

	userID, appID, err := svc.ValidateToken(signed)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != user.ID || appID != "TEST_APP" {
		t.Fatalf("claims mismatch: user %q app %q", userID, appID)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_garbage")
	if _, _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Fatalf("expected error for garbage token")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_expired")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	user, err := svc.VerifyProfile(context.Background(), Profile{Provider: repo.ProviderGithub, ID: "gh-1"})
	if err != nil {
		t.Fatalf("VerifyProfile: %v", err)
	}
	signed, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, _, err := svc.ValidateToken(signed); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestAuthURL(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_url")
	u, err := svc.AuthURL(repo.ProviderGithub, "state123")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	if u == "" {
		t.Fatalf("empty auth url")
	}
	if _, err := svc.AuthURL("twitter", "s"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestGetUser_Missing(t *testing.T) {
	svc := newAuthSvc(t, "authsvc_getuser")
	if _, err := svc.GetUser(context.Background(), "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
