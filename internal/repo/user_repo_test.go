package repo

import (
	"context"
	"errors"
	"testing"
)

func TestProviderColumn(t *testing.T) {
	cases := map[string]string{
		ProviderFacebook: "facebook_id",
		ProviderGithub:   "github_id",
		ProviderGoogle:   "google_id",
	}
	for provider, want := range cases {
		col, err := ProviderColumn(provider)
		if err != nil || col != want {
			t.Fatalf("ProviderColumn(%q) = %q, %v; want %q", provider, col, err, want)
		}
	}
	if _, err := ProviderColumn("twitter"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestUserLookup_ProviderThenEmailThenCreate(t *testing.T) {
	db := newTestDB(t, "users_flow")
	ctx := context.Background()

	// No user yet.
	if _, err := FindUserByProviderID(ctx, db, ProviderGithub, "gh-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, err := CreateUser(ctx, db, ProviderGithub, "gh-1", "a@example.org", "Alice", "", "APP")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Direct provider lookup.
	byProvider, err := FindUserByProviderID(ctx, db, ProviderGithub, "gh-1")
	if err != nil || byProvider.ID != created.ID {
		t.Fatalf("provider lookup failed: %+v, %v", byProvider, err)
	}

	// Same person arrives through a second provider: matched by email, then linked.
	byEmail, err := FindUserByEmail(ctx, db, "a@example.org")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("email lookup failed: %+v, %v", byEmail, err)
	}
	if err := LinkProviderID(ctx, db, byEmail.ID, ProviderGoogle, "goog-1"); err != nil {
		t.Fatalf("link: %v", err)
	}
	linked, err := FindUserByProviderID(ctx, db, ProviderGoogle, "goog-1")
	if err != nil || linked.ID != created.ID {
		t.Fatalf("linked lookup failed: %+v, %v", linked, err)
	}
}

func TestFindUserByEmail_BlankNeverMatches(t *testing.T) {
	db := newTestDB(t, "users_blank_email")
	ctx := context.Background()

	// A provider that exposes no email stores "".
	if _, err := CreateUser(ctx, db, ProviderFacebook, "fb-1", "", "NoMail", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := FindUserByEmail(ctx, db, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank email must not match, got %v", err)
	}
}

func TestLinkProviderID_MissingUser(t *testing.T) {
	db := newTestDB(t, "users_link_missing")
	if err := LinkProviderID(context.Background(), db, "nope", ProviderGithub, "gh-9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
