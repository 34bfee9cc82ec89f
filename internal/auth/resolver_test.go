package auth

import (
	"context"
	"errors"
	"testing"
)

func TestResolve_RoundTripIdentity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	created := createTestUser(t, repo, "alice", "alice@example.com", "Secur3!pass", RoleAdmin)

	codec := NewTokenCodec(testSecret, 30)
	authn := NewAuthenticator(repo)
	resolver := NewSessionResolver(codec, repo)

	// authenticate → issue → resolve must return the same identity.
	user, err := authn.Authenticate(context.Background(), Credentials{
		Email:    "alice@example.com",
		Password: "Secur3!pass",
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	token, err := codec.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	resolved, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if resolved.ID != created.ID {
		t.Errorf("ID = %d, want %d", resolved.ID, created.ID)
	}
	if resolved.Role != created.Role {
		t.Errorf("Role = %q, want %q", resolved.Role, created.Role)
	}
	if resolved.Email != created.Email {
		t.Errorf("Email = %q, want %q", resolved.Email, created.Email)
	}
}

func TestResolve_DeactivatedAfterIssuance(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	user := createTestUser(t, repo, "bob", "bob@example.com", "Secur3!pass", RoleUser)

	codec := NewTokenCodec(testSecret, 30)
	resolver := NewSessionResolver(codec, repo)

	token, err := codec.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Token still well-signed and unexpired — but the account is now off.
	user.IsActive = false
	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	_, err = resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("Resolve() after deactivation = %v, want ErrUserInactive", err)
	}
}

func TestResolve_SubjectDeleted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	user := createTestUser(t, repo, "carol", "carol@example.com", "Secur3!pass", RoleUser)

	codec := NewTokenCodec(testSecret, 30)
	resolver := NewSessionResolver(codec, repo)

	token, err := codec.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if err := repo.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Resolve() with deleted subject = %v, want ErrTokenInvalid", err)
	}
}

func TestResolve_StaleClaimsNotTrusted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	user := createTestUser(t, repo, "dave", "dave@example.com", "Secur3!pass", RoleAdmin)

	codec := NewTokenCodec(testSecret, 30)
	resolver := NewSessionResolver(codec, repo)

	token, err := codec.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Demote after issuance. The token still says admin; resolution
	// must report the store's current role.
	user.Role = RoleUser
	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	resolved, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Role != RoleUser {
		t.Errorf("Role = %q, want %q (claims must not override the store)", resolved.Role, RoleUser)
	}
}

func TestResolve_BadTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	createTestUser(t, repo, "erin", "erin@example.com", "Secur3!pass", RoleUser)

	codec := NewTokenCodec(testSecret, 30)
	resolver := NewSessionResolver(codec, repo)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := resolver.Resolve(context.Background(), token); err == nil {
			t.Errorf("Resolve(%q) should fail", token)
		}
	}
}
