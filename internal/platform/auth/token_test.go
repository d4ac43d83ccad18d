package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret-0123456789abcdef0123456789", time.Hour, 7*24*time.Hour)
}

func TestIssueAndParse(t *testing.T) {
	issuer := newTestIssuer()
	doctorID := uuid.New()

	pair, err := issuer.Issue(doctorID, "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("expected expires_in 3600, got %d", pair.ExpiresIn)
	}

	claims, err := issuer.Parse(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != doctorID.String() {
		t.Errorf("expected subject %s, got %s", doctorID, claims.Subject)
	}
	if claims.Locale != "fr" {
		t.Errorf("expected locale fr, got %s", claims.Locale)
	}
}

func TestParse_RejectsWrongTokenType(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.Issue(uuid.New(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := issuer.Parse(pair.RefreshToken, TokenTypeAccess); err == nil {
		t.Error("expected refresh token to be rejected as access token")
	}
	if _, err := issuer.Parse(pair.AccessToken, TokenTypeRefresh); err == nil {
		t.Error("expected access token to be rejected as refresh token")
	}
}

func TestParse_RejectsWrongSecret(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.Issue(uuid.New(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewTokenIssuer("another-secret-entirely-for-this-test", time.Hour, 7*24*time.Hour)
	if _, err := other.Parse(pair.AccessToken, TokenTypeAccess); err == nil {
		t.Error("expected token signed with a different secret to be rejected")
	}
}

func TestParse_RejectsExpired(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.Issue(uuid.New(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := issuer.Parse(pair.AccessToken, TokenTypeAccess); err == nil {
		t.Error("expected expired access token to be rejected")
	}
}

func TestRefresh(t *testing.T) {
	issuer := newTestIssuer()
	doctorID := uuid.New()
	pair, err := issuer.Issue(doctorID, "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refreshed, err := issuer.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a new access token")
	}
	if refreshed.RefreshToken != "" {
		t.Error("refresh must not rotate the refresh token")
	}

	claims, err := issuer.Parse(refreshed.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != doctorID.String() {
		t.Errorf("expected subject %s, got %s", doctorID, claims.Subject)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.Issue(uuid.New(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.Refresh(pair.AccessToken); err == nil {
		t.Error("expected access token to be rejected by refresh")
	}
}
