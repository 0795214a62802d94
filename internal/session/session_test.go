package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestFromToken(t *testing.T) {
	t.Parallel()
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name     string
		token    string
		wantErr  error
		wantAuth bool
		wantSub  string
	}{
		{name: "empty", token: "  ", wantErr: ErrNoToken},
		{name: "opaque", token: "abc123", wantAuth: true},
		{name: "jwt valid", token: signed(t, jwt.MapClaims{"sub": "parent-7", "exp": future.Unix()}), wantAuth: true, wantSub: "parent-7"},
		{name: "jwt expired", token: signed(t, jwt.MapClaims{"sub": "parent-7", "exp": past.Unix()}), wantAuth: false, wantSub: "parent-7"},
		{name: "jwt without exp", token: signed(t, jwt.MapClaims{"sub": "x"}), wantAuth: true, wantSub: "x"},
		{name: "dotted garbage", token: "a.b.c", wantAuth: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := FromToken(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromToken: %v", err)
			}
			if got := s.Authenticated(now); got != tt.wantAuth {
				t.Fatalf("Authenticated = %v, want %v", got, tt.wantAuth)
			}
			if s.Subject != tt.wantSub {
				t.Fatalf("Subject = %q, want %q", s.Subject, tt.wantSub)
			}
		})
	}
}

func TestStore(t *testing.T) {
	t.Parallel()
	st := NewStore()
	if st.Authenticated() || st.Token() != "" {
		t.Fatal("new store must be signed out")
	}

	exp := time.Now().Add(time.Hour)
	tok := signed(t, jwt.MapClaims{"exp": exp.Unix()})
	st.Set(tok)
	if !st.Authenticated() || st.Token() != tok {
		t.Fatal("expected signed-in store")
	}
	if d, ok := st.Until(); !ok || d <= 0 || d > time.Hour {
		t.Fatalf("Until = %v, %v", d, ok)
	}

	// Clock moves past expiry.
	st.now = func() time.Time { return exp.Add(time.Second) }
	if st.Authenticated() || st.Token() != "" {
		t.Fatal("expired session must not hand out its token")
	}

	st.Set("")
	if _, ok := st.Until(); ok {
		t.Fatal("signed-out store has no expiry")
	}
}

func TestStoreInvalidate(t *testing.T) {
	t.Parallel()
	st := NewStore()
	st.Set("opaque-1")

	if st.Invalidate("opaque-0") {
		t.Fatal("a token that is no longer current must not sign out")
	}
	if !st.Authenticated() {
		t.Fatal("session dropped by a stale token")
	}
	if !st.Invalidate("opaque-1") {
		t.Fatal("Invalidate(current) = false")
	}
	if st.Authenticated() || st.Token() != "" {
		t.Fatal("session still active after Invalidate")
	}
	if st.Invalidate("") {
		t.Fatal("Invalidate on an empty token reported a drop")
	}
}
