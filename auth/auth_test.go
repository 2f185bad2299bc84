package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func tokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetTokenAndSetAuthHeader(t *testing.T) {
	var calls atomic.Int32
	server := tokenServer(t, &calls)

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: server.URL})
	token, err := client.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if token != "token123" {
		t.Fatalf("unexpected token %s", token)
	}

	req, _ := http.NewRequest("GET", "http://example.com", nil)
	if err := client.SetAuthHeader(req); err != nil {
		t.Fatalf("SetAuthHeader returned error: %v", err)
	}
	if auth := req.Header.Get("Authorization"); auth != "Bearer token123" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached token, endpoint called %d times", calls.Load())
	}
	if _, err := client.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected refresh to hit the endpoint, got %d calls", calls.Load())
	}
}

func TestConfValidate(t *testing.T) {
	if err := (Conf{}).Validate(); err != nil {
		t.Fatalf("disabled conf rejected: %v", err)
	}
	if err := (Conf{AuthURL: "http://idp"}).Validate(); err == nil {
		t.Fatal("expected missing client_id error")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := Issue(secret, Claims{StudentID: "s1"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := Parse(secret, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !claims.CanAccess("s1") || claims.CanAccess("s2") || claims.IsAdmin() {
		t.Fatalf("unexpected access rules for %+v", claims)
	}
	if _, err := Parse([]byte("other"), tok); err == nil {
		t.Fatal("expected signature error")
	}

	admin, _ := Issue(secret, Claims{Roles: []string{RoleAdmin}}, time.Minute)
	claims, err = Parse(secret, admin)
	if err != nil || !claims.CanAccess("anyone") {
		t.Fatalf("admin token rejected: %v", err)
	}

	expired, _ := Issue(secret, Claims{StudentID: "s1"}, -time.Minute)
	if _, err := Parse(secret, expired); err == nil {
		t.Fatal("expected expired token error")
	}
}
