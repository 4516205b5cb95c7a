package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService(t *testing.T, now *time.Time, opts ...ServiceOption) (*Service, *MemStore) {
	t.Helper()
	store := NewMemStore()
	opts = append([]ServiceOption{WithClock(func() time.Time { return *now })}, opts...)
	svc, err := NewService(store, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func seedUser(t *testing.T, svc *Service, handle, password string) *User {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid.NewV7: %v", err)
	}
	user := &User{ID: id, Handle: handle}
	if err := svc.CreateUser(context.Background(), user, password); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestAuthenticateBasicCredentials(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)
	seedUser(t, svc, "jmanczak", "admin")

	// base64("jmanczak:admin")
	user, token, err := svc.Authenticate(context.Background(), "Basic am1hbmN6YWs6YWRtaW4=", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Handle != "jmanczak" {
		t.Fatalf("unexpected handle: %s", user.Handle)
	}
	if token != "" {
		t.Fatalf("basic auth must not re-issue a session token")
	}
}

func TestAuthenticateBasicWrongPassword(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)
	seedUser(t, svc, "jmanczak", "admin")

	// base64("jmanczak:nope") and base64("ghost:admin") fail identically:
	// account existence is never revealed.
	for _, header := range []string{
		"Basic am1hbmN6YWs6bm9wZQ==",
		"Basic Z2hvc3Q6YWRtaW4=",
	} {
		if _, _, err := svc.Authenticate(context.Background(), header, ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("header %q: expected ErrInvalidCredentials, got %v", header, err)
		}
	}
}

func TestAuthenticateHeaderShapeErrors(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)
	seedUser(t, svc, "jmanczak", "admin")

	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"no space in header", "BasicOnlyScheme", ErrBadHeaderSchemeData},
		{"unsupported scheme", "Digest foo=bar", ErrUnsupportedScheme},
		{"bad base64 payload", "Basic %%%not-base64%%%", ErrBadCredentialEncoding},
		{"missing colon", "Basic am1hbmN6YWthZG1pbg==", ErrNoBasicColonSplit},
		{"non-ascii header", "Basic zażółć", ErrNonASCIIHeader},
	}
	for _, tc := range cases {
		if _, _, err := svc.Authenticate(context.Background(), tc.header, ""); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAuthenticateNoCredentials(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)

	if _, _, err := svc.Authenticate(context.Background(), "", ""); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestAuthenticateHeaderTakesPrecedenceOverCookie(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)
	seedUser(t, svc, "jmanczak", "admin")

	// The cookie is garbage, but the Basic header wins and succeeds.
	user, _, err := svc.Authenticate(context.Background(), "Basic am1hbmN6YWs6YWRtaW4=", "not-a-real-token")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Handle != "jmanczak" {
		t.Fatalf("unexpected handle: %s", user.Handle)
	}
}

func TestAuthenticateBearerUnknownToken(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)

	if _, _, err := svc.Authenticate(context.Background(), "Bearer bm90LWEtcmVhbC10b2tlbg", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateViaSessionCookie(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)
	user := seedUser(t, svc, "jmanczak", "admin")

	_, token, err := svc.CreateSession(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, refreshed, err := svc.Authenticate(context.Background(), "", token)
	if err != nil {
		t.Fatalf("Authenticate via cookie: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %s", got.ID)
	}
	if refreshed != token {
		t.Fatalf("cookie path must hand the token back for cookie renewal")
	}
}

func TestParseAuthorizationHeaderTokenPreserved(t *testing.T) {
	cred, err := parseAuthorizationHeader("Bearer abc.def-ghi_jkl")
	if err != nil {
		t.Fatalf("parseAuthorizationHeader: %v", err)
	}
	if cred.kind != credentialBearer || cred.token != "abc.def-ghi_jkl" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}
