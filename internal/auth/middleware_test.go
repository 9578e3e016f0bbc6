package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/domain"
)

// mockVerifier returns a fixed user ID or error.
type mockVerifier struct {
	userID int64
	err    error
}

func (m *mockVerifier) Verify(token string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.userID, nil
}

// mockResolver serves users from a map.
type mockResolver struct {
	users map[int64]*domain.User
	err   error
}

func (m *mockResolver) ResolveIdentity(ctx context.Context, userID int64) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	// Copy so tests can keep asserting on the original.
	u := *user
	return &u, nil
}

func activeUser(id int64) *domain.User {
	return &domain.User{
		ID:       id,
		Email:    "reader@example.com",
		Username: "reader",
		Status:   domain.StatusActive,
		Roles:    []string{domain.RoleUser},
	}
}

// captureIdentity is a terminal handler recording the request identity.
func captureIdentity(got **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			*got = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		verifier   *mockVerifier
		resolver   *mockResolver
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no token",
			authHeader: "",
			verifier:   &mockVerifier{userID: 1},
			resolver:   &mockResolver{users: map[int64]*domain.User{1: activeUser(1)}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "MISSING_TOKEN",
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic abc123",
			verifier:   &mockVerifier{userID: 1},
			resolver:   &mockResolver{users: map[int64]*domain.User{1: activeUser(1)}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "MISSING_TOKEN",
		},
		{
			name:       "expired token",
			authHeader: "Bearer some-token",
			verifier:   &mockVerifier{err: ErrTokenExpired},
			resolver:   &mockResolver{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_EXPIRED",
		},
		{
			name:       "malformed token",
			authHeader: "Bearer some-token",
			verifier:   &mockVerifier{err: ErrTokenMalformed},
			resolver:   &mockResolver{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_TOKEN",
		},
		{
			name:       "subject no longer exists",
			authHeader: "Bearer some-token",
			verifier:   &mockVerifier{userID: 99},
			resolver:   &mockResolver{users: map[int64]*domain.User{}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "USER_NOT_FOUND",
		},
		{
			name:       "inactive account",
			authHeader: "Bearer some-token",
			verifier:   &mockVerifier{userID: 1},
			resolver: &mockResolver{users: map[int64]*domain.User{
				1: {ID: 1, Status: domain.StatusInactive, Roles: []string{domain.RoleUser}},
			}},
			wantStatus: http.StatusForbidden,
			wantCode:   "ACCOUNT_INACTIVE",
		},
		{
			name:       "soft deleted account",
			authHeader: "Bearer some-token",
			verifier:   &mockVerifier{userID: 1},
			resolver: &mockResolver{users: map[int64]*domain.User{
				1: func() *domain.User {
					u := activeUser(1)
					now := u.CreatedAt
					u.DeletedAt = &now
					return u
				}(),
			}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "USER_DELETED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Identity
			mw := Middleware(tt.verifier, tt.resolver, nil, zerolog.Nop())
			handler := mw(captureIdentity(&got))

			req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
			if got != nil {
				t.Error("handler should not have run")
			}
		})
	}
}

func TestMiddleware_Success(t *testing.T) {
	user := activeUser(7)
	user.PasswordHash = "should-be-stripped"

	var got *Identity
	mw := Middleware(
		&mockVerifier{userID: 7},
		&mockResolver{users: map[int64]*domain.User{7: user}},
		nil,
		zerolog.Nop(),
	)
	handler := mw(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got == nil {
		t.Fatal("expected identity in context")
	}
	if got.UserID() != 7 {
		t.Errorf("expected user ID 7, got %d", got.UserID())
	}
	if got.Token != "valid-token" {
		t.Errorf("expected raw token in identity, got %q", got.Token)
	}
	if got.User.PasswordHash != "" {
		t.Error("password hash must not survive identity resolution")
	}
}

type recordingFailures struct {
	codes []string
}

func (r *recordingFailures) RecordAuthFailure(code string) {
	r.codes = append(r.codes, code)
}

func TestMiddleware_RecordsFailures(t *testing.T) {
	recorder := &recordingFailures{}
	mw := Middleware(&mockVerifier{err: ErrTokenExpired}, &mockResolver{}, recorder, zerolog.Nop())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if len(recorder.codes) != 1 || recorder.codes[0] != string(CodeTokenExpired) {
		t.Errorf("expected one %s record, got %v", CodeTokenExpired, recorder.codes)
	}

	// A successful request records nothing.
	recorder.codes = nil
	ok := Middleware(
		&mockVerifier{userID: 1},
		&mockResolver{users: map[int64]*domain.User{1: activeUser(1)}},
		recorder,
		zerolog.Nop(),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req = httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec = httptest.NewRecorder()
	ok.ServeHTTP(rec, req)

	if len(recorder.codes) != 0 {
		t.Errorf("expected no records for a successful request, got %v", recorder.codes)
	}
}

func TestOptionalMiddleware(t *testing.T) {
	t.Run("anonymous passes through", func(t *testing.T) {
		var got *Identity
		mw := OptionalMiddleware(&mockVerifier{userID: 1}, &mockResolver{}, zerolog.Nop())
		handler := mw(captureIdentity(&got))

		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if got != nil {
			t.Error("expected no identity for anonymous request")
		}
	})

	t.Run("bad token passes through unauthenticated", func(t *testing.T) {
		var got *Identity
		mw := OptionalMiddleware(&mockVerifier{err: ErrTokenExpired}, &mockResolver{}, zerolog.Nop())
		handler := mw(captureIdentity(&got))

		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if got != nil {
			t.Error("expected no identity for failed optional auth")
		}
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		var got *Identity
		mw := OptionalMiddleware(
			&mockVerifier{userID: 3},
			&mockResolver{users: map[int64]*domain.User{3: activeUser(3)}},
			zerolog.Nop(),
		)
		handler := mw(captureIdentity(&got))

		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.Header.Set("Authorization", "Bearer fine")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got == nil || got.UserID() != 3 {
			t.Error("expected identity for valid optional auth")
		}
	})
}

func TestRequireRole(t *testing.T) {
	admin := activeUser(1)
	admin.Roles = []string{domain.RoleUser, domain.RoleAdmin}
	reader := activeUser(2)

	tests := []struct {
		name       string
		identity   *Identity
		roles      []string
		wantStatus int
	}{
		{"admin allowed", &Identity{User: admin}, []string{domain.RoleAdmin}, http.StatusOK},
		{"reader rejected", &Identity{User: reader}, []string{domain.RoleAdmin}, http.StatusForbidden},
		{"no identity rejected", nil, []string{domain.RoleAdmin}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(tt.roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodDelete, "/api/books/1", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			if tt.wantStatus == http.StatusForbidden {
				var body struct {
					Required []string `json:"required"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if len(body.Required) != len(tt.roles) {
					t.Errorf("expected required roles %v, got %v", tt.roles, body.Required)
				}
			}
		})
	}
}
