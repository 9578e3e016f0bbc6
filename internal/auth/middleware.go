package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/domain"
)

// IdentityResolver looks up the user behind a verified token subject.
// Implementations must not include the password hash in the returned record.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID int64) (*domain.User, error)
}

// Verifier verifies a bearer token and returns its subject user ID.
type Verifier interface {
	Verify(token string) (int64, error)
}

// FailureRecorder counts rejected authentications by error code. A nil
// recorder disables recording.
type FailureRecorder interface {
	RecordAuthFailure(code string)
}

// Middleware returns the authentication middleware: it extracts the bearer
// token, verifies it, resolves the subject to an active user, and attaches
// the resulting Identity to the request context. Any failure halts the chain
// with a coded JSON error and is counted on the recorder.
func Middleware(verifier Verifier, resolver IdentityResolver, recorder FailureRecorder, logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticate(r, verifier, resolver)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
				authErr := NewAuthError(err)
				if recorder != nil {
					recorder.RecordAuthFailure(string(authErr.Code))
				}
				WriteError(w, authErr)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalMiddleware runs the same pipeline but swallows every failure and
// proceeds unauthenticated. Used by routes that personalize output without
// requiring login.
func OptionalMiddleware(verifier Verifier, resolver IdentityResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticate(r, verifier, resolver)
			if err != nil {
				if !errors.Is(err, ErrMissingToken) {
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("optional auth failed, continuing unauthenticated")
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole returns a middleware that rejects identities holding none of
// the required roles. It must run after Middleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, NewAuthError(ErrAuthRequired))
				return
			}
			if !identity.User.HasAnyRole(roles...) {
				writeJSON(w, http.StatusForbidden, map[string]interface{}{
					"message":  ErrInsufficientRole.Error(),
					"error":    CodeInsufficientRole,
					"required": roles,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate runs the linear extract -> verify -> resolve pipeline.
func authenticate(r *http.Request, verifier Verifier, resolver IdentityResolver) (*Identity, error) {
	token, err := extractBearerToken(r)
	if err != nil {
		return nil, err
	}

	userID, err := verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := resolver.ResolveIdentity(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		// Lookup failures deny access rather than defaulting to allow.
		return nil, ErrUserNotFound
	}
	if user.DeletedAt != nil {
		return nil, ErrUserDeleted
	}
	if user.Status != "" && user.Status != domain.StatusActive {
		return nil, ErrAccountInactive
	}

	user.PasswordHash = ""
	return &Identity{User: user, Token: token}, nil
}

// extractBearerToken reads the token from the Authorization header.
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// WriteError writes a coded JSON error response.
func WriteError(w http.ResponseWriter, authErr *AuthError) {
	writeJSON(w, authErr.HTTPStatus, map[string]interface{}{
		"message": authErr.Message,
		"error":   authErr.Code,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
