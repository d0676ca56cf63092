package v1handler

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"research/internal/config"
	"research/pkg/domain"
	"research/pkg/serrors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

// UserIDKey carries the authenticated domain.UserID in the request context.
const UserIDKey ctxKey = "userID"

// SecHandlerOptions configure bearer token verification. PublicKey takes
// precedence over PublicKeyPath when both are set.
type SecHandlerOptions struct {
	// PublicKey is the PEM-encoded RS256 public key.
	PublicKey string
	// PublicKeyPath points to a PEM file read at startup.
	PublicKeyPath string
}

// NewSecHandlerOptions derives security options from the application config.
func NewSecHandlerOptions(cfg *config.Config) *SecHandlerOptions {
	return &SecHandlerOptions{PublicKeyPath: cfg.JWT.PublicKeyPath}
}

// SecHandler verifies RS256 bearer tokens. The token subject is the user ID.
type SecHandler struct {
	publicKey *rsa.PublicKey
}

func NewSecHandler(opts *SecHandlerOptions) (*SecHandler, error) {
	pemBytes := []byte(opts.PublicKey)
	if len(pemBytes) == 0 && opts.PublicKeyPath != "" {
		b, err := os.ReadFile(opts.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("could not read JWT public key: %w", err)
		}
		pemBytes = b
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse JWT public key: %w", err)
	}

	return &SecHandler{publicKey: key}, nil
}

// HandleBearerAuth validates the token and returns a context carrying the
// user ID.
func (s *SecHandler) HandleBearerAuth(ctx context.Context, token string) (context.Context, error) {
	parsed, err := jwt.ParseWithClaims(token,
		&jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return s.publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnauthorized, err, "invalid token")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, serrors.With(serrors.ErrUnauthorized, "invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnauthorized, err, "invalid token subject")
	}

	return context.WithValue(ctx, UserIDKey, domain.UserID(userID)), nil
}

// WithAuth guards a handler with bearer token authentication.
func (s *SecHandler) WithAuth(next http.Handler) http.Handler {
	const prefix = "Bearer "

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, prefix) {
			writeError(r.Context(), w, serrors.With(serrors.ErrUnauthorized, "missing bearer token"))

			return
		}

		ctx, err := s.HandleBearerAuth(r.Context(), strings.TrimPrefix(authz, prefix))
		if err != nil {
			writeError(r.Context(), w, err)

			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext returns the authenticated user ID. It is the zero
// UserID on unauthenticated routes.
func GetUserIDFromContext(ctx context.Context) domain.UserID {
	userID, _ := ctx.Value(UserIDKey).(domain.UserID)

	return userID
}
