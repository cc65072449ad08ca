package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/domain"
)

var (
	errMissingHeader = errors.New("missing Authorization header")
	errBadFormat     = errors.New("invalid Authorization format")
	errRevoked       = errors.New("token revoked")
)

// Authenticate returns middleware that validates the bearer token, rejects
// revoked token ids and places the Session in the request context.
func Authenticate(jwtMgr *JWTManager, denylist Denylist, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := authenticate(r, jwtMgr, denylist)
			if err != nil {
				logger.Debug("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func authenticate(r *http.Request, jwtMgr *JWTManager, denylist Denylist) (*Session, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := jwtMgr.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	// A denylist outage rejects the request rather than honour a possibly
	// revoked token.
	revoked, err := denylist.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errRevoked
	}
	return claims.Session()
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errBadFormat
	}
	return parts[1], nil
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"code":    "UNAUTHORIZED",
		"error":   domain.MsgUnauthorized,
	})
}
