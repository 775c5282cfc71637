package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// Auth validates tokens issued by the external identity provider and
// puts the caller's id and display name on the request context. This
// service never issues or refreshes tokens itself.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			user, err := parseUser(token, secret)
			if err != nil {
				log.Debug().Err(err).Msg("token rejected")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		// Browsers cannot set headers on websocket upgrades, so the
		// token may ride in the query string instead.
		return r.URL.Query().Get("token")
	}
	return parts[1]
}

func parseUser(tokenString, secret string) (domain.UserInfo, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return domain.UserInfo{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.UserInfo{}, fmt.Errorf("unexpected claims type")
	}
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	if sub == "" {
		return domain.UserInfo{}, fmt.Errorf("missing sub claim")
	}
	if username == "" {
		username = "Oyuncu"
	}
	return domain.UserInfo{ID: sub, Username: username}, nil
}

// GetUser returns the authenticated caller from the request context.
func GetUser(ctx context.Context) (domain.UserInfo, bool) {
	user, ok := ctx.Value(userKey).(domain.UserInfo)
	return user, ok
}
