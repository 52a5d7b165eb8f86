package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/identity"
)

const actorKey contextKey = "actor"

// AuthMiddleware validates the bearer token and places the caller's
// identity on the request context. Tokens carry sub (user id), role and
// name claims, signed HS256.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization: Bearer token required")
				return
			}

			claims := jwt.MapClaims{}
			if _, err := jwt.ParseWithClaims(raw, claims, keyFunc); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFromClaims(claims jwt.MapClaims) (identity.Actor, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return identity.Actor{}, fmt.Errorf("token has no subject")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return identity.Actor{}, fmt.Errorf("token subject is not a user id")
	}

	role, _ := claims["role"].(string)
	switch identity.Role(role) {
	case identity.RolePatient, identity.RoleProvider, identity.RoleAdmin:
	default:
		return identity.Actor{}, fmt.Errorf("token has no usable role")
	}

	name, _ := claims["name"].(string)

	return identity.Actor{ID: id, Role: identity.Role(role), Name: name}, nil
}

// RequireAdmin gates the audit-actor endpoints.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.IsAdmin() {
			writeError(w, http.StatusForbidden, "unauthorized", "audit actor role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext retrieves the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (identity.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(identity.Actor)
	return actor, ok
}
