package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"member-accounts/internal/errors"
)

type contextKey string

const memberIDKey contextKey = "member_id"

// Claims identifies the member a bearer token was issued to.
type Claims struct {
	MemberID int64 `json:"memberId"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the member from an HS256 bearer token and stores the
// id in the request context for handlers to pass on explicitly.
func AuthMiddleware(secret []byte) mux.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, errors.ErrUnauthorized.WithDetails("authorization header must be 'Bearer <token>'"))
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				writeError(w, errors.ErrUnauthorized.WithDetails("invalid or expired token"))
				return
			}

			memberID := claims.MemberID
			if memberID == 0 && claims.Subject != "" {
				memberID, _ = strconv.ParseInt(claims.Subject, 10, 64)
			}
			if memberID <= 0 {
				writeError(w, errors.ErrUnauthorized.WithDetails("token does not identify a member"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithMemberID(r.Context(), memberID)))
		})
	}
}

func WithMemberID(ctx context.Context, memberID int64) context.Context {
	return context.WithValue(ctx, memberIDKey, memberID)
}

func MemberIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(memberIDKey).(int64)
	return id, ok && id > 0
}

// requireMember writes 401 and returns false when no member was resolved.
func requireMember(w http.ResponseWriter, r *http.Request) (int64, bool) {
	memberID, ok := MemberIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.ErrUnauthorized)
		return 0, false
	}
	return memberID, true
}
