package middleware

import (
	"context"
	"net/http"

	"github.com/parley-app/parley/internal/service/account"
	"github.com/parley-app/parley/pkg/utils"
)

type ctxKey struct{}

// TokenVerifier resolves a bearer token to its user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (account.User, error)
}

// RequireUser rejects requests without a valid Authorization bearer token.
func RequireUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
		})
	}
}

// UserFrom returns the user stored by RequireUser.
func UserFrom(ctx context.Context) (account.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(account.User)
	return user, ok
}
