package auth

import (
	"context"
	"net/http"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/remote"
)

type userCtxKey struct{}

// UserFrom returns the user attached by RequireUser.
func UserFrom(ctx context.Context) (remote.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(remote.User)
	return u, ok
}

// Middleware gates handlers on a signed-in session user.
type Middleware struct {
	Service *Service
}

// RequireUser rejects requests whose session has no signed-in user.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.Service.CurrentUser(r.Context())
		if err != nil {
			common.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)))
	})
}
