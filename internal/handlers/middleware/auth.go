package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/actorctx"
	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers/render"
	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

type authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (models.Actor, error)
}

func AuthMiddleware(a authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.Authenticate(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			noteActor(r.Context(), actor)
			ctx := actorctx.New(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through actors with one of the roles
// Must be applied after AuthMiddleware
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, actor.Role) {
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
