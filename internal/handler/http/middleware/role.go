package middleware

import (
	"net/http"

	"github.com/presencehq/presence-backend-go/internal/handler/http/response"
)

// RoleRequired restricts a route to actors carrying one of the given roles.
func RoleRequired(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			_, actor, ok := ActorFromContext(r)
			if !ok {
				response.Unauthorized(w, "Invalid token claims")
				return
			}

			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "Insufficient role")
		}
		return http.HandlerFunc(hfn)
	}
}
