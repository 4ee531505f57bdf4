package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/handler/http/response"
)

func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.Unauthorized(w, "Missing token")
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}
			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.Unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// ActorFromContext rebuilds the acting identity from verified token claims.
// AuthRequired must have run first; a missing claim set yields ok=false.
func ActorFromContext(r *http.Request) (tenantID string, actor attendance.Actor, ok bool) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return "", attendance.Actor{}, false
	}

	tenantID, _ = claims["tenant_id"].(string)
	actor.ID, _ = claims["actor_id"].(string)
	actor.Name, _ = claims["actor_name"].(string)
	actor.Role, _ = claims["actor_role"].(string)

	if tenantID == "" || actor.ID == "" {
		return "", attendance.Actor{}, false
	}
	return tenantID, actor, true
}
