package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (videosub.Principal, bool) {
	p, ok := ctx.Value(principalKey).(videosub.Principal)
	return p, ok
}

// Principal extracts the caller identity from verified token claims and
// stores it on the request context. Must run after jwtauth.Verifier.
func Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		p := videosub.Principal{
			UserID:    userID,
			CanSubmit: boolClaim(claims, "can_submit"),
			CanGrade:  boolClaim(claims, "can_grade"),
			IsAdmin:   boolClaim(claims, "is_admin"),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func boolClaim(claims map[string]interface{}, name string) bool {
	v, _ := claims[name].(bool)
	return v
}
