package auth

import (
	"net/http"
	"strings"

	"Storefront/pkg/kit"
)

// AuthJWT rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func AuthJWT(jwt *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, ErrUnauthorized.Code, "missing token", nil)
				return
			}

			claims, err := jwt.Parse(raw)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, ErrUnauthorized.Code, "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(kit.WithUserID(r.Context(), claims.UserID)))
		})
	}
}
