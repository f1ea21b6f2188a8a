package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequireBusinessProfile rejects sessions whose account has not completed
// onboarding. It must run after RequireSession.
func RequireBusinessProfile(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromCtx(r.Context())
			if sess == nil {
				writeRedirectError(w, http.StatusUnauthorized, "unauthorized", "/auth")
				return
			}
			ok, err := businessProfileExistsFn(r.Context(), pool, sess.AccountID)
			if err != nil {
				http.Error(w, `{"error":"failed to check onboarding"}`, http.StatusInternalServerError)
				return
			}
			if !ok {
				writeRedirectError(w, http.StatusForbidden, "onboarding required", "/onboarding")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// businessProfileExistsFn is swapped out in tests to avoid a database.
var businessProfileExistsFn = defaultBusinessProfileExists

func defaultBusinessProfileExists(ctx context.Context, pool *pgxpool.Pool, accountID uuid.UUID) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM business_profiles WHERE user_id = $1)`, accountID).Scan(&exists)
	return exists, err
}
