package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/utils"
)

type contextKey string

const userIDContextKey = contextKey("userID")

// UserIDMiddleware extracts the caller identity installed by the upstream
// auth layer (X-User-ID header). Authentication itself happens upstream;
// this subsystem only requires that an identity is present.
func UserIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			logger.L.Debug("UserIDMiddleware: X-User-ID header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "X-User-ID header required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext retrieves the user id stored by UserIDMiddleware.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}
