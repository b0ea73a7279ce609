package middleware

import (
	"net/http"

	"github.com/bitedash/bitedash-backend/api/responses"
	"github.com/bitedash/bitedash-backend/pkg/enums"
	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
	"github.com/bitedash/bitedash-backend/pkg/logger"
)

// RequireRoles rejects requests whose authenticated role is not in the allow list.
func RequireRoles(logg *logger.Logger, allowed ...enums.ActorRole) func(http.Handler) http.Handler {
	allowSet := make(map[enums.ActorRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if _, ok := allowSet[role]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePrivileged allows only org and super admins through.
func RequirePrivileged(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRoles(logg, enums.ActorRoleOrgAdmin, enums.ActorRoleSuperAdmin)
}
