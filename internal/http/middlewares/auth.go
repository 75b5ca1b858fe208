package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/http/errors"
)

// Authorizer lo implementa auth.Service.
type Authorizer interface {
	Authorize(ctx context.Context, token, perm string) (types.Identity, error)
}

// bearer extrae el token de "Authorization: Bearer <token>" (esquema
// case-insensitive).
func bearer(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, ok := strings.Cut(ah, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// RequireBearer exige un bearer token y lo deja en el contexto. No lo valida:
// cada operación del servicio autoriza (y audita) por sí misma.
func RequireBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if tok == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gatekeeper", error="invalid_request"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			next.ServeHTTP(w, r.WithContext(withToken(r.Context(), tok)))
		})
	}
}

// RequirePermission autoriza el token contra perm y deja la identidad en el
// contexto. 401 si el token falta o no valida, 403 si falta el permiso.
func RequirePermission(az Authorizer, perm string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if tok == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gatekeeper", error="invalid_request"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			id, err := az.Authorize(r.Context(), tok, perm)
			if err != nil {
				errors.WriteError(w, err)
				return
			}
			ctx := withIdentity(withToken(r.Context(), tok), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
