package middlewares

import (
	"context"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxTokenKey     ctxKey = "bearer_token"
	ctxIdentityKey  ctxKey = "identity"
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

// GetRequestID retorna "" si el middleware no corrió.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxTokenKey, token)
}

// GetToken retorna el bearer token crudo que extrajo RequireBearer.
func GetToken(ctx context.Context) string {
	s, _ := ctx.Value(ctxTokenKey).(string)
	return s
}

func withIdentity(ctx context.Context, id types.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

// GetIdentity retorna la identidad autorizada por RequirePermission.
func GetIdentity(ctx context.Context) (types.Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(types.Identity)
	return id, ok
}
