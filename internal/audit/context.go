package audit

import "context"

// RequestMeta es metadata del request que se adjunta a cada entrada.
type RequestMeta struct {
	RequestID string
	IP        string
}

type metaKey struct{}

// WithRequestMeta inyecta la metadata del request (la setea el middleware HTTP).
func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

func metaFrom(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	m, ok := ctx.Value(metaKey{}).(RequestMeta)
	return m, ok
}
