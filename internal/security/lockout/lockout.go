// Package lockout implementa el bloqueo de cuenta por intentos fallidos.
//
// El estado es un contador por email con expiración explícita (ventana fija
// desde el primer fallo). Los incrementos son atómicos en ambos backends.
package lockout

import (
	"context"
	"strings"
	"time"
)

// Counter es un contador con TTL, keyed por string.
type Counter interface {
	// Incr incrementa atómicamente. Si la key no existía, fija su expiración en window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// Get retorna el valor actual (0 si no existe o expiró).
	Get(ctx context.Context, key string) (int64, error)
	// Reset borra la key.
	Reset(ctx context.Context, key string) error
}

// Policy aplica threshold/ventana sobre un Counter.
type Policy struct {
	counter   Counter
	threshold int64
	window    time.Duration
}

func NewPolicy(c Counter, threshold int, window time.Duration) *Policy {
	if threshold < 1 {
		threshold = 1
	}
	return &Policy{counter: c, threshold: int64(threshold), window: window}
}

// Locked indica si la cuenta alcanzó el threshold dentro de la ventana.
func (p *Policy) Locked(ctx context.Context, email string) (bool, error) {
	n, err := p.counter.Get(ctx, key(email))
	if err != nil {
		return false, err
	}
	return n >= p.threshold, nil
}

// RegisterFailure suma un fallo y retorna el total en la ventana.
func (p *Policy) RegisterFailure(ctx context.Context, email string) (int64, error) {
	return p.counter.Incr(ctx, key(email), p.window)
}

// Reset limpia los fallos tras un login exitoso.
func (p *Policy) Reset(ctx context.Context, email string) error {
	return p.counter.Reset(ctx, key(email))
}

func (p *Policy) Threshold() int64 { return p.threshold }

func key(email string) string {
	return "lockout:" + strings.ToLower(strings.TrimSpace(email))
}
