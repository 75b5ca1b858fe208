// Package cache provee un key/value con TTL sobre memoria (go-cache) o Redis.
// Se usa para el registro anti-replay de assertions SAML y para guardar la
// última metadata válida del IdP.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor. ttl 0 usa el TTL por defecto del backend.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX guarda el valor solo si la key no existe. Es atómico: ante
	// llamadas concurrentes con la misma key exactamente una retorna true.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind       string // "memory" | "redis"
	Prefix     string
	DefaultTTL time.Duration // solo memory
}

// ErrNotFound indica que la key no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New crea el cliente según Kind. Para redis requiere rdb no nil.
func New(cfg Config, rdb redis.UniversalClient) (Client, error) {
	switch cfg.Kind {
	case "redis":
		if rdb == nil {
			return nil, errors.New("cache: redis client is required")
		}
		return NewRedis(rdb, cfg.Prefix), nil
	case "memory", "":
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	default:
		return nil, errors.New("cache: unknown kind " + cfg.Kind)
	}
}
