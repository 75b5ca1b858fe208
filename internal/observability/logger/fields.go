package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/gatekeeper/internal/util"
)

// ---------- HTTP ----------

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }
func Duration(d time.Duration) zap.Field { return zap.Duration("duration", d) }

// ---------- Negocio ----------

// UserID identifica al usuario interno (uuid).
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Email nunca debe acompañarse de passwords ni hashes.
func Email(v string) zap.Field { return zap.String("email", v) }

// MaskedEmail es para emails aún no verificados (intentos de login).
func MaskedEmail(v string) zap.Field { return zap.String("email", util.MaskEmail(v)) }

func Role(v string) zap.Field { return zap.String("role", v) }
func Permission(v string) zap.Field { return zap.String("permission", v) }
func Outcome(v string) zap.Field { return zap.String("outcome", v) }
func Action(v string) zap.Field { return zap.String("action", v) }

// Subject es el identificador federado permanente (SAML).
func Subject(v string) zap.Field { return zap.String("federated_subject", v) }

// ---------- Técnicos ----------

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err agrega un error; nil se omite.
func Err(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Error(err)
}

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
