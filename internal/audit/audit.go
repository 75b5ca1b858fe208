// Package audit registra decisiones de seguridad en un trail append-only.
//
// Record nunca bloquea ni falla al caller: si la persistencia falla, el
// error va al log operacional y a la métrica audit_write_failures_total.
package audit

import (
	"context"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/metrics"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Acciones estándar.
const (
	ActionLocalLogin       = "auth.local.login"
	ActionSAMLLogin        = "auth.saml.login"
	ActionAuthorize        = "authz.check"
	ActionRoleCreate       = "rbac.role.create"
	ActionRoleDelete       = "rbac.role.delete"
	ActionPermCreate       = "rbac.permission.create"
	ActionPermDelete       = "rbac.permission.delete"
	ActionPermAssign       = "rbac.permission.assign"
	ActionPermRevoke       = "rbac.permission.revoke"
	ActionUserCreate       = "user.create"
	ActionUserRoleChange   = "user.role.change"
	ActionUserStatusChange = "user.status.change"
	ActionUserProvision    = "user.provision"
)

// DefaultWriteTimeout acota cuánto puede tardar una escritura de auditoría.
const DefaultWriteTimeout = 2 * time.Second

type Logger struct {
	repo    repository.AuditRepository
	timeout time.Duration
	now     func() time.Time
	ops     *zap.Logger
}

type Option func(*Logger)

// WithWriteTimeout cambia el timeout de persistencia.
func WithWriteTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithOpsLogger reemplaza el canal operacional (default: logger.Named("audit")).
func WithOpsLogger(z *zap.Logger) Option {
	return func(l *Logger) {
		if z != nil {
			l.ops = z
		}
	}
}

func New(repo repository.AuditRepository, opts ...Option) *Logger {
	l := &Logger{
		repo:    repo,
		timeout: DefaultWriteTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	if l.ops == nil {
		l.ops = logger.Named("audit")
	}
	return l
}

// Record completa id, timestamp y metadata del request y persiste la entrada.
// La escritura se desacopla de la cancelación del request pero queda acotada
// por el timeout.
func (l *Logger) Record(ctx context.Context, e types.AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = types.OutcomeSuccess
	}
	if m, ok := metaFrom(ctx); ok {
		if e.RequestID == "" {
			e.RequestID = m.RequestID
		}
		if e.IP == "" {
			e.IP = m.IP
		}
	}

	fields := []zap.Field{
		logger.Action(e.Action),
		logger.Outcome(string(e.Outcome)),
		logger.String("target", e.Target),
		logger.String("audit_id", e.ID),
	}
	if e.ActorID != nil {
		fields = append(fields, logger.UserID(*e.ActorID))
	}
	if e.RequestID != "" {
		fields = append(fields, logger.RequestID(e.RequestID))
	}
	l.ops.Debug("audit entry", append(fields, logger.String("detail", e.Detail))...)

	if l.repo == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	if err := l.repo.Append(wctx, e); err != nil {
		metrics.AuditWriteFailures.Inc()
		l.ops.Error("audit persist failed", append(fields, logger.Err(err))...)
	}
}

// List retorna entradas filtradas, más recientes primero.
func (l *Logger) List(ctx context.Context, f repository.AuditFilter) ([]types.AuditEntry, error) {
	if l.repo == nil {
		return []types.AuditEntry{}, nil
	}
	return l.repo.List(ctx, f)
}
