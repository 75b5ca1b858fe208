package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del core de identidad. Viven en un paquete aparte para que
// credentials/authz/audit y http las compartan sin ciclos de import.
var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Intentos de login por método (local|saml) y resultado",
	}, []string{"method", "outcome"})

	Lockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Intentos rechazados por cuenta bloqueada",
	})

	AuthzDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Decisiones del enforcer por resultado",
	}, []string{"outcome"})

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Entradas de auditoría que no se pudieron persistir",
	})

	Provisioned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_federated_users_total",
		Help: "Usuarios federados resueltos por tipo (created|linked|updated|unchanged)",
	}, []string{"kind"})
)

// Register registra las métricas en reg (o el default si es nil). Tolera
// registros repetidos.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{LoginAttempts, Lockouts, AuthzDecisions, AuditWriteFailures, Provisioned} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
