package types

import "time"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// AuditEntry es un registro append-only de una decisión de seguridad.
type AuditEntry struct {
	ID string
	// ActorID es nil en intentos no autenticados.
	ActorID   *string
	Action    string
	Target    string
	Outcome   Outcome
	Detail    string
	RequestID string
	IP        string
	Timestamp time.Time
}

// Actor arma ActorID a partir de un id posiblemente vacío.
func Actor(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
