package models

// ConnectionOutcome is the result of a handshake attempt.
// It is a closed set: the only implementations are Success, Failed and
// Connecting, so a type switch over those three is exhaustive.
type ConnectionOutcome interface {
	// String returns a short human-readable label.
	String() string

	outcome()
}

// Success means the server accepted the handshake.
type Success struct{}

// Failed means the attempt ended without a session.
// Reason is meant to be shown to the user verbatim.
type Failed struct {
	Reason string
}

// Connecting marks an attempt that has not resolved yet.
// It is reported as progress and is never the final result of a connect.
type Connecting struct{}

func (Success) outcome()    {}
func (Failed) outcome()     {}
func (Connecting) outcome() {}

func (Success) String() string    { return "success" }
func (f Failed) String() string   { return "failed: " + f.Reason }
func (Connecting) String() string { return "connecting" }

// IsSuccess reports whether o is a Success outcome.
func IsSuccess(o ConnectionOutcome) bool {
	_, ok := o.(Success)
	return ok
}
