// Package supervisor keeps a control channel subscription alive.
package supervisor

// Phase represents the keep-alive state machine phase.
type Phase int

const (
	PhaseAttemptingConnect Phase = iota // Opening the control channel
	PhaseDisconnected                   // Waiting before the next reconnect attempt
	PhaseAttemptingRefresh              // Renewing the credential
	PhaseSubscribed                     // Subscribed to state changes
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseAttemptingConnect:
		return "attempting_connect"
	case PhaseDisconnected:
		return "disconnected"
	case PhaseAttemptingRefresh:
		return "attempting_refresh"
	case PhaseSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

var phaseNames = []string{
	PhaseAttemptingConnect.String(),
	PhaseDisconnected.String(),
	PhaseAttemptingRefresh.String(),
	PhaseSubscribed.String(),
}

// PhaseNames returns the names of all phases.
func PhaseNames() []string {
	out := make([]string, len(phaseNames))
	copy(out, phaseNames)
	return out
}
