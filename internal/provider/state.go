package provider

// ConnState is the per-socket connection state machine:
// Disconnected -> Connecting -> Connected, back to Disconnected on any close.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}
