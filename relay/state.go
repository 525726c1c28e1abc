package relay

// State is the lifecycle position of one chat exchange.
type State int32

const (
	StateIdle State = iota
	StateSessionResolving
	StateUserTurnPersisting
	StateStreaming
	StateFinalizing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSessionResolving:
		return "session_resolving"
	case StateUserTurnPersisting:
		return "user_turn_persisting"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can follow s.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
