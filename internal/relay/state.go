package relay

// State is the lifecycle state of a Session.
type State int32

const (
	Idle State = iota
	Starting
	Streaming
	SwappingSource
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Streaming:
		return "streaming"
	case SwappingSource:
		return "swapping"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
