package extract

// State is the lifecycle position of one extraction call.
type State int

const (
	StateOpening State = iota
	StateStreamSelected
	StateCodecReady
	StateDecoding
	StateSeeking
	StateDraining
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateStreamSelected:
		return "stream_selected"
	case StateCodecReady:
		return "codec_ready"
	case StateDecoding:
		return "decoding"
	case StateSeeking:
		return "seeking"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validTransitions lists the states reachable from each state.
// StateFailed is reachable from everywhere and is not listed.
var validTransitions = map[State][]State{
	StateOpening:        {StateStreamSelected},
	StateStreamSelected: {StateCodecReady},
	StateCodecReady:     {StateDecoding, StateSeeking},
	StateDecoding:       {StateSeeking, StateDraining, StateDone},
	StateSeeking:        {StateDecoding},
	StateDraining:       {StateSeeking, StateDone},
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	if next == StateFailed {
		return s != StateDone && s != StateFailed
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
