package player

// CoreState is the playback phase of the engine. It is the single source of
// truth for what the player is doing and changes only on the engine's control
// loop.
type CoreState int

const (
	// Idle means no media is loaded, or end-of-playback has been fully
	// processed with nothing queued.
	Idle CoreState = iota
	// Playing means the backend is actively decoding and rendering.
	Playing
	// Paused means the backend holds loaded media with decoding suspended.
	Paused
)

// NamedState maps a state name to a CoreState. Unknown names map to Idle.
func NamedState(str string) CoreState {
	switch str {
	case "playing":
		return Playing
	case "paused":
		return Paused
	default:
		return Idle
	}
}

func (state CoreState) Name() string {
	switch state {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

func (state CoreState) String() string { return state.Name() }
