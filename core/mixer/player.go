package mixer

// Player is the runtime handle that controls playback and volume for one
// track. Implementations talk to an external embedded-player platform, so
// every call is best-effort: a command may fail because the platform is not
// ready yet or the handle was torn down.
type Player interface {
	Play() error
	Pause() error
	Stop() error
	SetVolume(v int) error
	// Volume reports the handle's current volume. Best-effort; callers fall
	// back to a default when it errors.
	Volume() (int, error)
	Destroy() error
}

// Player state notifications delivered by the platform.
const (
	StateReady = "ready"
	StateEnded = "ended"
	StateError = "error"
)

// PlayerFactory builds the handle for the track at the given position.
type PlayerFactory func(index int, mediaID string) (Player, error)

// GroupAction is one of the bulk transport actions applied to a group.
type GroupAction string

const (
	ActionPlay  GroupAction = "play"
	ActionPause GroupAction = "pause"
	ActionStop  GroupAction = "stop"
)
