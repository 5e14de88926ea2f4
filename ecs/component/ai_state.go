package component

// StateID identifies an agent behavior state.
type StateID string

const (
	StateIdle    StateID = "idle"
	StateSearch  StateID = "search"
	StateFound   StateID = "found"
	StateCollect StateID = "collect"
	StateDeposit StateID = "deposit"
)

// AIState mirrors an agent controller's state for renderers and snapshots.
// The controller is the source of truth.
type AIState struct {
	Current  StateID
	Previous StateID
	Held     uint64
	Target   uint64
}

var AIStateComponent = NewComponent[AIState]()
