package chat

import "fmt"

// completionState tracks a single Complete call.
//
//	Idle -> UserTurnStaged -> ModelInvoked -> Committed
//	             |                 |
//	             +-> RolledBack <--+
type completionState int

const (
	stateIdle completionState = iota
	stateUserTurnStaged
	stateModelInvoked
	stateCommitted
	stateRolledBack
)

var completionTransitions = map[completionState][]completionState{
	stateIdle:           {stateUserTurnStaged},
	stateUserTurnStaged: {stateModelInvoked, stateRolledBack},
	stateModelInvoked:   {stateCommitted, stateRolledBack},
}

func (s completionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateUserTurnStaged:
		return "user_turn_staged"
	case stateModelInvoked:
		return "model_invoked"
	case stateCommitted:
		return "committed"
	case stateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s completionState) terminal() bool {
	return s == stateCommitted || s == stateRolledBack
}

type completion struct {
	userID         string
	message        string
	state          completionState
	handle         *ModelHandle
	rollbackFailed bool
}

func (c *completion) advance(to completionState) error {
	for _, next := range completionTransitions[c.state] {
		if next == to {
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("chat: invalid completion transition %s -> %s", c.state, to)
}

// outcome labels the request for metrics.
func (c *completion) outcome() string {
	switch {
	case c.rollbackFailed:
		return "rollback_failed"
	case c.state.terminal():
		return c.state.String()
	default:
		return "rejected"
	}
}
