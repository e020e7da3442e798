// Package command assembles executable storage commands from mapper
// templates, translator output, and the optimistic-concurrency version
// check.
package command

import (
	"fmt"
	"time"

	"persistkit/internal/entity"
	"persistkit/internal/query"
)

// Kind is the operation a command performs.
type Kind int

const (
	KindInsert Kind = iota
	KindUpdate
	KindDelete
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindSelect:
		return "select"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State tracks a command through its lifecycle. Terminal states are final:
// retrying a failed command means building a new one.
type State int

const (
	StateBuilding State = iota
	StateExecuting
	StateCommitted
	StateConflictDetected
	StateNotFound
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateExecuting:
		return "executing"
	case StateCommitted:
		return "committed"
	case StateConflictDetected:
		return "conflict_detected"
	case StateNotFound:
		return "not_found"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) terminal() bool {
	switch s {
	case StateCommitted, StateConflictDetected, StateNotFound, StateFaulted:
		return true
	}
	return false
}

// Command is one executable operation: the statement text, its ordered
// parameters, and the concurrency metadata the executor needs to interpret
// the outcome. Commands are built per call and consumed once.
type Command struct {
	Kind            Kind
	SQL             string
	Params          query.Params
	Key             entity.Key
	ExpectedVersion int64
	Timeout         time.Duration

	state State
}

// State returns the command's current lifecycle state.
func (c *Command) State() State { return c.state }

// Begin moves the command from Building to Executing. A command begins at
// most once.
func (c *Command) Begin() error {
	if c.state != StateBuilding {
		return fmt.Errorf("command %s: cannot begin from state %s", c.Kind, c.state)
	}
	c.state = StateExecuting
	return nil
}

// Finish moves an executing command to a terminal state.
func (c *Command) Finish(s State) error {
	if c.state != StateExecuting {
		return fmt.Errorf("command %s: cannot finish from state %s", c.Kind, c.state)
	}
	if !s.terminal() {
		return fmt.Errorf("command %s: %s is not a terminal state", c.Kind, s)
	}
	c.state = s
	return nil
}
