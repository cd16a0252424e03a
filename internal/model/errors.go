package model

import (
	"errors"
	"fmt"
)

// Construction-time defects of the kinematic graph. All of them are fatal:
// a Description that trips one cannot be simulated.
var (
	// ErrEmpty indicates a description with no links.
	ErrEmpty = errors.New("model: description has no links")

	// ErrDuplicateName indicates two links or two joints sharing a name.
	ErrDuplicateName = errors.New("model: duplicate name")

	// ErrUnknownLink indicates a joint referencing a link that does not exist.
	ErrUnknownLink = errors.New("model: joint references unknown link")

	// ErrMultipleParents indicates a link that is the child of more than one joint.
	ErrMultipleParents = errors.New("model: link has more than one parent joint")

	// ErrDisconnected indicates links unreachable from the root.
	ErrDisconnected = errors.New("model: kinematic graph is disconnected")

	// ErrCycle indicates a cycle in the kinematic graph.
	ErrCycle = errors.New("model: kinematic graph contains a cycle")

	// ErrBadJoint indicates an invalid joint definition (unknown type,
	// zero axis, self-loop).
	ErrBadJoint = errors.New("model: invalid joint definition")
)

// ModelError wraps a graph defect with the name of the offending entity.
type ModelError struct {
	Entity string
	Err    error
}

func (e *ModelError) Error() string {
	if e.Entity == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %q", e.Err.Error(), e.Entity)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

func modelErr(err error, entity string) error {
	return &ModelError{Entity: entity, Err: err}
}
