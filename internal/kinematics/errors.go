package kinematics

import (
	"errors"
	"fmt"

	"github.com/armature-sim/armature/internal/model"
)

// ErrDimension indicates a state vector whose length does not match the
// model. It is always a caller bug, never a runtime condition.
var ErrDimension = errors.New("kinematics: dimension mismatch")

// ConfigurationError reports which vector was mis-sized.
type ConfigurationError struct {
	What string
	Want int
	Got  int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s has length %d, model wants %d", ErrDimension, e.What, e.Got, e.Want)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrDimension
}

// CheckPositions validates a generalized position vector against the model.
func CheckPositions(m *model.Model, q []float64) error {
	if len(q) != m.PositionDim() {
		return &ConfigurationError{What: "positions", Want: m.PositionDim(), Got: len(q)}
	}
	return nil
}

// CheckVelocities validates a generalized velocity (or acceleration, or
// force) vector against the model's degrees of freedom.
func CheckVelocities(m *model.Model, v []float64, what string) error {
	if len(v) != m.DoF() {
		return &ConfigurationError{What: what, Want: m.DoF(), Got: len(v)}
	}
	return nil
}
