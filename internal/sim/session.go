package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/armature-sim/armature/internal/contact"
	"github.com/armature-sim/armature/internal/dynamics"
	"github.com/armature-sim/armature/internal/integrators"
	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
)

// Session owns the mutable state of one simulation: the mechanism state,
// the contact material deformations and the integrator scratch. The Model
// it runs is shared and never written. Sessions are not safe for
// concurrent use; run several Sessions instead (see Batch).
type Session struct {
	model      *model.Model
	integrator integrators.Integrator
	controller Controller
	terrain    contact.Terrain
	soft       contact.SoftParams
	limits     contact.LimitParams

	state     State
	deform    *contact.State
	taus      []float64 // actuation held over the current step
	rates     []r3.Vector
	metrics   []Metric
	observers []Observer
}

// New creates a session at the model's neutral state, with a flat terrain
// at height zero and default contact parameters.
func New(m *model.Model, in integrators.Integrator) *Session {
	return &Session{
		model:      m,
		integrator: in,
		terrain:    contact.FlatTerrain{},
		soft:       contact.DefaultSoftParams(),
		limits:     contact.DefaultLimitParams(),
		state:      NewState(m),
		deform:     contact.NewState(m),
		taus:       make([]float64, m.DoF()),
	}
}

func (s *Session) Model() *model.Model { return s.model }

// State returns a copy of the current state.
func (s *Session) State() State { return s.state.Clone() }

// ContactDeformation exposes the persistent per-point tangential
// deformations, mostly for inspection in tests and metrics.
func (s *Session) ContactDeformation() []r3.Vector { return s.deform.Deformation }

func (s *Session) SetController(c Controller)            { s.controller = c }
func (s *Session) SetTerrain(t contact.Terrain)          { s.terrain = t }
func (s *Session) SetContactParams(p contact.SoftParams) { s.soft = p }
func (s *Session) SetLimitParams(p contact.LimitParams)  { s.limits = p }
func (s *Session) AddMetric(m Metric)                    { s.metrics = append(s.metrics, m) }
func (s *Session) AddObserver(o Observer)                { s.observers = append(s.observers, o) }

// Reset places the session at (q0, v0) with t = 0 and relaxed contacts.
// Nil q0 or v0 mean neutral positions or zero velocities.
func (s *Session) Reset(q0, v0 []float64) error {
	if q0 == nil {
		q0 = s.model.NeutralPositions()
	}
	if v0 == nil {
		v0 = make([]float64, s.model.DoF())
	}
	if err := kinematics.CheckPositions(s.model, q0); err != nil {
		return err
	}
	if err := kinematics.CheckVelocities(s.model, v0, "initial velocities"); err != nil {
		return err
	}
	s.state = State{Q: append([]float64(nil), q0...), V: append([]float64(nil), v0...)}
	s.deform.Reset()
	return nil
}

// Acceleration implements integrators.Dynamics: the forward dynamics of
// the mechanism under the actuation held for the current step plus contact
// and joint-limit forces. The contact deformation is frozen during a step;
// only its rate at the step start is integrated afterwards.
func (s *Session) Acceleration(q, v []float64, t float64) ([]float64, error) {
	tau := make([]float64, s.model.DoF())
	copy(tau, s.taus)

	ctau, _, err := contact.GeneralizedForces(s.model, q, v, s.deform, s.soft, s.terrain)
	if err != nil {
		return nil, err
	}
	for i := range tau {
		tau[i] += ctau[i]
	}
	contact.JointLimitForces(s.model, q, v, s.limits, tau)

	return dynamics.ForwardDynamics(s.model, q, v, tau, nil)
}

// Step advances the session by dt: sample the controller once, integrate
// the mechanism state, then advance the contact deformations with their
// start-of-step rates.
func (s *Session) Step(dt float64) error {
	for i := range s.taus {
		s.taus[i] = 0
	}
	if s.controller != nil {
		u := s.controller.Compute(s.state)
		if len(u) != s.model.DoF() {
			return &kinematics.ConfigurationError{
				What: "control", Want: s.model.DoF(), Got: len(u),
			}
		}
		copy(s.taus, u)
	}

	_, rates, err := contact.GeneralizedForces(s.model, s.state.Q, s.state.V, s.deform, s.soft, s.terrain)
	if err != nil {
		return err
	}
	s.rates = rates

	q, v, err := s.integrator.Step(s.model, s, s.state.Q, s.state.V, s.state.Time, dt)
	if err != nil {
		return err
	}
	s.deform.Advance(s.rates, dt)
	s.state = State{Q: q, V: v, Time: s.state.Time + dt}
	return nil
}

// ForwardDynamics returns the generalized accelerations the mechanism
// takes at the current state under the generalized forces tau alone,
// without controller, contact or joint-limit contributions.
func (s *Session) ForwardDynamics(tau []float64) ([]float64, error) {
	return dynamics.ForwardDynamics(s.model, s.state.Q, s.state.V, tau, nil)
}

// InverseDynamics returns the generalized forces that would produce the
// accelerations a at the current state.
func (s *Session) InverseDynamics(a []float64) ([]float64, error) {
	return dynamics.InverseDynamics(s.model, s.state.Q, s.state.V, a, nil)
}

// Energy returns the total mechanical energy at the current state.
func (s *Session) Energy() (float64, error) {
	ke, pe, err := dynamics.Energy(s.model, s.state.Q, s.state.V)
	return ke + pe, err
}

// Run steps the session for cfg.Duration, recording the trajectory. The
// context cancels a run between steps; the partial result is returned with
// the context error.
func (s *Session) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %g", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %g", cfg.Duration)
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		States:  make([]State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	record := func() {
		st := s.State()
		result.States = append(result.States, st)
		result.Times = append(result.Times, st.Time)
		for _, m := range s.metrics {
			m.Observe(st)
		}
		for _, o := range s.observers {
			o.OnStep(st)
		}
	}
	record()

	initial, err := s.Energy()
	if err != nil {
		return nil, err
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.Step(cfg.Dt); err != nil {
			if cfg.StopOnError {
				return result, err
			}
			result.Errors = append(result.Errors, err)
			break
		}
		result.StepsTaken++
		record()
	}

	final, err := s.Energy()
	switch {
	case err != nil:
		result.Errors = append(result.Errors, err)
	case initial != 0:
		result.EnergyDrift = math.Abs(final-initial) / math.Abs(initial)
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}
