package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/armature-sim/armature/internal/contact"
	"github.com/armature-sim/armature/internal/integrators"
	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
)

// pendulum is a point mass on a massless unit rod, hinged about y.
func pendulum(t testing.TB) *model.Model {
	m, err := model.Build(&model.Description{
		Name: "pendulum",
		Links: []model.LinkSpec{
			{Name: "base", Mass: 1},
			{Name: "bob", Mass: 1, COM: []float64{0, 0, -1}},
		},
		Joints: []model.JointSpec{
			{Name: "pivot", Type: "revolute", Parent: "base", Child: "bob", Axis: []float64{0, 1, 0}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func droppedBox(t testing.TB) *model.Model {
	m, err := model.Build(&model.Description{
		Name:         "box",
		FloatingBase: true,
		Links: []model.LinkSpec{
			{Name: "box", Mass: 1, Inertia: model.InertiaSpec{IXX: 0.1, IYY: 0.1, IZZ: 0.1}},
		},
		Contacts: []model.ContactSpec{
			{Link: "box", Point: []float64{0, 0, 0}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

// The linearized period of a unit point pendulum is 2*pi*sqrt(L/g). A
// small release angle keeps the nonlinear correction below the tolerance.
func TestPendulumSmallAnglePeriod(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewRK4())
	if err := s.Reset([]float64{0.01}, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := s.Run(context.Background(), Config{Dt: 1e-3, Duration: 2.5, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Time between successive downward zero crossings, with linear
	// interpolation between samples.
	var crossings []float64
	for i := 1; i < len(res.States); i++ {
		a, b := res.States[i-1].Q[0], res.States[i].Q[0]
		if a > 0 && b <= 0 {
			frac := a / (a - b)
			crossings = append(crossings, res.Times[i-1]+frac*(res.Times[i]-res.Times[i-1]))
		}
	}
	if len(crossings) < 2 {
		t.Fatalf("found %d zero crossings, want >= 2", len(crossings))
	}
	period := crossings[1] - crossings[0]
	want := 2 * math.Pi * math.Sqrt(1/9.80665)
	if math.Abs(period-want) > 0.01*want {
		t.Errorf("period = %g, want %g within 1%%", period, want)
	}
}

func TestEnergyConservation(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewRK4())
	if err := s.Reset([]float64{0.5}, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := s.Run(context.Background(), Config{Dt: 1e-3, Duration: 2, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StepsTaken != 2000 {
		t.Errorf("StepsTaken = %d, want 2000", res.StepsTaken)
	}
	if res.EnergyDrift > 1e-6 {
		t.Errorf("energy drift = %g, want < 1e-6", res.EnergyDrift)
	}
}

// Released from horizontal, the bob passes the bottom with speed
// sqrt(2*g*L); the angular rate there is the same number for L = 1.
func TestPendulumReleasedFromHorizontal(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewRK4())
	if err := s.Reset([]float64{math.Pi / 2}, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := s.Run(context.Background(), Config{Dt: 1e-4, Duration: 1, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	maxRate := 0.0
	for _, st := range res.States {
		if r := math.Abs(st.V[0]); r > maxRate {
			maxRate = r
		}
	}
	want := math.Sqrt(2 * 9.80665)
	if math.Abs(maxRate-want) > 0.01*want {
		t.Errorf("peak angular rate = %g, want %g within 1%%", maxRate, want)
	}
}

func TestBoxSettlesOnTerrain(t *testing.T) {
	m := droppedBox(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	s.SetContactParams(contact.EstimateParams(m, 1e-3, 1, 1, 0.5))

	q0 := m.NeutralPositions()
	q0[2] = 0.2
	if err := s.Reset(q0, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := s.Run(context.Background(), Config{Dt: 1e-3, Duration: 3, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, st := range res.States {
		if st.Q[2] < -0.05 {
			t.Fatalf("box fell through terrain: z = %g at t = %g", st.Q[2], st.Time)
		}
	}
	final := res.States[len(res.States)-1]
	if final.Q[2] > 0.01 || final.Q[2] < -0.01 {
		t.Errorf("final height = %g, want near the target penetration", final.Q[2])
	}
	if vz := math.Abs(final.V[5]); vz > 0.1 {
		t.Errorf("final vertical speed = %g, want settled", vz)
	}
}

func TestFrictionStopsSlidingBox(t *testing.T) {
	m := droppedBox(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	s.SetContactParams(contact.EstimateParams(m, 1e-3, 1, 1, 0.5))

	q0 := m.NeutralPositions()
	q0[2] = -1e-3 // at the static equilibrium penetration
	v0 := make([]float64, m.DoF())
	v0[3] = 1 // sliding along x
	if err := s.Reset(q0, v0); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := s.Run(context.Background(), Config{Dt: 1e-3, Duration: 1, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	final := res.States[len(res.States)-1]
	if vx := math.Abs(final.V[3]); vx > 0.05 {
		t.Errorf("final sliding speed = %g, want braked to near zero", vx)
	}
}

func TestControllerDrivesJoint(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	// Hold the pendulum horizontal with the exact gravity torque.
	s.SetController(ControllerFunc(func(st State) []float64 {
		return []float64{9.80665 * math.Sin(st.Q[0])}
	}))
	if err := s.Reset([]float64{math.Pi / 2}, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := s.Run(context.Background(), Config{Dt: 1e-3, Duration: 1, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	final := res.States[len(res.States)-1]
	if math.Abs(final.Q[0]-math.Pi/2) > 1e-6 {
		t.Errorf("angle under gravity compensation = %g, want pi/2", final.Q[0])
	}
}

func TestControllerDimensionChecked(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	s.SetController(ControllerFunc(func(st State) []float64 {
		return []float64{1, 2, 3}
	}))

	err := s.Step(1e-3)
	if !errors.Is(err, kinematics.ErrDimension) {
		t.Fatalf("err = %v, want dimension error", err)
	}
}

func TestResetValidatesDimensions(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	if err := s.Reset([]float64{0, 0}, nil); !errors.Is(err, kinematics.ErrDimension) {
		t.Fatalf("err = %v, want dimension error", err)
	}
}

func TestRunCancellation(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Run(ctx, Config{Dt: 1e-3, Duration: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || res.StepsTaken != 0 {
		t.Fatalf("result = %+v, want empty partial result", res)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	if _, err := s.Run(context.Background(), Config{Dt: 0, Duration: 1}); err == nil {
		t.Error("Run with dt = 0 succeeded, want error")
	}
	if _, err := s.Run(context.Background(), Config{Dt: 1e-3, Duration: -1}); err == nil {
		t.Error("Run with negative duration succeeded, want error")
	}
}

func TestBatchRunsIndependentSessions(t *testing.T) {
	m := pendulum(t)
	b := NewBatch(m, func() integrators.Integrator { return integrators.NewRK4() },
		func(run int, s *Session) {
			s.Reset([]float64{0.1 * float64(run+1)}, nil)
		})

	results, err := b.Run(context.Background(), 4, Config{Dt: 1e-3, Duration: 0.5, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	for i := 1; i < 4; i++ {
		prev := results[i-1].States[len(results[i-1].States)-1].Q[0]
		cur := results[i].States[len(results[i].States)-1].Q[0]
		if prev == cur {
			t.Errorf("runs %d and %d ended identically at %g", i-1, i, prev)
		}
	}
}

func TestSessionDynamicsRoundTrip(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewRK4())
	if err := s.Reset([]float64{math.Pi / 3}, []float64{0.4}); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	a, err := s.ForwardDynamics([]float64{0.7})
	if err != nil {
		t.Fatalf("ForwardDynamics: %v", err)
	}
	tau, err := s.InverseDynamics(a)
	if err != nil {
		t.Fatalf("InverseDynamics: %v", err)
	}
	if math.Abs(tau[0]-0.7) > 1e-9 {
		t.Errorf("round-trip torque = %g, want 0.7", tau[0])
	}
}

// At horizontal release the gravity torque on a unit point pendulum gives
// |qdd| = g, independent of contact or controller state.
func TestSessionForwardDynamicsHorizontal(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	if err := s.Reset([]float64{math.Pi / 2}, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	a, err := s.ForwardDynamics(make([]float64, 1))
	if err != nil {
		t.Fatalf("ForwardDynamics: %v", err)
	}
	if g := 9.80665; math.Abs(math.Abs(a[0])-g) > 1e-9 {
		t.Errorf("|qdd| = %g, want %g", math.Abs(a[0]), g)
	}
}

func TestSessionDynamicsValidateDimensions(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	if _, err := s.ForwardDynamics([]float64{1, 2}); !errors.Is(err, kinematics.ErrDimension) {
		t.Errorf("ForwardDynamics err = %v, want dimension error", err)
	}
	if _, err := s.InverseDynamics(nil); !errors.Is(err, kinematics.ErrDimension) {
		t.Errorf("InverseDynamics err = %v, want dimension error", err)
	}
}

func TestRunRecordsFinalEnergyError(t *testing.T) {
	m := pendulum(t)
	s := New(m, integrators.NewSemiImplicitEuler())
	cfg := Config{Dt: 1e-3, Duration: 0.01}

	// Truncate the velocity vector at the last recorded state so the
	// closing energy evaluation fails after the loop completes.
	records := 0
	s.AddObserver(ObserverFunc(func(State) {
		records++
		if records == 11 {
			s.state.V = s.state.V[:0]
		}
	}))

	res, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StepsTaken != 10 {
		t.Fatalf("StepsTaken = %d, want 10", res.StepsTaken)
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], kinematics.ErrDimension) {
		t.Fatalf("Errors = %v, want one dimension error", res.Errors)
	}
	if res.EnergyDrift != 0 {
		t.Errorf("EnergyDrift = %g, want 0 when the final energy is unknown", res.EnergyDrift)
	}
}
