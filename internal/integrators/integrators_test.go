package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/armature-sim/armature/internal/dynamics"
	"github.com/armature-sim/armature/internal/model"
)

type funcDynamics func(q, v []float64, t float64) ([]float64, error)

func (f funcDynamics) Acceleration(q, v []float64, t float64) ([]float64, error) {
	return f(q, v, t)
}

// slider is a single prismatic degree of freedom with no gravity, so the
// test dynamics fully determine the motion.
func slider(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.Build(&model.Description{
		Name:    "slider",
		Gravity: []float64{0, 0, 0},
		Links: []model.LinkSpec{
			{Name: "base", Mass: 1},
			{Name: "cart", Mass: 1, Inertia: model.InertiaSpec{IXX: 0.1, IYY: 0.1, IZZ: 0.1}},
		},
		Joints: []model.JointSpec{
			{Name: "slide", Type: "prismatic", Parent: "base", Child: "cart", Axis: []float64{1, 0, 0}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func spinningBox(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.Build(&model.Description{
		Name:         "box",
		FloatingBase: true,
		Links: []model.LinkSpec{
			{Name: "box", Mass: 1, Inertia: model.InertiaSpec{IXX: 0.1, IYY: 0.2, IZZ: 0.3}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

// The test oscillator: unit mass on a unit spring, q(t) = cos(t).
func spring(q, v []float64, t float64) ([]float64, error) {
	return []float64{-q[0]}, nil
}

func TestNew(t *testing.T) {
	for name, want := range map[string]string{
		"":                    "semi-implicit-euler",
		"semi-implicit-euler": "semi-implicit-euler",
		"semi_implicit_euler": "semi-implicit-euler",
		"euler":               "euler",
		"rk4":                 "rk4",
	} {
		in, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if in.Name() != want {
			t.Errorf("New(%q).Name() = %q, want %q", name, in.Name(), want)
		}
	}
	if _, err := New("dormand-prince"); err == nil {
		t.Error("New with unknown name succeeded, want error")
	}
}

func TestSemiImplicitEulerStep(t *testing.T) {
	m := slider(t)
	in := NewSemiImplicitEuler()

	q, v, err := in.Step(m, funcDynamics(spring), []float64{1}, []float64{0}, 0, 0.1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	// Velocity updates first, position uses the new velocity.
	if math.Abs(v[0]-(-0.1)) > 1e-12 {
		t.Errorf("v = %g, want -0.1", v[0])
	}
	if math.Abs(q[0]-(1-0.01)) > 1e-12 {
		t.Errorf("q = %g, want 0.99", q[0])
	}
}

func TestSemiImplicitEulerEnergyBounded(t *testing.T) {
	m := slider(t)
	in := NewSemiImplicitEuler()

	q, v := []float64{1}, []float64{0}
	energy := func() float64 { return 0.5*v[0]*v[0] + 0.5*q[0]*q[0] }
	e0 := energy()

	var err error
	for i := 0; i < 10000; i++ {
		q, v, err = in.Step(m, funcDynamics(spring), q, v, float64(i)*1e-3, 1e-3)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if drift := math.Abs(energy() - e0); drift > 0.01*e0 {
			t.Fatalf("energy drift %g at step %d, want < %g", drift, i, 0.01*e0)
		}
	}
}

func TestRK4Accuracy(t *testing.T) {
	m := slider(t)

	run := func(in Integrator) float64 {
		q, v := []float64{1}, []float64{0}
		var err error
		for i := 0; i < 100; i++ {
			q, v, err = in.Step(m, funcDynamics(spring), q, v, float64(i)*0.01, 0.01)
			if err != nil {
				t.Fatalf("%s step %d: %v", in.Name(), i, err)
			}
		}
		return math.Abs(q[0] - math.Cos(1))
	}

	rk4Err := run(NewRK4())
	eulerErr := run(NewEuler())
	if rk4Err > 1e-7 {
		t.Errorf("rk4 error after 1s = %g, want < 1e-7", rk4Err)
	}
	if rk4Err > eulerErr/100 {
		t.Errorf("rk4 error %g not well below euler error %g", rk4Err, eulerErr)
	}
}

func TestQuaternionNormPreserved(t *testing.T) {
	m := spinningBox(t)
	freeMotion := funcDynamics(func(q, v []float64, tt float64) ([]float64, error) {
		return dynamics.ForwardDynamics(m, q, v, make([]float64, m.DoF()), nil)
	})

	for _, in := range []Integrator{NewSemiImplicitEuler(), NewEuler(), NewRK4()} {
		q := m.NeutralPositions()
		v := []float64{1, 0.5, 0.3, 0, 0, 0}
		var err error
		for i := 0; i < 500; i++ {
			q, v, err = in.Step(m, freeMotion, q, v, float64(i)*0.01, 0.01)
			if err != nil {
				t.Fatalf("%s step %d: %v", in.Name(), i, err)
			}
			norm := math.Sqrt(q[3]*q[3] + q[4]*q[4] + q[5]*q[5] + q[6]*q[6])
			if math.Abs(norm-1) > 1e-9 {
				t.Fatalf("%s: quaternion norm %g at step %d", in.Name(), norm, i)
			}
		}
	}
}

func TestNonFiniteState(t *testing.T) {
	m := slider(t)
	blowUp := funcDynamics(func(q, v []float64, tt float64) ([]float64, error) {
		return []float64{math.NaN()}, nil
	})

	for _, in := range []Integrator{NewSemiImplicitEuler(), NewEuler(), NewRK4()} {
		_, _, err := in.Step(m, blowUp, []float64{0}, []float64{0}, 2.5, 0.01)
		if !errors.Is(err, ErrNonFinite) {
			t.Fatalf("%s: err = %v, want ErrNonFinite", in.Name(), err)
		}
		var ie *IntegrationError
		if !errors.As(err, &ie) {
			t.Fatalf("%s: err = %T, want *IntegrationError", in.Name(), err)
		}
		if ie.Time != 2.5 {
			t.Errorf("%s: error time = %g, want 2.5", in.Name(), ie.Time)
		}
	}
}

func TestDynamicsErrorWrapped(t *testing.T) {
	m := slider(t)
	sentinel := errors.New("solver failed")
	failing := funcDynamics(func(q, v []float64, tt float64) ([]float64, error) {
		return nil, sentinel
	})

	_, _, err := NewRK4().Step(m, failing, []float64{0}, []float64{0}, 0, 0.01)
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
}
