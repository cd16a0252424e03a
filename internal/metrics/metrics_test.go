package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/armature-sim/armature/internal/contact"
	"github.com/armature-sim/armature/internal/integrators"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/sim"
)

func floatingBox(t *testing.T, withContact bool) *model.Model {
	t.Helper()
	desc := &model.Description{
		Name:         "box",
		FloatingBase: true,
		Links: []model.LinkSpec{
			{Name: "box", Mass: 1, Inertia: model.InertiaSpec{IXX: 0.1, IYY: 0.1, IZZ: 0.1}},
		},
	}
	if withContact {
		desc.Contacts = []model.ContactSpec{{Link: "box", Point: []float64{0, 0, 0}}}
	}
	m, err := model.Build(desc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestEnergyDriftZeroForConstantEnergy(t *testing.T) {
	m := floatingBox(t, false)
	drift := NewEnergyDrift(m)

	st := sim.NewState(m)
	st.V[3] = 1
	drift.Observe(st)
	drift.Observe(st)
	if drift.Value() != 0 {
		t.Errorf("drift = %g for identical states, want 0", drift.Value())
	}
}

func TestEnergyDriftDetectsChange(t *testing.T) {
	m := floatingBox(t, false)
	drift := NewEnergyDrift(m)

	st := sim.NewState(m)
	st.V[3] = 1
	drift.Observe(st)
	st.V[3] = 2 // kinetic energy quadruples
	drift.Observe(st)
	if drift.Value() < 1 {
		t.Errorf("drift = %g after energy change, want >= 1", drift.Value())
	}

	drift.Reset()
	if drift.Value() != 0 {
		t.Errorf("drift after reset = %g, want 0", drift.Value())
	}
}

func TestQuaternionNormOnRun(t *testing.T) {
	m := floatingBox(t, false)
	s := sim.New(m, integrators.NewRK4())
	qn := NewQuaternionNorm(m)
	s.AddMetric(qn)

	v0 := make([]float64, m.DoF())
	v0[0], v0[1] = 2, 1 // tumbling
	if err := s.Reset(nil, v0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	res, err := s.Run(context.Background(), sim.Config{Dt: 1e-3, Duration: 1, StopOnError: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Metrics["quaternion_norm_error"] > 1e-9 {
		t.Errorf("quaternion norm error = %g, want < 1e-9", res.Metrics["quaternion_norm_error"])
	}
}

func TestMaxPenetration(t *testing.T) {
	m := floatingBox(t, true)
	p := NewMaxPenetration(m, contact.FlatTerrain{})

	st := sim.NewState(m)
	st.Q[2] = 0.1
	p.Observe(st)
	if p.Value() != 0 {
		t.Errorf("penetration above terrain = %g, want 0", p.Value())
	}
	st.Q[2] = -0.02
	p.Observe(st)
	if math.Abs(p.Value()-0.02) > 1e-12 {
		t.Errorf("penetration = %g, want 0.02", p.Value())
	}
}

func TestPeakVelocity(t *testing.T) {
	m := floatingBox(t, false)
	p := NewPeakVelocity()

	st := sim.NewState(m)
	st.V[4] = -3
	p.Observe(st)
	st.V[4] = 1
	p.Observe(st)
	if p.Value() != 3 {
		t.Errorf("peak = %g, want 3", p.Value())
	}
}
