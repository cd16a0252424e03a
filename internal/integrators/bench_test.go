package integrators

import (
	"fmt"
	"testing"

	"github.com/armature-sim/armature/internal/dynamics"
	"github.com/armature-sim/armature/internal/model"
)

func benchChain(b *testing.B, n int) *model.Model {
	b.Helper()
	desc := &model.Description{Name: fmt.Sprintf("chain%d", n)}
	desc.Links = append(desc.Links, model.LinkSpec{Name: "link0", Mass: 1})
	for i := 1; i < n; i++ {
		desc.Links = append(desc.Links, model.LinkSpec{
			Name: fmt.Sprintf("link%d", i),
			Mass: 1, COM: []float64{0, 0, -0.5},
			Inertia: model.InertiaSpec{IXX: 0.1, IYY: 0.1, IZZ: 0.01},
		})
		desc.Joints = append(desc.Joints, model.JointSpec{
			Name: fmt.Sprintf("joint%d", i), Type: "revolute",
			Parent: fmt.Sprintf("link%d", i-1), Child: fmt.Sprintf("link%d", i),
			Axis:   []float64{0, 1, 0},
			Origin: model.OriginSpec{XYZ: []float64{0, 0, -1}},
		})
	}
	m, err := model.Build(desc)
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	return m
}

func benchIntegrator(b *testing.B, in Integrator, n int) {
	m := benchChain(b, n)
	dyn := funcDynamics(func(q, v []float64, t float64) ([]float64, error) {
		return dynamics.ForwardDynamics(m, q, v, make([]float64, m.DoF()), nil)
	})

	q := m.NeutralPositions()
	v := make([]float64, m.DoF())
	q[0] = 0.3

	b.ResetTimer()
	var err error
	for i := 0; i < b.N; i++ {
		q, v, err = in.Step(m, dyn, q, v, 0, 1e-3)
		if err != nil {
			b.Fatalf("step: %v", err)
		}
	}
}

func BenchmarkSemiImplicitEuler8(b *testing.B) { benchIntegrator(b, NewSemiImplicitEuler(), 8) }
func BenchmarkEuler8(b *testing.B)             { benchIntegrator(b, NewEuler(), 8) }
func BenchmarkRK48(b *testing.B)               { benchIntegrator(b, NewRK4(), 8) }
func BenchmarkRK432(b *testing.B)              { benchIntegrator(b, NewRK4(), 32) }
