package dynamics

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/spatial"
)

func buildPendulum(t testing.TB) *model.Model {
	t.Helper()
	m, err := model.Build(&model.Description{
		Name: "pendulum",
		Links: []model.LinkSpec{
			{Name: "base"},
			{Name: "arm", Mass: 1, COM: []float64{0, 0, -1}},
		},
		Joints: []model.JointSpec{
			{Name: "pivot", Type: "revolute", Parent: "base", Child: "arm", Axis: []float64{0, 1, 0}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func buildDoublePendulum(t testing.TB) *model.Model {
	t.Helper()
	m, err := model.Build(&model.Description{
		Name: "double_pendulum",
		Links: []model.LinkSpec{
			{Name: "base"},
			{Name: "upper", Mass: 1.2, COM: []float64{0, 0, -0.5},
				Inertia: model.InertiaSpec{IXX: 0.11, IYY: 0.1, IZZ: 0.02}},
			{Name: "lower", Mass: 0.8, COM: []float64{0, 0, -0.4},
				Inertia: model.InertiaSpec{IXX: 0.05, IYY: 0.06, IZZ: 0.01}},
		},
		Joints: []model.JointSpec{
			{Name: "shoulder", Type: "revolute", Parent: "base", Child: "upper", Axis: []float64{0, 1, 0}},
			{Name: "elbow", Type: "revolute", Parent: "upper", Child: "lower", Axis: []float64{0, 1, 0},
				Origin: model.OriginSpec{XYZ: []float64{0, 0, -1}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func buildMixedChain(t testing.TB) *model.Model {
	t.Helper()
	m, err := model.Build(&model.Description{
		Name:         "mixed",
		FloatingBase: true,
		Links: []model.LinkSpec{
			{Name: "body", Mass: 3, COM: []float64{0.05, 0, 0.02},
				Inertia: model.InertiaSpec{IXX: 0.3, IYY: 0.25, IZZ: 0.28, IXY: 0.01}},
			{Name: "slide", Mass: 1, Inertia: model.InertiaSpec{IXX: 0.1, IYY: 0.1, IZZ: 0.1}},
			{Name: "arm", Mass: 0.7, COM: []float64{0, 0, -0.3},
				Inertia: model.InertiaSpec{IXX: 0.05, IYY: 0.05, IZZ: 0.01}},
			{Name: "wrist", Mass: 0.3, COM: []float64{0.1, 0, 0},
				Inertia: model.InertiaSpec{IXX: 0.02, IYY: 0.02, IZZ: 0.02}},
		},
		Joints: []model.JointSpec{
			{Name: "rail", Type: "prismatic", Parent: "body", Child: "slide", Axis: []float64{1, 0, 0}},
			{Name: "shoulder", Type: "revolute", Parent: "slide", Child: "arm", Axis: []float64{0, 1, 0},
				Origin: model.OriginSpec{XYZ: []float64{0, 0, 0.5}}},
			{Name: "ball", Type: "spherical", Parent: "arm", Child: "wrist",
				Origin: model.OriginSpec{XYZ: []float64{0, 0, -0.6}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func randomState(m *model.Model, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	q := m.NeutralPositions()
	dq := make([]float64, m.DoF())
	v := make([]float64, m.DoF())
	for i := range dq {
		dq[i] = rng.NormFloat64()
		v[i] = rng.NormFloat64()
	}
	return m.IntegratePositions(q, dq, 1.0), v
}

func TestForwardDynamicsPendulumAnalytic(t *testing.T) {
	m := buildPendulum(t)
	g := 9.80665

	for _, theta := range []float64{0, 0.3, math.Pi / 2, -1.1, math.Pi} {
		a, err := ForwardDynamics(m, []float64{theta}, []float64{0}, []float64{0}, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := -g * math.Sin(theta) // alpha = -(g/L) sin(theta), L = 1
		if math.Abs(a[0]-want) > 1e-9 {
			t.Errorf("theta=%v: alpha = %v, want %v", theta, a[0], want)
		}
	}
}

func TestInverseDynamicsGravityCompensation(t *testing.T) {
	// Holding the pendulum still takes exactly the gravity torque.
	m := buildPendulum(t)
	theta := 0.7
	tau, err := InverseDynamics(m, []float64{theta}, []float64{0}, []float64{0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := 9.80665 * math.Sin(theta)
	if math.Abs(tau[0]-want) > 1e-9 {
		t.Errorf("holding torque = %v, want %v", tau[0], want)
	}
}

func TestForwardInverseRoundTripDoublePendulum(t *testing.T) {
	m := buildDoublePendulum(t)
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		q := []float64{rng.Float64()*2*math.Pi - math.Pi, rng.Float64()*2*math.Pi - math.Pi}
		v := []float64{rng.NormFloat64() * 3, rng.NormFloat64() * 3}
		tau := []float64{rng.NormFloat64() * 5, rng.NormFloat64() * 5}

		a, err := ForwardDynamics(m, q, v, tau, nil)
		if err != nil {
			t.Fatal(err)
		}
		back, err := InverseDynamics(m, q, v, a, nil)
		if err != nil {
			t.Fatal(err)
		}
		for i := range tau {
			if math.Abs(back[i]-tau[i]) > 1e-9*math.Max(1, math.Abs(tau[i])) {
				t.Fatalf("trial %d: tau[%d] round trip %v -> %v", trial, i, tau[i], back[i])
			}
		}
	}
}

func TestForwardInverseRoundTripMixedChain(t *testing.T) {
	m := buildMixedChain(t)
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 25; trial++ {
		q, v := randomState(m, int64(trial+100))
		tau := make([]float64, m.DoF())
		for i := range tau {
			tau[i] = rng.NormFloat64() * 4
		}

		a, err := ForwardDynamics(m, q, v, tau, nil)
		if err != nil {
			t.Fatal(err)
		}
		back, err := InverseDynamics(m, q, v, a, nil)
		if err != nil {
			t.Fatal(err)
		}
		for i := range tau {
			if math.Abs(back[i]-tau[i]) > 1e-8*math.Max(1, math.Abs(tau[i])) {
				t.Fatalf("trial %d: tau[%d] round trip %v -> %v", trial, i, tau[i], back[i])
			}
		}
	}
}

func TestForwardDynamicsMatchesMassMatrix(t *testing.T) {
	// H(q) qdd + C(q, v) = tau, solved densely, must agree with the O(n)
	// articulated-body recursion.
	m := buildMixedChain(t)
	q, v := randomState(m, 3)
	rng := rand.New(rand.NewSource(4))
	tau := make([]float64, m.DoF())
	for i := range tau {
		tau[i] = rng.NormFloat64()
	}

	a, err := ForwardDynamics(m, q, v, tau, nil)
	if err != nil {
		t.Fatal(err)
	}

	h, err := MassMatrix(m, q)
	if err != nil {
		t.Fatal(err)
	}
	c, err := BiasForces(m, q, v)
	if err != nil {
		t.Fatal(err)
	}

	rhs := mat.NewVecDense(m.DoF(), nil)
	for i := 0; i < m.DoF(); i++ {
		rhs.SetVec(i, tau[i]-c[i])
	}
	var sol mat.VecDense
	if err := sol.SolveVec(h, rhs); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < m.DoF(); i++ {
		if math.Abs(sol.AtVec(i)-a[i]) > 1e-7*math.Max(1, math.Abs(a[i])) {
			t.Errorf("qdd[%d]: mass-matrix solve %v, ABA %v", i, sol.AtVec(i), a[i])
		}
	}
}

func TestMassMatrixKineticEnergy(t *testing.T) {
	// KE = 0.5 v^T H v must match the link-wise spatial sum.
	m := buildMixedChain(t)
	q, v := randomState(m, 5)

	h, err := MassMatrix(m, q)
	if err != nil {
		t.Fatal(err)
	}
	vv := mat.NewVecDense(len(v), v)
	var hv mat.VecDense
	hv.MulVec(h, vv)
	quad := 0.5 * mat.Dot(vv, &hv)

	ke, _, err := Energy(m, q, v)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(quad-ke) > 1e-9*math.Max(1, ke) {
		t.Errorf("0.5 v^T H v = %v, spatial kinetic energy = %v", quad, ke)
	}
}

func TestMassMatrixSymmetricPositive(t *testing.T) {
	m := buildDoublePendulum(t)
	q, _ := randomState(m, 6)

	h, err := MassMatrix(m, q)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := h.Dims()
	for i := 0; i < n; i++ {
		if h.At(i, i) <= 0 {
			t.Errorf("H[%d][%d] = %v, want > 0", i, i, h.At(i, i))
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(h) {
		t.Error("mass matrix is not positive definite")
	}
}

func TestZeroDoFModel(t *testing.T) {
	m, err := model.Build(&model.Description{
		Name:  "static",
		Links: []model.LinkSpec{{Name: "a", Mass: 1}, {Name: "b", Mass: 2}},
		Joints: []model.JointSpec{
			{Name: "weld", Type: "fixed", Parent: "a", Child: "b"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.DoF() != 0 {
		t.Fatalf("expected zero dof, got %d", m.DoF())
	}

	a, err := ForwardDynamics(m, nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 0 {
		t.Errorf("expected empty accelerations, got %v", a)
	}
	tau, err := InverseDynamics(m, nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tau) != 0 {
		t.Errorf("expected empty forces, got %v", tau)
	}
}

func TestExternalForceBalancesGravity(t *testing.T) {
	m, err := model.Build(&model.Description{
		Name:         "free",
		FloatingBase: true,
		Links: []model.LinkSpec{
			{Name: "body", Mass: 2, Inertia: model.InertiaSpec{IXX: 0.2, IYY: 0.2, IZZ: 0.2}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	q := m.NeutralPositions()
	v := make([]float64, 6)
	tau := make([]float64, 6)

	// An upward world force of m*g through the COM (at the origin) leaves
	// the body in equilibrium.
	fext := []spatial.Force{{Lin: r3.Vector{Z: 2 * 9.80665}}}
	a, err := ForwardDynamics(m, q, v, tau, fext)
	if err != nil {
		t.Fatal(err)
	}
	for i, ai := range a {
		if math.Abs(ai) > 1e-9 {
			t.Errorf("a[%d] = %v, want 0", i, ai)
		}
	}

	// Without it the body falls at g.
	a, err = ForwardDynamics(m, q, v, tau, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a[5]+9.80665) > 1e-9 {
		t.Errorf("free fall a_z = %v, want %v", a[5], -9.80665)
	}
}

func TestDimensionMismatchReported(t *testing.T) {
	m := buildPendulum(t)
	_, err := ForwardDynamics(m, []float64{0}, []float64{0, 1}, []float64{0}, nil)
	if !errors.Is(err, kinematics.ErrDimension) {
		t.Errorf("got %v, want ErrDimension", err)
	}
	_, err = InverseDynamics(m, []float64{0}, []float64{0}, nil, nil)
	if !errors.Is(err, kinematics.ErrDimension) {
		t.Errorf("got %v, want ErrDimension", err)
	}
}

func buildSerialChain(tb testing.TB, n int) *model.Model {
	tb.Helper()
	desc := &model.Description{Name: fmt.Sprintf("chain%d", n)}
	desc.Links = append(desc.Links, model.LinkSpec{Name: "base"})
	for i := 0; i < n; i++ {
		desc.Links = append(desc.Links, model.LinkSpec{
			Name: fmt.Sprintf("link%d", i),
			Mass: 1, COM: []float64{0, 0, -0.25},
			Inertia: model.InertiaSpec{IXX: 0.02, IYY: 0.02, IZZ: 0.005},
		})
		parent := "base"
		if i > 0 {
			parent = fmt.Sprintf("link%d", i-1)
		}
		axis := []float64{0, 1, 0}
		if i%2 == 1 {
			axis = []float64{1, 0, 0}
		}
		desc.Joints = append(desc.Joints, model.JointSpec{
			Name: fmt.Sprintf("j%d", i), Type: "revolute",
			Parent: parent, Child: fmt.Sprintf("link%d", i),
			Axis:   axis,
			Origin: model.OriginSpec{XYZ: []float64{0, 0, -0.5}},
		})
	}
	m, err := model.Build(desc)
	if err != nil {
		tb.Fatal(err)
	}
	return m
}

func BenchmarkForwardDynamics(b *testing.B) {
	for _, n := range []int{4, 16, 64} {
		b.Run(fmt.Sprintf("links=%d", n), func(b *testing.B) {
			m := buildSerialChain(b, n)
			q, v := randomState(m, 1)
			tau := make([]float64, m.DoF())
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ForwardDynamics(m, q, v, tau, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkInverseDynamics(b *testing.B) {
	m := buildSerialChain(b, 16)
	q, v := randomState(m, 2)
	a := make([]float64, m.DoF())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := InverseDynamics(m, q, v, a, nil); err != nil {
			b.Fatal(err)
		}
	}
}
