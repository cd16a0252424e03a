// Package models is the built-in mechanism catalog: small, well-understood
// systems used by the CLI, the examples and the tests. Each builder
// returns a plain description; callers own the Build step so they can
// still edit masses or limits first.
package models

import (
	"fmt"
	"sort"

	"github.com/armature-sim/armature/internal/model"
)

const (
	DefaultMass   = 1.0
	DefaultLength = 1.0
)

// Pendulum is a point mass on a massless rod, hinged about the y axis.
// Zero angle hangs straight down.
func Pendulum() *model.Description {
	return &model.Description{
		Name: "pendulum",
		Links: []model.LinkSpec{
			{Name: "base", Mass: DefaultMass},
			{Name: "bob", Mass: DefaultMass, COM: []float64{0, 0, -DefaultLength}},
		},
		Joints: []model.JointSpec{
			{Name: "pivot", Type: "revolute", Parent: "base", Child: "bob", Axis: []float64{0, 1, 0}},
		},
	}
}

// DoublePendulum chains two unit pendulums.
func DoublePendulum() *model.Description {
	return &model.Description{
		Name: "double-pendulum",
		Links: []model.LinkSpec{
			{Name: "base", Mass: DefaultMass},
			{Name: "upper", Mass: DefaultMass, COM: []float64{0, 0, -DefaultLength},
				Inertia: model.InertiaSpec{IXX: 0.05, IYY: 0.05, IZZ: 0.01}},
			{Name: "lower", Mass: DefaultMass, COM: []float64{0, 0, -DefaultLength},
				Inertia: model.InertiaSpec{IXX: 0.05, IYY: 0.05, IZZ: 0.01}},
		},
		Joints: []model.JointSpec{
			{Name: "shoulder", Type: "revolute", Parent: "base", Child: "upper", Axis: []float64{0, 1, 0}},
			{Name: "elbow", Type: "revolute", Parent: "upper", Child: "lower", Axis: []float64{0, 1, 0},
				Origin: model.OriginSpec{XYZ: []float64{0, 0, -DefaultLength}}},
		},
	}
}

// CartPole is a cart on a horizontal prismatic rail carrying an inverted
// pendulum. Zero pole angle points up, so the equilibrium is unstable.
func CartPole() *model.Description {
	return &model.Description{
		Name: "cartpole",
		Links: []model.LinkSpec{
			{Name: "rail", Mass: 1},
			{Name: "cart", Mass: 1, Inertia: model.InertiaSpec{IXX: 0.01, IYY: 0.01, IZZ: 0.01}},
			{Name: "pole", Mass: 0.1, COM: []float64{0, 0, 0.5},
				Inertia: model.InertiaSpec{IXX: 0.01, IYY: 0.01, IZZ: 1e-4}},
		},
		Joints: []model.JointSpec{
			{Name: "slide", Type: "prismatic", Parent: "rail", Child: "cart", Axis: []float64{1, 0, 0},
				Limits: &model.LimitSpec{Min: -2, Max: 2}},
			{Name: "hinge", Type: "revolute", Parent: "cart", Child: "pole", Axis: []float64{0, 1, 0}},
		},
	}
}

// FreeBox is a floating rigid box with a collidable point at each bottom
// corner, for contact and free-fall scenarios.
func FreeBox() *model.Description {
	const half = 0.1
	return &model.Description{
		Name:         "free-box",
		FloatingBase: true,
		Links: []model.LinkSpec{
			{Name: "box", Mass: DefaultMass,
				Inertia: model.InertiaSpec{IXX: 2.0 / 3 * DefaultMass * half * half,
					IYY: 2.0 / 3 * DefaultMass * half * half,
					IZZ: 2.0 / 3 * DefaultMass * half * half}},
		},
		Contacts: []model.ContactSpec{
			{Link: "box", Point: []float64{half, half, -half}},
			{Link: "box", Point: []float64{half, -half, -half}},
			{Link: "box", Point: []float64{-half, half, -half}},
			{Link: "box", Point: []float64{-half, -half, -half}},
		},
	}
}

// SphericalPendulum swings a point mass on a ball joint, exercising
// quaternion position coordinates in a fixed-base tree.
func SphericalPendulum() *model.Description {
	return &model.Description{
		Name: "spherical-pendulum",
		Links: []model.LinkSpec{
			{Name: "base", Mass: DefaultMass},
			{Name: "bob", Mass: DefaultMass, COM: []float64{0, 0, -DefaultLength},
				Inertia: model.InertiaSpec{IXX: 0.01, IYY: 0.01, IZZ: 0.01}},
		},
		Joints: []model.JointSpec{
			{Name: "ball", Type: "spherical", Parent: "base", Child: "bob"},
		},
	}
}

var catalog = map[string]func() *model.Description{
	"pendulum":           Pendulum,
	"double-pendulum":    DoublePendulum,
	"cartpole":           CartPole,
	"free-box":           FreeBox,
	"spherical-pendulum": SphericalPendulum,
}

// Names lists the catalog in stable order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get builds the named catalog model.
func Get(name string) (*model.Model, error) {
	build, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (have %v)", name, Names())
	}
	return model.Build(build())
}
