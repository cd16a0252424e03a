package model

import (
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/armature-sim/armature/internal/spatial"
)

// Description is the structured model ingestion schema: the output of an
// external URDF/SDF parser, or a hand-written YAML file. Build turns it
// into a frozen Model.
type Description struct {
	Name         string        `yaml:"name"`
	FloatingBase bool          `yaml:"floating_base"`
	Gravity      []float64     `yaml:"gravity,omitempty"`
	Links        []LinkSpec    `yaml:"links"`
	Joints       []JointSpec   `yaml:"joints"`
	Contacts     []ContactSpec `yaml:"contact_points,omitempty"`
}

// LinkSpec describes one rigid body.
type LinkSpec struct {
	Name    string      `yaml:"name"`
	Mass    float64     `yaml:"mass"`
	COM     []float64   `yaml:"com,omitempty"`
	Inertia InertiaSpec `yaml:"inertia,omitempty"`
}

// InertiaSpec is the rotational inertia about the center of mass.
type InertiaSpec struct {
	IXX float64 `yaml:"ixx"`
	IYY float64 `yaml:"iyy"`
	IZZ float64 `yaml:"izz"`
	IXY float64 `yaml:"ixy,omitempty"`
	IXZ float64 `yaml:"ixz,omitempty"`
	IYZ float64 `yaml:"iyz,omitempty"`
}

// JointSpec describes one joint.
type JointSpec struct {
	Name   string     `yaml:"name"`
	Type   string     `yaml:"type"`
	Parent string     `yaml:"parent"`
	Child  string     `yaml:"child"`
	Axis   []float64  `yaml:"axis,omitempty"`
	Origin OriginSpec `yaml:"origin,omitempty"`
	Limits *LimitSpec `yaml:"limits,omitempty"`
}

// OriginSpec is the fixed transform from the parent link frame to the
// joint frame: a translation and roll-pitch-yaw angles.
type OriginSpec struct {
	XYZ []float64 `yaml:"xyz,omitempty"`
	RPY []float64 `yaml:"rpy,omitempty"`
}

// LimitSpec bounds a joint coordinate.
type LimitSpec struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ContactSpec attaches a collidable point to a link.
type ContactSpec struct {
	Link  string    `yaml:"link"`
	Point []float64 `yaml:"point"`
}

// LoadDescription reads a model description from a YAML file.
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// SaveDescription writes a model description as YAML.
func SaveDescription(path string, desc *Description) error {
	data, err := yaml.Marshal(desc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func vec3(v []float64) r3.Vector {
	if len(v) < 3 {
		return r3.Vector{}
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func (s InertiaSpec) tensor() mgl64.Mat3 {
	m := mgl64.Ident3()
	m.Set(0, 0, s.IXX)
	m.Set(1, 1, s.IYY)
	m.Set(2, 2, s.IZZ)
	m.Set(0, 1, s.IXY)
	m.Set(1, 0, s.IXY)
	m.Set(0, 2, s.IXZ)
	m.Set(2, 0, s.IXZ)
	m.Set(1, 2, s.IYZ)
	m.Set(2, 1, s.IYZ)
	return m
}

func (o OriginSpec) transform() spatial.Transform {
	rpy := vec3(o.RPY)
	qx := spatial.QuatFromAxisAngle(r3.Vector{X: 1}, rpy.X)
	qy := spatial.QuatFromAxisAngle(r3.Vector{Y: 1}, rpy.Y)
	qz := spatial.QuatFromAxisAngle(r3.Vector{Z: 1}, rpy.Z)
	rot := spatial.QuatToMat3(qz).Mul3(spatial.QuatToMat3(qy)).Mul3(spatial.QuatToMat3(qx))
	return spatial.Transform{R: rot, P: vec3(o.XYZ)}
}

// Build validates a description and produces the frozen Model. It fails
// with a *ModelError on duplicate names, references to unknown links,
// multiple parents, cycles or disconnected components.
func Build(desc *Description) (*Model, error) {
	if len(desc.Links) == 0 {
		return nil, modelErr(ErrEmpty, desc.Name)
	}

	linkByName := make(map[string]int, len(desc.Links))
	for i, l := range desc.Links {
		if _, dup := linkByName[l.Name]; dup {
			return nil, modelErr(ErrDuplicateName, l.Name)
		}
		linkByName[l.Name] = i
	}

	jointNames := make(map[string]struct{}, len(desc.Joints))
	parentJoint := make([]int, len(desc.Links)) // per link, -1 = root candidate
	for i := range parentJoint {
		parentJoint[i] = -1
	}
	children := make([][]int, len(desc.Links)) // parent link -> child links
	childJoint := make(map[int]*JointSpec)     // child link -> its joint spec

	for i := range desc.Joints {
		j := &desc.Joints[i]
		if _, dup := jointNames[j.Name]; dup {
			return nil, modelErr(ErrDuplicateName, j.Name)
		}
		jointNames[j.Name] = struct{}{}

		p, ok := linkByName[j.Parent]
		if !ok {
			return nil, modelErr(ErrUnknownLink, j.Parent)
		}
		c, ok := linkByName[j.Child]
		if !ok {
			return nil, modelErr(ErrUnknownLink, j.Child)
		}
		if p == c {
			return nil, modelErr(ErrBadJoint, j.Name)
		}
		typ, ok := ParseJointType(j.Type)
		if !ok {
			return nil, modelErr(ErrBadJoint, j.Name)
		}
		if (typ == Revolute || typ == Prismatic) && vec3(j.Axis).Norm() == 0 {
			return nil, modelErr(ErrBadJoint, j.Name)
		}
		if parentJoint[c] != -1 {
			return nil, modelErr(ErrMultipleParents, j.Child)
		}
		parentJoint[c] = p
		children[p] = append(children[p], c)
		childJoint[c] = j
	}

	root := -1
	for i := range desc.Links {
		if parentJoint[i] == -1 {
			if root != -1 {
				return nil, modelErr(ErrDisconnected, desc.Links[i].Name)
			}
			root = i
		}
	}
	if root == -1 {
		// Every link has a parent: the graph closes on itself somewhere.
		return nil, modelErr(ErrCycle, desc.Name)
	}

	// Breadth-first walk from the root yields the topological order and
	// exposes any portion of the graph the root cannot reach.
	order := make([]int, 0, len(desc.Links))
	queue := []int{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		queue = append(queue, children[cur]...)
	}
	if len(order) != len(desc.Links) {
		// Unreached links either form a cycle among themselves or hang off
		// one; with single parents enforced above, only a cycle remains.
		return nil, modelErr(ErrCycle, desc.Name)
	}

	m := &Model{
		name:    desc.Name,
		links:   make([]Link, len(order)),
		joints:  make([]Joint, len(order)),
		parent:  make([]int, len(order)),
		gravity: r3.Vector{Z: -9.80665},
	}
	if len(desc.Gravity) == 3 {
		m.gravity = vec3(desc.Gravity)
	}

	newIndex := make([]int, len(desc.Links))
	for newIdx, oldIdx := range order {
		newIndex[oldIdx] = newIdx
	}

	for newIdx, oldIdx := range order {
		ls := desc.Links[oldIdx]
		m.links[newIdx] = Link{
			Name:    ls.Name,
			Index:   newIdx,
			Inertia: spatial.NewInertia(ls.Mass, vec3(ls.COM), ls.Inertia.tensor()),
		}

		if oldIdx == root {
			m.parent[newIdx] = -1
			typ := Fixed
			if desc.FloatingBase {
				typ = Floating
			}
			m.joints[newIdx] = Joint{
				Name: "world",
				Type: typ,
				Tree: spatial.Identity(),
				Limit: Limit{
					Min: math.Inf(-1),
					Max: math.Inf(1),
				},
			}
			continue
		}

		js := childJoint[oldIdx]
		typ, _ := ParseJointType(js.Type)
		axis := vec3(js.Axis)
		if n := axis.Norm(); n > 0 {
			axis = axis.Mul(1 / n)
		}
		limit := Limit{Min: math.Inf(-1), Max: math.Inf(1)}
		if js.Limits != nil {
			limit = Limit{Min: js.Limits.Min, Max: js.Limits.Max}
		}
		m.parent[newIdx] = newIndex[parentJoint[oldIdx]]
		m.joints[newIdx] = Joint{
			Name:  js.Name,
			Type:  typ,
			Axis:  axis,
			Tree:  js.Origin.transform(),
			Limit: limit,
		}
	}

	// Generalized coordinate offsets follow the topological link order.
	for i := range m.joints {
		j := &m.joints[i]
		j.QIdx = m.nq
		j.VIdx = m.nv
		m.nq += j.Type.PositionDim()
		m.nv += j.Type.DoF()
	}

	for _, c := range desc.Contacts {
		idx, ok := linkByName[c.Link]
		if !ok {
			return nil, modelErr(ErrUnknownLink, c.Link)
		}
		m.contacts = append(m.contacts, ContactPoint{
			Link:   newIndex[idx],
			Offset: vec3(c.Point),
		})
	}

	return m, nil
}
