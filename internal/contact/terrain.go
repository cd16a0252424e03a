package contact

import "github.com/golang/geo/r3"

// Terrain describes the support surface as a height field over the world
// x-y plane.
type Terrain interface {
	// Height returns the surface height at (x, y).
	Height(x, y float64) float64
	// Normal returns the outward unit surface normal at (x, y).
	Normal(x, y float64) r3.Vector
}

// FlatTerrain is a horizontal plane at a fixed height.
type FlatTerrain struct {
	Level float64
}

func (t FlatTerrain) Height(x, y float64) float64 { return t.Level }

func (t FlatTerrain) Normal(x, y float64) r3.Vector { return r3.Vector{Z: 1} }
