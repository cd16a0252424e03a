package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/sim"
)

const (
	liveWidth   = 72
	liveHeight  = 22
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer draws the mechanism in the world x-z plane as the run
// progresses. It is a sim.Observer: attach it to a session and it redraws
// at most frameRate times per second.
type LiveRenderer struct {
	model     *model.Model
	out       io.Writer
	frameRate int
	scale     float64 // canvas columns per meter
	lastFrame time.Time
	canvas    *canvas
	trail     [][2]int
	terrain   float64
}

func NewLiveRenderer(m *model.Model, out io.Writer, frameRate int) *LiveRenderer {
	return &LiveRenderer{
		model:     m,
		out:       out,
		frameRate: frameRate,
		scale:     12,
		canvas:    newCanvas(liveWidth, liveHeight),
		trail:     make([][2]int, 0, 60),
	}
}

// SetTerrainHeight draws a ground line at the given world height.
func (r *LiveRenderer) SetTerrainHeight(z float64) { r.terrain = z }

// project maps world x-z to canvas coordinates. Terminal cells are about
// twice as tall as wide, so the vertical scale is halved.
func (r *LiveRenderer) project(x, z float64) (int, int) {
	cx := liveWidth/2 + int(x*r.scale)
	cy := liveHeight/2 - int(z*r.scale/2)
	return cx, cy
}

func (r *LiveRenderer) OnStep(s sim.State) {
	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	fmt.Fprint(r.out, clearScreen)
	fmt.Fprint(r.out, r.frame(s))
	fmt.Fprintf(r.out, " %s  t=%7.3fs\n", r.model.Name(), s.Time)
}

// frame draws the state and returns the canvas text. Shared with the
// bubbletea watch view.
func (r *LiveRenderer) frame(s sim.State) string {
	r.canvas.clear()
	r.drawTerrain()
	r.drawMechanism(s)
	return r.canvas.String()
}

func (r *LiveRenderer) drawTerrain() {
	_, gy := r.project(0, r.terrain)
	for x := 0; x < liveWidth; x++ {
		r.canvas.set(x, gy, '=')
	}
}

func (r *LiveRenderer) drawMechanism(s sim.State) {
	world, err := kinematics.ForwardKinematics(r.model, s.Q)
	if err != nil {
		return
	}

	// Trail of the last link's origin.
	lx, ly := r.project(world[len(world)-1].P.X, world[len(world)-1].P.Z)
	r.trail = append(r.trail, [2]int{lx, ly})
	if len(r.trail) > 60 {
		r.trail = r.trail[1:]
	}
	for _, pt := range r.trail {
		r.canvas.set(pt[0], pt[1], '.')
	}

	for i := 0; i < r.model.NumLinks(); i++ {
		x, y := r.project(world[i].P.X, world[i].P.Z)
		if p := r.model.Parent(i); p >= 0 {
			px, py := r.project(world[p].P.X, world[p].P.Z)
			r.canvas.line(px, py, x, y, '|')
		}
		r.canvas.set(x, y, 'O')

		// COM marker when it sits away from the link origin.
		com := world[i].Point(r.model.Link(i).Inertia.COM)
		mx, my := r.project(com.X, com.Z)
		if mx != x || my != y {
			r.canvas.line(x, y, mx, my, '|')
			r.canvas.set(mx, my, '@')
		}
	}

	for _, cp := range r.model.ContactPoints() {
		p := world[cp.Link].Point(cp.Offset)
		x, y := r.project(p.X, p.Z)
		r.canvas.set(x, y, '*')
	}
}

// Done restores the cursor; call after the run finishes.
func (r *LiveRenderer) Done() {
	fmt.Fprint(r.out, showCursor)
}

// Start hides the cursor for the duration of the run.
func (r *LiveRenderer) Start() {
	fmt.Fprint(r.out, hideCursor)
}
