package analysis

import (
	"math"
	"strings"

	"github.com/armature-sim/armature/internal/sim"
)

type Point struct {
	X, Y float64
}

// PhasePortrait extracts the (Q[qIdx], V[vIdx]) trajectory from a run.
func PhasePortrait(res *sim.Result, qIdx, vIdx int) []Point {
	points := make([]Point, 0, len(res.States))
	for _, st := range res.States {
		if qIdx >= len(st.Q) || vIdx >= len(st.V) {
			return nil
		}
		points = append(points, Point{X: st.Q[qIdx], Y: st.V[vIdx]})
	}
	return points
}

// PoincareSection records (Q[recordQ], V[recordV]) at upward crossings of
// Q[crossIdx] through threshold.
func PoincareSection(res *sim.Result, crossIdx int, threshold float64, recordQ, recordV int) []Point {
	points := make([]Point, 0)
	for i := 1; i < len(res.States); i++ {
		prev, cur := res.States[i-1], res.States[i]
		if crossIdx >= len(cur.Q) || recordQ >= len(cur.Q) || recordV >= len(cur.V) {
			return nil
		}
		if prev.Q[crossIdx] < threshold && cur.Q[crossIdx] >= threshold {
			points = append(points, Point{X: cur.Q[recordQ], Y: cur.V[recordV]})
		}
	}
	return points
}

// PlotASCII renders points as a scatter plot with axes.
func PlotASCII(points []Point, width, height int) string {
	if len(points) == 0 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			canvas[row][col] = '|'
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			canvas[row][col] = '-'
		}
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '*'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
