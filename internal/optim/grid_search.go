// Package optim provides parameter search over simulation runs, used to
// tune controller gains and contact parameters against run metrics.
package optim

import (
	"context"
	"math"
)

// Objective evaluates one parameter assignment, typically by running a
// session and reducing its result to a scalar cost. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch exhaustively evaluates the cross product of per-parameter
// value lists.
type GridSearch struct {
	names  []string
	values [][]float64
}

func NewGridSearch(names []string, values [][]float64) *GridSearch {
	return &GridSearch{names: names, values: values}
}

// Search returns the best assignment and its cost. Failed evaluations are
// skipped; context cancellation stops the sweep with the best result so
// far and the context error.
func (g *GridSearch) Search(ctx context.Context, obj Objective) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.search(ctx, 0, make(map[string]float64), obj, &best, &bestParams)
	return bestParams, best, err
}

func (g *GridSearch) search(ctx context.Context, depth int, current map[string]float64, obj Objective, best *float64, bestParams *map[string]float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.names) {
		val, err := obj(ctx, current)
		if err != nil {
			return nil // skip failed point
		}
		if val < *best {
			*best = val
			cp := make(map[string]float64, len(current))
			for k, v := range current {
				cp[k] = v
			}
			*bestParams = cp
		}
		return nil
	}

	for _, v := range g.values[depth] {
		current[g.names[depth]] = v
		if err := g.search(ctx, depth+1, current, obj, best, bestParams); err != nil {
			return err
		}
	}
	delete(current, g.names[depth])
	return nil
}
