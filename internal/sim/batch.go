package sim

import (
	"context"
	"sync"

	"github.com/armature-sim/armature/internal/integrators"
	"github.com/armature-sim/armature/internal/model"
)

// Batch runs many trajectories of one model in parallel, one Session per
// goroutine. The model is shared read-only; every session gets its own
// integrator from the factory and its own contact state.
type Batch struct {
	model     *model.Model
	newInteg  func() integrators.Integrator
	configure func(run int, s *Session)
}

// NewBatch prepares a parallel runner. configure, if non-nil, is called
// once per run before it starts, to set controllers, terrain or initial
// states per run index.
func NewBatch(m *model.Model, newInteg func() integrators.Integrator, configure func(run int, s *Session)) *Batch {
	return &Batch{model: m, newInteg: newInteg, configure: configure}
}

// Run executes runs trajectories and returns one result per run, in
// order. The first session error aborts the collection.
func (b *Batch) Run(ctx context.Context, runs int, cfg Config) ([]*Result, error) {
	results := make([]*Result, runs)
	errs := make([]error, runs)

	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			s := New(b.model, b.newInteg())
			if b.configure != nil {
				b.configure(idx, s)
			}
			results[idx], errs[idx] = s.Run(ctx, cfg)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
