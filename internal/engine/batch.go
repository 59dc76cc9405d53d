package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lazypower/chronoscope/internal/artifact"
)

// Batch synthesizes independent requests concurrently with at most workers
// in flight. Results and errors are positional; one failure does not stop
// the others.
func (e *Engine) Batch(ctx context.Context, reqs []Request, workers int) ([]*artifact.Artifact, []error) {
	arts := make([]*artifact.Artifact, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, req := range reqs {
		g.Go(func() error {
			arts[i], errs[i] = e.Synthesize(ctx, req)
			return nil
		})
	}
	g.Wait()
	return arts, errs
}
