package listing

import (
	"context"

	"github.com/xyproto/regalloc/internal/ra"
	"github.com/xyproto/regalloc/internal/target"
	"golang.org/x/sync/errgroup"
)

// AllocateAll allocates every method against t, running up to jobs methods at
// once. Results keep the order of methods. The first failure cancels the
// methods that have not started yet.
func AllocateAll(ctx context.Context, methods []*ra.Method, t *target.Target, opts ra.Options, jobs int) ([]*ra.Result, error) {
	results := make([]*ra.Result, len(methods))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, m := range methods {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := ra.Allocate(m, t.Config, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
