package executors

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/yurifrl/ibcompare/pkg/plan"
	"github.com/yurifrl/ibcompare/pkg/reconcile"
)

// Result is the outcome of one comparison of a plan.
type Result struct {
	Name   string
	Report *reconcile.Report
	Err    error
}

// Plan runs every comparison of p. Comparisons are independent, so they run
// concurrently; results keep plan order. A failed comparison does not stop
// the others: all failures are returned together.
func (e *Executor) Plan(ctx context.Context, p *plan.Plan) ([]Result, error) {
	results := make([]Result, len(p.Comparisons))

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, c := range p.Comparisons {
		params := p.Params(c)
		g.Go(func() error {
			e.logger.Debug("running comparison", "name", c.Name, "journal", params.Journal)
			report, err := e.comparer.Compare(ctx, params)
			results[i] = Result{Name: c.Name, Report: report, Err: err}
			if err != nil {
				e.logger.Error("comparison failed", "name", c.Name, "error", err)
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", c.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errs.ErrorOrNil()
}
