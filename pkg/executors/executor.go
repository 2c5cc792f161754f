package executors

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ibcompare/pkg/reconcile"
	"github.com/yurifrl/ibcompare/pkg/service"
)

// DefaultConcurrency bounds how many comparisons of a plan run at once.
const DefaultConcurrency = 4

// Comparer runs one comparison. *service.Processor implements it.
type Comparer interface {
	Compare(ctx context.Context, params service.Params) (*reconcile.Report, error)
}

type Executor struct {
	logger      *log.Logger
	comparer    Comparer
	concurrency int
}

func New(logger *log.Logger, comparer Comparer, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Executor{
		logger:      logger,
		comparer:    comparer,
		concurrency: concurrency,
	}
}
