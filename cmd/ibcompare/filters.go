package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/yurifrl/ibcompare/pkg/csv"
	"github.com/yurifrl/ibcompare/pkg/models"
)

type filters struct {
	symbol string
	kind   string
	since  string
}

func (f *filters) toFilterFunc() (csv.FilterFunc[*models.Transaction], error) {
	var since time.Time
	if f.since != "" {
		var err error
		if since, err = time.Parse(models.DateFormat, f.since); err != nil {
			return nil, fmt.Errorf("invalid --since date %q: %w", f.since, err)
		}
	}
	return func(t *models.Transaction) bool {
		if !since.IsZero() && t.Date().Before(since) && t.ReportDate().Before(since) {
			return false
		}
		if f.symbol != "" && !strings.Contains(strings.ToLower(t.Symbol()), strings.ToLower(f.symbol)) {
			return false
		}
		if f.kind != "" && !strings.EqualFold(string(t.Type()), f.kind) {
			return false
		}
		return true
	}, nil
}
