package history

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"golang.org/x/sync/errgroup"
)

type Scope string

const (
	ScopePage   Scope = "page"
	ScopeSearch Scope = "search"
	ScopeRange  Scope = "range"
)

var (
	ErrNoSearch  = apperr.Validation("No active search to export")
	ErrBadScope  = apperr.Validation("Unknown export scope")
	ErrNoResults = apperr.New(http.StatusNotFound, msgNoResults, nil)
	ErrBadRange  = apperr.Validation("Invalid page range")
)

// File is a generated CSV download.
type File struct {
	Name string
	Data []byte
}

// Export builds a CSV of the current page, every page of the active search,
// or flat pages start..end.
func (v *Viewer) Export(ctx context.Context, scope Scope, start, end int) (File, error) {
	switch scope {
	case ScopePage:
		s := v.State()
		return File{
			Name: fmt.Sprintf("cart_items_page_%d.csv", s.Page),
			Data: EncodeCSV(s.Items, v.svc.loc),
		}, nil
	case ScopeSearch:
		return v.exportSearch(ctx)
	case ScopeRange:
		return v.exportRange(ctx, start, end)
	}
	return File{}, ErrBadScope
}

func rangeError(total int) error {
	return apperr.Validation(fmt.Sprintf("Invalid page range. Enter pages between 1 and %d", total))
}

func (v *Viewer) exportRange(ctx context.Context, start, end int) (File, error) {
	v.mu.Lock()
	total := v.pagedTotal
	v.mu.Unlock()
	// An inverted or non-positive range is rejected before anything is fetched.
	if start < 1 || end < start {
		if total > 0 {
			return File{}, rangeError(total)
		}
		return File{}, ErrBadRange
	}
	if total == 0 {
		hp, err := v.svc.Page(ctx, 1)
		if err != nil {
			return File{}, apperr.Upstream(upstream.ServerMessage(err, msgFetchHistory), err)
		}
		total = hp.TotalPages()
	}
	if end > total {
		return File{}, rangeError(total)
	}

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	items, err := v.collect(ctx, pages, v.svc.Page)
	if err != nil {
		return File{}, err
	}
	return File{
		Name: fmt.Sprintf("cart_items_pages_%d-%d.csv", start, end),
		Data: EncodeCSV(items, v.svc.loc),
	}, nil
}

func (v *Viewer) exportSearch(ctx context.Context) (File, error) {
	v.mu.Lock()
	active := v.st.Mode == ModeSearch
	params := v.params
	v.mu.Unlock()
	if !active {
		return File{}, ErrNoSearch
	}

	fetch := func(ctx context.Context, n int) (upstream.HistoryPage, error) {
		return v.svc.SearchPage(ctx, params, n)
	}
	v.caption("Fetching search results...")
	defer v.caption("")
	first, err := fetch(ctx, 1)
	if err != nil {
		return File{}, apperr.Upstream(upstream.ServerMessage(err, msgFetchHistory), err)
	}
	if len(first.Items) == 0 {
		return File{}, ErrNoResults
	}
	items := first.Items
	if total := first.TotalPages(); total > 1 {
		rest := make([]int, 0, total-1)
		for p := 2; p <= total; p++ {
			rest = append(rest, p)
		}
		more, err := v.collect(ctx, rest, fetch)
		if err != nil {
			return File{}, err
		}
		items = append(append([]upstream.HistoryItem(nil), items...), more...)
	}
	return File{Name: "cart_items_search.csv", Data: EncodeCSV(items, v.svc.loc)}, nil
}

// collect fetches pages with bounded concurrency and concatenates their items
// in page order. The first failure cancels the rest.
func (v *Viewer) collect(ctx context.Context, pages []int, fetch func(context.Context, int) (upstream.HistoryPage, error)) ([]upstream.HistoryItem, error) {
	defer v.caption("")
	results := make([][]upstream.HistoryItem, len(pages))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.svc.opts.ExportConcurrency)
	v.caption(fmt.Sprintf("Fetched 0 of %d pages...", len(pages)))
	for i, p := range pages {
		g.Go(func() error {
			hp, err := fetch(gctx, p)
			if err != nil {
				return fmt.Errorf("page %d: %w", p, err)
			}
			results[i] = hp.Items
			v.caption(fmt.Sprintf("Fetched %d of %d pages...", done.Add(1), len(pages)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Upstream(upstream.ServerMessage(err, "Failed to export pages"), err)
	}

	var out []upstream.HistoryItem
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// caption shows export progress; an empty caption ends it. It leaves the
// loading flag of an in-flight page fetch alone.
func (v *Viewer) caption(c string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.st.Caption = c
	if c != "" {
		v.exporting = true
		v.st.Loading = true
		return
	}
	if v.exporting {
		v.exporting = false
		v.st.Loading = false
	}
}
