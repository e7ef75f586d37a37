// Package history is the cart-history viewer: paged browsing, search with
// autocomplete, and CSV export. Fetch caches are shared by the whole process;
// viewer state is kept per session.
package history

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/cache"
	"github.com/ariefcatur/go-waste-portal.git/internal/config"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/jonboulle/clockwork"
)

type Source interface {
	Flat(ctx context.Context, page, limit int) (upstream.HistoryPage, error)
	Search(ctx context.Context, p upstream.SearchParams) (upstream.HistoryPage, error)
	Suggestions(ctx context.Context, query string) ([]upstream.RawSuggestion, error)
}

// Caches are the three fetch pools. Each has its own TTL and capacity.
type Caches struct {
	Pages   *cache.TTL[upstream.HistoryPage]
	Search  *cache.TTL[upstream.HistoryPage]
	Suggest *cache.TTL[[]Suggestion]
}

func NewCaches(clock clockwork.Clock, o config.History) *Caches {
	return &Caches{
		Pages:   cache.NewTTL[upstream.HistoryPage](clock, o.PageCacheTTL, o.PageCacheSize),
		Search:  cache.NewTTL[upstream.HistoryPage](clock, o.SearchCacheTTL, o.SearchCacheSize),
		Suggest: cache.NewTTL[[]Suggestion](clock, o.SuggestCacheTTL, o.SuggestCacheSize),
	}
}

// PurgeResults drops cached pages and search results; suggestions stay.
func (c *Caches) PurgeResults() {
	c.Pages.Purge()
	c.Search.Purge()
}

const (
	// viewerIdle is how long an untouched session keeps its viewer.
	viewerIdle = 12 * time.Hour
	// maxViewers caps live viewers; the least recently used one goes first.
	maxViewers = 100000
)

type Service struct {
	src    Source
	caches *Caches
	clock  clockwork.Clock
	loc    *time.Location
	opts   config.History

	mu      sync.Mutex
	viewers *cache.TTL[*Viewer]
}

func NewService(src Source, caches *Caches, clock clockwork.Clock, loc *time.Location, o config.History) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.EmptyRevertDelay <= 0 {
		o.EmptyRevertDelay = 3 * time.Second
	}
	if o.ExportConcurrency <= 0 {
		o.ExportConcurrency = 1
	}
	return &Service{
		src:     src,
		caches:  caches,
		clock:   clock,
		loc:     loc,
		opts:    o,
		viewers: newViewerRegistry(clock, maxViewers),
	}
}

// newViewerRegistry stops an evicted viewer's pending revert so nothing fires
// for a session that is gone.
func newViewerRegistry(clock clockwork.Clock, max int) *cache.TTL[*Viewer] {
	r := cache.NewTTL[*Viewer](clock, viewerIdle, max)
	r.OnEvict(func(_ string, v *Viewer) { v.stopRevert() })
	return r
}

func (s *Service) Caches() *Caches { return s.caches }

// Viewer returns the session's viewer, creating it in paged mode on first use.
func (s *Service) Viewer(key string) *Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.viewers.Get(key); ok {
		s.viewers.Touch(key)
		return v
	}
	v := newViewer(s)
	s.viewers.Set(key, v)
	return v
}

// Forget drops the session's viewer and any pending revert timer.
func (s *Service) Forget(key string) {
	s.mu.Lock()
	v, ok := s.viewers.Get(key)
	s.viewers.Delete(key)
	s.mu.Unlock()
	if ok {
		v.stopRevert()
	}
}

// Page fetches one page of the flat list, through the page cache.
func (s *Service) Page(ctx context.Context, page int) (upstream.HistoryPage, error) {
	key := strconv.Itoa(page) + "|" + strconv.Itoa(s.opts.PageSize)
	if p, ok := s.caches.Pages.Get(key); ok {
		return p, nil
	}
	p, err := s.src.Flat(ctx, page, s.opts.PageSize)
	if err != nil {
		return upstream.HistoryPage{}, err
	}
	s.caches.Pages.Set(key, p)
	return p, nil
}

// SearchPage runs a search for one page, through the search cache.
func (s *Service) SearchPage(ctx context.Context, p upstream.SearchParams, page int) (upstream.HistoryPage, error) {
	p.Page, p.Limit = page, s.opts.PageSize
	key := p.Values().Encode()
	if hp, ok := s.caches.Search.Get(key); ok {
		return hp, nil
	}
	hp, err := s.src.Search(ctx, p)
	if err != nil {
		return upstream.HistoryPage{}, err
	}
	s.caches.Search.Set(key, hp)
	return hp, nil
}
