package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/jonboulle/clockwork"
)

const (
	minQueryLen = 3
	dateLayout  = "2006-01-02"
	isoMillis   = "2006-01-02T15:04:05.000Z07:00"

	msgNoResults    = "No results found"
	msgFetchHistory = "Failed to fetch history"
)

var (
	ErrQueryTooShort = apperr.Validation("Please enter at least 3 characters or select a date range")
	ErrDateOrder     = apperr.Validation("Start date must be before end date")
	ErrBadDate       = apperr.Validation("Invalid date, expected YYYY-MM-DD")
	ErrNoSuchPage    = apperr.Validation("Page is out of range")
)

// Query is what the user typed into the search bar. Dates are calendar days
// (YYYY-MM-DD) in the display time zone; either may be empty.
type Query struct {
	Text      string `json:"query"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// State is a snapshot of one session's viewer.
type State struct {
	Mode       Mode                   `json:"mode"`
	Page       int                    `json:"page"`
	TotalPages int                    `json:"totalPages"`
	HasPrev    bool                   `json:"hasPrev"`
	HasNext    bool                   `json:"hasNext"`
	Items      []upstream.HistoryItem `json:"items"`
	Query      Query                  `json:"search"`
	Loading    bool                   `json:"loading"`
	Caption    string                 `json:"caption,omitempty"`
	Error      string                 `json:"error,omitempty"`
	// ErrorMode is "search" for errors that revert on their own, "paged" otherwise.
	ErrorMode Mode `json:"errorMode,omitempty"`
}

type Viewer struct {
	svc      *Service
	debounce *debouncer

	mu         sync.Mutex
	gen        uint64
	st         State
	params     upstream.SearchParams
	pagedPage  int
	pagedTotal int
	loaded     bool
	exporting  bool
	revert     clockwork.Timer
}

func newViewer(s *Service) *Viewer {
	return &Viewer{
		svc:      s,
		debounce: &debouncer{clock: s.clock, delay: s.opts.SuggestDebounce},
		st:       State{Mode: ModePaged, Page: 1, TotalPages: 1, Items: []upstream.HistoryItem{}},
	}
}

func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *Viewer) snapshotLocked() State {
	s := v.st
	s.Items = make([]upstream.HistoryItem, len(v.st.Items))
	copy(s.Items, v.st.Items)
	s.HasPrev = s.Page > 1
	s.HasNext = s.Page < s.TotalPages
	return s
}

// GoTo shows page n of whatever the viewer is listing: the flat history in
// paged mode, the current search otherwise.
func (v *Viewer) GoTo(ctx context.Context, n int) (State, error) {
	v.mu.Lock()
	if n < 1 || v.loaded && n > v.st.TotalPages {
		s := v.snapshotLocked()
		v.mu.Unlock()
		return s, ErrNoSuchPage
	}
	mode, _ := next(v.st.Mode, evPage)
	v.st.Mode = mode
	gen := v.beginLocked(fmt.Sprintf("Loading page %d...", n))
	params := v.params
	v.mu.Unlock()

	if mode == ModeSearch {
		return v.runSearch(ctx, gen, params, n)
	}
	return v.runPaged(ctx, gen, n)
}

// Next and Prev do nothing at the boundaries.
func (v *Viewer) Next(ctx context.Context) (State, error) {
	s := v.State()
	if !s.HasNext {
		return s, nil
	}
	return v.GoTo(ctx, s.Page+1)
}

func (v *Viewer) Prev(ctx context.Context) (State, error) {
	s := v.State()
	if !s.HasPrev {
		return s, nil
	}
	return v.GoTo(ctx, s.Page-1)
}

// Search validates q and switches to search mode. A rejected query leaves the
// viewer in the mode it was in and sends nothing upstream.
func (v *Viewer) Search(ctx context.Context, q Query) (State, error) {
	params, err := v.buildParams(q)
	if err != nil {
		return v.State(), err
	}

	v.mu.Lock()
	mode, _ := next(v.st.Mode, evSearch)
	v.st.Mode = mode
	v.st.Query = Query{Text: strings.TrimSpace(q.Text), StartDate: q.StartDate, EndDate: q.EndDate}
	v.params = params
	gen := v.beginLocked("Searching...")
	v.mu.Unlock()

	return v.runSearch(ctx, gen, params, 1)
}

// Clear leaves search mode, forgetting the query, and shows the flat page the
// user was last on.
func (v *Viewer) Clear(ctx context.Context) (State, error) {
	v.mu.Lock()
	mode, _ := next(v.st.Mode, evClear)
	v.st.Mode = mode
	v.st.Query = Query{}
	v.params = upstream.SearchParams{}
	page := max(v.pagedPage, 1)
	gen := v.beginLocked(fmt.Sprintf("Loading page %d...", page))
	v.mu.Unlock()

	return v.runPaged(ctx, gen, page)
}

// SelectSuggestion copies the suggestion into the query field. It does not
// start a search; the user still has to submit.
func (v *Viewer) SelectSuggestion(s Suggestion) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.st.Query.Text = s.Value
	return v.snapshotLocked()
}

func (v *Viewer) buildParams(q Query) (upstream.SearchParams, error) {
	text := strings.TrimSpace(q.Text)
	if len([]rune(text)) < minQueryLen && q.StartDate == "" && q.EndDate == "" {
		return upstream.SearchParams{}, ErrQueryTooShort
	}
	p := upstream.SearchParams{Query: text}
	var start, end time.Time
	if q.StartDate != "" {
		t, err := time.ParseInLocation(dateLayout, q.StartDate, v.svc.loc)
		if err != nil {
			return upstream.SearchParams{}, ErrBadDate
		}
		start = t
		p.StartDate = t.UTC().Format(isoMillis)
	}
	if q.EndDate != "" {
		t, err := time.ParseInLocation(dateLayout, q.EndDate, v.svc.loc)
		if err != nil {
			return upstream.SearchParams{}, ErrBadDate
		}
		end = t
		p.EndDate = t.AddDate(0, 0, 1).Add(-time.Millisecond).UTC().Format(isoMillis)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return upstream.SearchParams{}, ErrDateOrder
	}
	return p, nil
}

// beginLocked marks a fetch in flight and supersedes any earlier one.
func (v *Viewer) beginLocked(caption string) uint64 {
	v.stopRevertLocked()
	v.gen++
	v.st.Loading = true
	v.st.Caption = caption
	v.st.Error, v.st.ErrorMode = "", ""
	return v.gen
}

func (v *Viewer) runPaged(ctx context.Context, gen uint64, page int) (State, error) {
	hp, err := v.svc.Page(ctx, page)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return v.snapshotLocked(), nil
	}
	v.st.Loading, v.st.Caption = false, ""
	if err != nil {
		msg := upstream.ServerMessage(err, msgFetchHistory)
		v.st.Error, v.st.ErrorMode = msg, ModePaged
		return v.snapshotLocked(), apperr.Upstream(msg, err)
	}
	v.applyLocked(hp, page)
	v.pagedPage, v.pagedTotal = page, hp.TotalPages()
	return v.snapshotLocked(), nil
}

func (v *Viewer) runSearch(ctx context.Context, gen uint64, params upstream.SearchParams, page int) (State, error) {
	hp, err := v.svc.SearchPage(ctx, params, page)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return v.snapshotLocked(), nil
	}
	v.st.Loading, v.st.Caption = false, ""
	if err != nil {
		msg := upstream.ServerMessage(err, msgFetchHistory)
		v.failSearchLocked(gen, msg)
		return v.snapshotLocked(), apperr.Upstream(msg, err)
	}
	if len(hp.Items) == 0 {
		v.failSearchLocked(gen, msgNoResults)
		return v.snapshotLocked(), nil
	}
	v.applyLocked(hp, page)
	return v.snapshotLocked(), nil
}

func (v *Viewer) applyLocked(hp upstream.HistoryPage, page int) {
	v.st.Items = hp.Items
	if v.st.Items == nil {
		v.st.Items = []upstream.HistoryItem{}
	}
	v.st.Page = page
	v.st.TotalPages = hp.TotalPages()
	v.loaded = true
}

// failSearchLocked puts the viewer in the search error state and arms the
// timer that drops back to paged mode.
func (v *Viewer) failSearchLocked(gen uint64, msg string) {
	v.st.Items = []upstream.HistoryItem{}
	v.st.Page, v.st.TotalPages = 1, 1
	v.st.Error, v.st.ErrorMode = msg, ModeSearch
	v.revert = v.svc.clock.AfterFunc(v.svc.opts.EmptyRevertDelay, func() { v.autoRevert(gen) })
}

func (v *Viewer) autoRevert(gen uint64) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	mode, ok := next(v.st.Mode, evRevert)
	if !ok {
		v.mu.Unlock()
		return
	}
	v.st.Mode = mode
	v.st.Query = Query{}
	v.params = upstream.SearchParams{}
	page := max(v.pagedPage, 1)
	g := v.beginLocked(fmt.Sprintf("Loading page %d...", page))
	v.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, _ = v.runPaged(ctx, g, page)
}

func (v *Viewer) stopRevert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopRevertLocked()
}

func (v *Viewer) stopRevertLocked() {
	if v.revert != nil {
		v.revert.Stop()
		v.revert = nil
	}
}
