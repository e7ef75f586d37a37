package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/jonboulle/clockwork"
)

const (
	SuggestProduct = "product"
	SuggestName    = "name"
)

type Suggestion struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	// Value is what selecting the suggestion puts in the query field.
	Value string `json:"value"`
}

// debouncer lets only the latest of overlapping calls through.
type debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu  sync.Mutex
	seq uint64
}

// wait blocks for the debounce delay and reports whether no newer call
// arrived in the meantime.
func (d *debouncer) wait(ctx context.Context) bool {
	d.mu.Lock()
	d.seq++
	mine := d.seq
	d.mu.Unlock()

	if d.delay > 0 {
		select {
		case <-d.clock.After(d.delay):
		case <-ctx.Done():
			return false
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return mine == d.seq
}

// Suggest returns autocomplete candidates for q. Queries shorter than three
// characters, and calls overtaken by a newer one from the same session,
// return an empty list without contacting the API.
func (v *Viewer) Suggest(ctx context.Context, q string) ([]Suggestion, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minQueryLen {
		return []Suggestion{}, nil
	}
	if !v.debounce.wait(ctx) {
		return []Suggestion{}, nil
	}
	return v.svc.Suggestions(ctx, q)
}

// Suggestions fetches candidates for q through the suggestion cache.
func (s *Service) Suggestions(ctx context.Context, q string) ([]Suggestion, error) {
	key := strings.ToLower(q)
	if out, ok := s.caches.Suggest.Get(key); ok {
		return out, nil
	}
	raw, err := s.src.Suggestions(ctx, q)
	if err != nil {
		return []Suggestion{}, apperr.Upstream("Failed to fetch suggestions", err)
	}
	out := make([]Suggestion, 0, len(raw))
	for _, r := range raw {
		switch r.Type {
		case SuggestProduct:
			out = append(out, Suggestion{
				Type:  SuggestProduct,
				Label: fmt.Sprintf("%s (SKU: %s)", r.ProductName, r.SKU),
				Value: r.ProductName,
			})
		case SuggestName:
			out = append(out, Suggestion{Type: SuggestName, Label: r.Value, Value: r.Value})
		}
	}
	s.caches.Suggest.Set(key, out)
	return out, nil
}
