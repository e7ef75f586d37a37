// Package notify queues user-facing notices per session until the presentation
// layer drains them.
package notify

import (
	"sync"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/cache"
	"github.com/jonboulle/clockwork"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

type Notice struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier is what producers of notices depend on.
type Notifier interface {
	Push(key string, kind Kind, message string)
}

const (
	noticeTTL  = time.Hour
	maxPending = 100000 // sessions with undrained notices
)

// Queue keeps at most max notices per key, dropping the oldest. Notices for a
// key left undrained for an hour are discarded.
type Queue struct {
	mu    sync.Mutex
	max   int
	clock clockwork.Clock
	q     *cache.TTL[[]Notice]
}

func NewQueue(max int) *Queue {
	return newQueue(clockwork.NewRealClock(), max)
}

func newQueue(clock clockwork.Clock, max int) *Queue {
	if max <= 0 {
		max = 20
	}
	return &Queue{max: max, clock: clock, q: cache.NewTTL[[]Notice](clock, noticeTTL, maxPending)}
}

func (n *Queue) Push(key string, kind Kind, message string) {
	if key == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	prev, _ := n.q.Get(key)
	list := append(append([]Notice(nil), prev...), Notice{Kind: kind, Message: message, At: n.clock.Now()})
	if len(list) > n.max {
		list = list[len(list)-n.max:]
	}
	n.q.Set(key, list)
}

// Drain returns and forgets every pending notice for key, oldest first.
func (n *Queue) Drain(key string) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out, _ := n.q.Get(key)
	n.q.Delete(key)
	if out == nil {
		return []Notice{}
	}
	return out
}

// Pending is the number of keys holding notices.
func (n *Queue) Pending() int { return n.q.Len() }
