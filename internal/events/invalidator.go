package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/cache"
	kafkax "github.com/ariefcatur/go-waste-portal.git/internal/kafka"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Invalidator purges history caches when any instance reports a new cart, so
// the next page view includes it.
type Invalidator struct {
	purge func()
	seen  *cache.TTL[struct{}]
	log   *zap.Logger
}

func NewInvalidator(purge func(), clock clockwork.Clock, log *zap.Logger) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invalidator{
		purge: purge,
		seen:  cache.NewTTL[struct{}](clock, time.Hour, 4096),
		log:   log,
	}
}

// HandleCartSubmitted is a kafka.Handler. Redelivered events are skipped by event id.
func (i *Invalidator) HandleCartSubmitted(_ context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != EventCartSubmitted {
		return nil
	}
	if i.seen.Has(env.EventID) {
		return nil
	}
	p, err := kafkax.UnwrapPayload[CartSubmittedPayload](env.Payload)
	if err != nil {
		return err
	}
	i.seen.Set(env.EventID, struct{}{})
	i.purge()
	i.log.Debug("history caches purged",
		zap.String("event_id", env.EventID),
		zap.String("user_id", p.UserID),
		zap.String("producer", env.Producer))
	return nil
}
