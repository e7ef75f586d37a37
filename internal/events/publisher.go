package events

import (
	"context"
	"time"

	kafkax "github.com/ariefcatur/go-waste-portal.git/internal/kafka"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// Publisher announces accepted carts. It satisfies cart.SubmitListener.
type Publisher struct {
	P           publisher
	ServiceName string
	Now         func() time.Time
}

func (p *Publisher) CartSubmitted(ctx context.Context, sub upstream.Submission) {
	items := make([]ItemQty, 0, len(sub.Items))
	var total float64
	for _, it := range sub.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Quantity: it.Quantity})
		total += it.Quantity
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventCartSubmitted,
		EventVersion:  1,
		OccurredAt:    now().UTC(),
		Producer:      p.ServiceName,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: sub.UserID,
		Payload:       kafkax.MustMarshal(CartSubmittedPayload{UserID: sub.UserID, Items: items, TotalQuantity: total}),
	}
	p.P.Publish(PartitionKey(sub.UserID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventCartSubmitted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
