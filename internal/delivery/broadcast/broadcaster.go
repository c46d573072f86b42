// Package broadcast fans delivery events out to the delivery channel's subscribers.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"laundry-ops/backend/internal/delivery/domain"
	"laundry-ops/backend/internal/delivery/tracking"
	"laundry-ops/backend/internal/realtime"
)

// Channel is the channel name used for metrics.
const Channel = "delivery-orders"

// Broadcaster serializes each event once, enriched with a fresh tracking snapshot, and sends it to
// every subscriber whose descriptor matches the event's order.
type Broadcaster struct {
	registry *realtime.Registry[domain.Descriptor]
	tracking tracking.Provider
	metrics  *realtime.Metrics
	tracer   trace.Tracer
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithMetrics records delivery outcomes.
func WithMetrics(m *realtime.Metrics) Option { return func(b *Broadcaster) { b.metrics = m } }

// WithTracer sets the tracer used for broadcast spans.
func WithTracer(t trace.Tracer) Option { return func(b *Broadcaster) { b.tracer = t } }

// New returns a Broadcaster over registry. provider may be nil, in which case events carry no snapshot.
func New(registry *realtime.Registry[domain.Descriptor], provider tracking.Provider, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		registry: registry,
		tracking: provider,
		tracer:   otel.Tracer("laundry-ops/backend/delivery"),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Registry returns the subscriber registry the broadcaster sends to.
func (b *Broadcaster) Registry() *realtime.Registry[domain.Descriptor] { return b.registry }

// Publish sends ev to every matching subscriber. A tracking lookup failure is logged and the event is
// sent without a snapshot. Errors are returned only for invalid or unencodable events.
func (b *Broadcaster) Publish(ctx context.Context, ev domain.Event) (realtime.Delivery, error) {
	if err := domain.Validate(ev); err != nil {
		return realtime.Delivery{}, err
	}
	ctx, span := b.tracer.Start(ctx, "delivery.broadcast", trace.WithAttributes(
		attribute.String("delivery.event_type", string(ev.Type())),
		attribute.String("delivery.order_id", ev.Order()),
	))
	defer span.End()

	snapshot := b.snapshot(ctx, ev.Order())
	payload, err := json.Marshal(domain.NewEnvelope(ev, snapshot))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return realtime.Delivery{}, fmt.Errorf("delivery: encode envelope: %w", err)
	}

	orderID := ev.Order()
	d := b.registry.Broadcast(payload, func(desc domain.Descriptor) bool {
		return desc != nil && desc.Matches(orderID)
	})
	span.SetAttributes(
		attribute.Int("delivery.matched", d.Matched),
		attribute.Int("delivery.sent", d.Sent),
	)
	b.metrics.Delivered(ctx, Channel, d)
	return d, nil
}

func (b *Broadcaster) snapshot(ctx context.Context, orderID string) *domain.TrackingSnapshot {
	if b.tracking == nil {
		return nil
	}
	s, err := b.tracking.DeliveryTrackingSnapshot(ctx, orderID)
	if err != nil {
		log.Printf("delivery: tracking snapshot for order %s: %v", orderID, err)
		trace.SpanFromContext(ctx).RecordError(err)
		return nil
	}
	return s
}
