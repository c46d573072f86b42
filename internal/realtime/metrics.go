package realtime

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records channel activity through OpenTelemetry instruments. A nil *Metrics records nothing.
type Metrics struct {
	open          metric.Int64UpDownCounter
	rejected      metric.Int64Counter
	sent          metric.Int64Counter
	dropped       metric.Int64Counter
	framesDropped metric.Int64Counter
}

// NewMetrics creates the realtime instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	open, err := meter.Int64UpDownCounter("realtime.connections.open",
		metric.WithDescription("Open WebSocket connections per channel"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("realtime.upgrades.rejected",
		metric.WithDescription("Upgrade attempts rejected, by channel and reason"))
	if err != nil {
		return nil, err
	}
	sent, err := meter.Int64Counter("realtime.messages.sent",
		metric.WithDescription("Messages queued to subscribers"))
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("realtime.messages.dropped",
		metric.WithDescription("Messages not delivered to a matching subscriber"))
	if err != nil {
		return nil, err
	}
	frames, err := meter.Int64Counter("realtime.frames.dropped",
		metric.WithDescription("Inbound frames discarded, by reason"))
	if err != nil {
		return nil, err
	}
	return &Metrics{open: open, rejected: rejected, sent: sent, dropped: dropped, framesDropped: frames}, nil
}

func channelAttr(channel string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("channel", channel))
}

// ConnOpened increments the open connection gauge for channel.
func (m *Metrics) ConnOpened(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.open.Add(ctx, 1, channelAttr(channel))
}

// ConnClosed decrements the open connection gauge for channel.
func (m *Metrics) ConnClosed(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.open.Add(ctx, -1, channelAttr(channel))
}

// Rejected counts a refused upgrade.
func (m *Metrics) Rejected(ctx context.Context, channel, reason string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("reason", reason),
	))
}

// Delivered records the outcome of one broadcast.
func (m *Metrics) Delivered(ctx context.Context, channel string, d Delivery) {
	if m == nil {
		return
	}
	if d.Sent > 0 {
		m.sent.Add(ctx, int64(d.Sent), channelAttr(channel))
	}
	if n := d.Skipped + d.Failed; n > 0 {
		m.dropped.Add(ctx, int64(n), channelAttr(channel))
	}
}

// FrameDropped counts an inbound frame discarded for reason.
func (m *Metrics) FrameDropped(ctx context.Context, channel, reason string) {
	if m == nil {
		return
	}
	m.framesDropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("reason", reason),
	))
}
