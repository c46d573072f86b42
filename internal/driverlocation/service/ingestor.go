// Package service runs the driver telemetry pipeline: parse, persist, rebroadcast, and analytics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"laundry-ops/backend/internal/driverlocation/domain"
	"laundry-ops/backend/internal/driverlocation/repository"
	"laundry-ops/backend/internal/realtime"
	"laundry-ops/backend/internal/telemetry"
	telemetrydomain "laundry-ops/backend/internal/telemetry/domain"
)

// Channel is the channel name used for metrics and analytics.
const Channel = "driver-location"

const mirrorTimeout = 5 * time.Second

// EventLocationUpdated is the analytics event type emitted per ingested frame.
const EventLocationUpdated = "driver_location_updated"

var (
	// ErrPersistFailed wraps storage failures; the frame is discarded.
	ErrPersistFailed = errors.New("driver location: persist failed")
	// ErrNoDriver is returned when the frame is not attributed to a driver.
	ErrNoDriver = errors.New("driver location: driver id required")
)

// Mirror receives every persisted snapshot. Failures are logged only.
type Mirror interface {
	Mirror(ctx context.Context, s *domain.Snapshot) error
}

// Driver is the authenticated driver a frame is attributed to.
type Driver struct {
	UserID    string
	BranchID  string
	SessionID string
}

// Ingestor validates, persists and rebroadcasts driver telemetry. Viewers is the channel's registry;
// the descriptor is the viewer's user id.
type Ingestor struct {
	store   repository.Store
	viewers *realtime.Registry[string]
	emitter telemetry.EventEmitter
	mirror  Mirror
	metrics *realtime.Metrics
	tracer  trace.Tracer
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithEmitter emits analytics events.
func WithEmitter(e telemetry.EventEmitter) Option { return func(i *Ingestor) { i.emitter = e } }

// WithMirror copies persisted snapshots to m.
func WithMirror(m Mirror) Option { return func(i *Ingestor) { i.mirror = m } }

// WithMetrics records dropped frames and broadcast outcomes.
func WithMetrics(m *realtime.Metrics) Option { return func(i *Ingestor) { i.metrics = m } }

// NewIngestor returns an Ingestor.
func NewIngestor(store repository.Store, viewers *realtime.Registry[string], opts ...Option) *Ingestor {
	i := &Ingestor{
		store:   store,
		viewers: viewers,
		tracer:  otel.Tracer("laundry-ops/backend/driverlocation"),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Store returns the underlying location store.
func (i *Ingestor) Store() repository.Store { return i.store }

// Viewers returns the registry snapshots are broadcast to.
func (i *Ingestor) Viewers() *realtime.Registry[string] { return i.viewers }

// IngestRaw parses one raw frame and ingests it. Parse failures return domain.ErrMalformedFrame or
// domain.ErrInvalidCoordinates and touch nothing.
func (i *Ingestor) IngestRaw(ctx context.Context, d Driver, raw []byte) (*domain.Snapshot, error) {
	frame, err := domain.ParseFrame(raw)
	if err != nil {
		i.metrics.FrameDropped(ctx, Channel, dropReason(err))
		return nil, err
	}
	return i.Ingest(ctx, d, frame)
}

// Ingest persists frame tagged with the driver's id, broadcasts the persisted snapshot to every open
// viewer, then emits analytics and mirrors in the background. Only persistence can fail.
func (i *Ingestor) Ingest(ctx context.Context, d Driver, frame domain.Frame) (*domain.Snapshot, error) {
	if d.UserID == "" {
		return nil, ErrNoDriver
	}
	ctx, span := i.tracer.Start(ctx, "driverlocation.ingest", trace.WithAttributes(
		attribute.String("driver.id", d.UserID),
	))
	defer span.End()

	snap, err := i.store.UpdateDriverLocation(ctx, domain.LocationUpdate{DriverID: d.UserID, Frame: frame})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		i.metrics.FrameDropped(ctx, Channel, "persist_failed")
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	payload, err := snap.MarshalFrame()
	if err != nil {
		log.Printf("driverlocation: encode snapshot for %s: %v", d.UserID, err)
	} else {
		delivery := i.viewers.Broadcast(payload, nil)
		span.SetAttributes(attribute.Int("driverlocation.sent", delivery.Sent))
		i.metrics.Delivered(ctx, Channel, delivery)
	}

	i.emit(ctx, d, snap)
	i.mirrorAsync(ctx, snap)
	return snap, nil
}

// History returns the driver's recent locations oldest first, ready to replay to a client.
func (i *Ingestor) History(ctx context.Context, driverID string, q domain.HistoryQuery) ([]*domain.Snapshot, error) {
	rows, err := i.store.DriverLocationHistory(ctx, driverID, q)
	if err != nil {
		return nil, err
	}
	for l, r := 0, len(rows)-1; l < r; l, r = l+1, r-1 {
		rows[l], rows[r] = rows[r], rows[l]
	}
	return rows, nil
}

// Latest returns the newest location per driver.
func (i *Ingestor) Latest(ctx context.Context, driverIDs []string) ([]*domain.Snapshot, error) {
	return i.store.LatestDriverLocations(ctx, driverIDs)
}

type locationMetadata struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	OrderID    *string `json:"orderId,omitempty"`
	DeliveryID *string `json:"deliveryId,omitempty"`
	Source     *string `json:"source,omitempty"`
}

func (i *Ingestor) emit(ctx context.Context, d Driver, s *domain.Snapshot) {
	if i.emitter == nil {
		return
	}
	ev := telemetrydomain.NewEvent(EventLocationUpdated, Channel, locationMetadata{
		Lat:        s.Lat,
		Lng:        s.Lng,
		OrderID:    s.OrderID,
		DeliveryID: s.DeliveryID,
		Source:     s.Source,
	})
	ev.UserID = d.UserID
	ev.BranchID = d.BranchID
	ev.SessionID = d.SessionID
	telemetry.EmitAsync(i.emitter, ctx, ev)
}

func (i *Ingestor) mirrorAsync(ctx context.Context, s *domain.Snapshot) {
	if i.mirror == nil {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
		defer cancel()
		if err := i.mirror.Mirror(mctx, s); err != nil {
			log.Printf("driverlocation: mirror %s: %v", s.DriverID, err)
		}
	}()
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinates):
		return "invalid_coordinates"
	case errors.Is(err, domain.ErrMalformedFrame):
		return "malformed"
	default:
		return "other"
	}
}
