// Package domain defines delivery channel events, the tracking snapshot attached to them,
// and subscriber descriptors that decide who sees which event.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventType is the tag of a delivery channel event.
type EventType string

const (
	EventStatus       EventType = "status"
	EventMessage      EventType = "message"
	EventReschedule   EventType = "reschedule"
	EventCompensation EventType = "compensation"
)

var (
	// ErrMissingOrderID is returned for events without an order id.
	ErrMissingOrderID = errors.New("delivery event: orderId is required")
	// ErrUnknownEventType is returned when decoding an event with an unrecognized tag.
	ErrUnknownEventType = errors.New("delivery event: unknown eventType")
)

// Event is one of StatusEvent, MessageEvent, RescheduleEvent, CompensationEvent.
type Event interface {
	Type() EventType
	Order() string
}

// StatusEvent reports a delivery status change and the assigned driver.
type StatusEvent struct {
	OrderID        string
	DeliveryStatus string
	DriverID       string
}

// Message is a note sent to the customer or staff about a delivery.
type Message struct {
	ID       string `json:"id,omitempty"`
	Body     string `json:"body"`
	Author   string `json:"author,omitempty"`
	AuthorID string `json:"authorId,omitempty"`
	SentAt   string `json:"sentAt,omitempty"`
}

// MessageEvent carries a delivery message.
type MessageEvent struct {
	OrderID string
	Message Message
}

// Reschedule describes a moved delivery window.
type Reschedule struct {
	WindowStart string `json:"windowStart,omitempty"`
	WindowEnd   string `json:"windowEnd,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestedBy string `json:"requestedBy,omitempty"`
}

// RescheduleEvent carries a reschedule.
type RescheduleEvent struct {
	OrderID    string
	Reschedule Reschedule
}

// Compensation describes a goodwill credit granted for a delivery problem.
type Compensation struct {
	Kind     string  `json:"kind,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// CompensationEvent carries a compensation.
type CompensationEvent struct {
	OrderID      string
	Compensation Compensation
}

func (e StatusEvent) Type() EventType       { return EventStatus }
func (e StatusEvent) Order() string         { return e.OrderID }
func (e MessageEvent) Type() EventType      { return EventMessage }
func (e MessageEvent) Order() string        { return e.OrderID }
func (e RescheduleEvent) Type() EventType   { return EventReschedule }
func (e RescheduleEvent) Order() string     { return e.OrderID }
func (e CompensationEvent) Type() EventType { return EventCompensation }
func (e CompensationEvent) Order() string   { return e.OrderID }

// Validate checks that ev carries an order id.
func Validate(ev Event) error {
	if ev == nil || strings.TrimSpace(ev.Order()) == "" {
		return ErrMissingOrderID
	}
	return nil
}

// Envelope is the JSON frame pushed to subscribers.
type Envelope struct {
	EventType      EventType         `json:"eventType"`
	OrderID        string            `json:"orderId"`
	DeliveryStatus string            `json:"deliveryStatus,omitempty"`
	DriverID       string            `json:"driverId,omitempty"`
	Message        *Message          `json:"message,omitempty"`
	Reschedule     *Reschedule       `json:"reschedule,omitempty"`
	Compensation   *Compensation     `json:"compensation,omitempty"`
	Tracking       *TrackingSnapshot `json:"tracking,omitempty"`
}

// NewEnvelope builds the envelope for ev with an optional tracking snapshot.
func NewEnvelope(ev Event, tracking *TrackingSnapshot) Envelope {
	env := Envelope{EventType: ev.Type(), OrderID: ev.Order(), Tracking: tracking}
	switch e := ev.(type) {
	case StatusEvent:
		env.DeliveryStatus = e.DeliveryStatus
		env.DriverID = e.DriverID
	case MessageEvent:
		m := e.Message
		env.Message = &m
	case RescheduleEvent:
		r := e.Reschedule
		env.Reschedule = &r
	case CompensationEvent:
		c := e.Compensation
		env.Compensation = &c
	}
	return env
}

// DecodeEvent parses an upstream JSON event ({eventType, orderId, ...}) into an Event.
func DecodeEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("delivery event: %w", err)
	}
	var ev Event
	switch env.EventType {
	case EventStatus:
		ev = StatusEvent{OrderID: env.OrderID, DeliveryStatus: env.DeliveryStatus, DriverID: env.DriverID}
	case EventMessage:
		if env.Message == nil {
			return nil, errors.New("delivery event: message payload missing")
		}
		ev = MessageEvent{OrderID: env.OrderID, Message: *env.Message}
	case EventReschedule:
		if env.Reschedule == nil {
			return nil, errors.New("delivery event: reschedule payload missing")
		}
		ev = RescheduleEvent{OrderID: env.OrderID, Reschedule: *env.Reschedule}
	case EventCompensation:
		if env.Compensation == nil {
			return nil, errors.New("delivery event: compensation payload missing")
		}
		ev = CompensationEvent{OrderID: env.OrderID, Compensation: *env.Compensation}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.EventType)
	}
	if err := Validate(ev); err != nil {
		return nil, err
	}
	return ev, nil
}
