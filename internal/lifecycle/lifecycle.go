// Package lifecycle centralises the legal order status transitions. Every
// mutation path (payment webhook, seller reply, sweeper, admin actions) goes
// through Next, so illegal transitions are rejected in one place instead of
// being re-checked ad hoc at each call site.
package lifecycle

import (
	"fmt"

	"threadkart/internal/model"
)

// Event is an external occurrence that may move an order between statuses.
type Event string

const (
	EventPaymentSucceeded Event = "PAYMENT_SUCCEEDED"
	EventSellerAccepted   Event = "SELLER_ACCEPTED"
	EventSellerRejected   Event = "SELLER_REJECTED"
	EventSellerTimedOut   Event = "SELLER_TIMED_OUT"
	EventProcessingStart  Event = "PROCESSING_STARTED"
	EventShipped          Event = "SHIPPED"
	EventDelivered        Event = "DELIVERED"
	EventReturnApproved   Event = "RETURN_APPROVED"
)

// ErrIllegalTransition is returned when an event is not valid for the
// order's current status.
type ErrIllegalTransition struct {
	From  model.OrderStatus
	Event Event
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal transition: event %s not valid from status %s", e.Event, e.From)
}

type transitionKey struct {
	from  model.OrderStatus
	event Event
}

// transitions is the closed set of legal moves. CANCELLED and RETURNED have
// no outgoing edges.
var transitions = map[transitionKey]model.OrderStatus{
	{model.OrderStatusCreated, EventPaymentSucceeded}:   model.OrderStatusPending,
	{model.OrderStatusPending, EventSellerAccepted}:     model.OrderStatusConfirmed,
	{model.OrderStatusPending, EventSellerRejected}:     model.OrderStatusCancelled,
	{model.OrderStatusPending, EventSellerTimedOut}:     model.OrderStatusCancelled,
	{model.OrderStatusConfirmed, EventProcessingStart}:  model.OrderStatusProcessing,
	{model.OrderStatusProcessing, EventShipped}:         model.OrderStatusShipped,
	{model.OrderStatusShipped, EventDelivered}:          model.OrderStatusDelivered,
	{model.OrderStatusDelivered, EventReturnApproved}:   model.OrderStatusReturned,
}

// Next returns the status an order moves to when the event occurs, or an
// *ErrIllegalTransition if the event is not valid from the current status.
func Next(from model.OrderStatus, event Event) (model.OrderStatus, error) {
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, &ErrIllegalTransition{From: from, Event: event}
	}
	return to, nil
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(status model.OrderStatus) bool {
	for key := range transitions {
		if key.from == status {
			return false
		}
	}
	return true
}
