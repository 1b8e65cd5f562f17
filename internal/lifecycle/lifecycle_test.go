package lifecycle

import (
	"testing"

	"threadkart/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_LegalTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  model.OrderStatus
		event Event
		want  model.OrderStatus
	}{
		{"payment moves created to pending", model.OrderStatusCreated, EventPaymentSucceeded, model.OrderStatusPending},
		{"seller accept confirms", model.OrderStatusPending, EventSellerAccepted, model.OrderStatusConfirmed},
		{"seller reject cancels", model.OrderStatusPending, EventSellerRejected, model.OrderStatusCancelled},
		{"timeout cancels", model.OrderStatusPending, EventSellerTimedOut, model.OrderStatusCancelled},
		{"confirmed to processing", model.OrderStatusConfirmed, EventProcessingStart, model.OrderStatusProcessing},
		{"processing to shipped", model.OrderStatusProcessing, EventShipped, model.OrderStatusShipped},
		{"shipped to delivered", model.OrderStatusShipped, EventDelivered, model.OrderStatusDelivered},
		{"delivered to returned", model.OrderStatusDelivered, EventReturnApproved, model.OrderStatusReturned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  model.OrderStatus
		event Event
	}{
		{"cancelled cannot be accepted", model.OrderStatusCancelled, EventSellerAccepted},
		{"cancelled cannot be paid again", model.OrderStatusCancelled, EventPaymentSucceeded},
		{"cancelled cannot time out", model.OrderStatusCancelled, EventSellerTimedOut},
		{"returned is terminal", model.OrderStatusReturned, EventProcessingStart},
		{"confirmed cannot re-enter pending", model.OrderStatusConfirmed, EventPaymentSucceeded},
		{"confirmed cannot be rejected", model.OrderStatusConfirmed, EventSellerRejected},
		{"delivered cannot ship again", model.OrderStatusDelivered, EventShipped},
		{"created cannot be accepted before payment", model.OrderStatusCreated, EventSellerAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.event)

			require.Error(t, err)
			// Status must be unchanged on rejection.
			assert.Equal(t, tt.from, got)

			var illegal *ErrIllegalTransition
			require.ErrorAs(t, err, &illegal)
			assert.Equal(t, tt.from, illegal.From)
			assert.Equal(t, tt.event, illegal.Event)
		})
	}
}

func TestNext_NoPathOutOfCancelled(t *testing.T) {
	events := []Event{
		EventPaymentSucceeded, EventSellerAccepted, EventSellerRejected,
		EventSellerTimedOut, EventProcessingStart, EventShipped,
		EventDelivered, EventReturnApproved,
	}

	for _, event := range events {
		_, err := Next(model.OrderStatusCancelled, event)
		assert.Error(t, err, "event %s must not leave CANCELLED", event)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(model.OrderStatusCancelled))
	assert.True(t, Terminal(model.OrderStatusReturned))
	assert.False(t, Terminal(model.OrderStatusPending))
	assert.False(t, Terminal(model.OrderStatusCreated))
	assert.False(t, Terminal(model.OrderStatusDelivered))
}
