package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chadn/ai-chatbot-meetings/internal/model"
)

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "sched.abc.event.booking_created", EventSubject("abc", model.EventTypeBookingCreated))
	assert.Equal(t, "sched.abc.event.>", SessionFilter("abc"))
}

func TestNewEventPublisherDefaultMaxAge(t *testing.T) {
	p := NewEventPublisher(nil, 0)
	assert.Equal(t, "24h0m0s", p.maxAge.String())
}
