package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pencall/pencall/model/release"
	"github.com/pencall/pencall/service/messaging/memory"
)

func TestDeliver(t *testing.T) {
	ctx := context.Background()
	aQueue := memory.NewQueue[release.Event](memory.DefaultConfig())
	sink := New(aQueue)
	assert.Equal(t, "queue", sink.Name())

	err := sink.Deliver(ctx, &release.Event{
		AllocationID:   "alpha",
		Tick:           1,
		Units:          2,
		DeliveredUnits: 2,
		Outcome:        release.OutcomeDelivered,
	})
	assert.NoError(t, err)

	message, err := aQueue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "alpha", message.T().AllocationID)
	assert.EqualValues(t, 2, message.T().DeliveredUnits)
	assert.NoError(t, message.Ack())
}
