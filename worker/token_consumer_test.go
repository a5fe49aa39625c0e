package worker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/placebot/mq"
	mqmocks "github.com/zlnvch/placebot/mq/mocks"
	"github.com/zlnvch/placebot/token"
	"github.com/zlnvch/placebot/worker"
)

func TestTokenConsumer_FeedsBrokerAndAcks(t *testing.T) {
	queue := new(mqmocks.MockTokenQueue)
	broker := token.NewBroker()

	msg := &mq.TokenMessage{
		Token:         "tok-1",
		Pawtect:       "pawtect-1",
		Fingerprint:   "fp-1",
		ReceiptHandle: "rh-1",
	}
	queue.On("Receive", mock.Anything, int32(30)).Return(msg, nil).Once()
	queue.On("Ack", mock.Anything, msg).Return(nil).Once()
	// Consumer exits once the queue reports shutdown
	queue.On("Receive", mock.Anything, int32(30)).Return(nil, context.Canceled)

	var gotPawtect, gotFingerprint string
	consumer := worker.NewTokenConsumer(queue, broker, func(pawtect, fingerprint string) {
		gotPawtect, gotFingerprint = pawtect, fingerprint
	})
	consumer.Run(context.Background())

	assert.Equal(t, 1, broker.QueueSize())
	assert.Equal(t, "pawtect-1", gotPawtect)
	assert.Equal(t, "fp-1", gotFingerprint)
	queue.AssertExpectations(t)
}

func TestTokenConsumer_SkipsEmptyPolls(t *testing.T) {
	queue := new(mqmocks.MockTokenQueue)
	broker := token.NewBroker()

	// An empty poll (or a dropped malformed body) surfaces as a nil message
	queue.On("Receive", mock.Anything, int32(30)).Return(nil, nil).Once()
	queue.On("Receive", mock.Anything, int32(30)).Return(nil, context.Canceled)

	consumer := worker.NewTokenConsumer(queue, broker, nil)
	consumer.Run(context.Background())

	assert.Zero(t, broker.QueueSize())
	queue.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}
