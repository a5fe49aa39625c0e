package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/placebot/mq"
)

type MockTokenQueue struct {
	mock.Mock
}

func (m *MockTokenQueue) Receive(ctx context.Context, visibilityTimeout int32) (*mq.TokenMessage, error) {
	args := m.Called(ctx, visibilityTimeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mq.TokenMessage), args.Error(1)
}

func (m *MockTokenQueue) Ack(ctx context.Context, msg *mq.TokenMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
