package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockEvents) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockEvents) AppendRecent(ctx context.Context, message []byte) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockEvents) GetRecent(ctx context.Context) ([][]byte, error) {
	args := m.Called(ctx)
	return args.Get(0).([][]byte), args.Error(1)
}
