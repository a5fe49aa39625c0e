package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_QueuedTokenResolvesImmediately(t *testing.T) {
	b := NewBroker()
	b.Supply("tok-1")
	b.Supply("tok-2")

	got, err := b.Get(context.Background(), "tpl")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got) // FIFO

	got, err = b.Get(context.Background(), "tpl")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got)
}

func TestGet_BlocksUntilSupply(t *testing.T) {
	b := NewBroker()

	resultCh := make(chan string, 1)
	go func() {
		got, err := b.Get(context.Background(), "tpl")
		if err == nil {
			resultCh <- got
		}
	}()

	// Wait until the getter is registered
	for !b.Needed() {
		time.Sleep(time.Millisecond)
	}

	b.Supply("fresh")
	select {
	case got := <-resultCh:
		assert.Equal(t, "fresh", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for token")
	}
	assert.False(t, b.Needed())
}

func TestGet_ConcurrentWaitersShareOneToken(t *testing.T) {
	b := NewBroker()

	results := make(chan string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			got, err := b.Get(context.Background(), "tpl")
			if err == nil {
				results <- got
			}
		}()
	}

	for !b.Needed() {
		time.Sleep(time.Millisecond)
	}
	// Give the second goroutine a chance to join the same wait
	time.Sleep(10 * time.Millisecond)

	b.Supply("shared")
	for i := 0; i < 2; i++ {
		select {
		case got := <-results:
			assert.Equal(t, "shared", got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for shared token")
		}
	}
}

func TestGet_ContextCancel(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Get(ctx, "tpl")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupply_ToIdleBrokerQueues(t *testing.T) {
	b := NewBroker()
	assert.Equal(t, 0, b.QueueSize())
	b.Supply("tok")
	assert.Equal(t, 1, b.QueueSize())
	assert.False(t, b.Needed())
}

func TestInvalidate_DropsOldest(t *testing.T) {
	b := NewBroker()
	b.Supply("bad")
	b.Supply("good")

	b.Invalidate()
	got, err := b.Get(context.Background(), "tpl")
	require.NoError(t, err)
	assert.Equal(t, "good", got)
}

func TestInvalidate_EmptyQueueIsNoop(t *testing.T) {
	b := NewBroker()
	b.Invalidate()
	assert.Equal(t, 0, b.QueueSize())
}

func TestExpiredTokensArePurged(t *testing.T) {
	b := NewBroker()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Supply("stale")
	now = now.Add(TTL + time.Second)
	b.Supply("fresh")

	got, err := b.Get(context.Background(), "tpl")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	assert.Equal(t, 0, b.QueueSize())
}
