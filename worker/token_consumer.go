package worker

import (
	"context"
	"errors"
	"log"

	"github.com/zlnvch/placebot/mq"
	"github.com/zlnvch/placebot/token"
)

type TokenConsumer struct {
	tokenQueue mq.TokenQueue
	broker     *token.Broker
	onSidecar  func(pawtect string, fingerprint string)
}

// NewTokenConsumer wires the token queue into the broker. onSidecar receives
// the pawtect/fingerprint values that ride along with a token; it may be nil.
func NewTokenConsumer(tokenQueue mq.TokenQueue, broker *token.Broker, onSidecar func(pawtect string, fingerprint string)) *TokenConsumer {
	return &TokenConsumer{
		tokenQueue: tokenQueue,
		broker:     broker,
		onSidecar:  onSidecar,
	}
}

// Tokens expire on their own in about two minutes, so a short visibility
// window is enough.
const visibilityTimeout = 30

func (tokenConsumer TokenConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := tokenConsumer.tokenQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("tokenConsumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		if msg.Token != "" {
			tokenConsumer.broker.Supply(msg.Token)
		}
		if tokenConsumer.onSidecar != nil && (msg.Pawtect != "" || msg.Fingerprint != "") {
			tokenConsumer.onSidecar(msg.Pawtect, msg.Fingerprint)
		}

		if err := tokenConsumer.tokenQueue.Ack(context.Background(), msg); err != nil {
			log.Printf("tokenConsumer ack error: %v", err)
		}
	}
}
