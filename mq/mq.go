// Package mq carries captured Turnstile tokens from the browser capture
// extension to the paint engine.
package mq

import "context"

// TokenMessage is one solved challenge pulled off the queue. Pawtect and
// fingerprint ride along when the extension captured them with the token.
// ReceiptHandle identifies the delivery for Ack and never leaves the process.
type TokenMessage struct {
	Token         string `json:"token"`
	Pawtect       string `json:"pawtect,omitempty"`
	Fingerprint   string `json:"fp,omitempty"`
	ReceiptHandle string `json:"-"`
}

// TokenQueue is the inbound token channel. Receive blocks for at most one
// poll interval and returns nil when the poll comes back empty. Bodies that
// do not parse as a TokenMessage are dropped at the queue so they cannot
// cycle back into visibility. Ack removes a delivered message for good.
type TokenQueue interface {
	Receive(ctx context.Context, visibilityTimeout int32) (*TokenMessage, error)
	Ack(ctx context.Context, msg *TokenMessage) error
}
