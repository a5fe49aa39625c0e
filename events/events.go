package events

import "context"

// ChannelEngine carries engine log and progress events to every API node's
// websocket streamer.
const ChannelEngine = "engine:events"

// Event kinds.
const (
	KindLog    = "log"
	KindStatus = "status"
)

// Event is one engine occurrence relayed to connected operator UIs.
type Event struct {
	Kind            string `json:"kind"`
	TemplateId      string `json:"templateId,omitempty"`
	AccountId       string `json:"accountId,omitempty"`
	Message         string `json:"message,omitempty"`
	Status          string `json:"status,omitempty"`
	PixelsRemaining int    `json:"pixelsRemaining,omitempty"`
	TotalPixels     int    `json:"totalPixels,omitempty"`
	Timestamp       int64  `json:"ts"`
}

type PlacebotEvents interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	// AppendRecent records an event in the capped backlog so freshly connected
	// clients can catch up on what they missed.
	AppendRecent(ctx context.Context, message []byte) error
	// GetRecent returns the backlog, oldest first.
	GetRecent(ctx context.Context) ([][]byte, error)
}
