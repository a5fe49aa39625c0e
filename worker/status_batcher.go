package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/zlnvch/placebot/events"
	"github.com/zlnvch/placebot/store"
)

type StatusUpdate struct {
	TemplateId      string
	Status          string
	PixelsRemaining int
	TotalPixels     int
}

// StatusBatcher coalesces the stream of runner progress updates so a busy
// paint loop produces one store write per template per tick instead of one
// per turn. Every update is still published to the event bus immediately.
type StatusBatcher struct {
	UpdateCh           chan StatusUpdate
	placebotStore      store.PlacebotStore
	placebotEvents     events.PlacebotEvents
	tickerMilliseconds int
}

func NewStatusBatcher(placebotStore store.PlacebotStore, placebotEvents events.PlacebotEvents, tickerMilliseconds int) *StatusBatcher {
	return &StatusBatcher{
		UpdateCh:           make(chan StatusUpdate, 1024),
		placebotStore:      placebotStore,
		placebotEvents:     placebotEvents,
		tickerMilliseconds: tickerMilliseconds,
	}
}

// TemplateStatus lets the batcher sit directly behind the runners. A full
// channel drops the update; the next one carries the fresh state anyway.
func (b *StatusBatcher) TemplateStatus(templateId string, status string, pixelsRemaining int, totalPixels int) {
	select {
	case b.UpdateCh <- StatusUpdate{
		TemplateId:      templateId,
		Status:          status,
		PixelsRemaining: pixelsRemaining,
		TotalPixels:     totalPixels,
	}:
	default:
	}
}

func (b *StatusBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(time.Duration(b.tickerMilliseconds) * time.Millisecond)
	defer ticker.Stop()

	// Latest state per template; only the newest update per tick is written
	pending := make(map[string]StatusUpdate)

	flush := func() {
		for _, update := range pending {
			go func(u StatusUpdate) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := b.placebotStore.UpdateTemplateProgress(ctx, u.TemplateId, u.Status, u.PixelsRemaining, u.TotalPixels); err != nil {
					log.Printf("Failed to update progress for template %s: %v", u.TemplateId, err)
				}
			}(update)
		}
		pending = make(map[string]StatusUpdate)
	}

	for {
		select {
		case update := <-b.UpdateCh:
			pending[update.TemplateId] = update
			b.publish(update)

			if len(pending) >= 100 {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-shutdownCtx.Done():
			flush()
			return
		}
	}
}

func (b *StatusBatcher) publish(update StatusUpdate) {
	if b.placebotEvents == nil {
		return
	}

	payload, err := json.Marshal(events.Event{
		Kind:            events.KindStatus,
		TemplateId:      update.TemplateId,
		Status:          update.Status,
		PixelsRemaining: update.PixelsRemaining,
		TotalPixels:     update.TotalPixels,
		Timestamp:       time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.placebotEvents.Publish(pubCtx, events.ChannelEngine, payload); err != nil {
		log.Printf("Failed to publish status event: %v", err)
	}
	_ = b.placebotEvents.AppendRecent(pubCtx, payload)
}
