package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/zlnvch/placebot/events"
)

func (s *Service) publishLog(templateId string, accountId string, message string) {
	if s.Events == nil {
		return
	}

	payload, err := json.Marshal(events.Event{
		Kind:       events.KindLog,
		TemplateId: templateId,
		AccountId:  accountId,
		Message:    message,
		Timestamp:  time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Events.Publish(ctx, events.ChannelEngine, payload); err != nil {
		log.Printf("Failed to publish log event: %v", err)
	}
	_ = s.Events.AppendRecent(ctx, payload)
}

// RecentEvents returns the backlog a freshly connected streaming client
// should replay before going live.
func (s *Service) RecentEvents(ctx context.Context) ([][]byte, error) {
	if s.Events == nil {
		return nil, nil
	}
	return s.Events.GetRecent(ctx)
}
