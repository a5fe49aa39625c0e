package service

import (
	"context"
	"log"
	"time"
)

// The autostart queue holds templates whose accounts were busy at start
// time. Whenever a runner finishes the queue is walked in order and every
// template whose accounts are now free gets started.

func (s *Service) enqueueAutostartLocked(id string) {
	for _, queued := range s.autostart {
		if queued == id {
			return
		}
	}
	s.autostart = append(s.autostart, id)
}

func (s *Service) dequeueAutostart(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, queued := range s.autostart {
		if queued == id {
			s.autostart = append(s.autostart[:i], s.autostart[i+1:]...)
			return
		}
	}
}

func (s *Service) processAutostart() {
	s.mu.Lock()
	queued := append([]string(nil), s.autostart...)
	s.mu.Unlock()

	for _, id := range queued {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		tpl, err := s.Store.GetTemplate(ctx, id)
		cancel()
		if err != nil {
			log.Printf("Dropping queued template %s: %v", id, err)
			s.dequeueAutostart(id)
			continue
		}

		s.mu.Lock()
		if _, running := s.runners[id]; running {
			s.mu.Unlock()
			s.dequeueAutostart(id)
			continue
		}
		if err := s.Roster.Claim(id, tpl.UserIds); err != nil {
			s.mu.Unlock()
			continue
		}
		s.startRunnerLocked(tpl)
		s.mu.Unlock()

		s.dequeueAutostart(id)
		log.Printf("▶️ Started queued template %s", tpl.Name)
		s.publishLog(tpl.Id, "", "Started queued template "+tpl.Name)
	}
}

// QueuedTemplates returns the ids currently waiting for accounts.
func (s *Service) QueuedTemplates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.autostart...)
}
