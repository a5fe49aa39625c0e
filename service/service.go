package service

import (
	"sync"

	"github.com/zlnvch/placebot/charge"
	"github.com/zlnvch/placebot/engine"
	"github.com/zlnvch/placebot/events"
	"github.com/zlnvch/placebot/settings"
	"github.com/zlnvch/placebot/store"
	"github.com/zlnvch/placebot/token"
	"github.com/zlnvch/placebot/worker"
)

type Service struct {
	Store         store.PlacebotStore
	Events        events.PlacebotEvents
	Broker        *token.Broker
	Charges       *charge.Predictor
	Settings      *settings.Manager
	StatusBatcher *worker.StatusBatcher
	Roster        *engine.Roster
	JWTSecret     []byte

	// NewClient builds a fresh canvas session per account attempt. Assigned
	// after construction so the factory can close over the service's pawtect
	// and fingerprint accessors.
	NewClient engine.ClientFactory

	operatorPassword string

	mu        sync.Mutex
	runners   map[string]*runnerHandle
	autostart []string

	sidecarMu   sync.RWMutex
	pawtect     string
	fingerprint string
}

type runnerHandle struct {
	runner *engine.Runner
	cancel func()
	done   chan struct{}
}

func NewService(
	placebotStore store.PlacebotStore,
	placebotEvents events.PlacebotEvents,
	broker *token.Broker,
	charges *charge.Predictor,
	settingsManager *settings.Manager,
	statusBatcher *worker.StatusBatcher,
	jwtSecret []byte,
	operatorPassword string,
) *Service {
	service := &Service{
		Store:            placebotStore,
		Events:           placebotEvents,
		Broker:           broker,
		Charges:          charges,
		Settings:         settingsManager,
		StatusBatcher:    statusBatcher,
		Roster:           engine.NewRoster(),
		JWTSecret:        jwtSecret,
		operatorPassword: operatorPassword,
		runners:          make(map[string]*runnerHandle),
	}

	// Settings edits take effect mid-sleep, not on the next natural wake
	settingsManager.OnChange(service.wakeRunners)

	return service
}

func (s *Service) wakeRunners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.runners {
		h.runner.Wake()
	}
}

// SetSidecar installs the pawtect and fingerprint values that arrived with
// the latest captured token. Empty values leave the previous ones in place.
func (s *Service) SetSidecar(pawtect string, fingerprint string) {
	s.sidecarMu.Lock()
	defer s.sidecarMu.Unlock()
	if pawtect != "" {
		s.pawtect = pawtect
	}
	if fingerprint != "" {
		s.fingerprint = fingerprint
	}
}

func (s *Service) Pawtect() string {
	s.sidecarMu.RLock()
	defer s.sidecarMu.RUnlock()
	return s.pawtect
}

func (s *Service) Fingerprint() string {
	s.sidecarMu.RLock()
	defer s.sidecarMu.RUnlock()
	return s.fingerprint
}
