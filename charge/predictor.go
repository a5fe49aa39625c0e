// Package charge tracks a linear-regeneration model of each account's
// paint charges between authoritative server reads.
package charge

import (
	"sync"
	"time"

	"github.com/zlnvch/placebot/models"
)

const (
	// RegenInterval is how long one charge takes to come back.
	RegenInterval = 30 * time.Second

	// SyncInterval is how long a prediction stays trustworthy without a
	// fresh authoritative read.
	SyncInterval = 8 * time.Minute
)

type snapshot struct {
	base     int
	max      int
	lastSync time.Time
}

// Predictor is safe for concurrent use by all template runners.
type Predictor struct {
	mu sync.Mutex
	m  map[string]snapshot
}

func NewPredictor() *Predictor {
	return &Predictor{m: make(map[string]snapshot)}
}

// Mark records an authoritative charge reading for an account.
func (p *Predictor) Mark(accountId string, charges models.Charges, now time.Time) {
	if accountId == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[accountId] = snapshot{base: charges.Count, max: charges.Max, lastSync: now}
}

// Predict estimates the account's current charges: one charge per full
// regen interval since the last sync, capped at max. Returns false for
// accounts that were never synced.
func (p *Predictor) Predict(accountId string, now time.Time) (models.Charges, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.m[accountId]
	if !ok {
		return models.Charges{}, false
	}
	return models.Charges{Count: s.available(now), Max: s.max}, true
}

// Consume decrements the predicted count by n, flooring at zero, and
// re-anchors the sync point to the most recent completed regen tick so the
// in-progress tick keeps accruing. No-op for unknown accounts.
func (p *Predictor) Consume(accountId string, n int, now time.Time) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.m[accountId]
	if !ok {
		return
	}
	avail := s.available(now)
	s.base = max(0, avail-n)
	s.lastSync = now.Add(-(now.Sub(s.lastSync) % RegenInterval))
	p.m[accountId] = s
}

// IsStale reports whether the last authoritative read is too old to trust.
// Unknown accounts are always stale.
func (p *Predictor) IsStale(accountId string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.m[accountId]
	if !ok {
		return true
	}
	return now.Sub(s.lastSync) > SyncInterval
}

// Forget drops an account's snapshot (account deleted).
func (p *Predictor) Forget(accountId string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, accountId)
}

func (s snapshot) available(now time.Time) int {
	grown := int(now.Sub(s.lastSync) / RegenInterval)
	if grown < 0 {
		grown = 0
	}
	return min(s.max, s.base+grown)
}
