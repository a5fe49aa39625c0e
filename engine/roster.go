package engine

import (
	"fmt"
	"sync"
)

// Roster tracks which accounts are claimed by a running template. A claim
// is all or nothing so two templates sharing an account can never run at
// the same time.
type Roster struct {
	mu   sync.Mutex
	busy map[string]string // account id -> owning template id
}

func NewRoster() *Roster {
	return &Roster{busy: make(map[string]string)}
}

// Claim reserves every listed account for the template, or none of them.
func (r *Roster) Claim(templateId string, accountIds []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range accountIds {
		if owner, taken := r.busy[id]; taken && owner != templateId {
			return fmt.Errorf("account %s is busy with template %s", id, owner)
		}
	}
	for _, id := range accountIds {
		r.busy[id] = templateId
	}
	return nil
}

// Reclaim swaps the template's claim set in one step: accounts dropped from
// the list are freed, new ones are reserved, all or nothing.
func (r *Roster) Reclaim(templateId string, accountIds []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range accountIds {
		if owner, taken := r.busy[id]; taken && owner != templateId {
			return fmt.Errorf("account %s is busy with template %s", id, owner)
		}
	}
	for id, owner := range r.busy {
		if owner == templateId {
			delete(r.busy, id)
		}
	}
	for _, id := range accountIds {
		r.busy[id] = templateId
	}
	return nil
}

// Release frees every account the template holds.
func (r *Roster) Release(templateId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, owner := range r.busy {
		if owner == templateId {
			delete(r.busy, id)
		}
	}
}

// Owner returns which template holds the account, if any.
func (r *Roster) Owner(accountId string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.busy[accountId]
	return owner, ok
}
