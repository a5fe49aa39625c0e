package service

import (
	"context"
	"time"

	"github.com/zlnvch/placebot/models"
)

// storeDirectory adapts the store to the runner's account view. Runners
// re-read accounts constantly, so each call uses its own short deadline
// instead of the runner's lifetime context.
type storeDirectory struct {
	service *Service
}

const directoryTimeout = 10 * time.Second

func (d storeDirectory) User(id string) (models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
	defer cancel()
	return d.service.Store.GetUser(ctx, id)
}

func (d storeDirectory) Suspend(id string, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
	defer cancel()
	until := time.Now().Add(duration).UnixMilli()
	return d.service.Store.SetUserSuspension(ctx, id, until)
}
