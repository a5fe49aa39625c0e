package store

import (
	"context"
	"errors"

	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/settings"
)

type PlacebotStore interface {
	CreateTemplate(ctx context.Context, tpl models.Template) (models.Template, error)
	GetTemplate(ctx context.Context, id string) (models.Template, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	UpdateTemplate(ctx context.Context, tpl models.Template) error
	UpdateTemplateProgress(ctx context.Context, id string, status string, pixelsRemaining int, totalPixels int) error
	DeleteTemplate(ctx context.Context, id string) error

	UpsertUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserSuspension(ctx context.Context, id string, suspendedUntil int64) error
	DeleteUser(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (settings.Settings, error)
	PutSettings(ctx context.Context, s settings.Settings) error
}

// Custom error types for clarity
var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
)
