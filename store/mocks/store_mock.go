package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/settings"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateTemplate(ctx context.Context, tpl models.Template) (models.Template, error) {
	args := m.Called(ctx, tpl)
	return args.Get(0).(models.Template), args.Error(1)
}

func (m *MockStore) GetTemplate(ctx context.Context, id string) (models.Template, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Template), args.Error(1)
}

func (m *MockStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Template), args.Error(1)
}

func (m *MockStore) UpdateTemplate(ctx context.Context, tpl models.Template) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockStore) UpdateTemplateProgress(ctx context.Context, id string, status string, pixelsRemaining int, totalPixels int) error {
	args := m.Called(ctx, id, status, pixelsRemaining, totalPixels)
	return args.Error(0)
}

func (m *MockStore) DeleteTemplate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) UpsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) GetUser(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStore) SetUserSuspension(ctx context.Context, id string, suspendedUntil int64) error {
	args := m.Called(ctx, id, suspendedUntil)
	return args.Error(0)
}

func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) GetSettings(ctx context.Context) (settings.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(settings.Settings), args.Error(1)
}

func (m *MockStore) PutSettings(ctx context.Context, s settings.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
