package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/models"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Login(ctx context.Context, cookies map[string]string) (canvas.UserInfo, error) {
	args := m.Called(ctx, cookies)
	return args.Get(0).(canvas.UserInfo), args.Error(1)
}

func (m *MockClient) RefreshUserInfo(ctx context.Context) (canvas.UserInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(canvas.UserInfo), args.Error(1)
}

func (m *MockClient) UserInfo() canvas.UserInfo {
	args := m.Called()
	return args.Get(0).(canvas.UserInfo)
}

func (m *MockClient) LoadTiles(ctx context.Context, anchor models.Anchor, width, height int) error {
	args := m.Called(ctx, anchor, width, height)
	return args.Error(0)
}

func (m *MockClient) Tiles() map[canvas.TileKey]*canvas.Tile {
	args := m.Called()
	return args.Get(0).(map[canvas.TileKey]*canvas.Tile)
}

func (m *MockClient) PaintBatch(ctx context.Context, tile canvas.TileKey, colors []int, coords []int, token string) (int, error) {
	args := m.Called(ctx, tile, colors, coords, token)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) BuyProduct(ctx context.Context, productId int, amount int) error {
	args := m.Called(ctx, productId, amount)
	return args.Error(0)
}
