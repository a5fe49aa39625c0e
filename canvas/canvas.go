// Package canvas defines the client contract for the remote pixel canvas
// and the error taxonomy the engine's retry logic keys off.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zlnvch/placebot/models"
)

// TileKey addresses one remote canvas tile.
type TileKey struct {
	X int
	Y int
}

func (k TileKey) String() string {
	return fmt.Sprintf("%d,%d", k.X, k.Y)
}

// Tile is a decoded remote tile as palette IDs, x-major like models.Image.
type Tile struct {
	Width  int
	Height int
	Data   [][]int
}

// UserInfo is the remote service's view of an account.
type UserInfo struct {
	Id                int64          `json:"id"`
	Name              string         `json:"name"`
	Charges           ChargesInfo    `json:"charges"`
	Droplets          int            `json:"droplets"`
	ExtraColorsBitmap uint32         `json:"extraColorsBitmap"`
}

// ChargesInfo mirrors the wire shape; count arrives fractional because the
// server reports partial regeneration.
type ChargesInfo struct {
	Count float64 `json:"count"`
	Max   float64 `json:"max"`
}

// Whole floors the fractional wire counts to a usable budget.
func (c ChargesInfo) Whole() models.Charges {
	return models.Charges{Count: int(c.Count), Max: int(c.Max)}
}

// Client is a per-account authenticated session against the remote canvas.
// Implementations are not safe for concurrent use; each template runner
// owns its clients exclusively.
type Client interface {
	// Login establishes the session from a cookie blob and performs a
	// self-identity read.
	Login(ctx context.Context, cookies map[string]string) (UserInfo, error)

	// RefreshUserInfo re-reads the authoritative profile.
	RefreshUserInfo(ctx context.Context) (UserInfo, error)

	// UserInfo returns the last profile read. Zero value before Login.
	UserInfo() UserInfo

	// LoadTiles fetches and decodes every tile intersecting the template's
	// bounding box. Individual tile failures are tolerated: the tile is
	// simply absent from Tiles().
	LoadTiles(ctx context.Context, anchor models.Anchor, width, height int) error

	// Tiles exposes the in-memory tile cache.
	Tiles() map[TileKey]*Tile

	// PaintBatch submits one paint request for pixels within a single tile.
	// coords is a flat [x0,y0,x1,y1,...] list in tile-local pixels. On full
	// success it patches the tile cache in place and returns the painted
	// count.
	PaintBatch(ctx context.Context, tile TileKey, colors []int, coords []int, token string) (int, error)

	// BuyProduct submits a purchase request.
	BuyProduct(ctx context.Context, productId int, amount int) error
}

// Droplet shop products.
const (
	ProductMaxChargeUpgrade = 70
	ProductCharges          = 80

	DropletsPerUnit = 500
	ChargesPerUnit  = 30
)

// ErrRefreshToken signals the current challenge token was rejected; the
// caller should invalidate it and retry with a fresh one.
var ErrRefreshToken = errors.New("canvas: token rejected, refresh required")

// NetworkError is transient edge/infra trouble: rate limits, bad gateways,
// invalid sessions. Always retryable by rotating account or backing off.
type NetworkError struct {
	Reason string
}

func (e *NetworkError) Error() string {
	return "canvas: " + e.Reason
}

// AuthError means the remote service explicitly rejected the credential.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "canvas: auth failed: " + e.Reason
}

// SuspensionError means the account is banned from painting for Duration.
type SuspensionError struct {
	Duration time.Duration
}

func (e *SuspensionError) Error() string {
	return fmt.Sprintf("canvas: account suspended for %s", e.Duration)
}
