package models

import "time"

// TileSize is the fixed edge length of a remote canvas tile in pixels.
const TileSize = 1000

// Anchor locates a template's top-left pixel in the remote canvas's
// tile/pixel coordinate space.
type Anchor struct {
	TileX  int `json:"tileX"`
	TileY  int `json:"tileY"`
	PixelX int `json:"pixelX"`
	PixelY int `json:"pixelY"`
}

// Image is a palette-indexed pixel matrix in x-major order: Data[x][y] is a
// palette ID, 0 for unset/transparent, -1 for "clear if painted".
type Image struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Data   [][]int `json:"data"`
}

// TotalPixels counts the cells a completed template occupies (everything
// except unset cells; -1 counts because the engine has to clear it).
func (img Image) TotalPixels() int {
	total := 0
	for _, col := range img.Data {
		for _, c := range col {
			if c != 0 {
				total++
			}
		}
	}
	return total
}

type Template struct {
	Id                string   `json:"id"`
	Name              string   `json:"name"`
	Image             Image    `json:"image"`
	Anchor            Anchor   `json:"anchor"`
	UserIds           []string `json:"userIds"`
	CanBuyCharges     bool     `json:"canBuyCharges"`
	CanBuyMaxCharges  bool     `json:"canBuyMaxCharges"`
	AntiGriefMode     bool     `json:"antiGriefMode"`
	EraseMode         bool     `json:"eraseMode"`
	OutlineMode       bool     `json:"outlineMode"`
	SkipPaintedPixels bool     `json:"skipPaintedPixels"`
	EnableAutostart   bool     `json:"enableAutostart"`
	Created           int64    `json:"created"`
}

// MasterId is the display/ownership account: the first entry of UserIds.
// Re-derived whenever the list changes, so removing the old master just
// promotes the next account.
func (t Template) MasterId() string {
	if len(t.UserIds) == 0 {
		return ""
	}
	return t.UserIds[0]
}

// User is an authenticated remote-canvas account.
type User struct {
	Id             string            `json:"id"`
	Name           string            `json:"name"`
	Cookies        map[string]string `json:"cookies"`
	ExpirationDate int64             `json:"expirationDate"` // unix ms, advisory
	SuspendedUntil int64             `json:"suspendedUntil"` // unix ms, 0 = not suspended
}

func (u User) IsSuspended(now time.Time) bool {
	return u.SuspendedUntil > 0 && now.UnixMilli() < u.SuspendedUntil
}

func (u User) IsExpired(now time.Time) bool {
	return u.ExpirationDate > 0 && now.UnixMilli() > u.ExpirationDate
}

func (u *User) Suspend(d time.Duration, now time.Time) {
	u.SuspendedUntil = now.Add(d).UnixMilli()
}

// Charges is an account's paint budget as reported by the remote service.
type Charges struct {
	Count int `json:"count"`
	Max   int `json:"max"`
}
