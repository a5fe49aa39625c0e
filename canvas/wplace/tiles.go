package wplace

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/palette"
)

// LoadTiles fetches every remote tile intersecting the template's bounding
// box and decodes each into palette IDs. Tiles are independent reads, so
// the fetches run concurrently; a failed tile is logged and left out of the
// cache rather than failing the whole load.
func (c *Client) LoadTiles(ctx context.Context, anchor models.Anchor, width, height int) error {
	clear(c.tiles)

	endTx := anchor.TileX + (anchor.PixelX+width)/models.TileSize
	endTy := anchor.TileY + (anchor.PixelY+height)/models.TileSize

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for tx := anchor.TileX; tx <= endTx; tx++ {
		for ty := anchor.TileY; ty <= endTy; ty++ {
			key := canvas.TileKey{X: tx, Y: ty}
			wg.Add(1)
			go func() {
				defer wg.Done()
				tile, err := c.fetchTile(ctx, key)
				if err != nil {
					log.Printf("Tile %s fetch failed (skipping): %v", key, err)
					return
				}
				if tile != nil {
					mu.Lock()
					c.tiles[key] = tile
					mu.Unlock()
				}
			}()
		}
	}
	wg.Wait()
	return nil
}

// fetchTile returns nil,nil for tiles the server has never materialized
// (not-found means fully blank).
func (c *Client) fetchTile(ctx context.Context, key canvas.TileKey) (*canvas.Tile, error) {
	// Cache-bust: tiles are served through a CDN and repaints must see
	// fresh pixels.
	url := fmt.Sprintf("%s/tiles/%d/%d.png?t=%d", c.filesURL, key.X, key.Y, time.Now().UnixMilli())

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("tile fetch status %d", status)
	}

	return decodeTile(body)
}

// decodeTile converts raster bytes into an x-major palette-ID matrix.
// Anything not fully opaque counts as unset.
func decodeTile(raw []byte) (*canvas.Tile, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tile := &canvas.Tile{Width: w, Height: h, Data: make([][]int, w)}
	for x := 0; x < w; x++ {
		tile.Data[x] = make([]int, h)
		for y := 0; y < h; y++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if a != 0xffff {
				continue
			}
			tile.Data[x][y] = palette.IdForRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return tile, nil
}
