// Package engine runs templates: it resolves mismatches between a template
// image and the live canvas, schedules paint batches across an account
// rotation, and drives the long-running per-template execution loop.
package engine

import (
	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/palette"
)

// MismatchPixel is one cell where the canvas disagrees with the template,
// addressed both in template-local and remote tile coordinates.
type MismatchPixel struct {
	Tile canvas.TileKey
	// Px/Py are within Tile, LocalX/LocalY within the template image.
	Px, Py         int
	LocalX, LocalY int
	// Color is the palette ID to submit (0 clears the pixel).
	Color  int
	IsEdge bool
}

// ResolveOptions selects which mismatches count for one resolution pass.
type ResolveOptions struct {
	// Skip samples only cells where (x+y)%Skip == 0. Values below 1 mean
	// every cell.
	Skip int
	// ColorFilter, when non-nil, restricts the pass to cells of that
	// template color.
	ColorFilter *int
	// ExtraColorsBitmap is the acting account's premium-color ownership.
	ExtraColorsBitmap uint32
	Erase             bool
	SkipPainted       bool
}

// ComputeMismatches compares the template image against the cached tiles and
// returns every pixel that needs a paint call. Pure: identical inputs give
// an identical, identically ordered result.
//
// Cell policy, first match wins:
//  1. erase mode, template cell unset, canvas painted: clear it.
//  2. template cell is the clear sentinel (-1), canvas painted: clear it.
//  3. template cell is a color the account owns: paint when the canvas
//     differs (or, with SkipPainted, only when the canvas is blank).
func ComputeMismatches(img models.Image, anchor models.Anchor, tiles map[canvas.TileKey]*canvas.Tile, opts ResolveOptions) []MismatchPixel {
	skip := opts.Skip
	if skip < 1 {
		skip = 1
	}

	var out []MismatchPixel
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if (x+y)%skip != 0 {
				continue
			}
			tplColor := img.Data[x][y]
			if opts.ColorFilter != nil && tplColor != *opts.ColorFilter {
				continue
			}

			globalPx := anchor.PixelX + x
			globalPy := anchor.PixelY + y
			key := canvas.TileKey{
				X: anchor.TileX + globalPx/models.TileSize,
				Y: anchor.TileY + globalPy/models.TileSize,
			}
			px := globalPx % models.TileSize
			py := globalPy % models.TileSize

			// A tile missing from the cache (failed fetch) is skipped
			// rather than guessed at.
			tile := tiles[key]
			if tile == nil || px >= tile.Width || py >= tile.Height {
				continue
			}
			canvasColor := tile.Data[px][py]

			switch {
			case opts.Erase && tplColor == palette.Transparent && canvasColor != palette.Transparent:
				out = append(out, MismatchPixel{
					Tile: key, Px: px, Py: py, LocalX: x, LocalY: y,
					Color: palette.Transparent,
				})
			case tplColor == palette.ClearSentinel && canvasColor != palette.Transparent:
				out = append(out, MismatchPixel{
					Tile: key, Px: px, Py: py, LocalX: x, LocalY: y,
					Color: palette.Transparent, IsEdge: isEdge(img, x, y),
				})
			case tplColor > 0 && palette.HasColor(tplColor, opts.ExtraColorsBitmap):
				needsPaint := canvasColor != tplColor
				if opts.SkipPainted {
					needsPaint = canvasColor == palette.Transparent
				}
				if needsPaint {
					out = append(out, MismatchPixel{
						Tile: key, Px: px, Py: py, LocalX: x, LocalY: y,
						Color: tplColor, IsEdge: isEdge(img, x, y),
					})
				}
			}
		}
	}
	return out
}

// isEdge reports whether any 4-connected neighbor is unset or out of bounds.
func isEdge(img models.Image, x, y int) bool {
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || nx >= img.Width || ny < 0 || ny >= img.Height {
			return true
		}
		if img.Data[nx][ny] == palette.Transparent {
			return true
		}
	}
	return false
}
