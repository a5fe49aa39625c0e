package engine

import (
	"context"
	"errors"
	"math/rand"
	"sort"

	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/settings"
)

// PlanOptions shapes one paint turn's pixel selection.
type PlanOptions struct {
	OutlineOnly bool
	Direction   string
	Order       string
	// Budget caps how many pixels this turn may submit, normally the
	// acting account's whole charge count.
	Budget int
	// ImageWidth/ImageHeight are needed for center-out ordering.
	ImageWidth  int
	ImageHeight int
	// Rand drives random ordering; nil uses the shared source.
	Rand *rand.Rand
}

// Plan orders mismatches by the configured direction and grouping, then
// truncates to the budget. The input slice is not modified.
func Plan(pixels []MismatchPixel, opts PlanOptions) []MismatchPixel {
	if len(pixels) == 0 || opts.Budget <= 0 {
		return nil
	}

	planned := make([]MismatchPixel, len(pixels))
	copy(planned, pixels)

	if opts.OutlineOnly {
		var edges []MismatchPixel
		for _, p := range planned {
			if p.IsEdge {
				edges = append(edges, p)
			}
		}
		// With no differing edge pixels at all, fall back to the full
		// set rather than painting nothing.
		if len(edges) > 0 {
			planned = edges
		}
	}

	switch opts.Direction {
	case settings.DirectionBottomUp:
		sort.SliceStable(planned, func(i, j int) bool { return planned[i].LocalY > planned[j].LocalY })
	case settings.DirectionLeftRight:
		sort.SliceStable(planned, func(i, j int) bool { return planned[i].LocalX < planned[j].LocalX })
	case settings.DirectionRightLeft:
		sort.SliceStable(planned, func(i, j int) bool { return planned[i].LocalX > planned[j].LocalX })
	case settings.DirectionCenterOut:
		cx := float64(opts.ImageWidth) / 2
		cy := float64(opts.ImageHeight) / 2
		dist2 := func(p MismatchPixel) float64 {
			dx := float64(p.LocalX) - cx
			dy := float64(p.LocalY) - cy
			return dx*dx + dy*dy
		}
		sort.SliceStable(planned, func(i, j int) bool { return dist2(planned[i]) < dist2(planned[j]) })
	case settings.DirectionRandom:
		shuffle := rand.Shuffle
		if opts.Rand != nil {
			shuffle = opts.Rand.Shuffle
		}
		shuffle(len(planned), func(i, j int) {
			planned[i], planned[j] = planned[j], planned[i]
		})
	default: // top to bottom
		sort.SliceStable(planned, func(i, j int) bool { return planned[i].LocalY < planned[j].LocalY })
	}

	if opts.Order == settings.OrderColor {
		planned = groupByColor(planned)
	}

	if len(planned) > opts.Budget {
		planned = planned[:opts.Budget]
	}
	return planned
}

// groupByColor buckets pixels by desired color, buckets ordered by first
// encounter and intra-bucket order preserved.
func groupByColor(pixels []MismatchPixel) []MismatchPixel {
	var order []int
	buckets := make(map[int][]MismatchPixel)
	for _, p := range pixels {
		if _, seen := buckets[p.Color]; !seen {
			order = append(order, p.Color)
		}
		buckets[p.Color] = append(buckets[p.Color], p)
	}

	out := make([]MismatchPixel, 0, len(pixels))
	for _, c := range order {
		out = append(out, buckets[c]...)
	}
	return out
}

// TileBatch is one tile's worth of a paint submission: parallel color and
// flattened x,y coordinate slices, as the remote paint call wants them.
type TileBatch struct {
	Tile   canvas.TileKey
	Colors []int
	Coords []int
}

// GroupByTile splits planned pixels into per-tile batches, batch order by
// first encounter and pixel order preserved within each batch.
func GroupByTile(pixels []MismatchPixel) []TileBatch {
	byTile := make(map[canvas.TileKey]int)

	var batches []TileBatch
	for _, p := range pixels {
		idx, seen := byTile[p.Tile]
		if !seen {
			idx = len(batches)
			byTile[p.Tile] = idx
			batches = append(batches, TileBatch{Tile: p.Tile})
		}
		batches[idx].Colors = append(batches[idx].Colors, p.Color)
		batches[idx].Coords = append(batches[idx].Coords, p.Px, p.Py)
	}
	return batches
}

// TokenSource hands out paint tokens. Satisfied by *token.Broker.
type TokenSource interface {
	Get(ctx context.Context, label string) (string, error)
	Invalidate()
}

// Scheduler turns a mismatch list into sequential paint submissions.
type Scheduler struct {
	Tokens TokenSource
}

// PlanAndExecute plans one turn and submits it tile by tile, strictly in
// order. A rejected token is invalidated before the error is returned so
// the caller's retry starts from a fresh one. Returns pixels painted so
// far alongside any error.
func (s *Scheduler) PlanAndExecute(ctx context.Context, client canvas.Client, label string, pixels []MismatchPixel, opts PlanOptions) (int, error) {
	planned := Plan(pixels, opts)
	if len(planned) == 0 {
		return 0, nil
	}

	total := 0
	for _, batch := range GroupByTile(planned) {
		tok, err := s.Tokens.Get(ctx, label)
		if err != nil {
			return total, err
		}

		painted, err := client.PaintBatch(ctx, batch.Tile, batch.Colors, batch.Coords, tok)
		total += painted
		if err != nil {
			if errors.Is(err, canvas.ErrRefreshToken) {
				s.Tokens.Invalidate()
			}
			return total, err
		}
	}
	return total, nil
}
