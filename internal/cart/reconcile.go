package cart

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Snapshot is a live product record as normalised by the store API
// client. Nil fields mean the backend omitted them; the stored cart
// value wins for those.
type Snapshot struct {
	ProductID      int64
	Name           string
	Price          *float64
	OriginalPrice  *float64
	ImageURL       string
	InStock        *bool
	ShippingMethod *string
	CategoryID     *int64
}

// SnapshotFetcher supplies live product snapshots by id.
type SnapshotFetcher interface {
	ProductSnapshot(ctx context.Context, productID int64) (Snapshot, error)
}

// Reconciler refreshes displayed cart lines from live product data
// without mutating the persisted cart.
type Reconciler struct {
	Fetcher SnapshotFetcher
	// MaxInFlight bounds the concurrent snapshot fetches. Zero means 8.
	MaxInFlight int
	Log         zerolog.Logger
}

// Reconcile fetches snapshots for every line as an unordered batch and
// merges them in. A failed fetch degrades to "no live data for this
// id": the affected line keeps its stored values and the rest of the
// cart is unaffected.
func (r Reconciler) Reconcile(ctx context.Context, lines []Line) []Line {
	if r.Fetcher == nil || len(lines) == 0 {
		return lines
	}
	limit := r.MaxInFlight
	if limit <= 0 {
		limit = 8
	}

	var mu sync.Mutex
	snapshots := make(map[int64]Snapshot, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, ln := range lines {
		id := ln.ProductID
		g.Go(func() error {
			snap, err := r.Fetcher.ProductSnapshot(gctx, id)
			if err != nil {
				r.Log.Debug().Err(err).Int64("product_id", id).Msg("live snapshot unavailable")
				return nil
			}
			mu.Lock()
			snapshots[id] = snap
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Line, len(lines))
	for i, ln := range lines {
		if snap, ok := snapshots[ln.ProductID]; ok {
			out[i] = MergeLine(ln, snap)
		} else {
			out[i] = ln
		}
	}
	return out
}

// MergeLine overlays a live snapshot onto a stored line. Live values
// win field by field; anything the snapshot omits falls back to the
// stored value. Quantity is never touched.
func MergeLine(stored Line, snap Snapshot) Line {
	merged := stored
	if snap.Name != "" {
		merged.Name = snap.Name
	}
	if snap.Price != nil {
		merged.UnitPrice = *snap.Price
	}
	if snap.OriginalPrice != nil {
		merged.OriginalUnitPrice = snap.OriginalPrice
	}
	if snap.ImageURL != "" {
		merged.ImageURL = snap.ImageURL
	}
	if snap.InStock != nil {
		merged.InStock = *snap.InStock
	}
	if snap.ShippingMethod != nil {
		merged.ShippingMethod = *snap.ShippingMethod
	}
	if snap.CategoryID != nil {
		merged.CategoryID = snap.CategoryID
	}
	return merged
}
