package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	snapshots map[int64]Snapshot
	failing   map[int64]bool
}

func (f *fakeFetcher) ProductSnapshot(_ context.Context, id int64) (Snapshot, error) {
	if f.failing[id] {
		return Snapshot{}, errors.New("boom")
	}
	snap, ok := f.snapshots[id]
	if !ok {
		return Snapshot{}, errors.New("unknown product")
	}
	return snap, nil
}

func ptr[T any](v T) *T { return &v }

func TestReconcilePrefersLiveValues(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: map[int64]Snapshot{
		7: {ProductID: 7, Name: "Fresh Apples", Price: ptr(8.5), InStock: ptr(false)},
	}}
	r := Reconciler{Fetcher: fetcher, Log: zerolog.Nop()}

	out := r.Reconcile(context.Background(), []Line{
		{ProductID: 7, Name: "Apples", UnitPrice: 10, Quantity: 3, InStock: true},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "Fresh Apples", out[0].Name)
	assert.Equal(t, 8.5, out[0].UnitPrice)
	assert.False(t, out[0].InStock)
	assert.Equal(t, 3, out[0].Quantity)
}

func TestReconcilePartialFailureKeepsStoredLine(t *testing.T) {
	fetcher := &fakeFetcher{
		snapshots: map[int64]Snapshot{9: {ProductID: 9, Price: ptr(4.0)}},
		failing:   map[int64]bool{7: true},
	}
	r := Reconciler{Fetcher: fetcher, Log: zerolog.Nop()}

	out := r.Reconcile(context.Background(), []Line{
		{ProductID: 7, UnitPrice: 10, Quantity: 1},
		{ProductID: 9, UnitPrice: 5, Quantity: 2},
	})

	require.Len(t, out, 2)
	assert.Equal(t, 10.0, out[0].UnitPrice)
	assert.Equal(t, 4.0, out[1].UnitPrice)
}

func TestReconcileWithoutFetcherIsIdentity(t *testing.T) {
	r := Reconciler{}
	in := []Line{{ProductID: 7, Quantity: 1}}
	assert.Equal(t, in, r.Reconcile(context.Background(), in))
}

func TestMergeLineOmittedFieldsFallBack(t *testing.T) {
	stored := Line{
		ProductID: 7, Name: "Apples", UnitPrice: 10, Quantity: 2,
		InStock: true, ShippingMethod: "basic", ImageURL: "old.png",
	}
	merged := MergeLine(stored, Snapshot{ProductID: 7, Price: ptr(9.0)})

	assert.Equal(t, 9.0, merged.UnitPrice)
	assert.Equal(t, "Apples", merged.Name)
	assert.Equal(t, "basic", merged.ShippingMethod)
	assert.Equal(t, "old.png", merged.ImageURL)
	assert.True(t, merged.InStock)
	assert.Equal(t, 2, merged.Quantity)
}

func TestMergeLineOverridesEverythingPresent(t *testing.T) {
	cat := int64(4)
	merged := MergeLine(Line{ProductID: 7, Quantity: 1}, Snapshot{
		ProductID:      7,
		Name:           "Oranges",
		Price:          ptr(6.0),
		OriginalPrice:  ptr(8.0),
		ImageURL:       "new.png",
		InStock:        ptr(true),
		ShippingMethod: ptr("free"),
		CategoryID:     &cat,
	})

	assert.Equal(t, "Oranges", merged.Name)
	assert.Equal(t, 6.0, merged.UnitPrice)
	assert.Equal(t, 8.0, *merged.OriginalUnitPrice)
	assert.Equal(t, "new.png", merged.ImageURL)
	assert.True(t, merged.InStock)
	assert.Equal(t, "free", merged.ShippingMethod)
	assert.Equal(t, &cat, merged.CategoryID)
}
