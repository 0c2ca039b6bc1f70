package cart

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/freshmart/storefront/internal/pricing"
)

// ErrNotFound indicates the requested line is not present in the cart.
var ErrNotFound = errors.New("cart line not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Line is one durable cart row. Prices stored here are fallbacks only;
// live reconciliation overrides them for display whenever a fresh
// product snapshot is available.
type Line struct {
	ProductID         int64    `json:"productId"`
	Name              string   `json:"name,omitempty"`
	UnitPrice         float64  `json:"unitPrice"`
	OriginalUnitPrice *float64 `json:"originalUnitPrice,omitempty"`
	Quantity          int      `json:"quantity"`
	InStock           bool     `json:"inStock"`
	ShippingMethod    string   `json:"shippingMethod,omitempty"`
	CategoryID        *int64   `json:"categoryId,omitempty"`
	ImageURL          string   `json:"imageUrl,omitempty"`
}

// PricingItem projects the line into the calculator's input shape.
func (l Line) PricingItem() pricing.LineItem {
	return pricing.LineItem{
		ProductID:      l.ProductID,
		UnitPrice:      l.UnitPrice,
		Quantity:       l.Quantity,
		ShippingMethod: l.ShippingMethod,
		CategoryID:     l.CategoryID,
	}
}

// PricingItems projects a full line list.
func PricingItems(lines []Line) []pricing.LineItem {
	out := make([]pricing.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.PricingItem())
	}
	return out
}

// Port abstracts the durable storage behind the cart so the store can
// be exercised without a live backend. Load must return an empty cart,
// not an error, when the persisted payload is missing or corrupt.
type Port interface {
	Load(ctx context.Context, sessionID string) ([]Line, error)
	Save(ctx context.Context, sessionID string, lines []Line) error
}

// Mutex serialises read-modify-write cycles on one cart. Without it,
// two concurrent mutations from the same session can lose an update.
type Mutex interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Store is the single owner of cart mutations. Every mutation persists
// the full line list synchronously before returning.
type Store struct {
	Port    Port
	Mutex   Mutex
	LockTTL time.Duration
	Log     zerolog.Logger
}

// Lines returns the persisted cart for the session.
func (s *Store) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	if s == nil || s.Port == nil {
		return nil, errors.New("cart store not configured")
	}
	return s.Port.Load(ctx, sessionID)
}

// AddOrIncrement appends the line with quantity 1, or bumps the
// quantity when the product is already in the cart.
func (s *Store) AddOrIncrement(ctx context.Context, sessionID string, line Line) ([]Line, error) {
	if line.ProductID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.locked(ctx, sessionID, func(ctx context.Context) ([]Line, error) {
		return s.addOrIncrement(ctx, sessionID, line)
	})
}

func (s *Store) addOrIncrement(ctx context.Context, sessionID string, line Line) ([]Line, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		line.Quantity = 1
		lines = append(lines, line)
	}
	return lines, s.save(ctx, sessionID, lines)
}

// Increment bumps the quantity of an existing line. Stock sufficiency
// is not checked here; the authoritative check happens upstream at
// order time.
func (s *Store) Increment(ctx context.Context, sessionID string, productID int64) ([]Line, error) {
	return s.locked(ctx, sessionID, func(ctx context.Context) ([]Line, error) {
		return s.increment(ctx, sessionID, productID)
	})
}

func (s *Store) increment(ctx context.Context, sessionID string, productID int64) ([]Line, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity++
			return lines, s.save(ctx, sessionID, lines)
		}
	}
	return nil, ErrNotFound
}

// Decrement lowers the quantity of an existing line. Dropping below one
// removes the line entirely rather than clamping.
func (s *Store) Decrement(ctx context.Context, sessionID string, productID int64) ([]Line, error) {
	return s.locked(ctx, sessionID, func(ctx context.Context) ([]Line, error) {
		return s.decrement(ctx, sessionID, productID)
	})
}

func (s *Store) decrement(ctx context.Context, sessionID string, productID int64) ([]Line, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].ProductID != productID {
			continue
		}
		lines[i].Quantity--
		if lines[i].Quantity < 1 {
			lines = append(lines[:i], lines[i+1:]...)
		}
		return lines, s.save(ctx, sessionID, lines)
	}
	return nil, ErrNotFound
}

// Remove deletes the line unconditionally. Removing an absent line is
// not an error.
func (s *Store) Remove(ctx context.Context, sessionID string, productID int64) ([]Line, error) {
	return s.locked(ctx, sessionID, func(ctx context.Context) ([]Line, error) {
		return s.remove(ctx, sessionID, productID)
	})
}

func (s *Store) remove(ctx context.Context, sessionID string, productID int64) ([]Line, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].ProductID == productID {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return lines, s.save(ctx, sessionID, lines)
}

// Clear empties the cart, typically after a confirmed order.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.save(ctx, sessionID, []Line{})
}

func (s *Store) save(ctx context.Context, sessionID string, lines []Line) error {
	if s == nil || s.Port == nil {
		return errors.New("cart store not configured")
	}
	return s.Port.Save(ctx, sessionID, lines)
}

// locked runs the mutation under the per-session mutex when one is
// configured. A lock acquisition failure aborts the mutation; a cart
// write must never race a concurrent one.
func (s *Store) locked(ctx context.Context, sessionID string, fn func(context.Context) ([]Line, error)) ([]Line, error) {
	if s == nil || s.Mutex == nil {
		return fn(ctx)
	}
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	var out []Line
	err := s.Mutex.WithLock(ctx, "cart:mutex:"+sessionID, ttl, func(ctx context.Context) error {
		var ferr error
		out, ferr = fn(ctx)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
