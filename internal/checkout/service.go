package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/pricing"
	"github.com/freshmart/storefront/internal/storeapi"
)

// ErrEmptyCart is returned when checkout is attempted with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrSubmitFailed wraps an upstream order submission failure. It is
// retryable: the cart is left untouched and the same idempotency key
// may be replayed.
var ErrSubmitFailed = errors.New("order submission failed")

// Submitter posts a finished order to the store API.
type Submitter interface {
	SubmitOrder(ctx context.Context, order storeapi.Order) (storeapi.OrderAck, error)
}

// Input is the checkout submission payload from the web client.
type Input struct {
	Address Address `json:"address" validate:"required"`
	Payment Payment `json:"payment" validate:"required"`
	Notes   string  `json:"notes" validate:"max=500"`
	// IdempotencyKey lets a client retry a failed submission without
	// risking a duplicate order. Generated when absent.
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,uuid4"`
}

// Address is the validated delivery address.
type Address struct {
	ReceiverName string `json:"receiverName" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,max=32"`
	AddressLine1 string `json:"addressLine1" validate:"required,max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	City         string `json:"city" validate:"required,max=80"`
	PostalCode   string `json:"postalCode" validate:"required,max=16"`
}

// Payment names the channel the customer picked; capture is upstream.
type Payment struct {
	Method  string `json:"method" validate:"required,oneof=card cod bank_transfer wallet"`
	Channel string `json:"channel" validate:"max=40"`
}

// Output is returned to the client after a confirmed submission.
type Output struct {
	OrderID string       `json:"orderId"`
	Status  string       `json:"status"`
	Summary cart.Summary `json:"summary"`
}

// Service drives the checkout flow. It prices through the same Viewer
// as the cart page, so the two summaries cannot diverge.
type Service struct {
	Viewer    *cart.Viewer
	Submitter Submitter
	Validate  *validator.Validate
	Log       zerolog.Logger
}

// Summary returns the priced checkout summary for the session.
func (s *Service) Summary(ctx context.Context, sessionID string) (cart.View, error) {
	if s == nil || s.Viewer == nil {
		return cart.View{}, errors.New("checkout service not configured")
	}
	return s.Viewer.ViewSession(ctx, sessionID)
}

// Submit validates the input, prices the cart one final time and posts
// the order. The cart is cleared only after the upstream accepted the
// order; any failure leaves it intact for a retry.
func (s *Service) Submit(ctx context.Context, sessionID string, in Input) (Output, error) {
	if s == nil || s.Viewer == nil || s.Submitter == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if err := s.validate(in); err != nil {
		return Output{}, err
	}

	view, err := s.Viewer.ViewSession(ctx, sessionID)
	if err != nil {
		return Output{}, err
	}
	if len(view.Items) == 0 {
		return Output{}, ErrEmptyCart
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	ack, err := s.Submitter.SubmitOrder(ctx, buildOrder(sessionID, key, view, in))
	if err != nil {
		s.Log.Error().Err(err).Str("session_id", sessionID).Msg("order submission failed")
		return Output{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	if err := s.Viewer.Store.Clear(ctx, sessionID); err != nil {
		// The order went through; a stale cart is an annoyance, not a
		// reason to report failure.
		s.Log.Warn().Err(err).Str("session_id", sessionID).Msg("clearing cart after order")
	}
	return Output{OrderID: ack.OrderID, Status: ack.Status, Summary: view.Summary}, nil
}

func buildOrder(sessionID, key string, view cart.View, in Input) storeapi.Order {
	items := make([]storeapi.OrderItem, 0, len(view.Items))
	for _, ln := range view.Items {
		items = append(items, storeapi.OrderItem{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			Quantity:  ln.Quantity,
			UnitPrice: pricing.Round2(ln.UnitPrice),
			Subtotal:  pricing.Round2(ln.UnitPrice * float64(ln.Quantity)),
		})
	}
	return storeapi.Order{
		IdempotencyKey: key,
		SessionID:      sessionID,
		Subtotal:       view.Summary.Subtotal,
		ShippingFee:    view.Summary.ShippingCost,
		TaxAmount:      view.Summary.Tax,
		DiscountAmount: view.Summary.Discount,
		TotalAmount:    view.Summary.Total,
		Items:          items,
		Payment:        storeapi.Payment{Method: in.Payment.Method, Channel: in.Payment.Channel},
		Shipping: storeapi.Address{
			ReceiverName: in.Address.ReceiverName,
			Phone:        in.Address.Phone,
			AddressLine1: in.Address.AddressLine1,
			AddressLine2: in.Address.AddressLine2,
			City:         in.Address.City,
			PostalCode:   in.Address.PostalCode,
		},
		Notes: in.Notes,
	}
}

func (s *Service) validate(in Input) error {
	v := s.Validate
	if v == nil {
		v = validator.New()
	}
	return v.Struct(in)
}
