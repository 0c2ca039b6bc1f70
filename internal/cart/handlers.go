package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/storefront/internal/common"
	"github.com/freshmart/storefront/internal/obs"
)

// Handler exposes the cart HTTP surface.
type Handler struct {
	Viewer *Viewer
}

type addRequest struct {
	ProductID int64 `json:"productId"`
}

// Routes mounts the cart endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/items", h.Add)
	r.Post("/items/{productID}/increment", h.Increment)
	r.Post("/items/{productID}/decrement", h.Decrement)
	r.Delete("/items/{productID}", h.Remove)
}

// Get returns the reconciled cart with its pricing summary.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.Viewer.ViewSession(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// Add adds a product to the cart, incrementing when already present.
// The stored line is seeded from the live product record so the
// persisted price fallback starts out accurate.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID <= 0 {
		common.Fail(w, common.NewAppError(http.StatusBadRequest, "invalid_input", "productId is required"))
		return
	}

	line := Line{ProductID: req.ProductID, InStock: true}
	if fetcher := h.Viewer.Reconciler.Fetcher; fetcher != nil {
		if snap, err := fetcher.ProductSnapshot(r.Context(), req.ProductID); err == nil {
			line = MergeLine(line, snap)
		} else {
			h.Viewer.Log.Debug().Err(err).Int64("product_id", req.ProductID).Msg("seeding cart line without live product")
		}
	}

	lines, err := h.Viewer.Store.AddOrIncrement(r.Context(), session, line)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	countMutation("add")
	common.JSON(w, http.StatusOK, h.Viewer.Price(r.Context(), lines))
}

// Increment bumps a line quantity by one.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "increment", h.Viewer.Store.Increment)
}

// Decrement lowers a line quantity by one, removing the line when it
// would drop below one.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "decrement", h.Viewer.Store.Decrement)
}

// Remove deletes a line.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "remove", h.Viewer.Store.Remove)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string, int64) ([]Line, error)) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		common.Fail(w, common.NewAppError(http.StatusBadRequest, "invalid_input", "invalid product id"))
		return
	}
	lines, err := fn(r.Context(), session, productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	countMutation(op)
	common.JSON(w, http.StatusOK, h.Viewer.Price(r.Context(), lines))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := common.SessionID(r)
	if session == "" {
		common.Fail(w, common.ErrMissingSession)
		return "", false
	}
	return session, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		err = common.NewAppError(http.StatusNotFound, "not_found", "cart line not found")
	case errors.Is(err, ErrInvalidInput):
		err = common.NewAppError(http.StatusBadRequest, "invalid_input", "invalid input")
	default:
		h.Viewer.Log.Error().Err(err).Str("path", r.URL.Path).Msg("cart request failed")
	}
	common.Fail(w, err)
}

func countMutation(op string) {
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op).Inc()
	}
}
