package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/freshmart/storefront/internal/common"
)

// Handler exposes the checkout HTTP surface.
type Handler struct {
	Svc *Service
}

// Routes mounts the checkout endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Post("/orders", h.Submit)
}

// Summary returns the priced checkout summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	session := common.SessionID(r)
	if session == "" {
		common.Fail(w, common.ErrMissingSession)
		return
	}
	view, err := h.Svc.Summary(r.Context(), session)
	if err != nil {
		common.Fail(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// Submit places the order. A failed submission is reported as an
// explicit retryable error and never advances the flow.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	session := common.SessionID(r)
	if session == "" {
		common.Fail(w, common.ErrMissingSession)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.Fail(w, common.NewAppError(http.StatusBadRequest, "invalid_input", "malformed request body"))
		return
	}

	out, err := h.Svc.Submit(r.Context(), session, in)
	if err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			err = common.NewAppError(http.StatusBadRequest, "invalid_input", "checkout input failed validation").
				WithDetails(fieldErrors(verrs))
		case errors.Is(err, ErrEmptyCart):
			err = common.NewAppError(http.StatusConflict, "empty_cart", "cannot place an order with an empty cart")
		case errors.Is(err, ErrSubmitFailed):
			err = common.NewAppError(http.StatusBadGateway, "order_submit_failed", "order could not be placed, please retry").
				WithDetails(map[string]any{"retryable": true})
		}
		common.Fail(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, out)
}

func fieldErrors(verrs validator.ValidationErrors) []map[string]string {
	out := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, map[string]string{"field": fe.Namespace(), "rule": fe.Tag()})
	}
	return out
}
