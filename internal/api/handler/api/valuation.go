package api

import (
	"context"
	"net/http"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/fx"
	"github.com/newthinker/folio/internal/portfolio"
)

// ValuationApp defines the interface needed from app.App.
type ValuationApp interface {
	Valuate(ctx context.Context, profileID string) (*portfolio.Snapshot, error)
	RefreshQuotes(ctx context.Context, profileID string) (*collector.Response, error)
	FetchQuotes(ctx context.Context, req collector.Request) (*collector.Response, error)
	ExchangeRate() fx.Rate
}

// ValuationHandler serves valuations, quotes and the exchange rate.
type ValuationHandler struct {
	app ValuationApp
}

// NewValuationHandler creates a new valuation handler.
func NewValuationHandler(app ValuationApp) *ValuationHandler {
	return &ValuationHandler{app: app}
}

// Valuation returns per-holding metrics, the summary and the advice payload
// of a profile.
func (h *ValuationHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	snap, err := h.app.Valuate(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

// RefreshQuotes fetches quotes for every holding of a profile.
func (h *ValuationHandler) RefreshQuotes(w http.ResponseWriter, r *http.Request) {
	resp, err := h.app.RefreshQuotes(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

// Quotes serves a raw quote request.
func (h *ValuationHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	var req collector.Request
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	resp, err := h.app.FetchQuotes(r.Context(), req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

// ExchangeRate returns the current USD/TWD rate.
func (h *ValuationHandler) ExchangeRate(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.app.ExchangeRate())
}
