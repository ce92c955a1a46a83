package api

import (
	"context"
	"net/http"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/profile"
	"github.com/newthinker/folio/internal/storage/state"
)

// ProfileService defines the profile bookkeeping used by the handlers.
// *profile.Service implements it.
type ProfileService interface {
	State() state.StoredData
	Create(ctx context.Context, in profile.CreateInput) (portfolio.Profile, error)
	Update(ctx context.Context, id string, in profile.UpdateInput) (portfolio.Profile, error)
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
	AddHolding(ctx context.Context, profileID string, in profile.HoldingInput) (portfolio.Holding, bool, error)
	UpdateHolding(ctx context.Context, profileID, holdingID string, in profile.HoldingInput) (portfolio.Holding, error)
	DeleteHolding(ctx context.Context, profileID, holdingID string) error
}

// ProfileHandler handles profile and holding API requests.
type ProfileHandler struct {
	profiles ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// State returns every profile and the active profile id.
func (h *ProfileHandler) State(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.profiles.State())
}

// Create adds a profile, which becomes the active one.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req profile.CreateInput
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	p, err := h.profiles.Create(r.Context(), req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, p)
}

// Update changes profile settings.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req profile.UpdateInput
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	p, err := h.profiles.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Delete removes a profile unless it is the last one.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.profiles.Delete(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"id":              id,
		"deleted":         true,
		"activeProfileId": h.profiles.State().ActiveProfileID,
	})
}

// Activate selects the active profile.
func (h *ProfileHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.profiles.Activate(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"activeProfileId": id})
}

// AddHolding adds a holding, merging it into an existing one of the same
// symbol.
func (h *ProfileHandler) AddHolding(w http.ResponseWriter, r *http.Request) {
	var req profile.HoldingInput
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	holding, merged, err := h.profiles.AddHolding(r.Context(), r.PathValue("id"), req)
	if err != nil {
		response.Fail(w, err)
		return
	}

	status := http.StatusCreated
	if merged {
		status = http.StatusOK
	}
	response.JSON(w, status, map[string]any{
		"holding": holding,
		"merged":  merged,
	})
}

// UpdateHolding replaces the editable fields of a holding.
func (h *ProfileHandler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	var req profile.HoldingInput
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	holding, err := h.profiles.UpdateHolding(r.Context(), r.PathValue("id"), r.PathValue("hid"), req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, holding)
}

// DeleteHolding removes a holding.
func (h *ProfileHandler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	hid := r.PathValue("hid")
	if err := h.profiles.DeleteHolding(r.Context(), r.PathValue("id"), hid); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"id":      hid,
		"deleted": true,
	})
}
