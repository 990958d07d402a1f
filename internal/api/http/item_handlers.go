package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	appItem "github.com/campus-share/campus-share/internal/application/item"
	"github.com/campus-share/campus-share/internal/domain/item"
)

type itemCreateRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Mode         string  `json:"mode"`
	PriceCents   *int    `json:"price_cents,omitempty"`
	RentalDays   *int    `json:"rental_days,omitempty"`
	InstantClaim bool    `json:"instant_claim,omitempty"`
}

type itemUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int    `json:"price_cents,omitempty"`
	RentalDays  *int    `json:"rental_days,omitempty"`
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	auth := authUserFromContext(r.Context())
	i, err := s.itemSvc.Create(r.Context(), appItem.CreateInput{
		OwnerID:      auth.UserID,
		Title:        req.Title,
		Description:  req.Description,
		Mode:         item.Mode(req.Mode),
		PriceCents:   req.PriceCents,
		RentalDays:   req.RentalDays,
		InstantClaim: req.InstantClaim,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, i)
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	var filter item.Filter
	if v := r.URL.Query().Get("owner_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid owner_id")
			return
		}
		filter.OwnerID = &id
	}
	if v := r.URL.Query().Get("mode"); v != "" {
		m := item.Mode(v)
		filter.Mode = &m
	}
	if v := r.URL.Query().Get("available"); v != "" {
		avail := v == "true"
		filter.IsAvailable = &avail
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	items, err := s.itemSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	i, err := s.itemSvc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, i)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	var req itemUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	auth := authUserFromContext(r.Context())
	i, err := s.itemSvc.Update(r.Context(), id, auth.UserID, appItem.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		RentalDays:  req.RentalDays,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, i)
}

func (s *Server) setItemAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	var req struct {
		Available bool `json:"available"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	auth := authUserFromContext(r.Context())
	i, err := s.itemSvc.SetAvailability(r.Context(), id, auth.UserID, req.Available)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, i)
}
