package httpapi

import (
	"net/http"
)

type claimCreateRequest struct {
	Note string `json:"note,omitempty"`
}

func (s *Server) createClaim(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	var req claimCreateRequest
	if err := decodeBody(r, &req); err != nil && err.Error() != "EOF" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	auth := authUserFromContext(r.Context())
	entry, err := s.claimSvc.Claim(r.Context(), itemID, auth.UserID, req.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) listItemClaims(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	auth := authUserFromContext(r.Context())
	entries, err := s.claimSvc.ListByItem(r.Context(), itemID, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"claims": entries})
}

func (s *Server) listMyClaims(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 100, 200)
	entries, err := s.claimSvc.ListMine(r.Context(), auth.UserID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"claims": entries})
}

func (s *Server) confirmClaim(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "claimId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid claimId")
		return
	}
	auth := authUserFromContext(r.Context())
	entry, err := s.claimSvc.ConfirmPickup(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) completeClaim(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "claimId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid claimId")
		return
	}
	auth := authUserFromContext(r.Context())
	entry, err := s.claimSvc.Complete(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) cancelClaim(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "claimId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid claimId")
		return
	}
	auth := authUserFromContext(r.Context())
	entry, err := s.claimSvc.Cancel(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}
