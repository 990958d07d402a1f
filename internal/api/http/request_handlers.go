package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	appRequest "github.com/campus-share/campus-share/internal/application/request"
	"github.com/campus-share/campus-share/internal/domain/request"
)

type requestCreateRequest struct {
	ItemID        string `json:"item_id"`
	ProposedPrice *int   `json:"proposed_price,omitempty"`
	ProposedDays  *int   `json:"proposed_days,omitempty"`
	Message       string `json:"message,omitempty"`
}

type offerCreateRequest struct {
	PriceCents *int   `json:"price_cents,omitempty"`
	RentalDays *int   `json:"rental_days,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var req requestCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid item_id")
		return
	}
	auth := authUserFromContext(r.Context())
	rq, err := s.requestSvc.Create(r.Context(), appRequest.CreateInput{
		ItemID:        itemID,
		RequesterID:   auth.UserID,
		ProposedPrice: req.ProposedPrice,
		ProposedDays:  req.ProposedDays,
		Message:       req.Message,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rq)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	var filter request.Filter
	switch r.URL.Query().Get("role") {
	case "owner":
		filter.OwnerID = &auth.UserID
	default:
		filter.RequesterID = &auth.UserID
	}
	if v := r.URL.Query().Get("item_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid item_id")
			return
		}
		filter.ItemID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := request.Status(v)
		filter.Status = &st
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	requests, err := s.requestSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	auth := authUserFromContext(r.Context())
	rq, err := s.requestSvc.Get(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rq)
}

func (s *Server) acceptRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.requestSvc.Accept(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) rejectRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	auth := authUserFromContext(r.Context())
	rq, err := s.requestSvc.Reject(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rq)
}

func (s *Server) cancelRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	auth := authUserFromContext(r.Context())
	rq, err := s.requestSvc.Cancel(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rq)
}

func (s *Server) proposeOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req offerCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	auth := authUserFromContext(r.Context())
	offer, err := s.requestSvc.ProposeOffer(r.Context(), appRequest.OfferInput{
		RequestID:  id,
		ActorID:    auth.UserID,
		PriceCents: req.PriceCents,
		RentalDays: req.RentalDays,
		Note:       req.Note,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, offer)
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	auth := authUserFromContext(r.Context())
	offers, err := s.requestSvc.ListOffers(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offers": offers})
}

func (s *Server) acceptOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offerId")
		return
	}
	auth := authUserFromContext(r.Context())
	rq, tx, err := s.requestSvc.AcceptOffer(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := map[string]interface{}{"request": rq}
	if tx != nil {
		resp["transaction"] = tx
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) rejectOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offerId")
		return
	}
	auth := authUserFromContext(r.Context())
	offer, err := s.requestSvc.RejectOffer(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}
