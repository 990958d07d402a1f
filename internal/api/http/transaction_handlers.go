package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/campus-share/campus-share/internal/domain/transaction"
)

type agreementProposeRequest struct {
	FinalPrice int    `json:"final_price"`
	ReturnDate string `json:"return_date,omitempty"`
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	filter := transaction.Filter{PartyID: &auth.UserID}
	if v := r.URL.Query().Get("status"); v != "" {
		st := transaction.Status(v)
		filter.Status = &st
	}
	if v := r.URL.Query().Get("item_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid item_id")
			return
		}
		filter.ItemID = &id
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	txs, err := s.transactionSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.transactionSvc.Get(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) proposeAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	var req agreementProposeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	var returnDate time.Time
	if req.ReturnDate != "" {
		returnDate, err = time.Parse(time.RFC3339, req.ReturnDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid return_date")
			return
		}
	}
	auth := authUserFromContext(r.Context())
	ag, err := s.transactionSvc.ProposeAgreement(r.Context(), id, auth.UserID, req.FinalPrice, returnDate)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ag)
}

func (s *Server) getAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	auth := authUserFromContext(r.Context())
	ag, err := s.transactionSvc.GetAgreement(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if ag == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no agreement proposed")
		return
	}
	respondJSON(w, http.StatusOK, ag)
}

func (s *Server) confirmAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.transactionSvc.ConfirmAgreement(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) markReturnPending(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.transactionSvc.MarkReturnPending(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) confirmReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.transactionSvc.ConfirmReturn(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) completeHandover(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.transactionSvc.CompleteHandover(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) raiseDispute(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	var req disputeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.transactionSvc.RaiseDispute(r.Context(), id, auth.UserID, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	auth := authUserFromContext(r.Context())
	tx, err := s.transactionSvc.Cancel(r.Context(), id, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}
