package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/campus-share/campus-share/internal/domain/audit"
	"github.com/campus-share/campus-share/internal/domain/notification"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, offset := parseLimitOffset(r, 100, 200)
	ns, err := s.notificationSvc.List(r.Context(), auth.UserID, unreadOnly, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": ns})
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	count, err := s.notificationSvc.CountUnread(r.Context(), auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"unread": count})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "notificationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid notificationId")
		return
	}
	auth := authUserFromContext(r.Context())
	if err := s.notificationSvc.MarkRead(r.Context(), id, auth.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if err := s.notificationSvc.MarkAllRead(r.Context(), auth.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}

func (s *Server) streamEndpoint(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	rooms := splitCSV(r.URL.Query().Get("rooms"))

	client := notification.NewStreamClient(clientID, auth.UserID, rooms)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	// Send an initial comment to flush headers and keep the connection alive.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg := <-client.MessageChan:
			if msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	var filter audit.QueryFilter
	if v := r.URL.Query().Get("entity_type"); v != "" {
		et := audit.EntityType(v)
		filter.EntityType = &et
	}
	if v := r.URL.Query().Get("entity_id"); v != "" {
		filter.EntityID = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		a := audit.Action(v)
		filter.Action = &a
	}
	if v := r.URL.Query().Get("actor"); v != "" {
		filter.Actor = &v
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	entries, err := s.auditSvc.Query(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
