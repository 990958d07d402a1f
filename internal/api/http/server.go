package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appAudit "github.com/campus-share/campus-share/internal/application/audit"
	appAuth "github.com/campus-share/campus-share/internal/application/auth"
	appClaim "github.com/campus-share/campus-share/internal/application/claim"
	appItem "github.com/campus-share/campus-share/internal/application/item"
	appNotification "github.com/campus-share/campus-share/internal/application/notification"
	appRequest "github.com/campus-share/campus-share/internal/application/request"
	appTransaction "github.com/campus-share/campus-share/internal/application/transaction"
	appTrust "github.com/campus-share/campus-share/internal/application/trust"
	appUser "github.com/campus-share/campus-share/internal/application/user"
	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	userSvc             *appUser.Service
	authSvc             *appAuth.Service
	itemSvc             *appItem.Service
	requestSvc          *appRequest.Service
	claimSvc            *appClaim.Service
	transactionSvc      *appTransaction.Service
	trustSvc            *appTrust.Service
	notificationSvc     *appNotification.Service
	auditSvc            *appAudit.Service
	sseHub              *sse.Hub
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	userSvc *appUser.Service,
	authSvc *appAuth.Service,
	itemSvc *appItem.Service,
	requestSvc *appRequest.Service,
	claimSvc *appClaim.Service,
	transactionSvc *appTransaction.Service,
	trustSvc *appTrust.Service,
	notificationSvc *appNotification.Service,
	auditSvc *appAudit.Service,
	sseHub *sse.Hub,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		userSvc:             userSvc,
		authSvc:             authSvc,
		itemSvc:             itemSvc,
		requestSvc:          requestSvc,
		claimSvc:            claimSvc,
		transactionSvc:      transactionSvc,
		trustSvc:            trustSvc,
		notificationSvc:     notificationSvc,
		auditSvc:            auditSvc,
		sseHub:              sseHub,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/items", func(r chi.Router) {
				r.Post("/", s.createItem)
				r.Get("/", s.listItems)
				r.Get("/{itemId}", s.getItem)
				r.Patch("/{itemId}", s.updateItem)
				r.Post("/{itemId}/availability", s.setItemAvailability)
				r.Post("/{itemId}/claims", s.createClaim)
				r.Get("/{itemId}/claims", s.listItemClaims)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", s.createRequest)
				r.Get("/", s.listRequests)
				r.Get("/{requestId}", s.getRequest)
				r.Post("/{requestId}/accept", s.acceptRequest)
				r.Post("/{requestId}/reject", s.rejectRequest)
				r.Post("/{requestId}/cancel", s.cancelRequest)
				r.Post("/{requestId}/offers", s.proposeOffer)
				r.Get("/{requestId}/offers", s.listOffers)
			})

			r.Route("/offers", func(r chi.Router) {
				r.Post("/{offerId}/accept", s.acceptOffer)
				r.Post("/{offerId}/reject", s.rejectOffer)
			})

			r.Route("/claims", func(r chi.Router) {
				r.Get("/", s.listMyClaims)
				r.Post("/{claimId}/confirm", s.confirmClaim)
				r.Post("/{claimId}/complete", s.completeClaim)
				r.Post("/{claimId}/cancel", s.cancelClaim)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.listTransactions)
				r.Get("/{transactionId}", s.getTransaction)
				r.Post("/{transactionId}/agreement", s.proposeAgreement)
				r.Get("/{transactionId}/agreement", s.getAgreement)
				r.Post("/{transactionId}/agreement/confirm", s.confirmAgreement)
				r.Post("/{transactionId}/return", s.markReturnPending)
				r.Post("/{transactionId}/return/confirm", s.confirmReturn)
				r.Post("/{transactionId}/handover/complete", s.completeHandover)
				r.Post("/{transactionId}/dispute", s.raiseDispute)
				r.Post("/{transactionId}/cancel", s.cancelTransaction)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/{userId}", s.getUser)
				r.Patch("/{userId}", s.updateUser)
				r.Put("/{userId}/password", s.setUserPassword)
				r.Get("/{userId}/trust", s.getTrustScore)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.listNotifications)
				r.Get("/unread-count", s.unreadCount)
				r.Post("/{notificationId}/read", s.markNotificationRead)
				r.Post("/read-all", s.markAllNotificationsRead)
				r.Get("/stream", s.streamEndpoint)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Get("/", s.queryAudit)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondServiceError maps domain sentinel errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fault.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, fault.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, fault.ErrInvalidState):
		respondError(w, http.StatusBadRequest, "INVALID_STATE", err.Error())
	case errors.Is(err, fault.ErrItemUnavailable):
		respondError(w, http.StatusBadRequest, "ITEM_UNAVAILABLE", err.Error())
	case errors.Is(err, fault.ErrDuplicatePending):
		respondError(w, http.StatusBadRequest, "DUPLICATE_PENDING", err.Error())
	case errors.Is(err, fault.ErrSelfRequest):
		respondError(w, http.StatusBadRequest, "SELF_REQUEST", err.Error())
	case errors.Is(err, fault.ErrValidation):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
