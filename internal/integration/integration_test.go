//go:build integration
// +build integration

package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	httpapi "github.com/campus-share/campus-share/internal/api/http"
	"github.com/campus-share/campus-share/internal/application/audit"
	"github.com/campus-share/campus-share/internal/application/auth"
	"github.com/campus-share/campus-share/internal/application/claim"
	"github.com/campus-share/campus-share/internal/application/item"
	"github.com/campus-share/campus-share/internal/application/notification"
	"github.com/campus-share/campus-share/internal/application/request"
	"github.com/campus-share/campus-share/internal/application/transaction"
	"github.com/campus-share/campus-share/internal/application/trust"
	"github.com/campus-share/campus-share/internal/application/user"
	"github.com/campus-share/campus-share/internal/infrastructure/postgres"
	"github.com/campus-share/campus-share/internal/infrastructure/sse"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const testPassword = "S3cure!Passw0rd"

func TestRentalLifecycleIntegration(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	owner := newAuthedClient(t, server.URL, "owner-olivia")
	borrower := newAuthedClient(t, server.URL, "borrower-ben")

	price := 1500
	days := 7
	var listing itemResponse
	postJSON(t, owner.client, server.URL+"/v1/items/", map[string]interface{}{
		"title":       "graphing calculator",
		"mode":        "RENT",
		"price_cents": price,
		"rental_days": days,
	}, &listing)

	var req requestResponse
	postJSON(t, borrower.client, server.URL+"/v1/requests/", map[string]interface{}{
		"item_id":        listing.ItemID,
		"proposed_price": 1200,
		"proposed_days":  5,
	}, &req)
	if req.Status != "PENDING" {
		t.Fatalf("expected PENDING request, got %s", req.Status)
	}

	var tx transactionResponse
	postJSON(t, owner.client, server.URL+"/v1/requests/"+req.RequestID+"/accept", nil, &tx)
	if tx.Status != "ACCEPTED" {
		t.Fatalf("expected ACCEPTED transaction, got %s", tx.Status)
	}
	if tx.AgreedPrice == nil || *tx.AgreedPrice != 1200 {
		t.Fatalf("expected agreed price 1200, got %v", tx.AgreedPrice)
	}

	// Acceptance locks the listing.
	var locked itemResponse
	getJSON(t, borrower.client, server.URL+"/v1/items/"+listing.ItemID, &locked)
	if locked.IsAvailable {
		t.Fatalf("expected item locked after acceptance")
	}

	returnDate := time.Now().UTC().Add(5 * 24 * time.Hour)
	var ag agreementResponse
	postJSON(t, owner.client, server.URL+"/v1/transactions/"+tx.TransactionID+"/agreement", map[string]interface{}{
		"final_price": 1200,
		"return_date": returnDate.Format(time.RFC3339),
	}, &ag)
	if !ag.OwnerConfirmed || ag.BorrowerConfirmed {
		t.Fatalf("expected proposer-only confirmation, got owner=%t borrower=%t", ag.OwnerConfirmed, ag.BorrowerConfirmed)
	}

	postJSON(t, borrower.client, server.URL+"/v1/transactions/"+tx.TransactionID+"/agreement/confirm", nil, &tx)
	if tx.Status != "ACTIVE" {
		t.Fatalf("expected ACTIVE after both confirmations, got %s", tx.Status)
	}

	postJSON(t, borrower.client, server.URL+"/v1/transactions/"+tx.TransactionID+"/return", nil, &tx)
	if tx.Status != "RETURN_PENDING" {
		t.Fatalf("expected RETURN_PENDING, got %s", tx.Status)
	}

	postJSON(t, owner.client, server.URL+"/v1/transactions/"+tx.TransactionID+"/return/confirm", nil, &tx)
	if tx.Status != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", tx.Status)
	}

	// Completion releases the listing.
	var released itemResponse
	getJSON(t, borrower.client, server.URL+"/v1/items/"+listing.ItemID, &released)
	if !released.IsAvailable {
		t.Fatalf("expected item released after completion")
	}

	// On-time return plus completion: borrower 50+5+2, owner 50+2.
	var borrowerTrust trustResponse
	getJSON(t, borrower.client, server.URL+"/v1/users/"+borrower.userID+"/trust", &borrowerTrust)
	if borrowerTrust.Score != 57 {
		t.Fatalf("expected borrower trust 57, got %d", borrowerTrust.Score)
	}
	var ownerTrust trustResponse
	getJSON(t, owner.client, server.URL+"/v1/users/"+owner.userID+"/trust", &ownerTrust)
	if ownerTrust.Score != 52 {
		t.Fatalf("expected owner trust 52, got %d", ownerTrust.Score)
	}
}

func TestInstantClaimIntegration(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	owner := newAuthedClient(t, server.URL, "owner-olivia")
	first := newAuthedClient(t, server.URL, "claimer-cara")
	second := newAuthedClient(t, server.URL, "claimer-dan")

	var listing itemResponse
	postJSON(t, owner.client, server.URL+"/v1/items/", map[string]interface{}{
		"title":         "desk lamp",
		"mode":          "GIVE",
		"instant_claim": true,
	}, &listing)

	var c1 claimResponse
	postJSON(t, first.client, server.URL+"/v1/items/"+listing.ItemID+"/claims", nil, &c1)
	if c1.Status != "QUEUED" {
		t.Fatalf("expected QUEUED claim, got %s", c1.Status)
	}
	var c2 claimResponse
	postJSON(t, second.client, server.URL+"/v1/items/"+listing.ItemID+"/claims", nil, &c2)

	// First in line wins; the later claim loses the confirm race.
	var confirmed claimResponse
	postJSON(t, owner.client, server.URL+"/v1/claims/"+c1.ClaimID+"/confirm", nil, &confirmed)
	if confirmed.Status != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED, got %s", confirmed.Status)
	}
	resp := rawPost(t, owner.client, server.URL+"/v1/claims/"+c2.ClaimID+"/confirm")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 confirming a second claim, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	var done claimResponse
	postJSON(t, owner.client, server.URL+"/v1/claims/"+c1.ClaimID+"/complete", nil, &done)
	if done.Status != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", done.Status)
	}
}

func TestOptionalTermsIntegration(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	owner := newAuthedClient(t, server.URL, "owner-olivia")
	borrower := newAuthedClient(t, server.URL, "borrower-ben")

	// A give-away carries no price; the column must round-trip NULL.
	var freebie itemResponse
	postJSON(t, owner.client, server.URL+"/v1/items/", map[string]interface{}{
		"title": "moving boxes",
		"mode":  "GIVE",
	}, &freebie)
	var fetched itemResponse
	getJSON(t, borrower.client, server.URL+"/v1/items/"+freebie.ItemID, &fetched)
	if fetched.PriceCents != nil {
		t.Fatalf("expected nil price on give-away, got %d", *fetched.PriceCents)
	}

	var listing itemResponse
	postJSON(t, owner.client, server.URL+"/v1/items/", map[string]interface{}{
		"title":       "camping tent",
		"mode":        "RENT",
		"price_cents": 2500,
		"rental_days": 4,
	}, &listing)

	// A bare request stores no proposed terms.
	var req requestResponse
	postJSON(t, borrower.client, server.URL+"/v1/requests/", map[string]interface{}{
		"item_id": listing.ItemID,
	}, &req)
	if req.Status != "PENDING" {
		t.Fatalf("expected PENDING request, got %s", req.Status)
	}
	if req.ProposedPrice != nil || req.ProposedDays != nil {
		t.Fatalf("expected nil proposed terms, got price=%v days=%v", req.ProposedPrice, req.ProposedDays)
	}

	// Acceptance falls back to the listing terms.
	var tx transactionResponse
	postJSON(t, owner.client, server.URL+"/v1/requests/"+req.RequestID+"/accept", nil, &tx)
	if tx.AgreedPrice == nil || *tx.AgreedPrice != 2500 {
		t.Fatalf("expected agreed price 2500 from listing, got %v", tx.AgreedPrice)
	}
	if tx.AgreedDays == nil || *tx.AgreedDays != 4 {
		t.Fatalf("expected agreed days 4 from listing, got %v", tx.AgreedDays)
	}
}

func TestSSEDeliveryIntegration(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	owner := newAuthedClient(t, server.URL, "owner-olivia")
	borrower := newAuthedClient(t, server.URL, "borrower-ben")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sseReq, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/notifications/stream?client_id=test-client", nil)
	if err != nil {
		t.Fatalf("sse request: %v", err)
	}
	resp, err := borrower.client.Do(sseReq)
	if err != nil {
		t.Fatalf("sse connect: %v", err)
	}
	defer resp.Body.Close()

	msgCh := make(chan map[string]interface{}, 1)
	go func() {
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				var msg map[string]interface{}
				if err := json.Unmarshal([]byte(payload), &msg); err == nil {
					msgCh <- msg
					return
				}
			}
		}
	}()

	var listing itemResponse
	postJSON(t, owner.client, server.URL+"/v1/items/", map[string]interface{}{
		"title":       "bike pump",
		"mode":        "RENT",
		"price_cents": 500,
		"rental_days": 3,
	}, &listing)

	var req requestResponse
	postJSON(t, borrower.client, server.URL+"/v1/requests/", map[string]interface{}{
		"item_id": listing.ItemID,
	}, &req)

	// Accepting the request notifies the requester over the live stream.
	var tx transactionResponse
	postJSON(t, owner.client, server.URL+"/v1/requests/"+req.RequestID+"/accept", nil, &tx)

	select {
	case msg := <-msgCh:
		if msg["event"] != "notification" {
			t.Fatalf("unexpected event: %v", msg["event"])
		}
		data, ok := msg["data"].(map[string]interface{})
		if !ok || data["recipientId"] != borrower.userID {
			t.Fatalf("unexpected SSE payload: %v", msg["data"])
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("SSE message not received")
	}
}

type itemResponse struct {
	ItemID      string `json:"itemId"`
	PriceCents  *int   `json:"priceCents"`
	IsAvailable bool   `json:"isAvailable"`
}

type requestResponse struct {
	RequestID     string `json:"requestId"`
	Status        string `json:"status"`
	ProposedPrice *int   `json:"proposedPrice"`
	ProposedDays  *int   `json:"proposedDays"`
}

type transactionResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	AgreedPrice   *int   `json:"agreedPrice"`
	AgreedDays    *int   `json:"agreedDays"`
}

type agreementResponse struct {
	AgreementID       string `json:"agreementId"`
	OwnerConfirmed    bool   `json:"ownerConfirmed"`
	BorrowerConfirmed bool   `json:"borrowerConfirmed"`
}

type claimResponse struct {
	ClaimID string `json:"claimId"`
	Status  string `json:"status"`
}

type trustResponse struct {
	Score int    `json:"score"`
	Level string `json:"level"`
}

type authedClient struct {
	client *http.Client
	userID string
}

func postJSON(t *testing.T, client *http.Client, url string, body interface{}, out interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("post %s status %d: %s", url, resp.StatusCode, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getJSON(t *testing.T, client *http.Client, url string, out interface{}) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("get %s status %d: %s", url, resp.StatusCode, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func rawPost(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func newAuthedClient(t *testing.T, baseURL, username string) *authedClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Timeout: 10 * time.Second, Jar: jar}

	var registered struct {
		UserID string `json:"userId"`
	}
	postJSON(t, client, baseURL+"/v1/auth/register", map[string]string{
		"username": username,
		"password": testPassword,
	}, &registered)

	postJSON(t, client, baseURL+"/v1/auth/login", map[string]string{
		"username": username,
		"password": testPassword,
	}, nil)

	return &authedClient{client: client, userID: registered.UserID}
}

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	dsn := testDatabaseURL(t)

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("db pool: %v", err)
	}

	root := repoRoot(t)
	if err := postgres.RunMigrations(ctx, pool, filepath.Join(root, "internal", "migrations")); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	if err := resetDatabase(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("reset db: %v", err)
	}

	logger := zerolog.Nop()
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	requestRepo := postgres.NewRequestRepository(pool)
	offerRepo := postgres.NewOfferRepository(pool)
	txRepo := postgres.NewTransactionRepository(pool)
	claimRepo := postgres.NewClaimRepository(pool)
	trustRepo := postgres.NewTrustRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	sseHub := sse.NewHub()

	trustSvc := trust.NewService(trustRepo, logger)
	auditSvc := audit.NewService(auditRepo, logger)
	notificationSvc := notification.NewService(notificationRepo, sseHub, logger)
	userSvc := user.NewService(userRepo, logger)
	authSvc := auth.NewService(userRepo, sessionRepo, 24*time.Hour, logger)
	itemSvc := item.NewService(itemRepo, auditSvc, logger)
	requestSvc := request.NewService(requestRepo, offerRepo, itemRepo, txRepo, notificationSvc, auditSvc, logger)
	claimSvc := claim.NewService(claimRepo, itemRepo, trustSvc, notificationSvc, auditSvc, logger)
	transactionSvc := transaction.NewService(txRepo, itemRepo, trustSvc, notificationSvc, auditSvc, logger)

	apiServer := httpapi.NewServer(userSvc, authSvc, itemSvc, requestSvc, claimSvc, transactionSvc, trustSvc, notificationSvc, auditSvc, sseHub, "campus_share_session", false)
	server := httptest.NewServer(apiServer.Router())

	cleanup := func() {
		server.Close()
		sseHub.Stop()
		pool.Close()
	}

	return server, cleanup
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	t.Skip("TEST_DATABASE_URL not set; skipping integration tests")
	return ""
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE TABLE
			audit_entries,
			notifications,
			claims,
			agreements,
			transactions,
			offers,
			requests,
			items,
			sessions,
			users
		RESTART IDENTITY CASCADE
	`)
	return err
}
