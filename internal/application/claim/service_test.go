package claim

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appAudit "github.com/campus-share/campus-share/internal/application/audit"
	appNotification "github.com/campus-share/campus-share/internal/application/notification"
	appTrust "github.com/campus-share/campus-share/internal/application/trust"
	"github.com/campus-share/campus-share/internal/domain/audit"
	"github.com/campus-share/campus-share/internal/domain/claim"
	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/item"
	"github.com/campus-share/campus-share/internal/domain/notification"
)

// MockClaimRepository is a mock implementation of claim.Repository
type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) Create(ctx context.Context, entry *claim.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockClaimRepository) GetByID(ctx context.Context, claimID uuid.UUID) (*claim.Entry, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*claim.Entry), args.Error(1)
}

func (m *MockClaimRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*claim.Entry, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*claim.Entry), args.Error(1)
}

func (m *MockClaimRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*claim.Entry, error) {
	args := m.Called(ctx, requesterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*claim.Entry), args.Error(1)
}

func (m *MockClaimRepository) HasQueued(ctx context.Context, itemID, requesterID uuid.UUID) (bool, error) {
	args := m.Called(ctx, itemID, requesterID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimRepository) UpdateStatusIf(ctx context.Context, claimID uuid.UUID, expected, target claim.Status) (bool, error) {
	args := m.Called(ctx, claimID, expected, target)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimRepository) Confirm(ctx context.Context, claimID uuid.UUID) error {
	args := m.Called(ctx, claimID)
	return args.Error(0)
}

// MockItemRepository is a mock implementation of item.Repository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, i *item.Item) error {
	args := m.Called(ctx, i)
	return args.Error(0)
}

func (m *MockItemRepository) GetByID(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemRepository) List(ctx context.Context, filter item.Filter, limit, offset int) ([]*item.Item, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*item.Item), args.Error(1)
}

func (m *MockItemRepository) Update(ctx context.Context, i *item.Item) error {
	args := m.Called(ctx, i)
	return args.Error(0)
}

func (m *MockItemRepository) Lock(ctx context.Context, itemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockItemRepository) Release(ctx context.Context, itemID uuid.UUID) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

func (m *MockItemRepository) HasOpenEngagement(ctx context.Context, itemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, itemID)
	return args.Bool(0), args.Error(1)
}

// MockTrustRepository is a mock implementation of trust.Repository
type MockTrustRepository struct {
	mock.Mock
}

func (m *MockTrustRepository) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int) (*int, error) {
	args := m.Called(ctx, userID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int), args.Error(1)
}

func (m *MockTrustRepository) GetScore(ctx context.Context, userID uuid.UUID) (*int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int), args.Error(1)
}

// MockNotificationRepository is a mock implementation of notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	args := m.Called(ctx, notificationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, filter notification.Filter, limit, offset int) ([]*notification.Notification, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) FindByDedupeKey(ctx context.Context, dedupeKey string, since time.Time) (*notification.Notification, error) {
	args := m.Called(ctx, dedupeKey, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, notificationID uuid.UUID, readAt time.Time) error {
	args := m.Called(ctx, notificationID, readAt)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) error {
	args := m.Called(ctx, recipientID, readAt)
	return args.Error(0)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

// MockStreamHub is a mock implementation of notification.StreamHub
type MockStreamHub struct {
	mock.Mock
}

func (m *MockStreamHub) Register(client *notification.StreamClient) { m.Called(client) }
func (m *MockStreamHub) Unregister(clientID string)                 { m.Called(clientID) }
func (m *MockStreamHub) GetClientCount() int {
	args := m.Called()
	return args.Int(0)
}
func (m *MockStreamHub) BroadcastToUser(userID uuid.UUID, message *notification.StreamMessage) {
	m.Called(userID, message)
}
func (m *MockStreamHub) BroadcastToRoom(room string, message *notification.StreamMessage) {
	m.Called(room, message)
}
func (m *MockStreamHub) SendToClient(clientID string, message *notification.StreamMessage) error {
	args := m.Called(clientID, message)
	return args.Error(0)
}
func (m *MockStreamHub) Stop() { m.Called() }

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) Query(ctx context.Context, filter audit.QueryFilter, limit, offset int) ([]*audit.Entry, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

type fixture struct {
	claimRepo *MockClaimRepository
	itemRepo  *MockItemRepository
	trustRepo *MockTrustRepository
	notifRepo *MockNotificationRepository
	hub       *MockStreamHub
	svc       *Service
}

func newFixture() *fixture {
	logger := zerolog.Nop()
	f := &fixture{
		claimRepo: new(MockClaimRepository),
		itemRepo:  new(MockItemRepository),
		trustRepo: new(MockTrustRepository),
		notifRepo: new(MockNotificationRepository),
		hub:       new(MockStreamHub),
	}
	auditRepo := new(MockAuditRepository)
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = NewService(
		f.claimRepo,
		f.itemRepo,
		appTrust.NewService(f.trustRepo, logger),
		appNotification.NewService(f.notifRepo, f.hub, logger),
		appAudit.NewService(auditRepo, logger),
		logger,
	)
	return f
}

func (f *fixture) expectNotification() {
	f.notifRepo.On("Create", mock.Anything, mock.AnythingOfType("*notification.Notification")).Return(nil)
	f.hub.On("BroadcastToUser", mock.Anything, mock.Anything).Return()
	f.hub.On("BroadcastToRoom", mock.Anything, mock.Anything).Return()
}

func giveawayItem(owner uuid.UUID) *item.Item {
	return &item.Item{
		ItemID:       uuid.New(),
		OwnerID:      owner,
		Title:        "Desk lamp",
		Mode:         item.ModeGive,
		InstantClaim: true,
		IsAvailable:  true,
	}
}

func TestService_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("queues a claim on an open give-away", func(t *testing.T) {
		f := newFixture()
		owner := uuid.New()
		requester := uuid.New()
		i := giveawayItem(owner)

		f.itemRepo.On("GetByID", ctx, i.ItemID).Return(i, nil)
		f.claimRepo.On("HasQueued", ctx, i.ItemID, requester).Return(false, nil)
		f.claimRepo.On("Create", ctx, mock.AnythingOfType("*claim.Entry")).Return(nil)
		f.expectNotification()

		entry, err := f.svc.Claim(ctx, i.ItemID, requester, "can pick up today")

		require.NoError(t, err)
		assert.Equal(t, claim.StatusQueued, entry.Status)
		assert.Equal(t, owner, entry.OwnerID)
		f.claimRepo.AssertExpectations(t)
	})

	t.Run("owner cannot claim their own item", func(t *testing.T) {
		f := newFixture()
		owner := uuid.New()
		i := giveawayItem(owner)
		f.itemRepo.On("GetByID", ctx, i.ItemID).Return(i, nil)

		_, err := f.svc.Claim(ctx, i.ItemID, owner, "")
		assert.ErrorIs(t, err, fault.ErrSelfRequest)
	})

	t.Run("locked item rejects new claims", func(t *testing.T) {
		f := newFixture()
		i := giveawayItem(uuid.New())
		i.IsAvailable = false
		f.itemRepo.On("GetByID", ctx, i.ItemID).Return(i, nil)

		_, err := f.svc.Claim(ctx, i.ItemID, uuid.New(), "")
		assert.ErrorIs(t, err, fault.ErrItemUnavailable)
	})

	t.Run("non-instant-claim items go through requests", func(t *testing.T) {
		f := newFixture()
		i := giveawayItem(uuid.New())
		i.InstantClaim = false
		f.itemRepo.On("GetByID", ctx, i.ItemID).Return(i, nil)

		_, err := f.svc.Claim(ctx, i.ItemID, uuid.New(), "")
		assert.ErrorIs(t, err, fault.ErrInvalidState)
	})

	t.Run("one queued claim per requester", func(t *testing.T) {
		f := newFixture()
		i := giveawayItem(uuid.New())
		requester := uuid.New()
		f.itemRepo.On("GetByID", ctx, i.ItemID).Return(i, nil)
		f.claimRepo.On("HasQueued", ctx, i.ItemID, requester).Return(true, nil)

		_, err := f.svc.Claim(ctx, i.ItemID, requester, "")
		assert.ErrorIs(t, err, fault.ErrDuplicatePending)
	})
}

func TestService_ConfirmPickup(t *testing.T) {
	ctx := context.Background()

	t.Run("owner confirms the winner", func(t *testing.T) {
		f := newFixture()
		owner := uuid.New()
		entry := &claim.Entry{
			ClaimID:     uuid.New(),
			ItemID:      uuid.New(),
			RequesterID: uuid.New(),
			OwnerID:     owner,
			Status:      claim.StatusQueued,
		}
		f.claimRepo.On("GetByID", ctx, entry.ClaimID).Return(entry, nil)
		f.claimRepo.On("Confirm", ctx, entry.ClaimID).Return(nil)
		f.expectNotification()

		got, err := f.svc.ConfirmPickup(ctx, entry.ClaimID, owner)

		require.NoError(t, err)
		assert.Equal(t, claim.StatusConfirmed, got.Status)
		f.claimRepo.AssertExpectations(t)
	})

	t.Run("second confirmation on the same item loses", func(t *testing.T) {
		f := newFixture()
		owner := uuid.New()
		entry := &claim.Entry{
			ClaimID:     uuid.New(),
			ItemID:      uuid.New(),
			RequesterID: uuid.New(),
			OwnerID:     owner,
			Status:      claim.StatusQueued,
		}
		f.claimRepo.On("GetByID", ctx, entry.ClaimID).Return(entry, nil)
		f.claimRepo.On("Confirm", ctx, entry.ClaimID).Return(fault.ErrItemUnavailable)

		_, err := f.svc.ConfirmPickup(ctx, entry.ClaimID, owner)
		assert.ErrorIs(t, err, fault.ErrItemUnavailable)
		f.notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("only the owner confirms", func(t *testing.T) {
		f := newFixture()
		entry := &claim.Entry{
			ClaimID:     uuid.New(),
			RequesterID: uuid.New(),
			OwnerID:     uuid.New(),
			Status:      claim.StatusQueued,
		}
		f.claimRepo.On("GetByID", ctx, entry.ClaimID).Return(entry, nil)

		_, err := f.svc.ConfirmPickup(ctx, entry.ClaimID, entry.RequesterID)
		assert.ErrorIs(t, err, fault.ErrForbidden)
	})
}

func TestService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("completion pays the trust bonus to both parties", func(t *testing.T) {
		f := newFixture()
		owner := uuid.New()
		entry := &claim.Entry{
			ClaimID:     uuid.New(),
			ItemID:      uuid.New(),
			RequesterID: uuid.New(),
			OwnerID:     owner,
			Status:      claim.StatusConfirmed,
		}
		score := 52
		f.claimRepo.On("GetByID", ctx, entry.ClaimID).Return(entry, nil)
		f.claimRepo.On("UpdateStatusIf", ctx, entry.ClaimID, claim.StatusConfirmed, claim.StatusCompleted).Return(true, nil)
		f.trustRepo.On("ApplyDelta", ctx, entry.RequesterID, 2).Return(&score, nil)
		f.trustRepo.On("ApplyDelta", ctx, owner, 2).Return(&score, nil)
		f.expectNotification()

		got, err := f.svc.Complete(ctx, entry.ClaimID, owner)

		require.NoError(t, err)
		assert.Equal(t, claim.StatusCompleted, got.Status)
		f.trustRepo.AssertExpectations(t)
	})

	t.Run("queued entries cannot complete", func(t *testing.T) {
		f := newFixture()
		entry := &claim.Entry{ClaimID: uuid.New(), OwnerID: uuid.New(), Status: claim.StatusQueued}
		f.claimRepo.On("GetByID", ctx, entry.ClaimID).Return(entry, nil)

		_, err := f.svc.Complete(ctx, entry.ClaimID, entry.OwnerID)
		assert.ErrorIs(t, err, fault.ErrInvalidState)
	})
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("claimant withdraws a queued entry", func(t *testing.T) {
		f := newFixture()
		requester := uuid.New()
		entry := &claim.Entry{ClaimID: uuid.New(), RequesterID: requester, OwnerID: uuid.New(), Status: claim.StatusQueued}
		f.claimRepo.On("GetByID", ctx, entry.ClaimID).Return(entry, nil)
		f.claimRepo.On("UpdateStatusIf", ctx, entry.ClaimID, claim.StatusQueued, claim.StatusCancelled).Return(true, nil)

		got, err := f.svc.Cancel(ctx, entry.ClaimID, requester)
		require.NoError(t, err)
		assert.Equal(t, claim.StatusCancelled, got.Status)
	})

	t.Run("owner cannot withdraw someone else's claim", func(t *testing.T) {
		f := newFixture()
		entry := &claim.Entry{ClaimID: uuid.New(), RequesterID: uuid.New(), OwnerID: uuid.New(), Status: claim.StatusQueued}
		f.claimRepo.On("GetByID", ctx, entry.ClaimID).Return(entry, nil)

		_, err := f.svc.Cancel(ctx, entry.ClaimID, entry.OwnerID)
		assert.ErrorIs(t, err, fault.ErrForbidden)
	})
}

func TestService_ListByItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	i := giveawayItem(owner)
	entries := []*claim.Entry{
		{ClaimID: uuid.New(), ItemID: i.ItemID, Status: claim.StatusQueued},
		{ClaimID: uuid.New(), ItemID: i.ItemID, Status: claim.StatusQueued},
	}
	f.itemRepo.On("GetByID", ctx, i.ItemID).Return(i, nil)
	f.claimRepo.On("ListByItem", ctx, i.ItemID).Return(entries, nil)

	got, err := f.svc.ListByItem(ctx, i.ItemID, owner)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.svc.ListByItem(ctx, i.ItemID, uuid.New())
	assert.ErrorIs(t, err, fault.ErrForbidden)
}
