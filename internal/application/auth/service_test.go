package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainSession "github.com/campus-share/campus-share/internal/domain/session"
	domainUser "github.com/campus-share/campus-share/internal/domain/user"
)

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *domainUser.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, u *domainUser.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domainUser.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainUser.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domainUser.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainUser.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter domainUser.Filter, limit, offset int) ([]*domainUser.User, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainUser.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockSessionRepository is a mock implementation of session.Repository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *domainSession.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domainSession.Session, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainSession.Session), args.Error(1)
}

func (m *MockSessionRepository) DeleteByID(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockSessionRepository) UpdateLastSeen(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func activeUser(t *testing.T, username, password string) *domainUser.User {
	t.Helper()
	hash, err := domainUser.HashPassword(password)
	require.NoError(t, err)
	return &domainUser.User{
		UserID:       uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Status:       domainUser.StatusActive,
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("valid credentials create a session", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		sessionRepo := new(MockSessionRepository)
		svc := NewService(userRepo, sessionRepo, time.Hour, logger)
		u := activeUser(t, "alice1", "S3cure!Passw0rd")

		userRepo.On("GetByUsername", ctx, "alice1").Return(u, nil)
		sessionRepo.On("Create", ctx, mock.MatchedBy(func(s *domainSession.Session) bool {
			return s.UserID == u.UserID && s.TokenHash != "" && s.ExpiresAt.After(time.Now())
		})).Return(nil)

		result, err := svc.Login(ctx, "Alice1", "S3cure!Passw0rd")

		require.NoError(t, err)
		assert.Equal(t, u.UserID, result.User.UserID)
		assert.NotEmpty(t, result.Token)
		assert.NotEqual(t, result.Token, result.Session.TokenHash)
		sessionRepo.AssertExpectations(t)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		sessionRepo := new(MockSessionRepository)
		svc := NewService(userRepo, sessionRepo, time.Hour, logger)
		u := activeUser(t, "alice1", "S3cure!Passw0rd")

		userRepo.On("GetByUsername", ctx, "alice1").Return(u, nil)

		_, err := svc.Login(ctx, "alice1", "wrong")
		require.Error(t, err)
		sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc := NewService(userRepo, new(MockSessionRepository), time.Hour, logger)

		userRepo.On("GetByUsername", ctx, "nobody").Return(nil, nil)

		_, err := svc.Login(ctx, "nobody", "whatever")
		require.Error(t, err)
	})

	t.Run("disabled user cannot log in", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc := NewService(userRepo, new(MockSessionRepository), time.Hour, logger)
		u := activeUser(t, "alice1", "S3cure!Passw0rd")
		u.Status = domainUser.StatusDisabled

		userRepo.On("GetByUsername", ctx, "alice1").Return(u, nil)

		_, err := svc.Login(ctx, "alice1", "S3cure!Passw0rd")
		require.Error(t, err)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("round-trips a login token", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		sessionRepo := new(MockSessionRepository)
		svc := NewService(userRepo, sessionRepo, time.Hour, logger)
		u := activeUser(t, "alice1", "S3cure!Passw0rd")

		var stored *domainSession.Session
		userRepo.On("GetByUsername", ctx, "alice1").Return(u, nil)
		sessionRepo.On("Create", ctx, mock.AnythingOfType("*session.Session")).Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domainSession.Session)
		}).Return(nil)

		result, err := svc.Login(ctx, "alice1", "S3cure!Passw0rd")
		require.NoError(t, err)

		sessionRepo.On("GetByTokenHash", ctx, stored.TokenHash).Return(stored, nil)
		userRepo.On("GetByID", ctx, u.UserID).Return(u, nil)
		sessionRepo.On("UpdateLastSeen", ctx, stored.SessionID).Return(nil)

		gotUser, gotSession, err := svc.Authenticate(ctx, result.Token)

		require.NoError(t, err)
		assert.Equal(t, u.UserID, gotUser.UserID)
		assert.Equal(t, stored.SessionID, gotSession.SessionID)
	})

	t.Run("expired session is deleted and rejected", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		sessionRepo := new(MockSessionRepository)
		svc := NewService(userRepo, sessionRepo, time.Hour, logger)

		expired := &domainSession.Session{
			SessionID: uuid.New(),
			TokenHash: hashToken("token"),
			UserID:    uuid.New(),
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		}
		sessionRepo.On("GetByTokenHash", ctx, expired.TokenHash).Return(expired, nil)
		sessionRepo.On("DeleteByID", ctx, expired.SessionID).Return(nil)

		_, _, err := svc.Authenticate(ctx, "token")

		require.Error(t, err)
		sessionRepo.AssertCalled(t, "DeleteByID", ctx, expired.SessionID)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		svc := NewService(new(MockUserRepository), sessionRepo, time.Hour, logger)

		sessionRepo.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).Return(nil, nil)

		_, _, err := svc.Authenticate(ctx, "bogus")
		require.Error(t, err)
	})

	t.Run("empty token is rejected without a lookup", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		svc := NewService(new(MockUserRepository), sessionRepo, time.Hour, logger)

		_, _, err := svc.Authenticate(ctx, "")
		require.Error(t, err)
		sessionRepo.AssertNotCalled(t, "GetByTokenHash", mock.Anything, mock.Anything)
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	sessionRepo := new(MockSessionRepository)
	svc := NewService(new(MockUserRepository), sessionRepo, time.Hour, zerolog.Nop())

	sessionRepo.On("DeleteByTokenHash", ctx, hashToken("token")).Return(nil)
	require.NoError(t, svc.Logout(ctx, "token"))
	sessionRepo.AssertExpectations(t)

	require.NoError(t, svc.Logout(ctx, ""))
}
