package mocks

import (
	"context"

	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockTeamMemberRepository is a mock implementation of ports.TeamMemberRepository
type MockTeamMemberRepository struct {
	mock.Mock
}

var _ ports.TeamMemberRepository = (*MockTeamMemberRepository)(nil)

func NewMockTeamMemberRepository() *MockTeamMemberRepository {
	return &MockTeamMemberRepository{}
}

func (m *MockTeamMemberRepository) GetByUserAndBusiness(ctx context.Context, userID, businessID string) (*domain.TeamMember, error) {
	args := m.Called(ctx, userID, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TeamMember), args.Error(1)
}

// MockSessionStore is a mock implementation of ports.SessionStore
type MockSessionStore struct {
	mock.Mock
}

var _ ports.SessionStore = (*MockSessionStore)(nil)

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

// MockSessionResolver is a mock implementation of ports.SessionResolver
type MockSessionResolver struct {
	mock.Mock
}

var _ ports.SessionResolver = (*MockSessionResolver)(nil)

func NewMockSessionResolver() *MockSessionResolver {
	return &MockSessionResolver{}
}

func (m *MockSessionResolver) Resolve(ctx context.Context, cookieHeader string) (string, error) {
	args := m.Called(ctx, cookieHeader)
	return args.String(0), args.Error(1)
}

// MockAccessValidator is a mock implementation of ports.AccessValidator
type MockAccessValidator struct {
	mock.Mock
}

var _ ports.AccessValidator = (*MockAccessValidator)(nil)

func NewMockAccessValidator() *MockAccessValidator {
	return &MockAccessValidator{}
}

func (m *MockAccessValidator) HasAccess(ctx context.Context, userID, businessID string) bool {
	args := m.Called(ctx, userID, businessID)
	return args.Bool(0)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

var _ ports.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(audience domain.Audience, event domain.OutboundEvent) int {
	args := m.Called(audience, event)
	return args.Int(0)
}

// MockPresenceReader is a mock implementation of ports.PresenceReader
type MockPresenceReader struct {
	mock.Mock
}

var _ ports.PresenceReader = (*MockPresenceReader)(nil)

func NewMockPresenceReader() *MockPresenceReader {
	return &MockPresenceReader{}
}

func (m *MockPresenceReader) Presence(businessID string) []domain.PresenceEntry {
	args := m.Called(businessID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.PresenceEntry)
}

func (m *MockPresenceReader) ConnectedUsers(userIDs []string) map[string]bool {
	args := m.Called(userIDs)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]bool)
}
