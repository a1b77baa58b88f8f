package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/go-bot-host/pkg/apperr"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
)

const (
	instance  = "instance-1"
	rawJID    = "(11) 99999-9999"
	canonical = "5511999999999@s.whatsapp.net"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, s *models.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockRepository) Find(ctx context.Context, instanceName, remoteJID string) (*models.Session, error) {
	args := m.Called(ctx, instanceName, remoteJID)
	s, _ := args.Get(0).(*models.Session)
	return s, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, instanceName string, status *models.SessionStatus, limit, offset *int) ([]models.Session, error) {
	args := m.Called(ctx, instanceName, status, limit, offset)
	sessions, _ := args.Get(0).([]models.Session)
	return sessions, args.Error(1)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, instanceName, remoteJID string, status models.SessionStatus) (*models.Session, error) {
	args := m.Called(ctx, instanceName, remoteJID, status)
	s, _ := args.Get(0).(*models.Session)
	return s, args.Error(1)
}

func (m *mockRepository) UpdateContext(ctx context.Context, instanceName, remoteJID, sessionContext string) (*models.Session, error) {
	args := m.Called(ctx, instanceName, remoteJID, sessionContext)
	s, _ := args.Get(0).(*models.Session)
	return s, args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, instanceName, remoteJID string) error {
	return m.Called(ctx, instanceName, remoteJID).Error(0)
}

func (m *mockRepository) RecordMessage(ctx context.Context, id string, atMillis int64) error {
	return m.Called(ctx, id, atMillis).Error(0)
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func fixture(status models.SessionStatus, messages int) models.Session {
	s := models.NewSession(instance, canonical, status, "", time.UnixMilli(1700000000000))
	s.MessageCount = messages
	return *s
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes the JID and defaults to opened", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("Create", ctx, mock.MatchedBy(func(s *models.Session) bool {
			return s.RemoteJID == canonical && s.Status == models.SessionStatusOpened && s.MessageCount == 0
		})).Return(nil)

		s, err := newTestService(repo).CreateSession(ctx, CreateInput{InstanceName: instance, RemoteJID: rawJID})
		require.NoError(t, err)
		assert.Equal(t, canonical, s.RemoteJID)
		assert.EqualValues(t, 1700000000000, s.CreatedAt)
		repo.AssertExpectations(t)
	})

	t.Run("missing address", func(t *testing.T) {
		repo := &mockRepository{}
		_, err := newTestService(repo).CreateSession(ctx, CreateInput{InstanceName: instance})
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
		_, err = newTestService(repo).CreateSession(ctx, CreateInput{RemoteJID: rawJID})
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("address without digits", func(t *testing.T) {
		repo := &mockRepository{}
		for _, raw := range []string{"abc", "@s.whatsapp.net", "(--)"} {
			_, err := newTestService(repo).CreateSession(ctx, CreateInput{InstanceName: instance, RemoteJID: raw})
			assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), raw)
			assert.Equal(t, "remoteJid must contain a phone number", apperr.PublicMessage(err))
		}
		_, err := newTestService(repo).GetSession(ctx, instance, "abc")
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := newTestService(&mockRepository{}).CreateSession(ctx, CreateInput{InstanceName: instance, RemoteJID: rawJID, Status: "archived"})
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))
		_, err := newTestService(repo).CreateSession(ctx, CreateInput{InstanceName: instance, RemoteJID: rawJID})
		assert.True(t, apperr.Is(err, apperr.KindInternal))
		assert.Equal(t, "failed to create session", apperr.PublicMessage(err))
		assert.NotContains(t, apperr.PublicMessage(err), "connection reset")
	})

	t.Run("categorized store error passes through", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("Create", ctx, mock.Anything).Return(apperr.DomainConflict("session already exists"))
		_, err := newTestService(repo).CreateSession(ctx, CreateInput{InstanceName: instance, RemoteJID: rawJID})
		assert.True(t, apperr.Is(err, apperr.KindDomainConflict))
	})
}

func TestChangeSessionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the normalized session", func(t *testing.T) {
		paused := fixture(models.SessionStatusPaused, 0)
		repo := &mockRepository{}
		repo.On("UpdateStatus", ctx, instance, canonical, models.SessionStatusPaused).Return(&paused, nil)

		s, err := newTestService(repo).ChangeSessionStatus(ctx, instance, rawJID, models.SessionStatusPaused)
		require.NoError(t, err)
		assert.True(t, s.IsPaused())
		repo.AssertExpectations(t)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := newTestService(&mockRepository{}).ChangeSessionStatus(ctx, instance, rawJID, "gone")
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
	})

	t.Run("missing session", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("UpdateStatus", ctx, instance, canonical, models.SessionStatusClosed).Return(nil, nil)
		_, err := newTestService(repo).ChangeSessionStatus(ctx, instance, rawJID, models.SessionStatusClosed)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestGetSessions(t *testing.T) {
	ctx := context.Background()
	limit, offset := 10, 5
	zero, negative := 0, -1

	t.Run("absent paging passes through", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("List", ctx, instance, (*models.SessionStatus)(nil), (*int)(nil), (*int)(nil)).Return([]models.Session(nil), nil)

		sessions, err := newTestService(repo).GetSessions(ctx, ListInput{InstanceName: instance, Status: StatusAll})
		require.NoError(t, err)
		assert.NotNil(t, sessions)
		assert.Empty(t, sessions)
		repo.AssertExpectations(t)
	})

	t.Run("status filter and paging", func(t *testing.T) {
		repo := &mockRepository{}
		opened := models.SessionStatusOpened
		repo.On("List", ctx, instance, &opened, &limit, &offset).Return([]models.Session{fixture(opened, 1)}, nil)

		sessions, err := newTestService(repo).GetSessions(ctx, ListInput{InstanceName: instance, Status: "opened", Limit: &limit, Offset: &offset})
		require.NoError(t, err)
		assert.Len(t, sessions, 1)
	})

	tests := []struct {
		name string
		in   ListInput
	}{
		{"zero limit", ListInput{InstanceName: instance, Limit: &zero}},
		{"negative offset", ListInput{InstanceName: instance, Offset: &negative}},
		{"unknown status", ListInput{InstanceName: instance, Status: "archived"}},
		{"missing instance", ListInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(&mockRepository{}).GetSessions(ctx, tt.in)
			assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
		})
	}

	t.Run("zero offset is valid", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("List", ctx, instance, (*models.SessionStatus)(nil), (*int)(nil), &zero).Return([]models.Session{}, nil)
		_, err := newTestService(repo).GetSessions(ctx, ListInput{InstanceName: instance, Offset: &zero})
		assert.NoError(t, err)
	})
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()

	repo := &mockRepository{}
	repo.On("Find", ctx, instance, canonical).Return(nil, nil)
	s, err := newTestService(repo).GetSession(ctx, instance, rawJID)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = newTestService(repo).GetSession(ctx, "", rawJID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestUpdateSessionContext(t *testing.T) {
	ctx := context.Background()

	_, err := newTestService(&mockRepository{}).UpdateSessionContext(ctx, instance, rawJID, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	updated := fixture(models.SessionStatusOpened, 0)
	updated.Context = "wants a pizza"
	repo := &mockRepository{}
	repo.On("UpdateContext", ctx, instance, canonical, "wants a pizza").Return(&updated, nil)
	s, err := newTestService(repo).UpdateSessionContext(ctx, instance, rawJID, "wants a pizza")
	require.NoError(t, err)
	assert.Equal(t, "wants a pizza", s.Context)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()

	t.Run("missing session is not found", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("Find", ctx, instance, canonical).Return(nil, nil)
		err := newTestService(repo).DeleteSession(ctx, instance, rawJID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("existing session is removed", func(t *testing.T) {
		existing := fixture(models.SessionStatusClosed, 3)
		repo := &mockRepository{}
		repo.On("Find", ctx, instance, canonical).Return(&existing, nil)
		repo.On("Delete", ctx, instance, canonical).Return(nil)
		require.NoError(t, newTestService(repo).DeleteSession(ctx, instance, rawJID))
		repo.AssertExpectations(t)
	})
}

func TestGetSessionStats(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates the full list", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("List", ctx, instance, (*models.SessionStatus)(nil), (*int)(nil), (*int)(nil)).Return([]models.Session{
			fixture(models.SessionStatusOpened, 4),
			fixture(models.SessionStatusOpened, 1),
			fixture(models.SessionStatusPaused, 2),
			fixture(models.SessionStatusClosed, 7),
		}, nil)

		stats, err := newTestService(repo).GetSessionStats(ctx, instance)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStats{Total: 4, Opened: 2, Paused: 1, Closed: 1, TotalMessages: 14}, *stats)
	})

	t.Run("empty instance", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("List", ctx, instance, (*models.SessionStatus)(nil), (*int)(nil), (*int)(nil)).Return([]models.Session{}, nil)
		stats, err := newTestService(repo).GetSessionStats(ctx, instance)
		require.NoError(t, err)
		assert.Zero(t, *stats)
	})
}

func TestRecordMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("opened session is routed", func(t *testing.T) {
		opened := fixture(models.SessionStatusOpened, 2)
		repo := &mockRepository{}
		repo.On("Find", ctx, instance, canonical).Return(&opened, nil)
		repo.On("RecordMessage", ctx, opened.ID, int64(1700000000000)).Return(nil)

		activity, err := newTestService(repo).RecordMessage(ctx, instance, rawJID)
		require.NoError(t, err)
		assert.True(t, activity.Route)
		assert.Equal(t, 3, activity.Session.MessageCount)
		require.NotNil(t, activity.Session.LastMessageAt)
		repo.AssertExpectations(t)
	})

	for _, status := range []models.SessionStatus{models.SessionStatusPaused, models.SessionStatusClosed} {
		status := status
		t.Run(string(status)+" session conflicts", func(t *testing.T) {
			s := fixture(status, 0)
			repo := &mockRepository{}
			repo.On("Find", ctx, instance, canonical).Return(&s, nil)
			_, err := newTestService(repo).RecordMessage(ctx, instance, rawJID)
			assert.True(t, apperr.Is(err, apperr.KindDomainConflict))
			repo.AssertNotCalled(t, "RecordMessage", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("missing session", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("Find", ctx, instance, canonical).Return(nil, nil)
		_, err := newTestService(repo).RecordMessage(ctx, instance, rawJID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}
