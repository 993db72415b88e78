package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/gobarber/internal/api"
	"github.com/patric-chuzhbe/gobarber/internal/db/memorystorage"
	"github.com/patric-chuzhbe/gobarber/internal/mockstorage"
	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/user"
)

type transportMock struct {
	mock.Mock
}

func (m *transportMock) PostAnonymous(ctx context.Context, path string, body, out any) error {
	args := m.Called(ctx, path, body, out)
	return args.Error(0)
}

func (m *transportMock) Get(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path, out)
	return args.Error(0)
}

var john = user.User{
	ID:        "8b1c1e2a-0000-4000-8000-000000000001",
	Name:      "John Doe",
	Email:     "john@example.com",
	AvatarURL: "http://localhost:3333/files/john.png",
}

var johnCredentials = models.Credentials{Email: "john@example.com", Password: "123456"}

func answerSession(session models.Session) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*args.Get(3).(*models.Session) = session
	}
}

func answerUser(usr user.User) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*args.Get(2).(*user.User) = usr
	}
}

func newStorage(t *testing.T) *memorystorage.MemoryStorage {
	t.Helper()
	theStorage, err := memorystorage.New()
	require.NoError(t, err)
	return theStorage
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   john.ID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func signIn(t *testing.T, manager *SessionManager, transport *transportMock, token string) *models.Session {
	t.Helper()
	transport.On("PostAnonymous", mock.Anything, models.EndpointSessions, johnCredentials, mock.Anything).
		Return(nil).
		Run(answerSession(models.Session{Token: token, User: john})).
		Once()

	session, err := manager.SignIn(context.Background(), johnCredentials)
	require.NoError(t, err)
	return session
}

func TestSignInSurvivesReload(t *testing.T) {
	theStorage := newStorage(t)
	transport := &transportMock{}
	manager := New(transport, theStorage)

	session := signIn(t, manager, transport, "opaque-token")
	assert.Equal(t, &models.Session{Token: "opaque-token", User: john}, session)
	assert.True(t, manager.IsAuthenticated())

	usr, ok := manager.User()
	assert.True(t, ok)
	assert.Equal(t, john, usr)

	stored := theStorage.Snapshot()
	assert.Equal(t, "opaque-token", stored[models.StorageKeyToken])
	var storedUser user.User
	require.NoError(t, json.Unmarshal([]byte(stored[models.StorageKeyUser]), &storedUser))
	assert.Equal(t, john, storedUser)

	reloaded := New(&transportMock{}, theStorage)
	restored, err := reloaded.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session, restored)
	assert.Equal(t, session, reloaded.Session())

	transport.AssertExpectations(t)
}

func TestSignOutThenRestore(t *testing.T) {
	theStorage := newStorage(t)
	transport := &transportMock{}
	manager := New(transport, theStorage)

	signIn(t, manager, transport, "opaque-token")

	require.NoError(t, manager.SignOut(context.Background()))
	assert.False(t, manager.IsAuthenticated())
	assert.Empty(t, theStorage.Snapshot())

	require.NoError(t, manager.SignOut(context.Background()), "sign out is idempotent")

	restored, err := New(&transportMock{}, theStorage).Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestSignInRejected(t *testing.T) {
	theStorage := newStorage(t)
	transport := &transportMock{}
	manager := New(transport, theStorage)

	previous := signIn(t, manager, transport, "previous-token")
	before := theStorage.Snapshot()

	rejected := &api.StatusError{Method: http.MethodPost, Path: models.EndpointSessions, Status: http.StatusUnauthorized}
	wrong := models.Credentials{Email: "john@example.com", Password: "wrong"}
	transport.On("PostAnonymous", mock.Anything, models.EndpointSessions, wrong, mock.Anything).
		Return(rejected).
		Once()

	session, err := manager.SignIn(context.Background(), wrong)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	assert.Equal(t, previous, manager.Session())
	assert.Equal(t, before, theStorage.Snapshot())
	transport.AssertExpectations(t)
}

func TestSignInTransportFailure(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		answer models.Session
	}{
		{
			name: "network failure",
			err:  errors.Join(api.ErrTransport, errors.New("connection refused")),
		},
		{
			name: "server failure",
			err:  &api.StatusError{Status: http.StatusInternalServerError},
		},
		{
			name:   "answer without token",
			answer: models.Session{User: john},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			theStorage := newStorage(t)
			transport := &transportMock{}
			transport.On("PostAnonymous", mock.Anything, models.EndpointSessions, johnCredentials, mock.Anything).
				Return(tc.err).
				Run(answerSession(tc.answer))

			manager := New(transport, theStorage)
			session, err := manager.SignIn(context.Background(), johnCredentials)

			assert.Nil(t, session)
			assert.ErrorIs(t, err, ErrTransport)
			assert.NotErrorIs(t, err, ErrAuthentication)
			assert.False(t, manager.IsAuthenticated())
			assert.Empty(t, theStorage.Snapshot())
		})
	}
}

func TestSignInStorageFailure(t *testing.T) {
	theStorage := &mockstorage.StorageMock{}
	theStorage.On("SetItems", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	transport := &transportMock{}
	manager := New(transport, theStorage)

	transport.On("PostAnonymous", mock.Anything, models.EndpointSessions, johnCredentials, mock.Anything).
		Return(nil).
		Run(answerSession(models.Session{Token: "t", User: john}))

	_, err := manager.SignIn(context.Background(), johnCredentials)
	require.Error(t, err)
	assert.False(t, manager.IsAuthenticated())

	theStorage.AssertNumberOfCalls(t, "SetItems", 1)
	items := theStorage.Calls[0].Arguments.Get(1).(map[string]string)
	assert.Len(t, items, 2, "token and user are written in one call")
}

func TestSignOutStorageFailureKeepsSession(t *testing.T) {
	theStorage := &mockstorage.StorageMock{}
	theStorage.On("SetItems", mock.Anything, mock.Anything).Return(nil)
	theStorage.On("RemoveItems", mock.Anything, models.StorageKeyToken, models.StorageKeyUser).
		Return(errors.New("read-only file system"))

	transport := &transportMock{}
	manager := New(transport, theStorage)
	signIn(t, manager, transport, "t")

	err := manager.SignOut(context.Background())
	require.Error(t, err)
	assert.True(t, manager.IsAuthenticated())
}

func TestUpdateUser(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		theStorage := newStorage(t)
		require.NoError(t, theStorage.SetItems(context.Background(), map[string]string{"unrelated": "value"}))
		manager := New(&transportMock{}, theStorage)

		err := manager.UpdateUser(context.Background(), john)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, map[string]string{"unrelated": "value"}, theStorage.Snapshot())
	})

	t.Run("authenticated", func(t *testing.T) {
		theStorage := newStorage(t)
		transport := &transportMock{}
		manager := New(transport, theStorage)
		signIn(t, manager, transport, "token-1")

		updated := john
		updated.AvatarURL = "http://localhost:3333/files/new.png"
		require.NoError(t, manager.UpdateUser(context.Background(), updated))

		usr, ok := manager.User()
		assert.True(t, ok)
		assert.Equal(t, updated, usr)
		assert.Equal(t, "token-1", manager.Token())

		restored, err := New(&transportMock{}, theStorage).Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &models.Session{Token: "token-1", User: updated}, restored)
	})
}

func TestRestore(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	rawJohn, err := json.Marshal(john)
	require.NoError(t, err)

	testCases := []struct {
		name        string
		stored      map[string]string
		wantSession bool
		wantStored  map[string]string
	}{
		{
			name:        "empty storage",
			stored:      map[string]string{},
			wantSession: false,
			wantStored:  map[string]string{},
		},
		{
			name:        "opaque token",
			stored:      map[string]string{"token": "opaque", "user": string(rawJohn)},
			wantSession: true,
			wantStored:  map[string]string{"token": "opaque", "user": string(rawJohn)},
		},
		{
			name:        "valid JWT",
			stored:      map[string]string{"token": signedToken(t, now.Add(time.Hour)), "user": string(rawJohn)},
			wantSession: true,
		},
		{
			name:        "expired JWT",
			stored:      map[string]string{"token": signedToken(t, now.Add(-time.Minute)), "user": string(rawJohn)},
			wantSession: false,
			wantStored:  map[string]string{},
		},
		{
			name:        "token without user",
			stored:      map[string]string{"token": "opaque"},
			wantSession: false,
			wantStored:  map[string]string{},
		},
		{
			name:        "user without token",
			stored:      map[string]string{"user": string(rawJohn)},
			wantSession: false,
			wantStored:  map[string]string{},
		},
		{
			name:        "unreadable user",
			stored:      map[string]string{"token": "opaque", "user": "{broken"},
			wantSession: false,
			wantStored:  map[string]string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			theStorage := newStorage(t)
			require.NoError(t, theStorage.SetItems(context.Background(), tc.stored))

			manager := New(&transportMock{}, theStorage, WithClock(func() time.Time { return now }))
			session, err := manager.Restore(context.Background())
			require.NoError(t, err)

			if tc.wantSession {
				require.NotNil(t, session)
				assert.Equal(t, tc.stored["token"], session.Token)
				assert.Equal(t, john, session.User)
				assert.True(t, manager.IsAuthenticated())
			} else {
				assert.Nil(t, session)
				assert.False(t, manager.IsAuthenticated())
			}
			if tc.wantStored != nil {
				assert.Equal(t, tc.wantStored, theStorage.Snapshot())
			}
		})
	}
}

func TestRestoreStorageFailure(t *testing.T) {
	theStorage := &mockstorage.StorageMock{}
	theStorage.On("GetItem", mock.Anything, models.StorageKeyToken).Return("", false, errors.New("io error"))

	session, err := New(&transportMock{}, theStorage).Restore(context.Background())
	assert.Nil(t, session)
	assert.Error(t, err)
}

func TestHandleUnauthorized(t *testing.T) {
	theStorage := newStorage(t)
	transport := &transportMock{}
	manager := New(transport, theStorage)
	signIn(t, manager, transport, "current")

	manager.HandleUnauthorized(context.Background(), "stale")
	assert.True(t, manager.IsAuthenticated(), "a rejection of an older token is ignored")

	manager.HandleUnauthorized(context.Background(), "current")
	assert.False(t, manager.IsAuthenticated())
	assert.Empty(t, theStorage.Snapshot())

	manager.HandleUnauthorized(context.Background(), "current")
	assert.False(t, manager.IsAuthenticated())
}

func TestRevalidate(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		manager := New(&transportMock{}, newStorage(t))
		assert.ErrorIs(t, manager.Revalidate(context.Background()), ErrInvalidState)
	})

	t.Run("fresh profile", func(t *testing.T) {
		theStorage := newStorage(t)
		transport := &transportMock{}
		manager := New(transport, theStorage)
		signIn(t, manager, transport, "current")

		fresh := john
		fresh.Name = "John Fresh"
		transport.On("Get", mock.Anything, models.EndpointProfile, mock.Anything).
			Return(nil).
			Run(answerUser(fresh)).
			Once()

		require.NoError(t, manager.Revalidate(context.Background()))
		usr, _ := manager.User()
		assert.Equal(t, "John Fresh", usr.Name)
		assert.Equal(t, "current", manager.Token())
	})

	t.Run("rejected token", func(t *testing.T) {
		theStorage := newStorage(t)
		transport := &transportMock{}
		manager := New(transport, theStorage)
		signIn(t, manager, transport, "current")

		transport.On("Get", mock.Anything, models.EndpointProfile, mock.Anything).
			Return(&api.StatusError{Status: http.StatusUnauthorized}).
			Once()

		err := manager.Revalidate(context.Background())
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.False(t, manager.IsAuthenticated())
		assert.Empty(t, theStorage.Snapshot())
	})

	t.Run("API down keeps the session", func(t *testing.T) {
		theStorage := newStorage(t)
		transport := &transportMock{}
		manager := New(transport, theStorage)
		signIn(t, manager, transport, "current")

		transport.On("Get", mock.Anything, models.EndpointProfile, mock.Anything).
			Return(&api.StatusError{Status: http.StatusBadGateway}).
			Once()

		err := manager.Revalidate(context.Background())
		assert.ErrorIs(t, err, ErrTransport)
		assert.True(t, manager.IsAuthenticated())
	})
}

func TestOnChange(t *testing.T) {
	theStorage := newStorage(t)
	transport := &transportMock{}
	manager := New(transport, theStorage)

	var seen []string
	manager.OnChange(func(session *models.Session) {
		if session == nil {
			seen = append(seen, "signed out")
			return
		}
		seen = append(seen, session.User.Name)
	})

	signIn(t, manager, transport, "t")
	renamed := john
	renamed.Name = "Johnny"
	require.NoError(t, manager.UpdateUser(context.Background(), renamed))
	require.NoError(t, manager.SignOut(context.Background()))
	require.NoError(t, manager.SignOut(context.Background()))

	assert.Equal(t, []string{"John Doe", "Johnny", "signed out"}, seen)
}
