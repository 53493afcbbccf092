package usersync_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimpnicServerTeam/planner-usersync/internal/apiclient"
	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/retry"
	"github.com/SimpnicServerTeam/planner-usersync/internal/usersync"
)

var (
	errNotFound = &apiclient.Error{StatusCode: http.StatusNotFound, Kind: apiclient.KindNotFound, Message: "User profile not found"}
	errTimeout  = &apiclient.Error{Kind: apiclient.KindTimeout, Err: context.DeadlineExceeded}
	errForbid   = &apiclient.Error{StatusCode: http.StatusForbidden, Kind: apiclient.KindForbidden, Message: "Insufficient role"}
	errConflict = &apiclient.Error{StatusCode: http.StatusConflict, Kind: apiclient.KindConflict, Message: "User already exists"}
	errServer   = &apiclient.Error{StatusCode: http.StatusInternalServerError, Kind: apiclient.KindUnknown, Message: "database unavailable"}
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	created  []models.SyncProfileRequest
	get      func(n int) (*models.UserProfile, error)
	create   func(n int) (*models.UserProfile, error)
	update   func(req models.UpdateProfileRequest) (*models.UserProfile, error)
	del      func() error
	getCount int
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) GetProfile(context.Context) (*models.UserProfile, error) {
	f.mu.Lock()
	f.getCount++
	n := f.getCount
	f.calls = append(f.calls, "GET /users/profile")
	f.mu.Unlock()
	return f.get(n)
}

func (f *fakeAPI) CreateProfile(_ context.Context, req models.SyncProfileRequest) (*models.UserProfile, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	n := len(f.created)
	f.calls = append(f.calls, "POST /users")
	f.mu.Unlock()
	if f.create == nil {
		return &models.UserProfile{Email: req.Email, Role: models.RoleStudent}, nil
	}
	return f.create(n)
}

func (f *fakeAPI) UpdateProfile(_ context.Context, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	f.record("PUT /users/profile")
	return f.update(req)
}

func (f *fakeAPI) DeleteAccount(context.Context) error {
	f.record("DELETE /users/me")
	if f.del == nil {
		return nil
	}
	return f.del()
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

var newUser = usersync.Identity{
	Subject:       "auth0|new",
	Email:         "new.user@example.com",
	Name:          "New User",
	EmailVerified: true,
}

func newEngine(t *testing.T, api *fakeAPI) (*usersync.Engine, *apiclient.TokenSource, *sleepRecorder) {
	t.Helper()
	sleeps := &sleepRecorder{}
	policy := retry.DefaultPolicy(apiclient.IsTimeout)
	policy.Sleep = sleeps.Sleep
	tokens := apiclient.NewTokenSource()
	return usersync.New(api, tokens, usersync.Options{Policy: policy}), tokens, sleeps
}

func profileWithRole(role models.Role) *models.UserProfile {
	return &models.UserProfile{ID: "p1", Auth0ID: newUser.Subject, Email: newUser.Email, Role: role}
}

func TestSync_CreatesMissingProfile(t *testing.T) {
	api := &fakeAPI{
		get: func(n int) (*models.UserProfile, error) {
			if n == 1 {
				return nil, errNotFound
			}
			return profileWithRole(models.RoleStudent), nil
		},
	}
	engine, tokens, _ := newEngine(t, api)

	var states []usersync.State
	engine.OnChange(func(st usersync.Status) { states = append(states, st.State) })

	engine.Login(newUser, apiclient.StaticToken("token"))
	require.NotNil(t, tokens.Provider())
	st := engine.Sync(context.Background())

	require.True(t, st.IsSynced())
	assert.Equal(t, "new.user@example.com", st.Profile.Email)
	assert.Equal(t, []usersync.State{usersync.StateIdle, usersync.StateSyncing, usersync.StateSynced}, states)
	assert.Equal(t, []string{"GET /users/profile", "POST /users", "GET /users/profile"}, api.Calls())
	require.Len(t, api.created, 1)
	assert.Equal(t, models.SyncProfileRequest{Email: "new.user@example.com", Name: "New User", EmailVerified: true}, api.created[0])

	roles := engine.Roles()
	assert.True(t, roles.IsStudent)
	assert.False(t, roles.IsAdmin)
}

func TestSync_ExistingProfileSkipsCreate(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return profileWithRole(models.RoleAdmin), nil }}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	st := engine.Sync(context.Background())

	assert.True(t, st.IsSynced())
	assert.Equal(t, []string{"GET /users/profile"}, api.Calls())
	assert.True(t, engine.Roles().IsAdmin)
}

func TestSync_NameFallsBackToEmail(t *testing.T) {
	api := &fakeAPI{get: func(n int) (*models.UserProfile, error) {
		if n == 1 {
			return nil, errNotFound
		}
		return profileWithRole(models.RoleStudent), nil
	}}
	engine, _, _ := newEngine(t, api)
	id := newUser
	id.Name = ""
	engine.Login(id, apiclient.StaticToken("token"))

	engine.Sync(context.Background())

	require.Len(t, api.created, 1)
	assert.Equal(t, "new.user@example.com", api.created[0].Name)
}

func TestSync_TimeoutRetryBound(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return nil, errTimeout }}
	engine, _, sleeps := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	st := engine.Sync(context.Background())

	assert.Len(t, api.Calls(), 3)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps.delays)
	require.True(t, st.IsFailed())
	assert.True(t, st.IsTimeout)
	assert.True(t, st.CanRetry())
	assert.Equal(t, usersync.SyncTimeoutMessage, st.Message)
	assert.ErrorIs(t, st.Err, apiclient.ErrTimeout)

	// Retries are spent; nothing runs again until Retry is called.
	assert.NotContains(t, st.Message, "automatically")
	assert.Contains(t, st.Message, "Please retry")
	assert.True(t, engine.EnsureSynced(context.Background()).IsFailed())
	assert.Len(t, api.Calls(), 3)
}

func TestSync_NonTimeoutFailureIsNotRetried(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return nil, errForbid }}
	engine, _, sleeps := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	st := engine.Sync(context.Background())

	assert.Len(t, api.Calls(), 1)
	assert.Empty(t, sleeps.delays)
	require.True(t, st.IsFailed())
	assert.False(t, st.IsTimeout)
	assert.False(t, st.CanRetry())
	assert.Equal(t, "Insufficient role", st.Message)
}

func TestSync_ServerErrorDoesNotCreate(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return nil, errServer }}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	st := engine.Sync(context.Background())

	assert.True(t, st.IsFailed())
	assert.Equal(t, []string{"GET /users/profile"}, api.Calls())
	assert.Empty(t, api.created)
}

func TestSync_CreateConflictCountsAsSuccess(t *testing.T) {
	api := &fakeAPI{
		get: func(n int) (*models.UserProfile, error) {
			if n == 1 {
				return nil, errNotFound
			}
			return profileWithRole(models.RoleStudent), nil
		},
		create: func(int) (*models.UserProfile, error) { return nil, errConflict },
	}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	st := engine.Sync(context.Background())

	assert.True(t, st.IsSynced())
	assert.Equal(t, []string{"GET /users/profile", "POST /users", "GET /users/profile"}, api.Calls())
}

func TestSync_CreateTimeoutIsRetried(t *testing.T) {
	api := &fakeAPI{
		get: func(n int) (*models.UserProfile, error) {
			if n == 1 {
				return nil, errNotFound
			}
			return profileWithRole(models.RoleStudent), nil
		},
		create: func(n int) (*models.UserProfile, error) {
			if n == 1 {
				return nil, errTimeout
			}
			return profileWithRole(models.RoleStudent), nil
		},
	}
	engine, _, sleeps := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	st := engine.Sync(context.Background())

	assert.True(t, st.IsSynced())
	assert.Len(t, api.created, 2)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeps.delays)
}

func TestSync_WithoutSessionStaysIdle(t *testing.T) {
	api := &fakeAPI{}
	engine, _, _ := newEngine(t, api)

	st := engine.Sync(context.Background())

	assert.True(t, st.IsIdle())
	assert.Empty(t, api.Calls())
	assert.Equal(t, usersync.Roles{}, engine.Roles())
}

func TestSync_NoConcurrentDuplicateSyncs(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) {
		close(started)
		<-release
		return profileWithRole(models.RoleStudent), nil
	}}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	done := make(chan usersync.Status)
	go func() { done <- engine.Sync(context.Background()) }()
	<-started

	second := engine.Sync(context.Background())
	ensured := engine.EnsureSynced(context.Background())
	close(release)
	first := <-done

	assert.True(t, second.IsSyncing())
	assert.True(t, ensured.IsSyncing())
	assert.True(t, first.IsSynced())
	assert.Equal(t, []string{"GET /users/profile"}, api.Calls())
}

func TestRefresh_SkippedWhileSyncInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{get: func(n int) (*models.UserProfile, error) {
		if n == 1 {
			close(started)
			<-release
			return nil, errForbid
		}
		return profileWithRole(models.RoleLecturer), nil
	}}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	done := make(chan usersync.Status)
	go func() { done <- engine.Sync(context.Background()) }()
	<-started

	refreshed := engine.Refresh(context.Background())
	assert.True(t, refreshed.IsSyncing())
	assert.Equal(t, []string{"GET /users/profile"}, api.Calls())

	close(release)
	first := <-done
	assert.True(t, first.IsFailed())

	// Once the sync is over a refresh runs again.
	st := engine.Refresh(context.Background())
	require.True(t, st.IsSynced())
	assert.True(t, engine.Roles().IsLecturer)
	assert.Equal(t, []string{"GET /users/profile", "GET /users/profile"}, api.Calls())
}

func TestSync_SkippedWhileRefreshInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{get: func(n int) (*models.UserProfile, error) {
		if n == 2 {
			close(started)
			<-release
			return profileWithRole(models.RoleAdmin), nil
		}
		return profileWithRole(models.RoleStudent), nil
	}}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))
	require.True(t, engine.Sync(context.Background()).IsSynced())

	done := make(chan usersync.Status)
	go func() { done <- engine.Refresh(context.Background()) }()
	<-started

	during := engine.Sync(context.Background())
	assert.True(t, during.IsSynced())
	assert.Equal(t, models.RoleStudent, during.Profile.Role)

	close(release)
	refreshed := <-done
	require.True(t, refreshed.IsSynced())
	assert.True(t, engine.Roles().IsAdmin)
	assert.Len(t, api.Calls(), 2)
}

func TestLogout_DiscardsInFlightResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) {
		close(started)
		<-release
		return profileWithRole(models.RoleAdmin), nil
	}}
	engine, tokens, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	done := make(chan usersync.Status)
	go func() { done <- engine.Sync(context.Background()) }()
	<-started
	require.True(t, engine.Status().IsSyncing())

	engine.Logout()
	close(release)
	result := <-done

	assert.True(t, result.IsIdle())
	assert.True(t, engine.Status().IsIdle())
	assert.Nil(t, engine.Profile())
	assert.Nil(t, tokens.Provider())
	assert.False(t, engine.Roles().IsAdmin)
}

func TestLogout_ResetsSyncedAndFailed(t *testing.T) {
	for _, getErr := range []error{nil, errForbid} {
		api := &fakeAPI{get: func(int) (*models.UserProfile, error) {
			if getErr != nil {
				return nil, getErr
			}
			return profileWithRole(models.RoleLecturer), nil
		}}
		engine, _, _ := newEngine(t, api)
		engine.Login(newUser, apiclient.StaticToken("token"))
		engine.Sync(context.Background())

		engine.Logout()

		assert.True(t, engine.Status().IsIdle())
		assert.Nil(t, engine.Profile())
		assert.False(t, engine.Authenticated())
	}
}

func TestRetry_ReArmsEnsureSynced(t *testing.T) {
	fail := true
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) {
		if fail {
			return nil, errTimeout
		}
		return profileWithRole(models.RoleStudent), nil
	}}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	require.True(t, engine.EnsureSynced(context.Background()).IsFailed())
	require.Len(t, api.Calls(), 3)

	// Failed is sticky until Retry.
	assert.True(t, engine.EnsureSynced(context.Background()).IsFailed())
	assert.Len(t, api.Calls(), 3)

	fail = false
	engine.Retry()
	assert.True(t, engine.Status().IsIdle())
	assert.Len(t, api.Calls(), 3)

	assert.True(t, engine.EnsureSynced(context.Background()).IsSynced())
	assert.Len(t, api.Calls(), 4)

	// Synced is not re-synced on mount.
	assert.True(t, engine.EnsureSynced(context.Background()).IsSynced())
	assert.Len(t, api.Calls(), 4)
}

func TestRetry_IgnoredUnlessFailed(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return profileWithRole(models.RoleStudent), nil }}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))
	engine.Sync(context.Background())

	engine.Retry()

	assert.True(t, engine.Status().IsSynced())
}

func TestRefresh_FailureKeepsLastProfile(t *testing.T) {
	api := &fakeAPI{get: func(n int) (*models.UserProfile, error) {
		if n == 1 {
			return profileWithRole(models.RoleLecturer), nil
		}
		return nil, errTimeout
	}}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))
	engine.Sync(context.Background())

	st := engine.Refresh(context.Background())

	require.True(t, st.IsFailed())
	assert.Equal(t, usersync.RefreshTimeoutMessage, st.Message)
	assert.Equal(t, models.RoleLecturer, st.Profile.Role)
	assert.True(t, engine.Roles().IsLecturer)
	assert.Len(t, api.Calls(), 4)
	assert.Empty(t, api.created)
}

func TestRefresh_NotFoundDoesNotCreate(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return nil, errNotFound }}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))

	st := engine.Refresh(context.Background())

	assert.True(t, st.IsFailed())
	assert.Equal(t, "User profile not found", st.Message)
	assert.Empty(t, api.created)
}

func TestUpdateProfile(t *testing.T) {
	current := profileWithRole(models.RoleStudent)
	api := &fakeAPI{
		get: func(int) (*models.UserProfile, error) { return current, nil },
		update: func(req models.UpdateProfileRequest) (*models.UserProfile, error) {
			if req.Username == "x" {
				return nil, &apiclient.Error{StatusCode: http.StatusBadRequest, Kind: apiclient.KindValidation, Message: "username must be at least 3 characters"}
			}
			current = &models.UserProfile{ID: "p1", Email: newUser.Email, Username: req.Username, Role: models.RoleStudent}
			return current, nil
		},
	}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))
	engine.Sync(context.Background())

	st, err := engine.UpdateProfile(context.Background(), models.UpdateProfileRequest{Username: "x"})
	require.Error(t, err)
	assert.Equal(t, "username must be at least 3 characters", err.Error())
	assert.True(t, st.IsSynced())
	assert.Empty(t, st.Profile.Username)

	st, err = engine.UpdateProfile(context.Background(), models.UpdateProfileRequest{Username: "new_user"})
	require.NoError(t, err)
	assert.True(t, st.IsSynced())
	assert.Equal(t, "new_user", engine.Profile().Username)
	assert.Equal(t, []string{"GET /users/profile", "PUT /users/profile", "PUT /users/profile", "GET /users/profile"}, api.Calls())
}

func TestAccountOperationsRequireSession(t *testing.T) {
	engine, _, _ := newEngine(t, &fakeAPI{})

	_, err := engine.UpdateProfile(context.Background(), models.UpdateProfileRequest{Name: "x"})
	assert.ErrorIs(t, err, usersync.ErrNotAuthenticated)
	assert.ErrorIs(t, engine.DeleteAccount(context.Background()), usersync.ErrNotAuthenticated)
}

func TestDeleteAccount_LogsOut(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return profileWithRole(models.RoleStudent), nil }}
	engine, tokens, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))
	engine.Sync(context.Background())

	require.NoError(t, engine.DeleteAccount(context.Background()))

	assert.True(t, engine.Status().IsIdle())
	assert.False(t, engine.Authenticated())
	assert.Nil(t, tokens.Provider())
}

func TestDeleteAccount_FailureKeepsSession(t *testing.T) {
	api := &fakeAPI{
		get: func(int) (*models.UserProfile, error) { return profileWithRole(models.RoleStudent), nil },
		del: func() error { return errServer },
	}
	engine, _, _ := newEngine(t, api)
	engine.Login(newUser, apiclient.StaticToken("token"))
	engine.Sync(context.Background())

	err := engine.DeleteAccount(context.Background())

	assert.ErrorIs(t, err, errServer)
	assert.True(t, engine.Status().IsSynced())
	assert.True(t, engine.Authenticated())
}

func TestOnChange_Unsubscribe(t *testing.T) {
	api := &fakeAPI{get: func(int) (*models.UserProfile, error) { return profileWithRole(models.RoleStudent), nil }}
	engine, _, _ := newEngine(t, api)

	var got []string
	stop := engine.OnChange(func(st usersync.Status) { got = append(got, st.String()) })
	engine.Login(newUser, apiclient.StaticToken("token"))
	stop()
	engine.Sync(context.Background())

	assert.Equal(t, []string{"idle"}, got)
}
