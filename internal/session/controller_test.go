package session_test

import (
	"authsession/internal/auth"
	"authsession/internal/metrics"
	"authsession/internal/mocks"
	"authsession/internal/navigation"
	"authsession/internal/renewal"
	"authsession/internal/session"
	"authsession/internal/store"
	"authsession/internal/testutil"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.UnixMilli(1_700_000_000_000)

// recordingNavigator keeps every navigation the controller makes.
type recordingNavigator struct {
	*navigation.Tracker

	mu      sync.Mutex
	targets []string
}

func (r *recordingNavigator) NavigateTo(target string) {
	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()
	r.Tracker.NavigateTo(target)
}

func (r *recordingNavigator) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.targets...)
}

type harness struct {
	controller *session.Controller
	kv         *store.MemKV
	creds      *store.CredentialStore
	navigator  *recordingNavigator
	exchanger  *mocks.MockExchanger
	channel    *mocks.MockRenewalChannel
	logs       *testutil.TestLogHandler
}

func newHarness(t *testing.T, kv *store.MemKV, path string, opts session.Options) *harness {
	t.Helper()
	mockCtrl := gomock.NewController(t)
	logs := testutil.NewTestLogHandler()
	logger := slog.New(logs)

	if kv == nil {
		kv = store.NewMemKV()
	}
	creds := store.NewCredentialStore(kv, logger)
	navigator := &recordingNavigator{Tracker: navigation.NewTracker(path, logger)}

	launcher := mocks.NewMockLauncher(mockCtrl)
	launcher.EXPECT().AuthURL(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(state, challenge string, silent bool) string {
			return fmt.Sprintf("https://idp.example.com/authorize?state=%s&silent=%t", state, silent)
		},
	).AnyTimes()

	exchanger := mocks.NewMockExchanger(mockCtrl)
	channel := mocks.NewMockRenewalChannel(mockCtrl)
	channel.EXPECT().Close().AnyTimes()

	if opts.RefreshThreshold == 0 {
		opts.RefreshThreshold = time.Minute
	}
	if opts.ExcludedReturnPaths == nil {
		opts.ExcludedReturnPaths = []string{"/callback"}
	}

	ids := 0
	controller := session.NewController(creds, launcher, exchanger, navigator, channel, opts, logger).
		WithClock(func() time.Time { return testNow }).
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("attempt-%d", ids)
		})

	return &harness{
		controller: controller,
		kv:         kv,
		creds:      creds,
		navigator:  navigator,
		exchanger:  exchanger,
		channel:    channel,
		logs:       logs,
	}
}

// start runs the controller until the test ends and waits for the mount to settle.
func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.controller.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.controller.Done()
	})

	require.Eventually(t, func() bool {
		state := h.controller.State()
		return state != session.StateIdle && state != session.StateChecking
	}, time.Second, time.Millisecond)
}

func (h *harness) seedBundle(t *testing.T, bundle store.Bundle) {
	t.Helper()
	require.NoError(t, h.creds.SaveBundle(context.Background(), bundle))
}

func (h *harness) verifier(t *testing.T) string {
	t.Helper()
	verifier, ok := h.creds.Load(context.Background(), store.KeyPKCEVerifier)
	require.True(t, ok, "verifier should be stored")
	return verifier
}

func (h *harness) waitForState(t *testing.T, want session.State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.controller.State() == want }, time.Second, time.Millisecond,
		"expected state %s", want)
}

func validBundle(token string) store.Bundle {
	return store.Bundle{AccessToken: token, ExpiresIn: 3600, CreatedAt: testNow.UnixMilli()}
}

func TestController_MountRestoresSession(t *testing.T) {
	h := newHarness(t, nil, "/reports", session.Options{})
	h.seedBundle(t, validBundle("stored"))
	h.start(t)

	assert.Equal(t, session.StateAuthenticated, h.controller.State())
	require.NotNil(t, h.controller.Auth())
	assert.Equal(t, "stored", h.controller.Auth().AccessToken)
	assert.Empty(t, h.navigator.Targets())
}

func TestController_MountWithoutSessionStartsLogin(t *testing.T) {
	h := newHarness(t, nil, "/reports?tab=2", session.Options{})
	h.start(t)

	assert.Equal(t, session.StateNeedsLogin, h.controller.State())
	targets := h.navigator.Targets()
	require.Len(t, targets, 1)
	assert.Contains(t, targets[0], "state=login.attempt-1")
	assert.Contains(t, targets[0], "silent=false")

	ctx := context.Background()
	lastPath, _ := h.creds.Load(ctx, store.KeyLastPath)
	assert.Equal(t, "/reports", lastPath)
	assert.NotEmpty(t, h.verifier(t))
	assert.True(t, h.creds.Flag(ctx, store.KeyFirstLogin))

	snap := h.controller.Snapshot()
	assert.True(t, snap.FirstLogin)
	assert.Equal(t, "attempt-1", snap.AttemptID)
}

func TestController_MountDiscardsUnusableCredentials(t *testing.T) {
	tests := []struct {
		name string
		seed func(t *testing.T, h *harness)
	}{
		{
			name: "corrupted record",
			seed: func(t *testing.T, h *harness) {
				require.NoError(t, h.kv.Set(context.Background(), string(store.KeyAuth), "{accessToken:"))
			},
		},
		{
			name: "expired token",
			seed: func(t *testing.T, h *harness) {
				h.seedBundle(t, store.Bundle{AccessToken: "old", ExpiresIn: 600, CreatedAt: testNow.Add(-700 * time.Second).UnixMilli()})
			},
		},
		{
			name: "session expired flag",
			seed: func(t *testing.T, h *harness) {
				h.seedBundle(t, validBundle("flagged"))
				require.NoError(t, h.creds.SetFlag(context.Background(), store.KeySessionExpired))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, "/", session.Options{})
			tt.seed(t, h)
			h.start(t)

			assert.Equal(t, session.StateNeedsLogin, h.controller.State())
			assert.Nil(t, h.controller.Auth())
			_, found, _ := h.kv.Get(context.Background(), string(store.KeyAuth))
			assert.False(t, found)
			assert.Len(t, h.navigator.Targets(), 1)
		})
	}
}

func TestController_CallbackExchangesCodeOnce(t *testing.T) {
	h := newHarness(t, nil, "/reports?tab=2", session.Options{})
	h.start(t)
	verifier := h.verifier(t)

	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", verifier).Return(validBundle("fresh"), nil).Times(1)

	ctx := context.Background()
	require.NoError(t, h.controller.HandleCallback(ctx, "code-1"))

	assert.Equal(t, session.StateAuthenticated, h.controller.State())
	assert.Equal(t, "fresh", h.controller.Auth().AccessToken)
	targets := h.navigator.Targets()
	assert.Equal(t, "/reports", targets[len(targets)-1])

	require.NoError(t, h.controller.HandleCallback(ctx, "code-1"))
	assert.Len(t, h.navigator.Targets(), len(targets))

	_, ok := h.creds.Load(ctx, store.KeyPKCEVerifier)
	assert.False(t, ok, "verifier is cleared after a successful exchange")
	assert.False(t, h.creds.Flag(ctx, store.KeyFirstLogin))
	persisted := h.creds.LoadBundle(ctx)
	require.NotNil(t, persisted)
	assert.Equal(t, "fresh", persisted.AccessToken)
}

func TestController_ConcurrentDuplicateCallbacks(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)

	release := make(chan struct{})
	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, code, verifier string) (store.Bundle, error) {
			<-release
			return validBundle("fresh"), nil
		},
	).Times(1)

	ctx := context.Background()
	results := make(chan error, 2)
	go func() { results <- h.controller.HandleCallback(ctx, "code-1") }()
	h.waitForState(t, session.StateAuthenticating)
	go func() { results <- h.controller.HandleCallback(ctx, "code-1") }()

	time.Sleep(10 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("callback did not complete")
		}
	}
	assert.Equal(t, session.StateAuthenticated, h.controller.State())
}

func TestController_DifferentCodeWhileExchanging(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)

	release := make(chan struct{})
	defer close(release)
	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, code, verifier string) (store.Bundle, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return store.Bundle{}, errors.New("stopped")
		},
	).Times(1)

	go func() { _ = h.controller.HandleCallback(context.Background(), "code-1") }()
	h.waitForState(t, session.StateAuthenticating)

	err := h.controller.HandleCallback(context.Background(), "code-2")
	assert.ErrorIs(t, err, session.ErrExchangeInFlight)
}

func TestController_ExchangeFailure(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)

	exchangeErr := &auth.TokenExchangeError{StatusCode: 400, ErrorCode: "invalid_grant"}
	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", gomock.Any()).Return(store.Bundle{}, exchangeErr).Times(1)

	ctx := context.Background()
	err := h.controller.HandleCallback(ctx, "code-1")
	var tokenErr *auth.TokenExchangeError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, "invalid_grant", tokenErr.ErrorCode)

	assert.Equal(t, session.StateError, h.controller.State())
	assert.NotEmpty(t, h.controller.Snapshot().Error)

	err = h.controller.HandleCallback(ctx, "code-1")
	assert.ErrorAs(t, err, &tokenErr, "replayed code reports the original failure")

	require.NoError(t, h.controller.CheckLogin(ctx, false))
	assert.Equal(t, session.StateError, h.controller.State(), "error is sticky until retry")

	require.NoError(t, h.controller.Retry(ctx))
	assert.Equal(t, session.StateNeedsLogin, h.controller.State())
	assert.Empty(t, h.controller.Snapshot().Error)
	assert.True(t, h.controller.Snapshot().FirstLogin)
	_, ok := h.creds.Load(ctx, store.KeyLastCode)
	assert.False(t, ok)

	targets := h.navigator.Targets()
	require.Len(t, targets, 2)
	assert.Contains(t, targets[1], "state=login.attempt-2")
}

func TestController_CallbackWithoutVerifier(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)
	require.NoError(t, h.creds.Clear(context.Background(), store.KeyPKCEVerifier))

	err := h.controller.HandleCallback(context.Background(), "code-1")
	assert.ErrorIs(t, err, session.ErrMissingVerifier)
	assert.Equal(t, session.StateError, h.controller.State())
}

func TestController_EmptyCallbackCode(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)

	var missing *auth.CallbackWithoutCodeError
	assert.ErrorAs(t, h.controller.HandleCallback(context.Background(), ""), &missing)
	assert.Equal(t, session.StateNeedsLogin, h.controller.State())
}

func TestController_NoLoginStorm(t *testing.T) {
	h := newHarness(t, nil, "/reports", session.Options{})
	h.start(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.controller.Login(ctx))
		require.NoError(t, h.controller.CheckLogin(ctx, true))
		require.NoError(t, h.controller.ExpireSession(ctx))
	}

	assert.Len(t, h.navigator.Targets(), 1, "only one interactive login per attempt")
	assert.Equal(t, "attempt-1", h.controller.Snapshot().AttemptID)
	assert.Equal(t, 1, h.logs.CountMessage(slog.LevelInfo, "starting interactive login"))
}

func TestController_AbandonedLoginRelaunches(t *testing.T) {
	h := newHarness(t, nil, "/reports", session.Options{})
	h.start(t)
	ctx := context.Background()

	launched := h.navigator.Targets()
	require.Len(t, launched, 1)
	authURL := launched[0]
	verifier := h.verifier(t)

	// the status poll hands the URL to the client, which never follows it
	pending, ok := h.navigator.TakePending()
	require.True(t, ok)
	assert.Equal(t, authURL, pending)

	require.NoError(t, h.controller.CheckLogin(ctx, true))
	assert.Equal(t, []string{authURL, authURL}, h.navigator.Targets(), "reload gets the same authorization URL")

	require.NoError(t, h.controller.CheckLogin(ctx, true))
	assert.Len(t, h.navigator.Targets(), 2, "nothing is queued twice")

	_, ok = h.navigator.TakePending()
	require.True(t, ok)
	require.NoError(t, h.controller.Login(ctx))
	assert.Equal(t, []string{authURL, authURL, authURL}, h.navigator.Targets())

	assert.Equal(t, session.StateNeedsLogin, h.controller.State())
	assert.Equal(t, "attempt-1", h.controller.Snapshot().AttemptID)
	assert.Equal(t, verifier, h.verifier(t), "the verifier of the original launch is kept")
	assert.Equal(t, 1, h.logs.CountMessage(slog.LevelInfo, "starting interactive login"))

	record, ok := h.logs.FindRecord(slog.LevelInfo, "resuming interactive login")
	require.True(t, ok)
	assert.Equal(t, "attempt-1", record.Attrs["attempt"])
	assert.Equal(t, "session_controller", record.Attrs["component"])
	assert.Equal(t, 2, h.logs.CountMessage(slog.LevelInfo, "resuming interactive login"))
}

func TestController_CallbackAfterLoginURLHandedOut(t *testing.T) {
	h := newHarness(t, nil, "/reports/9", session.Options{})
	h.start(t)
	ctx := context.Background()
	verifier := h.verifier(t)

	_, ok := h.navigator.TakePending()
	require.True(t, ok)
	require.NoError(t, h.controller.Login(ctx))
	_, ok = h.navigator.TakePending()
	require.True(t, ok)

	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", verifier).Return(validBundle("fresh"), nil).Times(1)

	require.NoError(t, h.controller.HandleCallback(ctx, "code-1"))
	assert.Equal(t, session.StateAuthenticated, h.controller.State())

	target, ok := h.navigator.TakePending()
	require.True(t, ok)
	assert.Equal(t, "/reports/9", target)

	require.NoError(t, h.controller.Login(ctx))
	require.NoError(t, h.controller.CheckLogin(ctx, false))
	assert.False(t, h.navigator.HasPending(), "an authenticated session hands out nothing")
}

func TestController_LoginWhileExchangingDoesNotRelaunch(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)
	ctx := context.Background()

	release := make(chan struct{})
	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, code, verifier string) (store.Bundle, error) {
			<-release
			return validBundle("fresh"), nil
		},
	).Times(1)

	done := make(chan error, 1)
	go func() { done <- h.controller.HandleCallback(ctx, "code-1") }()
	h.waitForState(t, session.StateAuthenticating)

	_, ok := h.navigator.TakePending()
	require.True(t, ok)
	require.NoError(t, h.controller.Login(ctx))
	assert.False(t, h.navigator.HasPending())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, session.StateAuthenticated, h.controller.State())
	assert.Len(t, h.navigator.Targets(), 2)
}

func TestController_LogoutSuppressesAutoLogin(t *testing.T) {
	kv := store.NewMemKV()
	h := newHarness(t, kv, "/reports", session.Options{})
	h.seedBundle(t, validBundle("stored"))
	h.start(t)
	ctx := context.Background()

	require.NoError(t, h.controller.Logout(ctx))
	assert.Equal(t, session.StateLoggedOut, h.controller.State())
	assert.Nil(t, h.controller.Auth())
	assert.True(t, h.creds.Flag(ctx, store.KeyManualLogout))
	assert.Nil(t, h.creds.LoadBundle(ctx))

	require.NoError(t, h.controller.CheckLogin(ctx, false))
	require.NoError(t, h.controller.ExpireSession(ctx))
	require.NoError(t, h.controller.Tick(ctx))
	assert.Equal(t, session.StateLoggedOut, h.controller.State())
	assert.Empty(t, h.navigator.Targets())

	remounted := newHarness(t, kv, "/reports", session.Options{})
	remounted.start(t)
	assert.Equal(t, session.StateLoggedOut, remounted.controller.State())
	assert.Empty(t, remounted.navigator.Targets())

	require.NoError(t, remounted.controller.Login(ctx))
	assert.Equal(t, session.StateNeedsLogin, remounted.controller.State())
	assert.False(t, remounted.creds.Flag(ctx, store.KeyManualLogout))
	assert.Len(t, remounted.navigator.Targets(), 1)
}

func TestController_LogoutDiscardsInFlightExchange(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)

	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, code, verifier string) (store.Bundle, error) {
			<-ctx.Done()
			return validBundle("late"), nil
		},
	).Times(1)

	result := make(chan error, 1)
	go func() { result <- h.controller.HandleCallback(context.Background(), "code-1") }()
	h.waitForState(t, session.StateAuthenticating)

	require.NoError(t, h.controller.Logout(context.Background()))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, session.ErrLoggedOut)
	case <-time.After(time.Second):
		t.Fatal("callback did not complete")
	}

	// the late result is posted back and must be ignored
	require.Eventually(t, func() bool {
		return h.logs.ContainsMessage(slog.LevelDebug, "discarding result of stale exchange")
	}, time.Second, time.Millisecond)
	assert.Equal(t, session.StateLoggedOut, h.controller.State())
	assert.Nil(t, h.creds.LoadBundle(context.Background()))
}

func TestController_MountExchangesCodeFromRoute(t *testing.T) {
	kv := store.NewMemKV()
	h := newHarness(t, kv, "/callback?code=url-code&state=login.prev", session.Options{})
	ctx := context.Background()
	require.NoError(t, h.creds.Save(ctx, store.KeyPKCEVerifier, "stored-verifier"))
	require.NoError(t, h.creds.Save(ctx, store.KeyLastPath, "/reports"))

	h.exchanger.EXPECT().Exchange(gomock.Any(), "url-code", "stored-verifier").Return(validBundle("fresh"), nil).Times(1)
	h.start(t)

	h.waitForState(t, session.StateAuthenticated)
	require.Eventually(t, func() bool {
		targets := h.navigator.Targets()
		return len(targets) == 1 && targets[0] == "/reports"
	}, time.Second, time.Millisecond)

	// a reload on the callback route must not exchange the code again
	require.NoError(t, h.creds.ClearBundle(ctx))
	remounted := newHarness(t, kv, "/callback?code=url-code&state=login.prev", session.Options{})
	remounted.start(t)
	assert.Equal(t, session.StateNeedsLogin, remounted.controller.State())
}

func TestController_SilentRenewal(t *testing.T) {
	h := newHarness(t, nil, "/reports", session.Options{RefreshThreshold: time.Minute})
	h.seedBundle(t, store.Bundle{AccessToken: "old", ExpiresIn: 600, CreatedAt: testNow.Add(-550 * time.Second).UnixMilli()})
	h.start(t)
	require.Equal(t, session.StateAuthenticated, h.controller.State())

	messages := make(chan renewal.Message, 1)
	var opened renewal.Request
	h.channel.EXPECT().Open(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req renewal.Request) (<-chan renewal.Message, error) {
			opened = req
			return messages, nil
		},
	).Times(1)

	ctx := context.Background()
	require.NoError(t, h.controller.Tick(ctx))

	assert.Equal(t, session.StateAuthenticating, h.controller.State())
	assert.Equal(t, "frame.attempt-1", opened.State)
	assert.Contains(t, opened.URL, "silent=true")
	frame := h.controller.Frame()
	assert.True(t, frame.Visible)
	assert.Equal(t, opened.URL, frame.URL)
	assert.Equal(t, "old", h.controller.Auth().AccessToken, "credentials stay usable while renewing")

	verifier := h.verifier(t)
	h.exchanger.EXPECT().Exchange(gomock.Any(), "silent-code", verifier).Return(validBundle("renewed"), nil).Times(1)
	messages <- renewal.Message{State: opened.State, Code: "silent-code"}

	h.waitForState(t, session.StateAuthenticated)
	assert.Equal(t, "renewed", h.controller.Auth().AccessToken)
	assert.False(t, h.controller.Frame().Visible)
	assert.Empty(t, h.navigator.Targets(), "silent renewal never navigates")
}

func TestController_SilentRenewalFallsBackOnce(t *testing.T) {
	tests := []struct {
		name    string
		message *renewal.Message
	}{
		{name: "login required", message: &renewal.Message{State: "frame.attempt-1", Error: "login_required"}},
		{name: "timeout", message: &renewal.Message{State: "frame.attempt-1", Err: &renewal.RenewalTimeoutError{State: "frame.attempt-1", Timeout: time.Second}}},
		{name: "no code", message: &renewal.Message{State: "frame.attempt-1"}},
		{name: "channel closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, "/reports", session.Options{})
			h.seedBundle(t, store.Bundle{AccessToken: "old", ExpiresIn: 600, CreatedAt: testNow.Add(-550 * time.Second).UnixMilli()})
			h.start(t)

			messages := make(chan renewal.Message, 1)
			h.channel.EXPECT().Open(gomock.Any(), gomock.Any()).Return((<-chan renewal.Message)(messages), nil).Times(1)

			ctx := context.Background()
			require.NoError(t, h.controller.Tick(ctx))

			if tt.message != nil {
				messages <- *tt.message
			} else {
				close(messages)
			}

			h.waitForState(t, session.StateNeedsLogin)
			targets := h.navigator.Targets()
			require.Len(t, targets, 1)
			assert.Contains(t, targets[0], "state=login.attempt-2")
			assert.True(t, h.creds.Flag(ctx, store.KeySessionExpired))
			assert.Nil(t, h.creds.LoadBundle(ctx))
			assert.False(t, h.controller.Frame().Visible)
		})
	}
}

func TestController_RenewalOpenFailureFallsBack(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.seedBundle(t, store.Bundle{AccessToken: "old", ExpiresIn: 600, CreatedAt: testNow.Add(-550 * time.Second).UnixMilli()})
	h.start(t)

	h.channel.EXPECT().Open(gomock.Any(), gomock.Any()).Return(nil, renewal.ErrEmptyURL).Times(1)

	require.NoError(t, h.controller.Tick(context.Background()))
	assert.Equal(t, session.StateNeedsLogin, h.controller.State())
	assert.Len(t, h.navigator.Targets(), 1)
}

func TestController_RefreshTokenRenewal(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{UseRefreshToken: true})
	h.seedBundle(t, store.Bundle{AccessToken: "old", RefreshToken: "refresh-1", ExpiresIn: 600, CreatedAt: testNow.Add(-550 * time.Second).UnixMilli()})
	h.start(t)

	renewed := validBundle("renewed")
	renewed.RefreshToken = "refresh-2"
	h.exchanger.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(renewed, nil).Times(1)

	require.NoError(t, h.controller.Tick(context.Background()))
	require.Eventually(t, func() bool {
		bundle := h.controller.Auth()
		return bundle != nil && bundle.AccessToken == "renewed"
	}, time.Second, time.Millisecond)
	assert.Equal(t, session.StateAuthenticated, h.controller.State())
	assert.Equal(t, "refresh-2", h.creds.LoadBundle(context.Background()).RefreshToken)
}

func TestController_TickKeepsFreshSession(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.seedBundle(t, validBundle("stored"))
	h.start(t)

	require.NoError(t, h.controller.Tick(context.Background()))
	assert.Equal(t, session.StateAuthenticated, h.controller.State())
	assert.Empty(t, h.navigator.Targets())
}

func TestController_ExpireSession(t *testing.T) {
	h := newHarness(t, nil, "/reports/7?view=full", session.Options{})
	h.seedBundle(t, validBundle("stored"))
	h.start(t)
	ctx := context.Background()

	require.NoError(t, h.controller.ExpireSession(ctx))

	assert.Equal(t, session.StateNeedsLogin, h.controller.State())
	assert.True(t, h.creds.Flag(ctx, store.KeySessionExpired))
	assert.Nil(t, h.creds.LoadBundle(ctx))
	lastPath, _ := h.creds.Load(ctx, store.KeyLastPath)
	assert.Equal(t, "/reports/7", lastPath)
	targets := h.navigator.Targets()
	require.Len(t, targets, 1)
	assert.True(t, strings.HasPrefix(targets[0], "https://idp.example.com/authorize"))
}

func TestController_ExpireSessionKeepsErrorState(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.start(t)
	ctx := context.Background()

	h.exchanger.EXPECT().Exchange(gomock.Any(), "code-1", gomock.Any()).
		Return(store.Bundle{}, &auth.TokenExchangeError{StatusCode: 400, ErrorCode: "invalid_grant"})
	require.Error(t, h.controller.HandleCallback(ctx, "code-1"))
	require.Equal(t, session.StateError, h.controller.State())
	targets := h.navigator.Targets()

	require.NoError(t, h.controller.ExpireSession(ctx))

	assert.Equal(t, session.StateError, h.controller.State())
	assert.Equal(t, targets, h.navigator.Targets())
	assert.False(t, h.creds.Flag(ctx, store.KeySessionExpired))
}

func TestController_ResetsStateGauge(t *testing.T) {
	metrics.SessionState.WithLabelValues(session.StateAuthenticated.String()).Set(1)

	newHarness(t, nil, "/", session.Options{})

	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.SessionState.WithLabelValues(session.StateIdle.String())))
	for _, state := range session.AllStates[1:] {
		assert.Zero(t, promtestutil.ToFloat64(metrics.SessionState.WithLabelValues(state.String())), state.String())
	}
}

func TestController_RunLifecycle(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.controller.Run(ctx) }()

	require.Eventually(t, func() bool { return h.controller.State() == session.StateNeedsLogin }, time.Second, time.Millisecond)
	assert.ErrorIs(t, h.controller.Run(ctx), session.ErrAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}

	assert.ErrorIs(t, h.controller.Login(context.Background()), session.ErrNotRunning)
}

func TestController_Resume(t *testing.T) {
	h := newHarness(t, nil, "/", session.Options{})
	h.seedBundle(t, validBundle("stored"))
	ctx := context.Background()
	require.NoError(t, h.creds.Save(ctx, store.KeyLastPath, "/reports/9"))
	h.start(t)

	require.NoError(t, h.controller.Resume(ctx))
	assert.Equal(t, []string{"/reports/9"}, h.navigator.Targets())

	require.NoError(t, h.controller.Resume(ctx))
	assert.Equal(t, []string{"/reports/9", "/"}, h.navigator.Targets(), "the return path is consumed once")
}
