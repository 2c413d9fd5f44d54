package session

import (
	"authsession/internal/auth"
	"authsession/internal/metrics"
	"authsession/internal/pkce"
	"authsession/internal/renewal"
	"authsession/internal/store"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultExchangeTimeout = 15 * time.Second
	eventBuffer            = 16
)

type Options struct {
	RefreshThreshold time.Duration
	// DefaultPath is where the user lands when no return path is stored.
	DefaultPath     string
	ExchangeTimeout time.Duration
	UseRefreshToken bool
	// ExcludedReturnPaths are never used as a return path, e.g. the callback route.
	ExcludedReturnPaths []string
}

// FrameStatus tells the embedding UI whether to mount the hidden renewal frame.
type FrameStatus struct {
	Visible bool   `json:"visible"`
	URL     string `json:"url,omitempty"`
}

// Snapshot is a consistent copy of the controller state for readers outside
// the event loop.
type Snapshot struct {
	State      State
	Auth       *store.Bundle
	Frame      FrameStatus
	FirstLogin bool
	AttemptID  string
	Error      string
}

type attemptKind int

const (
	attemptInteractive attemptKind = iota
	attemptSilent
	attemptRefresh
)

func (k attemptKind) String() string {
	switch k {
	case attemptSilent:
		return metrics.ExchangeKindSilent
	case attemptRefresh:
		return metrics.ExchangeKindRefresh
	default:
		return metrics.ExchangeKindInteractive
	}
}

// attempt is one authentication round trip. Only the current attempt may
// change the session when its async work completes.
type attempt struct {
	id   string
	kind attemptKind
	code string
	// authURL is handed out again if the user abandons the interactive launch.
	authURL string
	cancel  context.CancelFunc
	waiters []chan error
}

func (a *attempt) respond(err error) {
	for _, waiter := range a.waiters {
		waiter <- err
	}
	a.waiters = nil
}

func (a *attempt) stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Controller is the session state machine. Every transition is applied by the
// single goroutine running Run; the exported methods post events to it and
// wait for the outcome.
type Controller struct {
	credentials *store.CredentialStore
	launcher    Launcher
	exchanger   Exchanger
	navigator   Navigator
	channel     RenewalChannel
	redirects   *RedirectPreserver
	opts        Options
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string

	events  chan event
	done    chan struct{}
	started atomic.Bool

	// owned by the event loop
	state      State
	auth       *store.Bundle
	attempt    *attempt
	frame      FrameStatus
	firstLogin bool
	lastErr    error

	snapshot atomic.Pointer[Snapshot]
}

func NewController(
	credentials *store.CredentialStore,
	launcher Launcher,
	exchanger Exchanger,
	navigator Navigator,
	channel RenewalChannel,
	opts Options,
	logger *slog.Logger,
) *Controller {
	if opts.DefaultPath == "" {
		opts.DefaultPath = "/"
	}
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = defaultExchangeTimeout
	}

	logger = logger.With("component", "session_controller")

	c := &Controller{
		credentials: credentials,
		launcher:    launcher,
		exchanger:   exchanger,
		navigator:   navigator,
		channel:     channel,
		redirects:   NewRedirectPreserver(credentials, navigator, logger, opts.ExcludedReturnPaths...),
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		events:      make(chan event, eventBuffer),
		done:        make(chan struct{}),
		state:       StateIdle,
	}
	resetStateGauge(c.state)
	c.publish()

	return c
}

// WithClock replaces the clock used for expiry decisions.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// WithIDGenerator replaces the attempt id source.
func (c *Controller) WithIDGenerator(newID func() string) *Controller {
	c.newID = newID
	return c
}

func (c *Controller) Name() string {
	return "session_controller"
}

func (c *Controller) Interval() time.Duration {
	return 0
}

// Run mounts the session and applies events until ctx is cancelled. On return
// the renewal channel is closed and pending callers fail with context.Canceled.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)
	defer c.teardown()

	c.apply(ctx, mounted{request: newRequest()})

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("session controller stopping")
			return ctx.Err()
		case ev := <-c.events:
			c.apply(ctx, ev)
		}
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) Login(ctx context.Context) error {
	return c.submit(ctx, loginRequested{request: newRequest()})
}

func (c *Controller) Logout(ctx context.Context) error {
	return c.submit(ctx, logoutRequested{request: newRequest()})
}

// HandleCallback exchanges an authorization code delivered to the callback
// route. A code that is already being exchanged waits for that exchange, and a
// code that was already processed is ignored.
func (c *Controller) HandleCallback(ctx context.Context, code string) error {
	return c.submit(ctx, codeReceived{request: newRequest(), code: code})
}

// CheckLogin re-evaluates the session, recording the current route as the
// return path first when preserveRoute is set.
func (c *Controller) CheckLogin(ctx context.Context, preserveRoute bool) error {
	return c.submit(ctx, checkRequested{request: newRequest(), preserveRoute: preserveRoute})
}

// Retry clears all persisted session data and starts an interactive login.
func (c *Controller) Retry(ctx context.Context) error {
	return c.submit(ctx, retryRequested{request: newRequest()})
}

// ExpireSession marks the session expired, e.g. after the API rejected the
// access token, and starts an interactive login unless the user logged out.
func (c *Controller) ExpireSession(ctx context.Context) error {
	return c.submit(ctx, expireRequested{request: newRequest()})
}

// Tick evaluates the stored credentials against the refresh threshold.
func (c *Controller) Tick(ctx context.Context) error {
	return c.submit(ctx, timerTick{request: newRequest()})
}

// Resume navigates an authenticated session to its stored return path, or to
// the default path when none is stored.
func (c *Controller) Resume(ctx context.Context) error {
	return c.submit(ctx, resumeRequested{request: newRequest()})
}

func (c *Controller) Snapshot() Snapshot {
	snap := *c.snapshot.Load()
	if snap.Auth != nil {
		bundle := *snap.Auth
		snap.Auth = &bundle
	}
	return snap
}

func (c *Controller) State() State {
	return c.snapshot.Load().State
}

// Auth returns a copy of the current credentials, or nil.
func (c *Controller) Auth() *store.Bundle {
	return c.Snapshot().Auth
}

func (c *Controller) Frame() FrameStatus {
	return c.snapshot.Load().Frame
}

func (c *Controller) submit(ctx context.Context, ev event) error {
	select {
	case <-c.done:
		return ErrNotRunning
	default:
	}

	select {
	case c.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}

	reply := ev.replyTo()
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrNotRunning
		}
	}
}

// post hands a completion from background work to the loop.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) apply(ctx context.Context, ev event) {
	var (
		err      error
		deferred bool
	)

	switch e := ev.(type) {
	case mounted:
		err = c.onMounted(ctx)
	case loginRequested:
		err = c.onLogin(ctx)
	case logoutRequested:
		err = c.onLogout(ctx)
	case checkRequested:
		err = c.onCheck(ctx, e.preserveRoute)
	case codeReceived:
		deferred, err = c.onCode(ctx, e)
	case timerTick:
		err = c.onTick(ctx)
	case resumeRequested:
		c.onResume(ctx)
	case retryRequested:
		err = c.onRetry(ctx)
	case expireRequested:
		err = c.onExpire(ctx)
	case renewalMessage:
		c.onRenewalMessage(ctx, e)
	case exchangeCompleted:
		c.onExchangeCompleted(ctx, e)
	}

	if err != nil {
		c.logger.Debug("event returned error", "event", eventName(ev), "error", err)
	}

	c.publish()

	if reply := ev.replyTo(); reply != nil && !deferred {
		reply <- err
	}
}

func (c *Controller) onMounted(ctx context.Context) error {
	if c.state != StateIdle {
		c.logger.Debug("ignoring duplicate mount", "state", c.state)
		return nil
	}
	c.transition(StateChecking)

	bundle := c.credentials.LoadBundle(ctx)
	sessionExpired := c.credentials.Flag(ctx, store.KeySessionExpired)
	manualLogout := c.credentials.Flag(ctx, store.KeyManualLogout)

	if bundle != nil && !bundle.Expired(c.now()) && !sessionExpired && !manualLogout {
		c.auth = bundle
		c.firstLogin = c.credentials.Flag(ctx, store.KeyFirstLogin)
		c.transition(StateAuthenticated)
		c.logger.Info("restored session from store", "expires_at", bundle.ExpiresAt())
		return nil
	}

	if bundle != nil {
		c.logger.Info("discarding stored credentials", "expired", bundle.Expired(c.now()), "session_expired", sessionExpired, "manual_logout", manualLogout)
		if err := c.credentials.ClearBundle(ctx); err != nil {
			c.logger.Error("failed to clear stored credentials", "error", err)
		}
	}
	c.auth = nil

	if _, ok := c.credentials.Load(ctx, store.KeyFirstLogin); !ok {
		if err := c.credentials.SetFlag(ctx, store.KeyFirstLogin); err != nil {
			c.logger.Error("failed to set first login flag", "error", err)
		}
	}
	c.firstLogin = c.credentials.Flag(ctx, store.KeyFirstLogin)

	if code := codeFromPath(c.navigator.CurrentPath()); code != "" {
		if last, _ := c.credentials.Load(ctx, store.KeyLastCode); last != code {
			_, err := c.startCodeExchange(ctx, code, attemptInteractive, nil)
			return err
		}
		metrics.DuplicateCodes.Inc()
		c.logger.Debug("authorization code in current route was already processed")
	}

	if manualLogout {
		c.transition(StateLoggedOut)
		return nil
	}

	return c.beginInteractiveLogin(ctx)
}

func (c *Controller) onLogin(ctx context.Context) error {
	if err := c.credentials.Clear(ctx, store.KeyManualLogout); err != nil {
		c.logger.Error("failed to clear manual logout flag", "error", err)
	}

	if c.auth != nil && !c.auth.Expired(c.now()) {
		c.logger.Debug("login requested while authenticated")
		return nil
	}

	c.lastErr = nil
	return c.beginInteractiveLogin(ctx)
}

func (c *Controller) onLogout(ctx context.Context) error {
	c.cancelAttempt(ErrLoggedOut)
	c.channel.Close()
	c.frame = FrameStatus{}

	var errs []error
	for _, key := range []store.Key{store.KeyAuth, store.KeyPKCEVerifier, store.KeyLastPath} {
		if err := c.credentials.Clear(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.credentials.SetFlag(ctx, store.KeyManualLogout); err != nil {
		errs = append(errs, err)
	}

	c.auth = nil
	c.lastErr = nil
	c.transition(StateLoggedOut)
	c.logger.Info("session logged out")

	return errors.Join(errs...)
}

func (c *Controller) onCheck(ctx context.Context, preserveRoute bool) error {
	if preserveRoute && c.attempt == nil {
		if err := c.redirects.RecordCurrentPath(ctx); err != nil {
			c.logger.Warn("failed to record return path", "error", err)
		}
	}

	switch {
	case c.attempt != nil:
		if c.attempt.kind == attemptInteractive {
			c.relaunch(c.attempt)
		}
		return nil
	case c.state == StateError:
		return nil
	case c.auth != nil && !c.auth.Expired(c.now()) && !c.credentials.Flag(ctx, store.KeySessionExpired):
		c.transition(StateAuthenticated)
		return nil
	case c.credentials.Flag(ctx, store.KeyManualLogout):
		c.transition(StateLoggedOut)
		return nil
	}

	if c.auth != nil {
		if err := c.credentials.ClearBundle(ctx); err != nil {
			c.logger.Error("failed to clear stored credentials", "error", err)
		}
		c.auth = nil
	}

	return c.beginInteractiveLogin(ctx)
}

func (c *Controller) onCode(ctx context.Context, e codeReceived) (bool, error) {
	if e.code == "" {
		return false, &auth.CallbackWithoutCodeError{}
	}

	if a := c.attempt; a != nil && a.code == e.code {
		metrics.DuplicateCodes.Inc()
		c.logger.Debug("authorization code already being exchanged", "attempt", a.id)
		a.waiters = append(a.waiters, e.reply)
		return true, nil
	}

	if last, _ := c.credentials.Load(ctx, store.KeyLastCode); last == e.code {
		metrics.DuplicateCodes.Inc()
		c.logger.Info("ignoring already processed authorization code")
		if c.state == StateError {
			return false, c.lastErr
		}
		return false, nil
	}

	if a := c.attempt; a != nil && a.code != "" {
		return false, ErrExchangeInFlight
	}

	return c.startCodeExchange(ctx, e.code, attemptInteractive, e.reply)
}

func (c *Controller) onTick(ctx context.Context) error {
	if c.state != StateAuthenticated || c.attempt != nil {
		return nil
	}
	if c.credentials.Flag(ctx, store.KeyManualLogout) {
		return nil
	}

	bundle := c.credentials.LoadBundle(ctx)
	decision := Evaluate(bundle, c.now(), c.opts.RefreshThreshold)

	switch decision {
	case DecisionFresh:
		c.auth = bundle
		return nil
	case DecisionLogin:
		c.logger.Info("stored credentials are gone, starting interactive login")
		c.auth = nil
		return c.beginInteractiveLogin(ctx)
	default:
		c.auth = bundle
		c.logger.Debug("credentials close to expiry", "remaining", bundle.Remaining(c.now()), "threshold", c.opts.RefreshThreshold)
		return c.startRenewal(ctx, bundle)
	}
}

func (c *Controller) onResume(ctx context.Context) {
	if c.state != StateAuthenticated {
		return
	}

	target := c.redirects.ConsumeReturnPath(ctx, c.opts.DefaultPath)
	if target != pathOnly(c.navigator.CurrentPath()) {
		c.navigator.NavigateTo(target)
	}
}

func (c *Controller) onRetry(ctx context.Context) error {
	c.cancelAttempt(ErrAttemptDiscarded)
	c.channel.Close()
	c.frame = FrameStatus{}

	if err := c.credentials.ClearAll(ctx); err != nil {
		c.logger.Error("failed to clear session data", "error", err)
	}
	if err := c.credentials.SetFlag(ctx, store.KeyFirstLogin); err != nil {
		c.logger.Error("failed to set first login flag", "error", err)
	}

	c.auth = nil
	c.lastErr = nil
	c.firstLogin = true
	c.transition(StateNeedsLogin)
	c.logger.Info("session data cleared, retrying login")

	return c.beginInteractiveLogin(ctx)
}

func (c *Controller) onExpire(ctx context.Context) error {
	// Error is left only through Retry.
	if c.state == StateError {
		c.logger.Debug("ignoring session expiry in error state")
		return nil
	}

	if err := c.credentials.SetFlag(ctx, store.KeySessionExpired); err != nil {
		c.logger.Error("failed to set session expired flag", "error", err)
	}
	if err := c.credentials.ClearBundle(ctx); err != nil {
		c.logger.Error("failed to clear stored credentials", "error", err)
	}
	c.auth = nil

	if c.credentials.Flag(ctx, store.KeyManualLogout) {
		c.transition(StateLoggedOut)
		return nil
	}
	if c.attempt != nil {
		return nil
	}

	c.logger.Info("session expired, starting interactive login")
	return c.beginInteractiveLogin(ctx)
}

func (c *Controller) onRenewalMessage(ctx context.Context, e renewalMessage) {
	a := c.attempt
	if a == nil || a.id != e.attemptID || a.kind != attemptSilent || a.code != "" {
		c.logger.Debug("discarding stale renewal message", "attempt", e.attemptID)
		return
	}
	c.frame = FrameStatus{}
	msg := e.message

	var cause error
	switch {
	case msg.Err != nil:
		outcome := metrics.OutcomeFailure
		var timeoutErr *renewal.RenewalTimeoutError
		if errors.As(msg.Err, &timeoutErr) {
			outcome = metrics.OutcomeTimeout
		}
		metrics.Renewals.WithLabelValues(outcome).Inc()
		cause = msg.Err
	case msg.Error != "":
		metrics.Renewals.WithLabelValues(metrics.OutcomeFailure).Inc()
		cause = &auth.AuthorizationError{Code: msg.Error, Description: msg.ErrorDescription}
	case msg.Code == "":
		metrics.Renewals.WithLabelValues(metrics.OutcomeFailure).Inc()
		cause = &auth.CallbackWithoutCodeError{State: msg.State}
	}

	if cause == nil {
		if last, _ := c.credentials.Load(ctx, store.KeyLastCode); last == msg.Code {
			metrics.DuplicateCodes.Inc()
			metrics.Renewals.WithLabelValues(metrics.OutcomeFailure).Inc()
			cause = errors.New("silent renewal returned an already processed code")
		}
	}

	if cause != nil {
		c.attempt = nil
		a.stop()
		if err := c.fallbackToInteractive(ctx, cause); err != nil {
			c.logger.Error("interactive fallback failed", "error", err)
		}
		return
	}

	metrics.Renewals.WithLabelValues(metrics.OutcomeSuccess).Inc()
	if _, err := c.startCodeExchange(ctx, msg.Code, attemptSilent, nil); err != nil {
		c.logger.Error("failed to start silent exchange", "error", err)
	}
}

func (c *Controller) onExchangeCompleted(ctx context.Context, e exchangeCompleted) {
	a := c.attempt
	if a == nil || a.id != e.attemptID {
		metrics.TokenExchanges.WithLabelValues(e.kind.String(), metrics.OutcomeDiscarded).Inc()
		c.logger.Debug("discarding result of stale exchange", "attempt", e.attemptID)
		return
	}
	c.attempt = nil
	a.stop()

	if c.credentials.Flag(ctx, store.KeyManualLogout) {
		metrics.TokenExchanges.WithLabelValues(a.kind.String(), metrics.OutcomeDiscarded).Inc()
		c.logger.Info("discarding exchange result after logout", "attempt", a.id)
		c.auth = nil
		c.transition(StateLoggedOut)
		a.respond(ErrAttemptDiscarded)
		return
	}

	if e.err != nil {
		metrics.TokenExchanges.WithLabelValues(a.kind.String(), metrics.OutcomeFailure).Inc()
		c.logger.Warn("token exchange failed", "attempt", a.id, "kind", a.kind, "error", e.err)
		if err := c.failAttempt(ctx, a.kind, e.err); err != nil && !errors.Is(err, e.err) {
			c.logger.Error("interactive fallback failed", "error", err)
		}
		a.respond(e.err)
		return
	}

	if err := c.credentials.SaveBundle(ctx, e.bundle); err != nil {
		metrics.TokenExchanges.WithLabelValues(a.kind.String(), metrics.OutcomeFailure).Inc()
		c.logger.Error("failed to persist credentials", "attempt", a.id, "error", err)
		_ = c.failAttempt(ctx, a.kind, err)
		a.respond(err)
		return
	}

	for _, key := range []store.Key{store.KeyPKCEVerifier, store.KeySessionExpired, store.KeyFirstLogin} {
		if err := c.credentials.Clear(ctx, key); err != nil {
			c.logger.Error("failed to clear session flag", "key", key, "error", err)
		}
	}

	metrics.TokenExchanges.WithLabelValues(a.kind.String(), metrics.OutcomeSuccess).Inc()

	bundle := e.bundle
	c.auth = &bundle
	c.firstLogin = false
	c.lastErr = nil
	c.transition(StateAuthenticated)
	c.logger.Info("session authenticated", "attempt", a.id, "kind", a.kind, "expires_in", bundle.ExpiresIn)

	if a.kind == attemptInteractive {
		target := c.redirects.ConsumeReturnPath(ctx, c.opts.DefaultPath)
		c.navigator.NavigateTo(target)
	}

	a.respond(nil)
}

// beginInteractiveLogin persists a fresh verifier, records the return path and
// navigates to the authorization endpoint. While an interactive attempt is in
// flight it only hands out that attempt's URL again.
func (c *Controller) beginInteractiveLogin(ctx context.Context) error {
	if a := c.attempt; a != nil {
		if a.kind == attemptInteractive {
			c.relaunch(a)
			return nil
		}
		c.cancelAttempt(ErrAttemptDiscarded)
	}

	pair, err := pkce.Generate()
	if err != nil {
		c.logger.Error("failed to generate pkce challenge", "error", err)
		c.lastErr = err
		c.transition(StateError)
		return err
	}

	if err := c.credentials.Save(ctx, store.KeyPKCEVerifier, pair.Verifier); err != nil {
		c.logger.Error("failed to persist pkce verifier", "error", err)
		c.lastErr = err
		c.transition(StateError)
		return err
	}

	if err := c.redirects.RecordCurrentPath(ctx); err != nil {
		c.logger.Warn("failed to record return path", "error", err)
	}

	a := c.newAttempt(attemptInteractive)
	authURL := c.launcher.AuthURL(auth.NewState(auth.StateKindLogin, a.id), pair.Challenge, false)
	a.authURL = authURL

	c.transition(StateNeedsLogin)
	metrics.LoginLaunches.Inc()
	c.logger.Info("starting interactive login", "attempt", a.id)

	c.navigator.NavigateTo(authURL)
	return nil
}

// relaunch navigates to the in-flight attempt's authorization URL once the
// previous navigation has been consumed. The attempt id and verifier are kept,
// so the eventual code still needs a single exchange.
func (c *Controller) relaunch(a *attempt) {
	if a.code != "" || a.authURL == "" || c.navigationQueued() {
		c.logger.Debug("interactive login already in flight", "attempt", a.id)
		return
	}

	c.logger.Info("resuming interactive login", "attempt", a.id)
	c.navigator.NavigateTo(a.authURL)
}

func (c *Controller) navigationQueued() bool {
	if p, ok := c.navigator.(PendingNavigator); ok {
		return p.HasPending()
	}
	return false
}

func (c *Controller) startRenewal(ctx context.Context, bundle *store.Bundle) error {
	if c.opts.UseRefreshToken && bundle.RefreshToken != "" {
		a := c.newAttempt(attemptRefresh)
		c.transition(StateAuthenticating)
		c.logger.Info("refreshing credentials", "attempt", a.id)

		refreshToken := bundle.RefreshToken
		c.runExchange(ctx, a, func(ctx context.Context) (store.Bundle, error) {
			return c.exchanger.Refresh(ctx, refreshToken)
		})
		return nil
	}

	pair, err := pkce.Generate()
	if err != nil {
		c.logger.Error("failed to generate pkce challenge", "error", err)
		c.lastErr = err
		c.transition(StateError)
		return err
	}

	if err := c.credentials.Save(ctx, store.KeyPKCEVerifier, pair.Verifier); err != nil {
		return c.fallbackToInteractive(ctx, err)
	}

	a := c.newAttempt(attemptSilent)
	state := auth.NewState(auth.StateKindFrame, a.id)
	authURL := c.launcher.AuthURL(state, pair.Challenge, true)

	messages, err := c.channel.Open(ctx, renewal.Request{URL: authURL, State: state})
	if err != nil {
		c.attempt = nil
		return c.fallbackToInteractive(ctx, err)
	}

	c.frame = FrameStatus{Visible: true, URL: authURL}
	c.transition(StateAuthenticating)
	c.logger.Info("starting silent renewal", "attempt", a.id)

	attemptID := a.id
	go func() {
		msg, ok := <-messages
		if !ok {
			msg = renewal.Message{State: state, Err: renewal.ErrClosed}
		}
		c.post(renewalMessage{attemptID: attemptID, message: msg})
	}()

	return nil
}

// startCodeExchange marks code as processed before calling the token endpoint
// so a repeated delivery can never cause a second exchange.
func (c *Controller) startCodeExchange(ctx context.Context, code string, kind attemptKind, reply chan error) (bool, error) {
	if err := c.credentials.Save(ctx, store.KeyLastCode, code); err != nil {
		c.logger.Error("failed to persist processed code marker", "error", err)
	}

	a := c.attempt
	if a == nil || a.kind != kind {
		c.cancelAttempt(ErrAttemptDiscarded)
		a = c.newAttempt(kind)
	}
	a.code = code

	verifier, ok := c.credentials.Load(ctx, store.KeyPKCEVerifier)
	if !ok {
		c.attempt = nil
		c.logger.Warn("authorization code received without a stored verifier", "attempt", a.id)
		return false, c.failAttempt(ctx, kind, ErrMissingVerifier)
	}

	c.transition(StateAuthenticating)
	if reply != nil {
		a.waiters = append(a.waiters, reply)
	}

	c.logger.Debug("exchanging authorization code", "attempt", a.id, "kind", kind)
	c.runExchange(ctx, a, func(ctx context.Context) (store.Bundle, error) {
		return c.exchanger.Exchange(ctx, code, verifier)
	})

	return reply != nil, nil
}

func (c *Controller) runExchange(ctx context.Context, a *attempt, call func(ctx context.Context) (store.Bundle, error)) {
	exchangeCtx, cancel := context.WithTimeout(ctx, c.opts.ExchangeTimeout)
	previous := a.cancel
	a.cancel = func() {
		cancel()
		if previous != nil {
			previous()
		}
	}

	attemptID, kind := a.id, a.kind
	go func() {
		defer cancel()

		start := time.Now()
		bundle, err := call(exchangeCtx)
		metrics.TokenExchangeDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())

		c.post(exchangeCompleted{attemptID: attemptID, kind: kind, bundle: bundle, err: err})
	}()
}

// failAttempt moves an interactive failure to Error. Silent and refresh
// failures get a single fallback to interactive login.
func (c *Controller) failAttempt(ctx context.Context, kind attemptKind, cause error) error {
	if kind == attemptInteractive {
		c.lastErr = cause
		c.transition(StateError)
		return cause
	}
	return c.fallbackToInteractive(ctx, cause)
}

func (c *Controller) fallbackToInteractive(ctx context.Context, cause error) error {
	c.logger.Warn("silent renewal failed, falling back to interactive login", "error", cause)
	c.frame = FrameStatus{}

	if err := c.credentials.SetFlag(ctx, store.KeySessionExpired); err != nil {
		c.logger.Error("failed to set session expired flag", "error", err)
	}
	if err := c.credentials.ClearBundle(ctx); err != nil {
		c.logger.Error("failed to clear stored credentials", "error", err)
	}
	c.auth = nil

	if c.credentials.Flag(ctx, store.KeyManualLogout) {
		c.transition(StateLoggedOut)
		return nil
	}

	c.transition(StateNeedsLogin)
	return c.beginInteractiveLogin(ctx)
}

func (c *Controller) newAttempt(kind attemptKind) *attempt {
	a := &attempt{id: c.newID(), kind: kind}
	c.attempt = a
	return a
}

func (c *Controller) cancelAttempt(reason error) {
	a := c.attempt
	if a == nil {
		return
	}
	c.attempt = nil
	a.stop()

	if a.kind == attemptSilent {
		c.channel.Close()
		c.frame = FrameStatus{}
	}

	c.logger.Debug("authentication attempt cancelled", "attempt", a.id, "reason", reason)
	a.respond(reason)
}

func (c *Controller) teardown() {
	c.cancelAttempt(context.Canceled)
	c.channel.Close()
	c.frame = FrameStatus{}
	c.publish()
}

func (c *Controller) transition(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to

	metrics.SessionTransitions.WithLabelValues(from.String(), to.String()).Inc()
	metrics.SessionState.WithLabelValues(from.String()).Set(0)
	metrics.SessionState.WithLabelValues(to.String()).Set(1)

	c.logger.Debug("session state changed", "from", from, "to", to)
}

// resetStateGauge leaves exactly one state series at 1.
func resetStateGauge(current State) {
	for _, state := range AllStates {
		metrics.SessionState.WithLabelValues(state.String()).Set(0)
	}
	metrics.SessionState.WithLabelValues(current.String()).Set(1)
}

func (c *Controller) publish() {
	snap := &Snapshot{
		State:      c.state,
		Frame:      c.frame,
		FirstLogin: c.firstLogin,
	}
	if c.auth != nil {
		bundle := *c.auth
		snap.Auth = &bundle
	}
	if c.attempt != nil {
		snap.AttemptID = c.attempt.id
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	c.snapshot.Store(snap)
}

func codeFromPath(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("code")
}
