// Package orchestrator drives a popup login attempt from URL minting to
// a single terminal outcome. Three signal sources race once the popup
// is open: the callback page's posted message, a closed-window poll,
// and a focus-regain fallback that re-checks server status. Whichever
// resolves first wins; the rest are torn down together.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driving"
)

// State is the orchestrator's position in the login flow
type State string

const (
	StateIdle         State = "idle"
	StateInitiating   State = "initiating"
	StatePopupOpening State = "popup_opening"
	StateArmed        State = "armed"
	StateResolved     State = "resolved"
)

// Outcome is the terminal result of a login attempt
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the single terminal resolution of a login attempt. Err is
// set for OutcomeError and for a cancelled context.
type Result struct {
	Outcome Outcome
	Err     error
}

var (
	// ErrLoginInFlight means a login attempt is already pending
	ErrLoginInFlight = errors.New("a login attempt is already in progress")

	// ErrNoCredentials means no org credentials are configured
	ErrNoCredentials = errors.New("no org credentials configured")

	// ErrPopupBlocked means the host environment suppressed the login window
	ErrPopupBlocked = errors.New("login window was blocked, allow popups for this site")

	// ErrPopupClosed means the login window closed without completing
	ErrPopupClosed = errors.New("login window was closed")
)

// Popup window geometry
const (
	popupWidth  = 600
	popupHeight = 700
)

const (
	defaultPollInterval     = 300 * time.Millisecond
	defaultGracePeriod      = 500 * time.Millisecond
	defaultFocusSettleDelay = 250 * time.Millisecond
	statusCheckTimeout      = 5 * time.Second
)

// Config holds the orchestrator's collaborators and tunables
type Config struct {
	Credentials CredentialSource
	API         LoginStarter
	Launcher    PopupLauncher
	Signals     Signals
	Status      StatusChecker
	Logger      *slog.Logger

	// PollInterval is how often the closed-window poll fires
	PollInterval time.Duration

	// GracePeriod is how long after the window closes a late success
	// message may still win before the attempt is cancelled.
	GracePeriod time.Duration

	// FocusSettleDelay is how long to wait after a focus regain before
	// re-checking server status, giving an in-flight message time to land.
	FocusSettleDelay time.Duration
}

// Orchestrator runs login attempts. One attempt at a time; a second
// Login while one is pending is a no-op.
type Orchestrator struct {
	credentials CredentialSource
	api         LoginStarter
	launcher    PopupLauncher
	signals     Signals
	status      StatusChecker
	logger      *slog.Logger

	pollInterval     time.Duration
	gracePeriod      time.Duration
	focusSettleDelay time.Duration

	mu        sync.Mutex
	state     State
	loggingIn bool
}

// New creates an Orchestrator from the config, applying defaults for
// unset tunables.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	if cfg.FocusSettleDelay <= 0 {
		cfg.FocusSettleDelay = defaultFocusSettleDelay
	}

	return &Orchestrator{
		credentials:      cfg.Credentials,
		api:              cfg.API,
		launcher:         cfg.Launcher,
		signals:          cfg.Signals,
		status:           cfg.Status,
		logger:           cfg.Logger,
		pollInterval:     cfg.PollInterval,
		gracePeriod:      cfg.GracePeriod,
		focusSettleDelay: cfg.FocusSettleDelay,
		state:            StateIdle,
	}
}

// State returns the current flow state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsLoggingIn reports whether an attempt is pending
func (o *Orchestrator) IsLoggingIn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loggingIn
}

// Login runs one full login attempt and blocks until it resolves.
// Returns ErrLoginInFlight without side effects when an attempt is
// already pending. Every started attempt yields exactly one Result.
func (o *Orchestrator) Login(ctx context.Context, env domain.Environment) (*Result, error) {
	o.mu.Lock()
	if o.loggingIn {
		o.mu.Unlock()
		return nil, ErrLoginInFlight
	}
	o.loggingIn = true
	o.state = StateInitiating
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.loggingIn = false
		o.mu.Unlock()
	}()

	creds := o.credentials.Get()
	if creds == nil {
		return o.finish(Result{Outcome: OutcomeError, Err: ErrNoCredentials}), nil
	}
	if !env.IsValid() {
		env = creds.Environment
	}

	resp, err := o.api.BeginLogin(ctx, driving.BeginLoginRequest{
		ClientID:    creds.ClientID,
		RedirectURI: creds.RedirectURI,
		Environment: env,
		Popup:       true,
	})
	if err != nil {
		return o.finish(Result{Outcome: OutcomeError, Err: err}), nil
	}

	o.setState(StatePopupOpening)
	popup, err := o.launcher.Open(resp.AuthURL, popupWidth, popupHeight)
	if err != nil || popup == nil {
		return o.finish(Result{Outcome: OutcomeError, Err: ErrPopupBlocked}), nil
	}

	o.setState(StateArmed)
	o.logger.Debug("login attempt armed", "environment", string(env))

	return o.finish(o.await(ctx, popup)), nil
}

// await blocks until one of the signal sources resolves the attempt.
// The resolved channel holds one slot; the first writer wins and later
// resolutions are dropped.
func (o *Orchestrator) await(ctx context.Context, popup Popup) Result {
	armCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resolved := make(chan Result, 1)
	resolve := func(r Result) {
		select {
		case resolved <- r:
		default:
		}
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go o.watchMessages(armCtx, &wg, resolve)
	go o.watchClosed(armCtx, &wg, popup, resolve)
	go o.watchFocus(armCtx, &wg, resolve)

	var result Result
	select {
	case result = <-resolved:
	case <-ctx.Done():
		result = Result{Outcome: OutcomeCancelled, Err: ctx.Err()}
	}

	// Tear everything down together, then make sure the window is gone.
	cancel()
	wg.Wait()
	popup.Close()

	o.logger.Debug("login attempt resolved", "outcome", string(result.Outcome))
	return result
}

// watchMessages resolves on the first auth message from the callback
// page. Messages are authoritative: they come straight from the popup.
func (o *Orchestrator) watchMessages(ctx context.Context, wg *sync.WaitGroup, resolve func(Result)) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-o.signals.Messages():
			if !ok {
				return
			}
			switch msg.Type {
			case MessageTypeSuccess:
				resolve(Result{Outcome: OutcomeSuccess})
				return
			case MessageTypeError:
				resolve(Result{Outcome: OutcomeError, Err: fmt.Errorf("login failed: %s", msg.Error)})
				return
			}
			// Unrelated message, keep listening.
		}
	}
}

// watchClosed polls for the window disappearing. A grace period follows
// so a success message that raced the close can still win.
func (o *Orchestrator) watchClosed(ctx context.Context, wg *sync.WaitGroup, popup Popup, resolve func(Result)) {
	defer wg.Done()
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !popup.Closed() {
				continue
			}
			select {
			case <-ctx.Done():
			case <-time.After(o.gracePeriod):
				resolve(Result{Outcome: OutcomeCancelled, Err: ErrPopupClosed})
			}
			return
		}
	}
}

// watchFocus rescues logins that completed without a message landing:
// when this window regains focus, wait for any in-flight message to
// settle, then ask the server whether the browser is now logged in.
func (o *Orchestrator) watchFocus(ctx context.Context, wg *sync.WaitGroup, resolve func(Result)) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-o.signals.Focus():
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.focusSettleDelay):
			}

			statusCtx, cancel := context.WithTimeout(ctx, statusCheckTimeout)
			status, err := o.status.Status(statusCtx)
			cancel()
			if err != nil {
				o.logger.Debug("focus status check failed", "error", err)
				continue
			}
			if status.Authenticated {
				resolve(Result{Outcome: OutcomeSuccess})
				return
			}
		}
	}
}

func (o *Orchestrator) finish(r Result) *Result {
	o.setState(StateResolved)
	return &r
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
