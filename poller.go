package session

import (
	"context"
	"sync"
	"time"
)

// PollState is the lifecycle of one verification wait loop.
type PollState string

const (
	// PollIdle means the loop has not started
	PollIdle PollState = "idle"
	// PollActive means the interval timer is live
	PollActive PollState = "polling"
	// PollVerified is terminal: the provider confirmed the email
	PollVerified PollState = "verified"
	// PollAbandoned is terminal: the owning view tore the loop down
	PollAbandoned PollState = "abandoned"
)

// PollSnapshot is a point-in-time view of the loop for display purposes.
type PollSnapshot struct {
	State         PollState
	Email         string
	LastCheckedAt time.Time
	Err           error
}

// DefaultPollInterval is how often the loop re-queries the provider
var DefaultPollInterval = time.Second * 5

// DefaultVerifiedDelay is the user-visible pause between the verified
// transition and the redirect, long enough to show a success state.
var DefaultVerifiedDelay = time.Second * 3

// VerificationPoller re-queries the identity provider on a fixed interval
// until a pending signup reaches "verified", then terminates and fires
// the verified callback after a short delay. There is no push channel
// for this transition, polling substitutes for it.
//
// At most one interval timer is live per poller; Start while already
// polling is a no-op. Stop cancels the timer deterministically; a late
// provider response after Stop is discarded.
type VerificationPoller struct {
	store    *Store
	provider IdentityProvider
	email    string

	interval      time.Duration
	verifiedDelay time.Duration
	clock         func() time.Time
	logger        Logger
	onVerified    func()
	onCheck       func(PollSnapshot)

	mu            sync.Mutex
	state         PollState
	lastChecked   time.Time
	lastErr       error
	generation    int
	cancel        context.CancelFunc
	verifiedTimer *time.Timer
}

// PollerOption customizes poller construction.
type PollerOption func(*VerificationPoller)

// WithPollInterval overrides the interval cadence.
func WithPollInterval(interval time.Duration) PollerOption {
	return func(p *VerificationPoller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithVerifiedDelay overrides the pause before the verified callback.
func WithVerifiedDelay(delay time.Duration) PollerOption {
	return func(p *VerificationPoller) {
		if delay >= 0 {
			p.verifiedDelay = delay
		}
	}
}

// WithPollClock injects a custom clock (useful for tests).
func WithPollClock(clock func() time.Time) PollerOption {
	return func(p *VerificationPoller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPollLogger overrides the logger
func WithPollLogger(logger Logger) PollerOption {
	return func(p *VerificationPoller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOnVerified sets the callback fired once, after the verified delay.
// The redirect to sign in belongs here, at the view boundary.
func WithOnVerified(fn func()) PollerOption {
	return func(p *VerificationPoller) {
		p.onVerified = fn
	}
}

// WithOnCheck sets an observer invoked with a snapshot after every check.
func WithOnCheck(fn func(PollSnapshot)) PollerOption {
	return func(p *VerificationPoller) {
		p.onCheck = fn
	}
}

// NewVerificationPoller returns an idle poller for the given email. The
// provider is only used for the resend action; checks go through the
// Store so the rest of the app observes the refreshed session.
func NewVerificationPoller(store *Store, provider IdentityProvider, email string, opts ...PollerOption) *VerificationPoller {
	p := &VerificationPoller{
		store:         store,
		provider:      provider,
		email:         email,
		interval:      DefaultPollInterval,
		verifiedDelay: DefaultVerifiedDelay,
		clock:         time.Now,
		logger:        defLogger{},
		state:         PollIdle,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// State returns the current lifecycle state.
func (p *VerificationPoller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a point-in-time view for display.
func (p *VerificationPoller) Snapshot() PollSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PollSnapshot{
		State:         p.state,
		Email:         p.email,
		LastCheckedAt: p.lastChecked,
		Err:           p.lastErr,
	}
}

// Start enters the polling state and launches the interval loop. Calling
// Start while already polling is a no-op; a terminal poller stays
// terminal.
func (p *VerificationPoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.state == PollActive || p.state == PollVerified {
		p.mu.Unlock()
		return
	}
	if p.state == PollAbandoned {
		p.mu.Unlock()
		return
	}

	p.state = PollActive
	p.generation++
	gen := p.generation

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	interval := p.interval
	p.mu.Unlock()

	go p.loop(loopCtx, gen, interval)
}

// Stop tears the loop down: the interval timer is cancelled, no further
// provider calls are made, and a pending verified redirect is dropped.
func (p *VerificationPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	if p.verifiedTimer != nil {
		p.verifiedTimer.Stop()
		p.verifiedTimer = nil
	}

	if p.state == PollActive || p.state == PollIdle {
		p.state = PollAbandoned
	}
}

// CheckNow performs one immediate refresh outside the interval cadence.
// It updates the last-checked timestamp but leaves the interval's own
// schedule untouched.
func (p *VerificationPoller) CheckNow(ctx context.Context) {
	p.mu.Lock()
	if p.state != PollActive {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	p.mu.Unlock()

	p.check(ctx, gen)
}

// Resend asks the provider to send the verification email again. Failure
// is recorded for display and must not alter polling state.
func (p *VerificationPoller) Resend(ctx context.Context) error {
	if err := p.provider.ResendVerification(ctx, p.email); err != nil {
		p.logger.Error("resend verification failed: %v", err)

		p.mu.Lock()
		p.lastErr = WrapProviderError(err, "could not resend verification email")
		err = p.lastErr
		p.mu.Unlock()

		p.observe()
		return err
	}

	p.mu.Lock()
	p.lastErr = nil
	p.mu.Unlock()

	p.observe()
	return nil
}

func (p *VerificationPoller) loop(ctx context.Context, gen int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := p.check(ctx, gen); done {
				return
			}
		}
	}
}

// check runs one refresh and applies the result, unless the poller moved
// on (teardown, restart) while the provider was answering. Returns true
// once the loop should exit.
func (p *VerificationPoller) check(ctx context.Context, gen int) bool {
	sess, err := p.store.Refresh(ctx)
	now := p.clock()

	p.mu.Lock()
	if gen != p.generation || p.state != PollActive {
		// stale response, the owning view is gone or the loop restarted
		p.mu.Unlock()
		return true
	}

	p.lastChecked = now

	if err != nil {
		// stay polling, the next interval retries
		p.lastErr = err
		p.mu.Unlock()
		p.logger.Warn("verification check failed, will retry: %v", err)
		p.observe()
		return false
	}

	p.lastErr = nil

	if !sess.Verified() {
		p.mu.Unlock()
		p.observe()
		return false
	}

	p.state = PollVerified
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	if p.onVerified != nil {
		p.verifiedTimer = time.AfterFunc(p.verifiedDelay, p.onVerified)
	}
	p.mu.Unlock()

	p.logger.Info("email verified for %s", p.email)
	p.observe()
	return true
}

func (p *VerificationPoller) observe() {
	if p.onCheck != nil {
		p.onCheck(p.Snapshot())
	}
}
