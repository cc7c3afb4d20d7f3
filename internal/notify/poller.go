package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/abroad/client/internal/api"
)

// PollObserver receives poll cycle outcomes.
type PollObserver interface {
	PollCompleted(unread int)
	PollFailed()
}

// Poller refreshes a Store on a fixed interval while a session is
// active. A Poller is single-use: create one per login, stop it on
// logout. Overlapping fetches are tolerated since each is an idempotent
// full replace.
type Poller struct {
	store    *Store
	interval time.Duration
	log      *zap.Logger
	observer PollObserver

	// OnAuthFailure, when set, is invoked once if a poll cycle fails
	// with an authentication error: the session is gone and the owner
	// should stop the poller and clear local state.
	OnAuthFailure func()

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
	authOnce  sync.Once
}

// NewPoller creates a poller for the given store. Interval values below
// one second are raised to the default of 30s.
func NewPoller(store *Store, interval time.Duration, log *zap.Logger) *Poller {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		store:    store,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetObserver attaches a poll observer. Must be called before Start.
func (p *Poller) SetObserver(o PollObserver) {
	p.observer = o
}

// Start launches the polling goroutine. The first fetch happens
// immediately; subsequent fetches follow the interval. Calling Start
// more than once has no effect.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

// Stop halts polling and waits for the loop to exit. Safe to call more
// than once and from any goroutine.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.done
}

// Done is closed when the polling loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	err := p.store.Fetch(ctx)
	if err == nil {
		if p.observer != nil {
			p.observer.PollCompleted(p.store.UnreadCount())
		}
		return
	}

	if p.observer != nil {
		p.observer.PollFailed()
	}
	if api.IsAuthError(err) && p.OnAuthFailure != nil {
		p.authOnce.Do(p.OnAuthFailure)
	}
}
