package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"gopkg.in/tomb.v2"

	"dinepos/m/domain"
)

const DefaultPollInterval = 5 * time.Second

// Fetcher loads the tracking view for a token.
type Fetcher interface {
	Track(ctx context.Context, token string) (View, error)
}

type PollerOptions struct {
	Interval time.Duration
	Clock    *ServerClock
	OnUpdate func(View, *CountdownState)
	OnError  func(error)
}

// Poller refreshes a tracking view on a fixed interval while the page is
// visible. Once the order reaches a final status, or the token is rejected as
// unknown or malformed, the poller stops for good and Done is closed.
type Poller struct {
	fetch    Fetcher
	token    string
	interval time.Duration
	clock    *ServerClock
	onUpdate func(View, *CountdownState)
	onError  func(error)

	t    tomb.Tomb
	wake chan struct{}

	mu     sync.Mutex
	last   View
	hidden bool
}

func NewPoller(fetch Fetcher, token string, opts PollerOptions) *Poller {
	p := &Poller{
		fetch:    fetch,
		token:    token,
		interval: opts.Interval,
		clock:    opts.Clock,
		onUpdate: opts.OnUpdate,
		onError:  opts.OnError,
		wake:     make(chan struct{}, 1),
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.clock == nil {
		p.clock = NewServerClock(nil)
	}
	return p
}

// Start fetches immediately and then on every tick.
func (p *Poller) Start() {
	p.t.Go(p.loop)
}

// SetVisible suspends polling when false; when true it fetches right away and
// resumes the schedule. It never blocks: before Start it sets the initial
// visibility, and after the poller stopped it has no effect.
func (p *Poller) SetVisible(v bool) {
	p.mu.Lock()
	p.hidden = !v
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Poller) visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.hidden
}

func (p *Poller) Stop() error {
	p.t.Kill(nil)
	return p.t.Wait()
}

func (p *Poller) Done() <-chan struct{} { return p.t.Dead() }

// Last returns the most recent successful view.
func (p *Poller) Last() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Countdown recomputes the current countdown from server adjusted time.
func (p *Poller) Countdown() *CountdownState {
	last := p.Last()
	if !last.Success {
		return nil
	}
	return CountdownFor(last.Order.Order, p.clock.Now())
}

func (p *Poller) loop() error {
	ctx := p.t.Context(context.Background())
	// A wake queued before Start is already reflected in the initial state.
	select {
	case <-p.wake:
	default:
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	if p.visible() {
		if p.poll(ctx) {
			return nil
		}
	} else {
		ticker.Stop()
	}

	for {
		select {
		case <-p.t.Dying():
			return nil
		case <-p.wake:
			if !p.visible() {
				ticker.Stop()
				continue
			}
			if p.poll(ctx) {
				return nil
			}
			ticker.Reset(p.interval)
		case <-ticker.C:
			if p.poll(ctx) {
				return nil
			}
		}
	}
}

// poll fetches once and reports whether polling is over.
func (p *Poller) poll(ctx context.Context) bool {
	view, err := p.fetch.Track(ctx, p.token)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if p.onError != nil {
			p.onError(err)
		}
		return errors.Is(err, domain.ErrNotFound) || errors.Is(err, ErrMalformedToken) || errors.Is(err, domain.ErrValidation)
	}
	p.clock.Observe(view.ServerUTCMs)
	p.mu.Lock()
	p.last = view
	p.mu.Unlock()
	if p.onUpdate != nil {
		p.onUpdate(view, CountdownFor(view.Order.Order, p.clock.Now()))
	}
	return Final(view.Order.Status)
}
