package kds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/tomb.v2"

	"dinepos/m/domain"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	detailFetchLimit       = 4
)

// API is the part of the POS backend the kitchen screen talks to.
type API interface {
	KitchenOrders(ctx context.Context) ([]domain.Order, error)
	Order(ctx context.Context, id int64) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error)
}

type RefresherOptions struct {
	Interval    time.Duration
	UrgentAfter time.Duration
	Now         func() time.Time
	OnRender    func([]Card)
	OnError     func(error)
}

// Refresher keeps the kitchen board current: it loads on start, on demand and
// on a timer that the operator can switch off and on.
type Refresher struct {
	api         API
	interval    time.Duration
	urgentAfter time.Duration
	now         func() time.Time
	onRender    func([]Card)
	onError     func(error)

	t      tomb.Tomb
	toggle chan struct{}

	loadMu sync.Mutex
	mu     sync.Mutex
	cards  []Card
	auto   bool
}

func NewRefresher(api API, opts RefresherOptions) *Refresher {
	r := &Refresher{
		api:         api,
		interval:    opts.Interval,
		urgentAfter: opts.UrgentAfter,
		now:         opts.Now,
		onRender:    opts.OnRender,
		onError:     opts.OnError,
		toggle:      make(chan struct{}, 1),
		auto:        true,
	}
	if r.interval <= 0 {
		r.interval = DefaultRefreshInterval
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Refresher) Start() {
	r.t.Go(r.loop)
}

func (r *Refresher) Stop() error {
	r.t.Kill(nil)
	return r.t.Wait()
}

// SetAutoRefresh turns the timer on or off. Manual refreshes keep working.
// It never blocks and may be called before Start.
func (r *Refresher) SetAutoRefresh(on bool) {
	r.mu.Lock()
	r.auto = on
	r.mu.Unlock()
	select {
	case r.toggle <- struct{}{}:
	default:
	}
}

func (r *Refresher) AutoRefresh() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.auto
}

func (r *Refresher) Cards() []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Card(nil), r.cards...)
}

// Refresh reloads the board now.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	orders, err := r.api.KitchenOrders(ctx)
	if err != nil {
		return fmt.Errorf("load kitchen orders: %w", err)
	}
	if err := r.fillItems(ctx, orders); err != nil {
		return err
	}
	cards := BuildCards(orders, r.now(), r.urgentAfter)

	r.mu.Lock()
	r.cards = cards
	r.mu.Unlock()
	if r.onRender != nil {
		r.onRender(cards)
	}
	return nil
}

// fillItems fetches details, concurrently, for orders that arrived without
// their items.
func (r *Refresher) fillItems(ctx context.Context, orders []domain.Order) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchLimit)
	for i := range orders {
		if len(orders[i].Items) > 0 {
			continue
		}
		i := i
		g.Go(func() error {
			full, err := r.api.Order(ctx, orders[i].ID)
			if err != nil {
				return fmt.Errorf("load order %d: %w", orders[i].ID, err)
			}
			orders[i].Items = full.Items
			return nil
		})
	}
	return g.Wait()
}

// Advance applies the card's forward action, then reloads the whole board.
// Nothing is changed locally before the server confirms.
func (r *Refresher) Advance(ctx context.Context, orderID int64) error {
	var action *domain.KitchenAction
	for _, c := range r.Cards() {
		if c.Order.ID == orderID {
			action = c.Action
			break
		}
	}
	if action == nil {
		return fmt.Errorf("%w: order %d is not on the board", domain.ErrNotFound, orderID)
	}
	if _, err := r.api.UpdateOrderStatus(ctx, orderID, action.To); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

func (r *Refresher) loop() error {
	ctx := r.t.Context(context.Background())
	r.report(r.Refresh(ctx))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	if !r.AutoRefresh() {
		ticker.Stop()
	}
	for {
		select {
		case <-r.t.Dying():
			return nil
		case <-r.toggle:
			if r.AutoRefresh() {
				ticker.Reset(r.interval)
			} else {
				ticker.Stop()
			}
		case <-ticker.C:
			r.report(r.Refresh(ctx))
		}
	}
}

func (r *Refresher) report(err error) {
	if err != nil && r.onError != nil && r.t.Alive() {
		r.onError(err)
	}
}
