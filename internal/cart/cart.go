// Package cart keeps the signed-in user's cart in step with the server.
//
// The server is authoritative: every successful call replaces the whole
// cart with the snapshot the server returned, nothing is merged locally.
// Each call takes a ticket from a monotonically increasing counter and a
// response is applied only if no later-sent response has been applied
// already, so overlapping calls that resolve out of order cannot roll the
// cart back. Tickets also carry the session epoch: when the signed-in
// identity changes, in-flight calls are cancelled and their late responses
// are dropped.
package cart

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"storefront/internal/domain"
	"storefront/internal/session"
	"storefront/internal/store"
)

// State is a snapshot of the cart. A nil Cart means there is no session;
// an empty cart has a non-nil Cart with no items.
type State struct {
	Cart    *domain.Cart
	Loading bool
	// Version is the ticket of the last applied response.
	Version uint64
	// Epoch increments whenever the signed-in identity changes.
	Epoch uint64

	refreshing int
}

// API is the slice of the commerce client the cart needs.
type API interface {
	GetCart(ctx context.Context, credential string) (*domain.Cart, error)
	AddCartItem(ctx context.Context, credential string, productID int64, quantity int) (*domain.Cart, error)
	UpdateCartItem(ctx context.Context, credential string, itemID int64, quantity int) (*domain.Cart, error)
	RemoveCartItem(ctx context.Context, credential string, itemID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, credential string) error
}

// Session is where the cart reads the credential and watches identity.
type Session interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
}

type Manager struct {
	client API
	sess   Session
	logger *slog.Logger
	state  *store.Store[State]
	seq    atomic.Uint64

	mu     sync.Mutex
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(client API, sess Session, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		client: client,
		sess:   sess,
		logger: logger,
		state:  store.New(State{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// State returns the current snapshot. The cart is a copy.
func (m *Manager) State() State {
	s := m.state.Get()
	s.Cart = s.Cart.Clone()
	return s
}

// Subscribe registers fn for every committed state. fn must not modify
// the cart it receives.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.state.Subscribe(fn)
}

// Bind makes the cart follow the session: when a credential and identity
// appear the cart is fetched in the background, and when they go away the
// cart is dropped locally without a network call. The current session is
// applied immediately.
func (m *Manager) Bind() (unbind func()) {
	var (
		mu   sync.Mutex
		last string
	)
	react := func(s session.State) {
		key := ""
		if s.Authenticated() {
			key = s.Credential
		}
		mu.Lock()
		changed := key != last
		last = key
		mu.Unlock()
		if !changed {
			return
		}

		m.reset()
		if key == "" {
			m.logger.Debug("session ended, cart dropped")
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if _, err := m.Refresh(context.Background()); err != nil {
				m.logger.Warn("cart refresh after sign-in failed", "error", err)
			}
		}()
	}

	unsubscribe := m.sess.Subscribe(react)
	react(m.sess.State())
	return unsubscribe
}

// Close cancels in-flight calls and waits for background refreshes.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}

// reset starts a new epoch: in-flight calls are cancelled and the cart is
// cleared to nil.
func (m *Manager) reset() {
	m.mu.Lock()
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	m.state.Update(func(s State) (State, bool) {
		return State{Version: s.Version, Epoch: epoch}, true
	})
}

type ticket struct {
	version    uint64
	epoch      uint64
	refreshing bool
}

// begin checks the session and issues a ticket. The returned context is
// done when ctx is, or when the epoch ends; release must always be called.
func (m *Manager) begin(ctx context.Context, refreshing bool) (ticket, string, context.Context, func(), error) {
	// Epoch before credential: a sign-in racing this call then ends up with
	// a ticket from the old epoch, which is dropped, never the reverse.
	m.mu.Lock()
	epochCtx, epoch := m.ctx, m.epoch
	m.mu.Unlock()

	credential := m.sess.State().Credential
	if credential == "" {
		return ticket{}, "", nil, nil, domain.ErrAuthRequired
	}

	t := ticket{version: m.seq.Add(1), epoch: epoch, refreshing: refreshing}
	if refreshing {
		m.state.Update(func(s State) (State, bool) {
			if s.Epoch != epoch {
				return s, false
			}
			s.refreshing++
			s.Loading = true
			return s, true
		})
	}

	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(epochCtx, cancel)
	release := func() {
		stop()
		cancel()
	}
	return t, credential, reqCtx, release, nil
}

// finish commits the outcome of t. next builds the new cart from the
// current one; nil means the call failed and only bookkeeping changes. It
// reports whether the cart was replaced.
func (m *Manager) finish(t ticket, next func(prev *domain.Cart) *domain.Cart) bool {
	applied := false
	m.state.Update(func(s State) (State, bool) {
		if s.Epoch != t.epoch {
			return s, false
		}
		changed := false
		if t.refreshing && s.refreshing > 0 {
			s.refreshing--
			s.Loading = s.refreshing > 0
			changed = true
		}
		if next != nil && t.version > s.Version {
			s.Cart = next(s.Cart)
			s.Version = t.version
			applied = true
			changed = true
		}
		return s, changed
	})
	return applied
}

func (m *Manager) settle(op string, t ticket, cart *domain.Cart, err error) (*domain.Cart, error) {
	if err != nil {
		m.finish(t, nil)
		m.logger.Debug("cart call failed", "op", op, "version", t.version, "error", err)
		return nil, err
	}
	snapshot := cart.Clone()
	if !m.finish(t, func(*domain.Cart) *domain.Cart { return snapshot }) {
		m.logger.Debug("stale cart response dropped", "op", op, "version", t.version)
	}
	return cart.Clone(), nil
}

// Refresh fetches the authoritative cart and replaces the local one.
func (m *Manager) Refresh(ctx context.Context) (*domain.Cart, error) {
	t, credential, reqCtx, release, err := m.begin(ctx, true)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := m.client.GetCart(reqCtx, credential)
	return m.settle("refresh", t, cart, err)
}

// AddItem adds quantity of a product. It returns the server snapshot; the
// local cart is replaced by it unless a later call has already answered.
func (m *Manager) AddItem(ctx context.Context, productID int64, quantity int) (*domain.Cart, error) {
	t, credential, reqCtx, release, err := m.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()
	if quantity < 1 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	cart, err := m.client.AddCartItem(reqCtx, credential, productID, quantity)
	return m.settle("add", t, cart, err)
}

// UpdateQuantity sets the quantity of a line. A quantity below 1 is
// rejected without contacting the server.
func (m *Manager) UpdateQuantity(ctx context.Context, itemID int64, quantity int) (*domain.Cart, error) {
	t, credential, reqCtx, release, err := m.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()
	if quantity < 1 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	cart, err := m.client.UpdateCartItem(reqCtx, credential, itemID, quantity)
	return m.settle("update", t, cart, err)
}

func (m *Manager) RemoveItem(ctx context.Context, itemID int64) (*domain.Cart, error) {
	t, credential, reqCtx, release, err := m.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := m.client.RemoveCartItem(reqCtx, credential, itemID)
	return m.settle("remove", t, cart, err)
}

// Clear empties the cart on the server. Locally the cart becomes an
// explicit empty cart, never nil.
func (m *Manager) Clear(ctx context.Context) error {
	t, credential, reqCtx, release, err := m.begin(ctx, false)
	if err != nil {
		return err
	}
	defer release()

	if err := m.client.ClearCart(reqCtx, credential); err != nil {
		m.finish(t, nil)
		return err
	}
	m.finish(t, domain.EmptyCart)
	return nil
}
