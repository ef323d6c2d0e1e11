package cart

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var ErrNoSession = errors.New("cart session id is empty")

// Store persists cart lines per session between requests.
type Store interface {
	// Load returns nil lines and no error for an unknown session.
	Load(ctx context.Context, sessionID string) ([]Line, error)
	Save(ctx context.Context, sessionID string, lines []Line) error
	Delete(ctx context.Context, sessionID string) error
}

type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Session binds a cart to its session id for the span of one request.
type Session struct {
	ID   string
	Cart *Cart

	store       Store
	dirty       atomic.Bool
	unsubscribe func()
}

// Open loads the cart of sessionID, or an empty one for a new session.
func (m *Manager) Open(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	lines, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", sessionID, err)
	}

	s := &Session{ID: sessionID, Cart: Restore(lines), store: m.store}
	if len(lines) != len(s.Cart.Lines()) {
		s.dirty.Store(true)
	}
	s.unsubscribe = s.Cart.Subscribe(func(Snapshot) {
		s.dirty.Store(true)
	})
	return s, nil
}

// Save writes the cart back when it changed since Open or the last Save.
func (s *Session) Save(ctx context.Context) error {
	if !s.dirty.Load() {
		return nil
	}
	if err := s.store.Save(ctx, s.ID, s.Cart.Lines()); err != nil {
		return fmt.Errorf("save cart %s: %w", s.ID, err)
	}
	s.dirty.Store(false)
	log.Debug().Str("session", s.ID).Int("items", s.Cart.TotalItems()).Msg("cart saved")
	return nil
}

func (s *Session) Dirty() bool {
	return s.dirty.Load()
}

func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// End tears the session down and drops its stored cart.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("end cart session %s: %w", sessionID, err)
	}
	return nil
}
