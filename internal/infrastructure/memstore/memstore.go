// Package memstore реализует ledger.Store в памяти.
//
// Транзакции сериализуются мьютексом и работают над копией состояния:
// при ошибке копия выбрасывается, при успехе подменяет текущее состояние.
// Условные обновления повторяют семантику SQL-реализации, поэтому пакет
// используется в тестах сервисов.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

type state struct {
	seq         int64
	users       map[int64]entity.User
	referrers   map[int64]int64
	listings    map[int64]entity.Listing
	bids        []entity.Bid
	withdrawals map[int64]entity.WithdrawRequest
	giveaways   map[int64]entity.Giveaway
	history     []entity.HistoryRecord
	cursor      int64
}

func New() *Store {
	return &Store{
		state: &state{
			users:       make(map[int64]entity.User),
			referrers:   make(map[int64]int64),
			listings:    make(map[int64]entity.Listing),
			withdrawals: make(map[int64]entity.WithdrawRequest),
			giveaways:   make(map[int64]entity.Giveaway),
		},
		now: time.Now,
	}
}

// WithClock подменяет время, которым помечаются created_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()

	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}

	s.state = work

	return nil
}

func (st *state) clone() *state {
	c := &state{
		seq:         st.seq,
		users:       make(map[int64]entity.User, len(st.users)),
		referrers:   make(map[int64]int64, len(st.referrers)),
		listings:    make(map[int64]entity.Listing, len(st.listings)),
		bids:        slices.Clone(st.bids),
		withdrawals: make(map[int64]entity.WithdrawRequest, len(st.withdrawals)),
		giveaways:   make(map[int64]entity.Giveaway, len(st.giveaways)),
		history:     slices.Clone(st.history),
		cursor:      st.cursor,
	}

	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.referrers {
		c.referrers[k] = v
	}
	for k, v := range st.listings {
		c.listings[k] = v
	}
	for k, v := range st.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range st.giveaways {
		c.giveaways[k] = cloneGiveaway(v)
	}

	return c
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

func cloneGiveaway(g entity.Giveaway) entity.Giveaway {
	g.GiftIDs = slices.Clone(g.GiftIDs)
	g.Channels = slices.Clone(g.Channels)
	g.ParticipantIDs = slices.Clone(g.ParticipantIDs)
	g.ReferrerIDs = slices.Clone(g.ReferrerIDs)
	g.WinnerIDs = slices.Clone(g.WinnerIDs)
	return g
}

// Вспомогательные методы для подготовки и проверки состояния в тестах.

func (s *Store) PutUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.state.users[u.ID] = u
}

func (s *Store) PutReferral(referrerID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.referrers[userID] = referrerID
}

func (s *Store) PutListing(l entity.Listing) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == 0 {
		l.ID = s.state.nextID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	s.state.listings[l.ID] = l

	return l.ID
}

func (s *Store) PutGiveaway(g entity.Giveaway) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == 0 {
		g.ID = s.state.nextID()
	}
	s.state.giveaways[g.ID] = cloneGiveaway(g)

	return g.ID
}

func (s *Store) PutWithdrawRequest(w entity.WithdrawRequest) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == 0 {
		w.ID = s.state.nextID()
	}
	s.state.withdrawals[w.ID] = w

	return w.ID
}

func (s *Store) SetCursor(lt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.cursor = lt
}

func (s *Store) User(id int64) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.users[id]
}

func (s *Store) Balance(id int64) decimal.Decimal {
	return s.User(id).Balance
}

func (s *Store) Listing(id int64) (entity.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.listings[id]
	return l, ok
}

func (s *Store) Giveaway(id int64) entity.Giveaway {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneGiveaway(s.state.giveaways[id])
}

func (s *Store) WithdrawRequest(id int64) entity.WithdrawRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.withdrawals[id]
}

func (s *Store) Bids() []entity.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.state.bids)
}

func (s *Store) History() []entity.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.state.history)
}

func (s *Store) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.cursor
}
