package repository

import (
	"context"
	"sync"
	"time"

	"macrotrack/internal/model"

	"go.uber.org/atomic"
)

// MemoryStore is an in-process implementation of UserRepository,
// EntryRepository and UsageRepository. The API falls back to it when no
// database is configured.
//
// Quota updates use a compare-and-swap loop on an immutable state value, so
// concurrent callers never lose an increment.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*memUser
	entries map[string]map[string]model.FoodEntry
	offline atomic.Bool
	now     func() time.Time
}

type memUser struct {
	account model.UserAccount
	quota   *atomic.Pointer[model.QuotaState]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*memUser),
		entries: make(map[string]map[string]model.FoodEntry),
		now:     time.Now,
	}
}

// SetOffline makes every subsequent call fail with ErrStoreOffline until it is
// switched back.
func (s *MemoryStore) SetOffline(offline bool) {
	s.offline.Store(offline)
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.offline.Load() {
		return ErrStoreOffline
	}
	return nil
}

func (s *MemoryStore) snapshot(u *memUser) *model.UserAccount {
	acc := u.account
	acc.Quota = *u.quota.Load()
	return &acc
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*model.UserAccount, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.snapshot(u), nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *model.UserAccount) (*model.UserAccount, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.UserID]; ok {
		return s.snapshot(existing), nil
	}
	acc := *u
	now := s.now()
	acc.CreatedAt, acc.UpdatedAt = now, now
	quota := acc.Quota
	rec := &memUser{account: acc, quota: atomic.NewPointer(&quota)}
	s.users[u.UserID] = rec
	return s.snapshot(rec), nil
}

func (s *MemoryStore) update(ctx context.Context, userID string, fn func(*model.UserAccount)) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	fn(&u.account)
	u.account.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) UpdateGoals(ctx context.Context, userID string, goals model.Macros) error {
	return s.update(ctx, userID, func(a *model.UserAccount) { a.Goals = goals })
}

func (s *MemoryStore) UpdateWebhookURL(ctx context.Context, userID, url string) error {
	return s.update(ctx, userID, func(a *model.UserAccount) { a.WebhookURL = url })
}

func (s *MemoryStore) SetPlan(ctx context.Context, userID string, plan model.Plan) error {
	return s.update(ctx, userID, func(a *model.UserAccount) { a.Plan = plan })
}

// SetQuota overwrites the stored quota state. It exists for seeding.
func (s *MemoryStore) SetQuota(ctx context.Context, userID string, q model.QuotaState) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.quota.Store(&q)
	return nil
}

func (s *MemoryStore) AdvanceQuota(ctx context.Context, userID, today string) (model.QuotaUpdate, error) {
	if err := s.check(ctx); err != nil {
		return model.QuotaUpdate{}, err
	}
	s.mu.RLock()
	u, ok := s.users[userID]
	var plan model.Plan
	if ok {
		plan = u.account.Plan
	}
	s.mu.RUnlock()
	if !ok {
		return model.QuotaUpdate{}, ErrNotFound
	}

	for {
		cur := u.quota.Load()
		next := cur.Advance(today)
		if u.quota.CompareAndSwap(cur, &next) {
			return model.QuotaUpdate{Count: next.Count, Plan: plan}, nil
		}
	}
}

func (s *MemoryStore) ListEntries(ctx context.Context, userID string) ([]model.FoodEntry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]model.FoodEntry, 0, len(s.entries[userID]))
	for _, e := range s.entries[userID] {
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *MemoryStore) GetEntry(ctx context.Context, userID, entryID string) (*model.FoodEntry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[userID][entryID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) PutEntry(ctx context.Context, userID string, e model.FoodEntry) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[userID] == nil {
		s.entries[userID] = make(map[string]model.FoodEntry)
	}
	e.UserID = userID
	s.entries[userID][e.ID] = e
	return nil
}

func (s *MemoryStore) PutEntries(ctx context.Context, userID string, entries []model.FoodEntry) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[userID] == nil {
		s.entries[userID] = make(map[string]model.FoodEntry)
	}
	for _, e := range entries {
		e.UserID = userID
		s.entries[userID][e.ID] = e
	}
	return nil
}

func (s *MemoryStore) DeleteEntry(ctx context.Context, userID, entryID string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[userID][entryID]; !ok {
		return ErrNotFound
	}
	delete(s.entries[userID], entryID)
	return nil
}
