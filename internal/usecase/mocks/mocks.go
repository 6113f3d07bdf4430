package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// Store is the shared in-memory state behind the mock repositories. Reads
// return copies so callers never alias stored rows.
type Store struct {
	mu       sync.RWMutex
	seq      int64
	users    map[string]*domain.User
	accounts map[string]*domain.Account
	entries  map[string]*domain.LedgerEntry
	ranks    map[string]*domain.Rank
	history  map[string]*domain.RankHistory
	outbox   []*domain.OutboxEvent
	order    map[string]int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		accounts: make(map[string]*domain.Account),
		entries:  make(map[string]*domain.LedgerEntry),
		ranks:    make(map[string]*domain.Rank),
		history:  make(map[string]*domain.RankHistory),
		order:    make(map[string]int64),
	}
}

func (s *Store) nextSeq(id string) {
	s.seq++
	s.order[id] = s.seq
}

// PutUser seeds a user.
func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = copyUser(u)
	s.nextSeq(u.ID)
}

// PutAccount seeds an account. Accounts seeded earlier are opened earlier.
func (s *Store) PutAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = copyAccount(a)
	s.nextSeq(a.ID)
}

// PutRank seeds a rank.
func (s *Store) PutRank(r *domain.Rank) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranks[r.ID] = copyRank(r)
}

// PutEntry seeds an entry.
func (s *Store) PutEntry(e *domain.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = copyEntry(e)
	s.nextSeq(e.ID)
}

// User returns a copy of a stored user, or nil.
func (s *Store) User(id string) *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return copyUser(u)
	}
	return nil
}

// Account returns a copy of a stored account, or nil.
func (s *Store) Account(id string) *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		return copyAccount(a)
	}
	return nil
}

// Entry returns a copy of a stored entry, or nil.
func (s *Store) Entry(id string) *domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[id]; ok {
		return copyEntry(e)
	}
	return nil
}

// Entries returns every entry of type t in creation order; empty t matches all.
func (s *Store) Entries(t domain.EntryType) []*domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.LedgerEntry, 0)
	for _, e := range s.entries {
		if t == "" || e.Type == t {
			out = append(out, copyEntry(e))
		}
	}
	s.sortByOrder(out)
	return out
}

// History returns every rank history row.
func (s *Store) History() []*domain.RankHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.RankHistory, 0, len(s.history))
	for _, h := range s.history {
		c := *h
		out = append(out, &c)
	}
	return out
}

// Outbox returns every recorded outbox event.
func (s *Store) Outbox() []*domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.OutboxEvent, 0, len(s.outbox))
	for _, ev := range s.outbox {
		c := *ev
		out = append(out, &c)
	}
	return out
}

func (s *Store) sortByOrder(entries []*domain.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool { return s.order[entries[i].ID] < s.order[entries[j].ID] })
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyRank(r *domain.Rank) *domain.Rank {
	c := *r
	return &c
}

func copyEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	c := *e
	c.Metadata = domain.CloneMetadata(e.Metadata)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// recordUndo registers fn to run if tx rolls back without committing.
func recordUndo(tx usecase.Transaction, fn func()) {
	if mt, ok := tx.(*MockTransaction); ok && mt != nil {
		mt.undo = append(mt.undo, fn)
	}
}

// MockTransactionManager is a mock implementation of TransactionManager.
// Transactions are serialized, which stands in for row locks.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu sync.Mutex
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	return &MockTransaction{release: m.mu.Unlock}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	undo      []func()
	committed bool
	release   func()
	once      sync.Once
}

func (m *MockTransaction) done() {
	m.once.Do(func() {
		if m.release != nil {
			m.release()
		}
	})
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.committed = true
	m.undo = nil
	m.done()
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	defer m.done()
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if m.committed {
		return nil
	}
	for i := len(m.undo) - 1; i >= 0; i-- {
		m.undo[i]()
	}
	m.undo = nil
	return nil
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	store *Store

	CreateFunc         func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc        func(ctx context.Context, id string) (*domain.Account, error)
	ListByUserFunc     func(ctx context.Context, userID string) ([]*domain.Account, error)
	PrimaryForUserFunc func(ctx context.Context, userID, currency string) (*domain.Account, error)
	ListFunc           func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

func NewMockAccountRepository(store *Store) *MockAccountRepository {
	return &MockAccountRepository{store: store}
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.accounts[account.ID]; ok {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	m.store.accounts[account.ID] = copyAccount(account)
	m.store.nextSeq(account.ID)
	recordUndo(tx, func() {
		m.store.mu.Lock()
		defer m.store.mu.Unlock()
		delete(m.store.accounts, account.ID)
	})
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	if acc := m.store.Account(id); acc != nil {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) userAccounts(userID, currency string) []*domain.Account {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var out []*domain.Account
	for _, acc := range m.store.accounts {
		if acc.UserID == userID && (currency == "" || acc.Currency == currency) {
			out = append(out, copyAccount(acc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.store.order[out[i].ID] < m.store.order[out[j].ID] })
	return out
}

func (m *MockAccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return m.userAccounts(userID, ""), nil
}

func (m *MockAccountRepository) PrimaryForUser(ctx context.Context, userID, currency string) (*domain.Account, error) {
	if m.PrimaryForUserFunc != nil {
		return m.PrimaryForUserFunc(ctx, userID, currency)
	}
	accounts := m.userAccounts(userID, currency)
	if len(accounts) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return accounts[0], nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.store.mu.RLock()
	var accounts []*domain.Account
	for _, acc := range m.store.accounts {
		accounts = append(accounts, copyAccount(acc))
	}
	sort.Slice(accounts, func(i, j int) bool { return m.store.order[accounts[i].ID] < m.store.order[accounts[j].ID] })
	m.store.mu.RUnlock()
	return page(accounts, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// MockBalanceStore is a mock implementation of BalanceStore.
type MockBalanceStore struct {
	store *Store
	calls atomic.Int64

	ApplyDeltaFunc func(ctx context.Context, tx usecase.Transaction, accountID string, delta decimal.Decimal, at time.Time) (*domain.Account, error)
}

func NewMockBalanceStore(store *Store) *MockBalanceStore {
	return &MockBalanceStore{store: store}
}

// Calls returns how many deltas were applied.
func (m *MockBalanceStore) Calls() int64 {
	return m.calls.Load()
}

func (m *MockBalanceStore) ApplyDelta(ctx context.Context, tx usecase.Transaction, accountID string, delta decimal.Decimal, at time.Time) (*domain.Account, error) {
	if m.ApplyDeltaFunc != nil {
		return m.ApplyDeltaFunc(ctx, tx, accountID, delta, at)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	acc, ok := m.store.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	prevBalance, prevVersion, prevUpdated := acc.Balance, acc.Version, acc.UpdatedAt
	acc.Balance = acc.Balance.Add(delta)
	acc.Version++
	acc.UpdatedAt = at
	m.calls.Add(1)
	recordUndo(tx, func() {
		m.store.mu.Lock()
		defer m.store.mu.Unlock()
		acc.Balance, acc.Version, acc.UpdatedAt = prevBalance, prevVersion, prevUpdated
		m.calls.Add(-1)
	})
	return copyAccount(acc), nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	store *Store

	CreateFunc              func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
	GetByIDFunc             func(ctx context.Context, id string) (*domain.LedgerEntry, error)
	TransitionStatusFunc    func(ctx context.Context, id string, status domain.EntryStatus, at time.Time, patch map[string]any) (*domain.LedgerEntry, bool, error)
	MarkBalanceAdjustedFunc func(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error
	SumCompletedByUserFunc  func(ctx context.Context, userID string, entryType domain.EntryType, currency string) (decimal.Decimal, error)
}

func NewMockEntryRepository(store *Store) *MockEntryRepository {
	return &MockEntryRepository{store: store}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, e := range m.store.entries {
		if entry.IdempotencyKey != "" && e.IdempotencyKey == entry.IdempotencyKey {
			return domain.ErrDuplicateEntry
		}
		if e.ID == entry.ID || e.Reference == entry.Reference {
			return fmt.Errorf("entry %s already exists", entry.ID)
		}
	}
	m.store.entries[entry.ID] = copyEntry(entry)
	m.store.nextSeq(entry.ID)
	recordUndo(tx, func() {
		m.store.mu.Lock()
		defer m.store.mu.Unlock()
		delete(m.store.entries, entry.ID)
	})
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	if e := m.store.Entry(id); e != nil {
		return e, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.LedgerEntry, error) {
	return m.GetByID(ctx, id)
}

func (m *MockEntryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, e := range m.store.entries {
		if e.IdempotencyKey == key {
			return copyEntry(e), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByExternalReference(ctx context.Context, provider, reference string) (*domain.LedgerEntry, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, e := range m.store.entries {
		if fmt.Sprint(e.Metadata[domain.MetadataProvider]) == provider &&
			fmt.Sprint(e.Metadata[domain.MetadataExternalReference]) == reference {
			return copyEntry(e), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) TransitionStatus(ctx context.Context, id string, status domain.EntryStatus, at time.Time, patch map[string]any) (*domain.LedgerEntry, bool, error) {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(ctx, id, status, at, patch)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	e, ok := m.store.entries[id]
	if !ok {
		return nil, false, domain.ErrEntryNotFound
	}
	if e.Status != domain.EntryStatusPending && e.Status != domain.EntryStatusScheduled {
		return nil, false, nil
	}
	e.Status = status
	e.UpdatedAt = at
	if status == domain.EntryStatusCompleted {
		completedAt := at
		e.CompletedAt = &completedAt
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	for k, v := range patch {
		e.Metadata[k] = v
	}
	return copyEntry(e), true, nil
}

func (m *MockEntryRepository) MarkBalanceAdjusted(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	if m.MarkBalanceAdjustedFunc != nil {
		return m.MarkBalanceAdjustedFunc(ctx, tx, id, at)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	e, ok := m.store.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[domain.MetadataBalanceAdjusted] = true
	e.UpdatedAt = at
	recordUndo(tx, func() {
		m.store.mu.Lock()
		defer m.store.mu.Unlock()
		delete(e.Metadata, domain.MetadataBalanceAdjusted)
	})
	return nil
}

func (m *MockEntryRepository) MergeMetadata(ctx context.Context, id string, patch map[string]any, at time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	e, ok := m.store.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	for k, v := range patch {
		e.Metadata[k] = v
	}
	e.UpdatedAt = at
	return nil
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	all := m.store.Entries("")
	var out []*domain.LedgerEntry
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].AccountID == accountID {
			out = append(out, all[i])
		}
	}
	return page(out, limit, offset), nil
}

func (m *MockEntryRepository) SumCompletedByUser(ctx context.Context, userID string, entryType domain.EntryType, currency string) (decimal.Decimal, error) {
	if m.SumCompletedByUserFunc != nil {
		return m.SumCompletedByUserFunc(ctx, userID, entryType, currency)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range m.store.entries {
		acc, ok := m.store.accounts[e.AccountID]
		if !ok || acc.UserID != userID {
			continue
		}
		if e.Type == entryType && e.Currency == currency && e.Status == domain.EntryStatusCompleted {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (m *MockEntryRepository) ListUnsettled(ctx context.Context, completedBefore time.Time, limit int) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for _, e := range m.store.Entries("") {
		if e.Status != domain.EntryStatusCompleted || e.BalanceAdjusted() {
			continue
		}
		if e.CompletedAt != nil && e.CompletedAt.After(completedBefore) {
			continue
		}
		out = append(out, e)
	}
	return page(out, limit, 0), nil
}

func (m *MockEntryRepository) SettledTotals(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	credits, debits := decimal.Zero, decimal.Zero
	for _, e := range m.store.Entries("") {
		if e.AccountID != accountID || !e.BalanceAdjusted() {
			continue
		}
		dir, err := e.Type.Direction()
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if dir == domain.DirectionCredit {
			credits = credits.Add(e.Amount)
		} else {
			debits = debits.Add(e.Amount)
		}
	}
	return credits, debits, nil
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	store *Store

	CreateFunc      func(ctx context.Context, tx usecase.Transaction, user *domain.User) error
	GetByIDFunc     func(ctx context.Context, id string) (*domain.User, error)
	PromoteRankFunc func(ctx context.Context, userID, rankID string, threshold decimal.Decimal, at time.Time) (bool, error)
}

func NewMockUserRepository(store *Store) *MockUserRepository {
	return &MockUserRepository{store: store}
}

func (m *MockUserRepository) Create(ctx context.Context, tx usecase.Transaction, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, user)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	if user.ReferrerID != nil {
		if _, ok := m.store.users[*user.ReferrerID]; !ok {
			return errors.New("referrer does not exist")
		}
	}
	m.store.users[user.ID] = copyUser(user)
	m.store.nextSeq(user.ID)
	recordUndo(tx, func() {
		m.store.mu.Lock()
		defer m.store.mu.Unlock()
		delete(m.store.users, user.ID)
	})
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	if u := m.store.User(id); u != nil {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) PromoteRank(ctx context.Context, userID, rankID string, threshold decimal.Decimal, at time.Time) (bool, error) {
	if m.PromoteRankFunc != nil {
		return m.PromoteRankFunc(ctx, userID, rankID, threshold, at)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.store.users[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if u.RankID != nil {
		if current, ok := m.store.ranks[*u.RankID]; ok && !current.MinQualifyingVolume.LessThan(threshold) {
			return false, nil
		}
	}
	id := rankID
	u.RankID = &id
	u.UpdatedAt = at
	return true, nil
}

// MockRankRepository is a mock implementation of RankRepository.
type MockRankRepository struct {
	store *Store

	ListActiveFunc func(ctx context.Context) ([]*domain.Rank, error)
}

func NewMockRankRepository(store *Store) *MockRankRepository {
	return &MockRankRepository{store: store}
}

func (m *MockRankRepository) Create(ctx context.Context, rank *domain.Rank) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.ranks[rank.ID]; ok {
		return fmt.Errorf("rank %s already exists", rank.ID)
	}
	m.store.ranks[rank.ID] = copyRank(rank)
	return nil
}

func (m *MockRankRepository) GetByID(ctx context.Context, id string) (*domain.Rank, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if r, ok := m.store.ranks[id]; ok {
		return copyRank(r), nil
	}
	return nil, domain.ErrRankNotFound
}

func (m *MockRankRepository) GetDefault(ctx context.Context) (*domain.Rank, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, r := range m.store.ranks {
		if r.IsDefault {
			return copyRank(r), nil
		}
	}
	return nil, domain.ErrRankNotFound
}

func (m *MockRankRepository) ListActive(ctx context.Context) ([]*domain.Rank, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	all, _ := m.List(ctx)
	out := all[:0]
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRankRepository) List(ctx context.Context) ([]*domain.Rank, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	out := make([]*domain.Rank, 0, len(m.store.ranks))
	for _, r := range m.store.ranks {
		out = append(out, copyRank(r))
	}
	return out, nil
}

// MockRankHistoryRepository is a mock implementation of RankHistoryRepository.
type MockRankHistoryRepository struct {
	store *Store

	CreateFunc func(ctx context.Context, history *domain.RankHistory) error
}

func NewMockRankHistoryRepository(store *Store) *MockRankHistoryRepository {
	return &MockRankHistoryRepository{store: store}
}

func historyKey(userID, rankID string) string {
	return userID + "|" + rankID
}

func (m *MockRankHistoryRepository) Exists(ctx context.Context, userID, rankID string) (bool, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	_, ok := m.store.history[historyKey(userID, rankID)]
	return ok, nil
}

func (m *MockRankHistoryRepository) Create(ctx context.Context, history *domain.RankHistory) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, history)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	key := historyKey(history.UserID, history.RankID)
	if _, ok := m.store.history[key]; ok {
		return nil
	}
	c := *history
	m.store.history[key] = &c
	return nil
}

func (m *MockRankHistoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.RankHistory, error) {
	var out []*domain.RankHistory
	for _, h := range m.store.History() {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievedAt.Before(out[j].AchievedAt) })
	return out, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	store *Store

	CreateFunc        func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	MarkPublishedFunc func(ctx context.Context, id string, publishedAt time.Time) error
}

func NewMockOutboxRepository(store *Store) *MockOutboxRepository {
	return &MockOutboxRepository{store: store}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c := *event
	m.store.outbox = append(m.store.outbox, &c)
	recordUndo(tx, func() {
		m.store.mu.Lock()
		defer m.store.mu.Unlock()
		for i, ev := range m.store.outbox {
			if ev.ID == event.ID {
				m.store.outbox = append(m.store.outbox[:i], m.store.outbox[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	for _, ev := range m.store.Outbox() {
		if !ev.Published {
			out = append(out, ev)
		}
	}
	return page(out, limit, 0), nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, ev := range m.store.outbox {
		if ev.ID == id {
			at := publishedAt
			ev.Published = true
			ev.PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	kept := m.store.outbox[:0]
	for _, ev := range m.store.outbox {
		if ev.Published && ev.PublishedAt != nil && ev.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, ev)
	}
	m.store.outbox = kept
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%06d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response == nil {
		response = []byte("processing")
	}
	m.data[key] = response
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Value returns the stored value of key.
func (m *MockIdempotencyStore) Value(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// StaticRewardsConfig is a RewardsConfigProvider returning a fixed config.
type StaticRewardsConfig struct {
	Config      *domain.RewardsConfig
	CurrentFunc func(ctx context.Context) (*domain.RewardsConfig, error)
}

func (m *StaticRewardsConfig) Current(ctx context.Context) (*domain.RewardsConfig, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx)
	}
	c := *m.Config
	return &c, nil
}

// MockRewardsSettingsStore is a mock implementation of RewardsSettingsStore.
type MockRewardsSettingsStore struct {
	mu     sync.Mutex
	values map[string]string

	LoadFunc func(ctx context.Context) (map[string]string, error)
}

func NewMockRewardsSettingsStore(values map[string]string) *MockRewardsSettingsStore {
	if values == nil {
		values = make(map[string]string)
	}
	return &MockRewardsSettingsStore{values: values}
}

func (m *MockRewardsSettingsStore) Load(ctx context.Context) (map[string]string, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *MockRewardsSettingsStore) Save(ctx context.Context, values map[string]string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// MockRewardsConfigCache is a mock implementation of RewardsConfigCache.
type MockRewardsConfigCache struct {
	mu  sync.Mutex
	cfg *domain.RewardsConfig

	Sets          int
	Invalidations int
}

func (m *MockRewardsConfigCache) Get(ctx context.Context) (*domain.RewardsConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, false, nil
	}
	c := *m.cfg
	return &c, true, nil
}

func (m *MockRewardsConfigCache) Set(ctx context.Context, cfg *domain.RewardsConfig, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cfg
	m.cfg = &c
	m.Sets++
	return nil
}

func (m *MockRewardsConfigCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = nil
	m.Invalidations++
	return nil
}
