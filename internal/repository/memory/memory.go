// Package memory is an in-process ledger store with the same uniqueness
// guarantees as the Postgres schema. It backs tests and LEDGER_STORE=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

type accountKey struct {
	owner    string
	kind     models.AccountKind
	currency string
}

type storedTransfer struct {
	transfer *models.Transfer
	entries  []*models.Entry
}

// Store implements both repository.AccountRepository and repository.EntryRepository.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*models.Account
	accountIndex map[accountKey]string

	transfers   map[string]*storedTransfer // by ref id
	keyIndex    map[string]string          // idempotency key -> ref id
	reversedIdx map[string]string          // reversed ref id -> reversal ref id
	entries     []*models.Entry            // insertion order
}

// NewStore creates a new empty in-memory store
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*models.Account),
		accountIndex: make(map[accountKey]string),
		transfers:    make(map[string]*storedTransfer),
		keyIndex:     make(map[string]string),
		reversedIdx:  make(map[string]string),
	}
}

func keyOf(ownerID *string, kind models.AccountKind, currency string) accountKey {
	k := accountKey{kind: kind, currency: currency}
	if ownerID != nil {
		k.owner = *ownerID
	}
	return k
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	if a.OwnerID != nil {
		owner := *a.OwnerID
		c.OwnerID = &owner
	}
	return &c
}

func copyEntry(e *models.Entry) *models.Entry {
	c := *e
	c.Metadata = e.Metadata.Clone()
	return &c
}

func copyTransfer(t *models.Transfer) *models.Transfer {
	c := *t
	if t.ReversesRefID != nil {
		ref := *t.ReversesRefID
		c.ReversesRefID = &ref
	}
	return &c
}

// FindByKey looks up the account for owner, kind and currency.
func (s *Store) FindByKey(ctx context.Context, ownerID *string, kind models.AccountKind, currency string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountIndex[keyOf(ownerID, kind, currency)]
	if !ok {
		return nil, fmt.Errorf("%w: account %s/%s", repository.ErrNotFound, kind, currency)
	}
	return copyAccount(s.accounts[id]), nil
}

// GetByID loads one account.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}
	return copyAccount(account), nil
}

// GetByIDs loads every account that exists among ids.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Account
	for _, id := range ids {
		if account, ok := s.accounts[id]; ok {
			out = append(out, copyAccount(account))
		}
	}
	return out, nil
}

// Create adds an account, returning ErrDuplicate if its key is taken.
func (s *Store) Create(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(account.OwnerID, account.Kind, account.Currency)
	if _, exists := s.accountIndex[key]; exists {
		return fmt.Errorf("%w: account %s/%s", repository.ErrDuplicate, account.Kind, account.Currency)
	}
	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("%w: account id %s", repository.ErrDuplicate, account.ID)
	}

	s.accounts[account.ID] = copyAccount(account)
	s.accountIndex[key] = account.ID
	return nil
}

// AccountCount is used by tests asserting that racing creators leave one row.
func (s *Store) AccountCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// PostTransfer stores a transfer and its entries all or nothing.
func (s *Store) PostTransfer(ctx context.Context, transfer *models.Transfer, entries []*models.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keyIndex[transfer.IdempotencyKey]; exists {
		return fmt.Errorf("%w: idempotency key %s", repository.ErrDuplicate, transfer.IdempotencyKey)
	}
	if _, exists := s.transfers[transfer.RefID]; exists {
		return fmt.Errorf("%w: ref %s", repository.ErrDuplicate, transfer.RefID)
	}
	if transfer.ReversesRefID != nil {
		if _, exists := s.reversedIdx[*transfer.ReversesRefID]; exists {
			return fmt.Errorf("%w: ref %s already reversed", repository.ErrDuplicate, *transfer.ReversesRefID)
		}
	}
	for _, e := range entries {
		if _, ok := s.accounts[e.AccountID]; !ok {
			return fmt.Errorf("insert entry for account %s: %w", e.AccountID, repository.ErrNotFound)
		}
	}

	stored := &storedTransfer{transfer: copyTransfer(transfer)}
	for _, e := range entries {
		c := copyEntry(e)
		stored.entries = append(stored.entries, c)
	}

	s.transfers[transfer.RefID] = stored
	s.keyIndex[transfer.IdempotencyKey] = transfer.RefID
	if transfer.ReversesRefID != nil {
		s.reversedIdx[*transfer.ReversesRefID] = transfer.RefID
	}
	s.entries = append(s.entries, stored.entries...)
	return nil
}

// FindTransferByIdempotencyKey loads the transfer posted under key.
func (s *Store) FindTransferByIdempotencyKey(ctx context.Context, key string) (*models.Transfer, []*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refID, ok := s.keyIndex[key]
	if !ok {
		return nil, nil, fmt.Errorf("%w: transfer idempotency_key=%s", repository.ErrNotFound, key)
	}
	return s.snapshot(refID)
}

// FindTransferByRefID loads a transfer and its entries by ref.
func (s *Store) FindTransferByRefID(ctx context.Context, refID string) (*models.Transfer, []*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.transfers[refID]; !ok {
		return nil, nil, fmt.Errorf("%w: transfer ref_id=%s", repository.ErrNotFound, refID)
	}
	return s.snapshot(refID)
}

// snapshot must be called with s.mu held.
func (s *Store) snapshot(refID string) (*models.Transfer, []*models.Entry, error) {
	stored := s.transfers[refID]
	entries := make([]*models.Entry, 0, len(stored.entries))
	for _, e := range stored.entries {
		entries = append(entries, copyEntry(e))
	}
	return copyTransfer(stored.transfer), entries, nil
}

// SumByAccount returns the balance of an account.
func (s *Store) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, e := range s.entries {
		if e.AccountID == accountID {
			sum += e.Amount
		}
	}
	return sum, nil
}

// ListByAccount returns the newest entries first.
func (s *Store) ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type positioned struct {
		entry *models.Entry
		seq   int
	}
	var matched []positioned
	for i, e := range s.entries {
		if e.AccountID == accountID {
			matched = append(matched, positioned{entry: e, seq: i})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.seq > b.seq
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*models.Entry, 0, len(matched))
	for _, m := range matched {
		out = append(out, copyEntry(m.entry))
	}
	return out, nil
}

// FindUnbalancedTransfers returns every ref whose entries do not sum to zero.
func (s *Store) FindUnbalancedTransfers(ctx context.Context) ([]repository.UnbalancedRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type agg struct {
		sum        int64
		currencies map[string]struct{}
	}
	byRef := make(map[string]*agg)
	var order []string
	for _, e := range s.entries {
		a, ok := byRef[e.RefID]
		if !ok {
			a = &agg{currencies: make(map[string]struct{})}
			byRef[e.RefID] = a
			order = append(order, e.RefID)
		}
		a.sum += e.Amount
		a.currencies[e.Currency] = struct{}{}
	}

	var refs []repository.UnbalancedRef
	for _, ref := range order {
		a := byRef[ref]
		if a.sum != 0 || len(a.currencies) > 1 {
			refs = append(refs, repository.UnbalancedRef{RefID: ref, Sum: a.sum, Currencies: len(a.currencies)})
		}
	}
	return refs, nil
}

// AppendRawEntry writes an entry with no checks at all. Test use only.
func (s *Store) AppendRawEntry(e *models.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, copyEntry(e))
}
