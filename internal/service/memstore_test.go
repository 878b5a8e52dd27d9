// internal/service/memstore_test.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/util"
	"tcoin-wallet/pkg/db"
)

// memState is the whole database. Transactions work on a copy and publish it on commit.
type memState struct {
	wallets      map[int64]domain.Wallet
	transactions []domain.Transaction
	vouchers     map[string]domain.Voucher
	redemptions  map[string]domain.VoucherRedemption
	packages     map[int64]domain.RechargePackage
	nextTxID     int64
	nextVoucher  int64
}

func (s *memState) clone() *memState {
	c := &memState{
		wallets:      make(map[int64]domain.Wallet, len(s.wallets)),
		transactions: append([]domain.Transaction(nil), s.transactions...),
		vouchers:     make(map[string]domain.Voucher, len(s.vouchers)),
		redemptions:  make(map[string]domain.VoucherRedemption, len(s.redemptions)),
		packages:     s.packages,
		nextTxID:     s.nextTxID,
		nextVoucher:  s.nextVoucher,
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.vouchers {
		c.vouchers[k] = v
	}
	for k, v := range s.redemptions {
		c.redemptions[k] = v
	}
	return c
}

// memStore is an in-memory transactional fake of the Postgres store. A
// transaction holds the store lock from begin to commit or rollback, which
// is stricter than row locks but gives the same observable serialization.
type memStore struct {
	noopExecutor
	mu    sync.Mutex
	state *memState
	// commitFault, when set, is returned once by the next commit after it
	// has published its state, like a connection lost on the COMMIT reply.
	commitFault error
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		wallets:     map[int64]domain.Wallet{},
		vouchers:    map[string]domain.Voucher{},
		redemptions: map[string]domain.VoucherRedemption{},
		packages:    map[int64]domain.RechargePackage{},
	}}
}

type memTx struct {
	noopExecutor
	store *memStore
	work  *memState
	done  bool
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.store.state = t.work
	t.done = true
	fault := t.store.commitFault
	t.store.commitFault = nil
	t.store.mu.Unlock()
	return fault
}

func (t *memTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (s *memStore) txFuncs() TxFuncs {
	return TxFuncs{
		Begin: func(ctx context.Context, _ db.DBTxBeginner) (db.TxController, error) {
			s.mu.Lock()
			return &memTx{store: s, work: s.state.clone()}, nil
		},
		Commit: func(tx db.TxController) error { return tx.Commit() },
		Rollback: func(tx db.TxController) {
			_ = tx.Rollback()
		},
	}
}

// with runs fn against the state q addresses: a transaction's working copy,
// or the committed state under the store lock.
func (s *memStore) with(q repository.DBExecutor, fn func(st *memState) error) error {
	if tx, ok := q.(*memTx); ok {
		return fn(tx.work)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// noopExecutor satisfies repository.DBExecutor; the fake repositories never issue SQL.
type noopExecutor struct{}

var errNoSQL = errors.New("memstore: no SQL")

func (noopExecutor) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}
func (noopExecutor) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}
func (noopExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (noopExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return &sql.Row{}
}

// memWalletRepo, memTransactionRepo, memVoucherRepo and memPackageRepo are
// the repository interfaces over memStore.
type memWalletRepo struct{ s *memStore }

func (r memWalletRepo) EnsureWallet(_ context.Context, q repository.DBExecutor, userID int64) error {
	return r.s.with(q, func(st *memState) error {
		if _, ok := st.wallets[userID]; !ok {
			st.wallets[userID] = *domain.NewWallet(userID)
		}
		return nil
	})
}

func (r memWalletRepo) GetWalletByUserID(_ context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.s.with(q, func(st *memState) error {
		w, ok := st.wallets[userID]
		if !ok {
			return util.ErrNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r memWalletRepo) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	return r.GetWalletByUserID(ctx, q, userID)
}

func (r memWalletRepo) UpdateWalletBalance(_ context.Context, q repository.DBExecutor, userID, balance int64, updatedAt time.Time) error {
	return r.s.with(q, func(st *memState) error {
		w, ok := st.wallets[userID]
		if !ok {
			return util.ErrNotFound
		}
		w.Balance = balance
		w.UpdatedAt = updatedAt
		st.wallets[userID] = w
		return nil
	})
}

type memTransactionRepo struct{ s *memStore }

func (r memTransactionRepo) CreateTransaction(_ context.Context, q repository.DBExecutor, t *domain.Transaction) error {
	return r.s.with(q, func(st *memState) error {
		st.nextTxID++
		t.ID = st.nextTxID
		st.transactions = append(st.transactions, *t)
		return nil
	})
}

func (r memTransactionRepo) ListTransactionsByUserID(_ context.Context, q repository.DBExecutor, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	var matched []domain.Transaction
	_ = r.s.with(q, func(st *memState) error {
		for _, t := range st.transactions {
			if t.UserID != userID || (filter.Type != "" && t.Type != filter.Type) {
				continue
			}
			if filter.CreatedAfter != nil && t.CreatedAt.Before(*filter.CreatedAfter) {
				continue
			}
			if filter.CreatedBefore != nil && t.CreatedAt.After(*filter.CreatedBefore) {
				continue
			}
			matched = append(matched, t)
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r memTransactionRepo) FindBalanceMismatches(_ context.Context, q repository.DBExecutor) ([]domain.BalanceAudit, error) {
	var out []domain.BalanceAudit
	err := r.s.with(q, func(st *memState) error {
		sums := map[int64]int64{}
		last := map[int64]int64{}
		for _, t := range st.transactions {
			sums[t.UserID] += t.Amount
			last[t.UserID] = t.BalanceAfter
		}
		for id, w := range st.wallets {
			if w.Balance != sums[id] || w.Balance != last[id] {
				out = append(out, domain.BalanceAudit{UserID: id, Balance: w.Balance, LedgerSum: sums[id], LastBalanceAfter: last[id]})
			}
		}
		return nil
	})
	return out, err
}

type memVoucherRepo struct{ s *memStore }

func (r memVoucherRepo) CreateVoucher(_ context.Context, q repository.DBExecutor, v *domain.Voucher) error {
	return r.s.with(q, func(st *memState) error {
		if _, ok := st.vouchers[v.Code]; ok {
			return util.ErrDuplicateCode
		}
		st.nextVoucher++
		v.ID = st.nextVoucher
		st.vouchers[v.Code] = *v
		return nil
	})
}

func (r memVoucherRepo) GetVoucherByCode(_ context.Context, q repository.DBExecutor, code string) (*domain.Voucher, error) {
	var out *domain.Voucher
	err := r.s.with(q, func(st *memState) error {
		v, ok := st.vouchers[code]
		if !ok {
			return util.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r memVoucherRepo) ListVouchers(_ context.Context, q repository.DBExecutor, used *bool, limit, offset int) ([]domain.Voucher, int64, error) {
	var matched []domain.Voucher
	_ = r.s.with(q, func(st *memState) error {
		for _, v := range st.vouchers {
			if used == nil || v.IsUsed == *used {
				matched = append(matched, v)
			}
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []domain.Voucher{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r memVoucherRepo) DeleteUnusedVoucher(_ context.Context, q repository.DBExecutor, id int64) (string, error) {
	var code string
	err := r.s.with(q, func(st *memState) error {
		for c, v := range st.vouchers {
			if v.ID != id {
				continue
			}
			if v.IsUsed {
				return util.ErrAlreadyUsed
			}
			delete(st.vouchers, c)
			code = c
			return nil
		}
		return util.ErrNotFound
	})
	return code, err
}

func (r memVoucherRepo) MarkVoucherUsed(_ context.Context, q repository.DBExecutor, code string, userID int64, usedAt time.Time) (*domain.Voucher, error) {
	var out *domain.Voucher
	err := r.s.with(q, func(st *memState) error {
		v, ok := st.vouchers[code]
		if !ok || v.IsUsed {
			return util.ErrAlreadyRedeemed
		}
		v.IsUsed = true
		v.UsedAt = &usedAt
		v.UsedByUserID = &userID
		st.vouchers[code] = v
		out = &v
		return nil
	})
	return out, err
}

func (r memVoucherRepo) ClaimRedemption(_ context.Context, q repository.DBExecutor, m *domain.VoucherRedemption) error {
	return r.s.with(q, func(st *memState) error {
		if _, ok := st.redemptions[m.Fingerprint]; ok {
			return util.ErrAlreadyRedeemed
		}
		st.redemptions[m.Fingerprint] = *m
		return nil
	})
}

func (r memVoucherRepo) RedemptionExists(_ context.Context, q repository.DBExecutor, fingerprint string) (bool, error) {
	var exists bool
	err := r.s.with(q, func(st *memState) error {
		_, exists = st.redemptions[fingerprint]
		return nil
	})
	return exists, err
}

type memPackageRepo struct{ s *memStore }

func (r memPackageRepo) GetPackageByID(_ context.Context, q repository.DBExecutor, id int64) (*domain.RechargePackage, error) {
	var out *domain.RechargePackage
	err := r.s.with(q, func(st *memState) error {
		p, ok := st.packages[id]
		if !ok {
			return util.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}
