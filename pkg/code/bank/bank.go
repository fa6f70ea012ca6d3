package bank

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/database/query"
	"github.com/code-payments/bounty-board/pkg/metrics"
	"github.com/code-payments/bounty-board/pkg/retry"
	"github.com/code-payments/bounty-board/pkg/retry/backoff"
	"github.com/code-payments/bounty-board/pkg/solana/system"
	sync_util "github.com/code-payments/bounty-board/pkg/sync"
)

const (
	metricsStructName = "bank.bank"

	stripedLockParallelization = 1024
)

var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrInsufficientLamports = errors.New("insufficient lamports")
	ErrLamportsOverflow     = errors.New("lamports overflow")
)

// Bank executes state transitions against the account store. Each call to
// Execute is atomic: either every account write made through the Tx is
// committed, or none are.
type Bank struct {
	log      *logrus.Entry
	conf     *conf
	accounts account.Store
	locks    *sync_util.StripedLock
}

func New(accounts account.Store, configProvider ConfigProvider) *Bank {
	return &Bank{
		log:      logrus.StandardLogger().WithField("type", "bank/bank"),
		conf:     configProvider(),
		accounts: accounts,
		locks:    sync_util.NewStripedLock(stripedLockParallelization),
	}
}

// Execute runs fn against a fresh view of the account store and commits the
// resulting writes in a single atomic operation.
//
// keys are the accounts fn may touch. They're locked for the duration of the
// call, which serializes executions within this process. Writers in other
// processes are detected through account versions, in which case the whole
// execution is retried against fresh state. Errors returned by fn are never
// retried, and nothing is committed.
//
// Under a context from WithReceipt, the receipt is checked and recorded within
// the same commit.
func (b *Bank) Execute(ctx context.Context, keys []ed25519.PublicKey, fn func(tx *Tx) error) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Execute")
	defer tracer.End()

	log := b.log.WithField("method", "Execute")

	pending := receiptFromContext(ctx)

	lockKeys := make([][]byte, 0, len(keys)+1)
	for _, key := range keys {
		lockKeys = append(lockKeys, key)
	}
	if pending != nil {
		lockKeys = append(lockKeys, pending.key)
	}
	unlock := b.locks.LockAll(lockKeys...)
	defer unlock()

	start := time.Now()
	var committed *Tx
	attempts, err := retry.Retry(
		func() error {
			tx := newTx(ctx, b)
			if pending != nil {
				if err := tx.checkReceipt(pending); err != nil {
					return &handlerError{err}
				}
			}
			if err := fn(tx); err != nil {
				return &handlerError{err}
			}
			if pending != nil {
				if err := tx.writeReceipt(pending); err != nil {
					return &handlerError{err}
				}
			}
			if err := tx.commit(ctx); err != nil {
				return err
			}
			committed = tx
			return nil
		},
		retry.RetriableErrors(account.ErrStaleVersion),
		retry.Context(ctx),
		retry.Limit(uint(b.conf.maxCommitAttempts.Get(ctx))),
		retry.BackoffWithJitter(backoff.BinaryExponential(time.Millisecond), b.conf.maxCommitBackoff.Get(ctx), 0.1),
	)
	metrics.RecordDuration(ctx, "bank.execute", time.Since(start))
	if attempts > 1 {
		log.WithField("attempts", attempts).Debug("execution retried due to concurrent writes")
	}

	var handlerErr *handlerError
	if errors.As(err, &handlerErr) {
		return handlerErr.err
	} else if err != nil {
		log.WithError(err).Warn("failure committing execution")
		tracer.OnError(err)
		return err
	}

	if pending != nil {
		pending.consumed = true
	}
	for _, onCommit := range committed.onCommit {
		onCommit()
	}
	return nil
}

// GetAccount returns the committed state of an account.
func (b *Bank) GetAccount(ctx context.Context, key ed25519.PublicKey) (*account.Record, error) {
	return b.accounts.Get(ctx, base58.Encode(key))
}

// GetAccountsByOwner returns a page of committed accounts owned by the
// provided program, ordered by creation.
func (b *Bank) GetAccountsByOwner(ctx context.Context, owner ed25519.PublicKey, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	return b.accounts.GetAllByOwner(ctx, base58.Encode(owner), cursor, limit, direction)
}

// Airdrop credits lamports to an account, creating a system owned account
// when none exists.
func (b *Bank) Airdrop(ctx context.Context, key ed25519.PublicKey, lamports uint64) error {
	return b.Execute(ctx, []ed25519.PublicKey{key}, func(tx *Tx) error {
		return tx.Credit(key, lamports)
	})
}

func (b *Bank) rentExemptMinimum(ctx context.Context, space int) uint64 {
	if !b.conf.enforceRent.Get(ctx) {
		return 0
	}
	return system.RentExemptMinimum(uint64(space))
}

// handlerError marks errors returned by an execution's handler, so they're
// never mistaken for a commit conflict.
type handlerError struct {
	err error
}

func (e *handlerError) Error() string {
	return e.err.Error()
}
