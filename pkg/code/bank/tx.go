package bank

import (
	"context"
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/solana/system"
)

// Tx is the working set of a single execution. Reads are served from the
// account store once and cached; writes are buffered until commit.
type Tx struct {
	ctx     context.Context
	bank    *Bank
	entries map[string]*entry

	onCommit []func()
}

type entry struct {
	// original is the state loaded from the store, or nil if the account
	// didn't exist.
	original *account.Record

	// current is the state as of the latest write, or nil if the account
	// doesn't exist (or was closed within this Tx).
	current *account.Record

	dirty bool
}

func newTx(ctx context.Context, bank *Bank) *Tx {
	return &Tx{
		ctx:     ctx,
		bank:    bank,
		entries: make(map[string]*entry),
	}
}

func (tx *Tx) load(key ed25519.PublicKey) (*entry, error) {
	address := base58.Encode(key)
	if e, ok := tx.entries[address]; ok {
		return e, nil
	}

	e := &entry{}
	record, err := tx.bank.accounts.Get(tx.ctx, address)
	switch err {
	case nil:
		e.original = record
		e.current = record.Clone()
	case account.ErrAccountNotFound:
	default:
		return nil, errors.Wrapf(err, "error loading account %s", address)
	}

	tx.entries[address] = e
	return e, nil
}

// OnCommit registers fn to run once the Tx has been committed. Callbacks run
// in registration order while the execution's keys are still locked, so they
// observe commits to those keys in order. They never run for a Tx that fails
// or is retried.
func (tx *Tx) OnCommit(fn func()) {
	tx.onCommit = append(tx.onCommit, fn)
}

// Get returns a copy of the account's current state within the Tx.
func (tx *Tx) Get(key ed25519.PublicKey) (*account.Record, error) {
	e, err := tx.load(key)
	if err != nil {
		return nil, err
	}
	if e.current == nil {
		return nil, account.ErrAccountNotFound
	}
	return e.current.Clone(), nil
}

// Exists returns whether the account currently exists within the Tx.
func (tx *Tx) Exists(key ed25519.PublicKey) (bool, error) {
	e, err := tx.load(key)
	if err != nil {
		return false, err
	}
	return e.current != nil, nil
}

// Create allocates a new account owned by owner, funding its rent exempt
// minimum from payer.
func (tx *Tx) Create(payer, key, owner ed25519.PublicKey, data []byte) error {
	e, err := tx.load(key)
	if err != nil {
		return err
	}
	if e.current != nil || e.original != nil {
		return ErrAccountAlreadyExists
	}

	rent := tx.bank.rentExemptMinimum(tx.ctx, len(data))
	if rent > 0 {
		if err := tx.Debit(payer, rent); err != nil {
			return err
		}
	}

	record := &account.Record{
		Address:  base58.Encode(key),
		Owner:    base58.Encode(owner),
		Lamports: rent,
		Data:     make([]byte, len(data)),
	}
	copy(record.Data, data)

	e.current = record
	e.dirty = true
	return nil
}

// Update writes the data and lamports of an existing account. Ownership can't
// be changed.
func (tx *Tx) Update(record *account.Record) error {
	key, err := base58.Decode(record.Address)
	if err != nil {
		return errors.Wrap(err, "invalid address")
	}

	e, err := tx.load(key)
	if err != nil {
		return err
	}
	if e.current == nil {
		return account.ErrAccountNotFound
	}
	if e.current.Owner != record.Owner {
		return account.ErrInvalidAccount
	}

	e.current.Lamports = record.Lamports
	e.current.Data = make([]byte, len(record.Data))
	copy(e.current.Data, record.Data)
	e.dirty = true
	return nil
}

// Credit adds lamports to an account. Crediting an account that doesn't exist
// creates it under the system program.
func (tx *Tx) Credit(key ed25519.PublicKey, lamports uint64) error {
	e, err := tx.load(key)
	if err != nil {
		return err
	}

	if e.current == nil {
		if e.original != nil {
			return ErrAccountAlreadyExists
		}

		e.current = &account.Record{
			Address: base58.Encode(key),
			Owner:   base58.Encode(system.ProgramKey[:]),
		}
	}

	if e.current.Lamports > math.MaxUint64-lamports {
		return ErrLamportsOverflow
	}

	e.current.Lamports += lamports
	e.dirty = true
	return nil
}

// Debit removes lamports from an existing account.
func (tx *Tx) Debit(key ed25519.PublicKey, lamports uint64) error {
	e, err := tx.load(key)
	if err != nil {
		return err
	}
	if e.current == nil {
		return ErrInsufficientLamports
	}
	if e.current.Lamports < lamports {
		return ErrInsufficientLamports
	}

	e.current.Lamports -= lamports
	e.dirty = true
	return nil
}

// Close deletes an account, moving its lamports to destination.
func (tx *Tx) Close(key, destination ed25519.PublicKey) error {
	if slices.Equal(key, destination) {
		return account.ErrInvalidAccount
	}

	e, err := tx.load(key)
	if err != nil {
		return err
	}
	if e.current == nil {
		return account.ErrAccountNotFound
	}

	if err := tx.Credit(destination, e.current.Lamports); err != nil {
		return err
	}

	e.current = nil
	e.dirty = true
	return nil
}

func (tx *Tx) commit(ctx context.Context) error {
	var upserts, deletes []*account.Record

	addresses := make([]string, 0, len(tx.entries))
	for address := range tx.entries {
		addresses = append(addresses, address)
	}
	slices.Sort(addresses)

	for _, address := range addresses {
		e := tx.entries[address]
		if !e.dirty {
			continue
		}

		switch {
		case e.current != nil:
			if e.original != nil {
				e.current.Version = e.original.Version
			} else {
				e.current.Version = 0
			}
			upserts = append(upserts, e.current)
		case e.original != nil:
			deletes = append(deletes, e.original)
		}
	}

	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}
	return tx.bank.accounts.Commit(ctx, upserts, deletes)
}
