package bank

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
)

var (
	ErrAlreadyProcessed = errors.New("message already processed")

	// ReceiptOwner owns the receipt accounts recorded for processed messages.
	ReceiptOwner = newReceiptOwner()
)

func newReceiptOwner() ed25519.PublicKey {
	hash := sha256.Sum256([]byte("bank/receipt"))
	return hash[:]
}

type receiptContextKey struct{}

// receipt marks a signed message as processed. It's written in the same
// commit as the first successful execution under its context.
type receipt struct {
	key      ed25519.PublicKey
	data     []byte
	consumed bool
}

// WithReceipt returns a context under which the next successful execution
// also records a receipt account at key, holding data. An execution that finds
// the receipt already recorded fails with ErrAlreadyProcessed, and nothing is
// committed.
func WithReceipt(ctx context.Context, key ed25519.PublicKey, data []byte) context.Context {
	return context.WithValue(ctx, receiptContextKey{}, &receipt{
		key:  key,
		data: data,
	})
}

// GetReceiptKey returns the receipt address for a signed message.
func GetReceiptKey(message []byte) ed25519.PublicKey {
	hash := sha256.Sum256(message)
	return hash[:]
}

func receiptFromContext(ctx context.Context) *receipt {
	r, ok := ctx.Value(receiptContextKey{}).(*receipt)
	if !ok || r.consumed {
		return nil
	}
	return r
}

func (tx *Tx) checkReceipt(r *receipt) error {
	exists, err := tx.Exists(r.key)
	if err != nil {
		return err
	} else if exists {
		return ErrAlreadyProcessed
	}
	return nil
}

// writeReceipt records the receipt without funding rent. Receipts hold no
// lamports and can't be closed by programs.
func (tx *Tx) writeReceipt(r *receipt) error {
	e, err := tx.load(r.key)
	if err != nil {
		return err
	}
	if e.current != nil {
		return ErrAlreadyProcessed
	}

	e.current = newReceiptRecord(r)
	e.dirty = true
	return nil
}

func newReceiptRecord(r *receipt) *account.Record {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &account.Record{
		Address: base58.Encode(r.key),
		Owner:   base58.Encode(ReceiptOwner),
		Data:    data,
	}
}
