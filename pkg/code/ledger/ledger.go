package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/metrics"
	"github.com/code-payments/bounty-board/pkg/solana"
	"github.com/code-payments/bounty-board/pkg/solana/system"
	"github.com/code-payments/bounty-board/pkg/solana/token"
)

const (
	metricsStructName = "ledger.ledger"
)

var (
	ErrInvalidTokenAccount = errors.New("invalid token account")
	ErrInvalidMint         = errors.New("invalid mint")
	ErrMissingSignature    = errors.New("missing required signature")
)

// Ledger executes token, associated token account and system transfer
// instructions against the bank.
type Ledger struct {
	log  *logrus.Entry
	bank *bank.Bank
}

func New(bank *bank.Bank) *Ledger {
	return &Ledger{
		log:  logrus.StandardLogger().WithField("type", "ledger/ledger"),
		bank: bank,
	}
}

// Supports returns whether the ledger can execute instructions for the
// provided program.
func (l *Ledger) Supports(program ed25519.PublicKey) bool {
	return bytes.Equal(program, token.ProgramKey) ||
		bytes.Equal(program, token.AssociatedTokenAccountProgramKey) ||
		bytes.Equal(program, system.ProgramKey[:])
}

// Process executes a single instruction atomically. Signer flags on the
// instruction's accounts are trusted, so callers must verify signatures first.
func (l *Ledger) Process(ctx context.Context, ix solana.Instruction) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Process")
	defer tracer.End()

	log := l.log.WithFields(logrus.Fields{
		"method":  "Process",
		"program": base58.Encode(ix.Program),
	})

	handler, err := l.getHandler(ix)
	if err != nil {
		log.WithError(err).Debug("invalid instruction")
		return err
	}

	keys := make([]ed25519.PublicKey, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		keys[i] = meta.PublicKey
	}

	err = l.bank.Execute(ctx, keys, handler)
	if err != nil {
		log.WithError(err).Debug("instruction failed")
		tracer.OnError(err)
		return err
	}
	return nil
}

// GetTokenAccount returns the committed state of a token account.
func (l *Ledger) GetTokenAccount(ctx context.Context, key ed25519.PublicKey) (*token.Account, error) {
	record, err := l.bank.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return unmarshalTokenAccount(record)
}

// GetMint returns the committed state of a mint.
func (l *Ledger) GetMint(ctx context.Context, key ed25519.PublicKey) (*token.Mint, error) {
	record, err := l.bank.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return unmarshalMint(record)
}

func (l *Ledger) getHandler(ix solana.Instruction) (func(tx *bank.Tx) error, error) {
	switch {
	case bytes.Equal(ix.Program, token.ProgramKey):
		return getTokenHandler(ix)
	case bytes.Equal(ix.Program, token.AssociatedTokenAccountProgramKey):
		decompiled, err := token.DecompileCreateAssociatedAccount(ix)
		if err != nil {
			return nil, err
		}
		if !ix.SignedBy(decompiled.Subsidizer) {
			return nil, ErrMissingSignature
		}
		return func(tx *bank.Tx) error {
			_, err := CreateAssociatedAccount(tx, decompiled.Subsidizer, decompiled.Owner, decompiled.Mint)
			return err
		}, nil
	case bytes.Equal(ix.Program, system.ProgramKey[:]):
		decompiled, err := system.DecompileTransfer(ix)
		if err != nil {
			return nil, err
		}
		if !ix.SignedBy(decompiled.From) {
			return nil, ErrMissingSignature
		}
		return func(tx *bank.Tx) error {
			if err := tx.Debit(decompiled.From, decompiled.Lamports); err != nil {
				return err
			}
			return tx.Credit(decompiled.To, decompiled.Lamports)
		}, nil
	default:
		return nil, solana.ErrIncorrectProgram
	}
}

func getTokenHandler(ix solana.Instruction) (func(tx *bank.Tx) error, error) {
	command, err := token.GetCommand(ix)
	if err != nil {
		return nil, err
	}

	switch command {
	case token.CommandInitializeMint:
		decompiled, err := token.DecompileInitializeMint(ix)
		if err != nil {
			return nil, err
		}
		if !ix.SignedBy(decompiled.Mint) || !ix.SignedBy(decompiled.Payer) {
			return nil, ErrMissingSignature
		}
		return func(tx *bank.Tx) error {
			return InitializeMint(tx, decompiled.Payer, decompiled.Mint, decompiled.MintAuthority, decompiled.Decimals)
		}, nil
	case token.CommandMintTo:
		decompiled, err := token.DecompileMintTo(ix)
		if err != nil {
			return nil, err
		}
		if !ix.SignedBy(decompiled.MintAuthority) {
			return nil, ErrMissingSignature
		}
		return func(tx *bank.Tx) error {
			return MintTo(tx, decompiled.Mint, decompiled.Destination, decompiled.MintAuthority, decompiled.Amount)
		}, nil
	case token.CommandTransfer:
		decompiled, err := token.DecompileTransfer(ix)
		if err != nil {
			return nil, err
		}
		if !ix.SignedBy(decompiled.Owner) {
			return nil, ErrMissingSignature
		}
		return func(tx *bank.Tx) error {
			return Transfer(tx, decompiled.Source, decompiled.Destination, decompiled.Owner, decompiled.Amount)
		}, nil
	case token.CommandCloseAccount:
		decompiled, err := token.DecompileCloseAccount(ix)
		if err != nil {
			return nil, err
		}
		if !ix.SignedBy(decompiled.Owner) {
			return nil, ErrMissingSignature
		}
		return func(tx *bank.Tx) error {
			return CloseAccount(tx, decompiled.Account, decompiled.Destination, decompiled.Owner)
		}, nil
	default:
		return nil, token.ErrorInvalidInstruction
	}
}
