package bountyboard

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/bounty-board/pkg/cache"
	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/code/ledger"
	"github.com/code-payments/bounty-board/pkg/metrics"
	"github.com/code-payments/bounty-board/pkg/solana"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
	"github.com/code-payments/bounty-board/pkg/solana/token"
)

const (
	metricsStructName = "bountyboard.processor"
)

// Processor executes bounty board program instructions. Every instruction is
// validated and applied within a single bank execution, so a failed
// instruction never leaves a partial write behind.
type Processor struct {
	log     *logrus.Entry
	conf    *conf
	bank    *bank.Bank
	emitter Emitter

	boards cache.Cache
}

func NewProcessor(bank *bank.Bank, emitter Emitter, configProvider ConfigProvider) *Processor {
	conf := configProvider()

	return &Processor{
		log:     logrus.StandardLogger().WithField("type", "bountyboard/processor"),
		conf:    conf,
		bank:    bank,
		emitter: emitter,
		boards:  cache.NewCache(int(conf.boardCacheBudget.Get(context.Background()))),
	}
}

// Supports returns whether the processor executes instructions for the
// provided program.
func (p *Processor) Supports(program ed25519.PublicKey) bool {
	return bytes.Equal(program, bountyboard_program.PROGRAM_ID)
}

// Process executes a single bounty board instruction. Signer flags on the
// instruction's accounts are trusted, so callers must verify signatures first.
func (p *Processor) Process(ctx context.Context, ix solana.Instruction) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Process")
	defer tracer.End()

	instructionType := bountyboard_program.GetInstructionType(ix.Data)

	log := p.log.WithFields(logrus.Fields{
		"method":      "Process",
		"instruction": instructionType.String(),
	})
	tracer.AddAttribute("instruction", instructionType.String())

	if !p.Supports(ix.Program) {
		return bountyboard_program.ErrInvalidProgram
	}

	start := time.Now()

	var err error
	switch instructionType {
	case bountyboard_program.InstructionTypeInitializeBoard:
		err = p.initializeBoard(ctx, ix)
	case bountyboard_program.InstructionTypeInitializeBounty:
		err = p.initializeBounty(ctx, ix)
	case bountyboard_program.InstructionTypeDeposit:
		err = p.deposit(ctx, ix)
	case bountyboard_program.InstructionTypeCloseBounty:
		err = p.closeBounty(ctx, ix)
	case bountyboard_program.InstructionTypeSendBounty:
		err = p.sendBounty(ctx, ix)
	default:
		err = bountyboard_program.ErrInvalidInstructionData
	}

	metrics.RecordDuration(ctx, "bountyboard.process."+instructionType.String(), time.Since(start))

	if err != nil {
		var programErr bountyboard_program.BountyBoardError
		if errors.As(err, &programErr) || errors.Is(err, bank.ErrAlreadyProcessed) {
			log.WithError(err).Debug("instruction rejected")
		} else {
			log.WithError(err).Warn("failure processing instruction")
			tracer.OnError(err)
		}
		return err
	}
	return nil
}

// emitOnCommit emits event once tx commits. The instruction's accounts are
// still locked at that point, so events for a bounty are emitted in commit
// order.
func (p *Processor) emitOnCommit(ctx context.Context, tx *bank.Tx, event *Event) {
	tx.OnCommit(func() {
		event.CreatedAt = time.Now()
		p.emitter.Emit(ctx, event)
	})
}

// loadBoard loads and decodes the board at address within the Tx.
func loadBoard(tx *bank.Tx, address ed25519.PublicKey) (*bountyboard_program.BoardAccount, error) {
	record, err := tx.Get(address)
	if err == account.ErrAccountNotFound {
		return nil, bountyboard_program.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return decodeBoard(record)
}

func decodeBoard(record *account.Record) (*bountyboard_program.BoardAccount, error) {
	if !record.IsOwnedBy(bountyboard_program.PROGRAM_ID) {
		return nil, bountyboard_program.ErrNotFound
	}

	var board bountyboard_program.BoardAccount
	if err := board.Unmarshal(record.Data); err != nil {
		return nil, bountyboard_program.ErrNotFound
	}
	return &board, nil
}

// loadBounty loads and decodes the bounty at address within the Tx.
func loadBounty(tx *bank.Tx, address ed25519.PublicKey) (*account.Record, *bountyboard_program.BountyAccount, error) {
	record, err := tx.Get(address)
	if err == account.ErrAccountNotFound {
		return nil, nil, bountyboard_program.ErrNotFound
	} else if err != nil {
		return nil, nil, err
	}

	bounty, err := decodeBounty(record)
	if err != nil {
		return nil, nil, err
	}
	return record, bounty, nil
}

func decodeBounty(record *account.Record) (*bountyboard_program.BountyAccount, error) {
	if !record.IsOwnedBy(bountyboard_program.PROGRAM_ID) {
		return nil, bountyboard_program.ErrNotFound
	}

	var bounty bountyboard_program.BountyAccount
	if err := bounty.Unmarshal(record.Data); err != nil {
		return nil, bountyboard_program.ErrNotFound
	}
	return &bounty, nil
}

// loadTokenAccount loads a token account within the Tx, reporting a missing
// or malformed account as not found.
func loadTokenAccount(tx *bank.Tx, address ed25519.PublicKey) (*token.Account, error) {
	state, err := ledger.GetTokenAccount(tx, address)
	if err == account.ErrAccountNotFound || err == ledger.ErrInvalidTokenAccount {
		return nil, bountyboard_program.ErrNotFound
	}
	return state, err
}

// toProgramError maps failures from the token ledger and the bank onto the
// program's error codes. Anything unrecognized is an infrastructure failure
// and is returned as is.
func toProgramError(err error) error {
	switch err {
	case token.ErrorInsufficientFunds, bank.ErrInsufficientLamports:
		return bountyboard_program.ErrInsufficientFunds
	case token.ErrorMintMismatch, token.ErrorInvalidMint:
		return bountyboard_program.ErrMintMismatch
	case token.ErrorOwnerMismatch:
		return bountyboard_program.ErrUnauthorized
	case token.ErrorAlreadyInUse, bank.ErrAccountAlreadyExists:
		return bountyboard_program.ErrAlreadyInitialized
	case token.ErrorUninitializedState, token.ErrorAccountFrozen, account.ErrAccountNotFound:
		return bountyboard_program.ErrNotFound
	case token.ErrorOverflow, bank.ErrLamportsOverflow:
		return bountyboard_program.ErrInvalidArgument
	}
	return err
}

// checkAddress verifies that a supplied account is the expected derived
// address.
func checkAddress(actual, expected ed25519.PublicKey) error {
	if !bytes.Equal(actual, expected) {
		return errors.Wrapf(
			bountyboard_program.ErrInvalidArgument,
			"expected %s, got %s",
			base58.Encode(expected),
			base58.Encode(actual),
		)
	}
	return nil
}

// deriveAddresses derives the board, bounty and bounty vault addresses.
func deriveAddresses(boardId, bountyNumber uint32) (board, bounty, vault ed25519.PublicKey, bountyBump, vaultBump uint8, err error) {
	board, _, err = bountyboard_program.GetBoardAddress(&bountyboard_program.GetBoardAddressArgs{
		BoardId: boardId,
	})
	if err != nil {
		return nil, nil, nil, 0, 0, errors.Wrap(err, "error deriving board address")
	}

	bounty, bountyBump, err = bountyboard_program.GetBountyAddress(&bountyboard_program.GetBountyAddressArgs{
		Board:        board,
		BountyNumber: bountyNumber,
	})
	if err != nil {
		return nil, nil, nil, 0, 0, errors.Wrap(err, "error deriving bounty address")
	}

	vault, vaultBump, err = bountyboard_program.GetBountyVaultAddress(&bountyboard_program.GetBountyVaultAddressArgs{
		Bounty: bounty,
	})
	if err != nil {
		return nil, nil, nil, 0, 0, errors.Wrap(err, "error deriving bounty vault address")
	}

	return board, bounty, vault, bountyBump, vaultBump, nil
}
