package bountyboard

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/data/account"
	memory_account_store "github.com/code-payments/bounty-board/pkg/code/data/account/memory"
	"github.com/code-payments/bounty-board/pkg/code/ledger"
	"github.com/code-payments/bounty-board/pkg/solana"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
	"github.com/code-payments/bounty-board/pkg/solana/token"
	"github.com/code-payments/bounty-board/pkg/testutil"
)

const initialLamports = 1_000_000_000

type testEnv struct {
	ctx       context.Context
	accounts  account.Store
	bank      *bank.Bank
	ledger    *ledger.Ledger
	processor *Processor
	emitter   *recordingEmitter

	mintAuthority ed25519.PublicKey
	mint          ed25519.PublicKey
}

type testUser struct {
	key   ed25519.PublicKey
	vault ed25519.PublicKey
}

func setup(t *testing.T) *testEnv {
	return setupWithOverrides(t, &testOverrides{})
}

func setupWithOverrides(t *testing.T, overrides *testOverrides) *testEnv {
	accounts := memory_account_store.New()
	b := bank.New(accounts, bank.WithEnvConfigs())
	emitter := &recordingEmitter{}

	env := &testEnv{
		ctx:       context.Background(),
		accounts:  accounts,
		bank:      b,
		ledger:    ledger.New(b),
		processor: NewProcessor(b, emitter, withManualTestOverrides(overrides)),
		emitter:   emitter,
	}

	env.mintAuthority = testutil.NewRandomKey(t)
	env.mint = env.createMint(t)
	return env
}

func (e *testEnv) createMint(t *testing.T) ed25519.PublicKey {
	mint := testutil.NewRandomKey(t)
	require.NoError(t, e.bank.Airdrop(e.ctx, e.mintAuthority, initialLamports))
	require.NoError(t, e.ledger.Process(e.ctx, token.InitializeMint(mint, e.mintAuthority, e.mintAuthority, 0)))
	return mint
}

// newUser creates a funded wallet with an associated token account for the
// provided mint holding tokens.
func (e *testEnv) newUser(t *testing.T, mint ed25519.PublicKey, tokens uint64) *testUser {
	key := testutil.NewRandomKey(t)
	require.NoError(t, e.bank.Airdrop(e.ctx, key, initialLamports))

	ix, vault, err := token.CreateAssociatedTokenAccount(key, key, mint)
	require.NoError(t, err)
	require.NoError(t, e.ledger.Process(e.ctx, ix))

	if tokens > 0 {
		require.NoError(t, e.ledger.Process(e.ctx, token.MintTo(mint, vault, e.mintAuthority, tokens)))
	}

	return &testUser{
		key:   key,
		vault: vault,
	}
}

func (e *testEnv) initializeBoardIx(t *testing.T, boardId uint32, mint, authority ed25519.PublicKey) solana.Instruction {
	board, _, _, _, _, err := deriveAddresses(boardId, 0)
	require.NoError(t, err)

	return bountyboard_program.NewInitializeBoardInstruction(
		&bountyboard_program.InitializeBoardInstructionAccounts{
			Board:        board,
			AcceptedMint: mint,
			Authority:    authority,
		},
		&bountyboard_program.InitializeBoardInstructionArgs{
			BoardId: boardId,
		},
	)
}

func (e *testEnv) initializeBoard(t *testing.T, boardId uint32, mint, authority ed25519.PublicKey) error {
	return e.processor.Process(e.ctx, e.initializeBoardIx(t, boardId, mint, authority))
}

func (e *testEnv) initializeBountyIx(t *testing.T, boardId, bountyNumber uint32, mint, authority ed25519.PublicKey) solana.Instruction {
	board, bounty, vault, _, _, err := deriveAddresses(boardId, bountyNumber)
	require.NoError(t, err)

	return bountyboard_program.NewInitializeBountyInstruction(
		&bountyboard_program.InitializeBountyInstructionAccounts{
			Board:        board,
			Bounty:       bounty,
			AcceptedMint: mint,
			BountyVault:  vault,
			Authority:    authority,
		},
		&bountyboard_program.InitializeBountyInstructionArgs{
			BoardId:      boardId,
			BountyNumber: bountyNumber,
		},
	)
}

func (e *testEnv) initializeBounty(t *testing.T, boardId, bountyNumber uint32, mint, authority ed25519.PublicKey) error {
	return e.processor.Process(e.ctx, e.initializeBountyIx(t, boardId, bountyNumber, mint, authority))
}

func (e *testEnv) depositIx(t *testing.T, boardId, bountyNumber uint32, sponsor, sponsorVault ed25519.PublicKey, amount uint64) solana.Instruction {
	board, bounty, vault, _, _, err := deriveAddresses(boardId, bountyNumber)
	require.NoError(t, err)

	return bountyboard_program.NewDepositInstruction(
		&bountyboard_program.DepositInstructionAccounts{
			Board:        board,
			Bounty:       bounty,
			BountyVault:  vault,
			SponsorVault: sponsorVault,
			Authority:    sponsor,
		},
		&bountyboard_program.DepositInstructionArgs{
			BoardId:      boardId,
			BountyNumber: bountyNumber,
			Amount:       amount,
		},
	)
}

func (e *testEnv) deposit(t *testing.T, boardId, bountyNumber uint32, sponsor *testUser, amount uint64) error {
	return e.processor.Process(e.ctx, e.depositIx(t, boardId, bountyNumber, sponsor.key, sponsor.vault, amount))
}

func (e *testEnv) closeBountyIx(t *testing.T, boardId, bountyNumber uint32, hunter *string, authority ed25519.PublicKey) solana.Instruction {
	board, bounty, _, _, _, err := deriveAddresses(boardId, bountyNumber)
	require.NoError(t, err)

	return bountyboard_program.NewCloseBountyInstruction(
		&bountyboard_program.CloseBountyInstructionAccounts{
			Board:     board,
			Bounty:    bounty,
			Authority: authority,
		},
		&bountyboard_program.CloseBountyInstructionArgs{
			BoardId:      boardId,
			BountyNumber: bountyNumber,
			BountyHunter: hunter,
		},
	)
}

func (e *testEnv) closeBounty(t *testing.T, boardId, bountyNumber uint32, hunter *string, authority ed25519.PublicKey) error {
	return e.processor.Process(e.ctx, e.closeBountyIx(t, boardId, bountyNumber, hunter, authority))
}

func (e *testEnv) sendBountyIx(t *testing.T, boardId, bountyNumber uint32, hunter string, authority, userVault, boardAuthority ed25519.PublicKey) solana.Instruction {
	board, bounty, vault, _, _, err := deriveAddresses(boardId, bountyNumber)
	require.NoError(t, err)

	return bountyboard_program.NewSendBountyInstruction(
		&bountyboard_program.SendBountyInstructionAccounts{
			Board:          board,
			Bounty:         bounty,
			BountyVault:    vault,
			UserVault:      userVault,
			BoardAuthority: boardAuthority,
			Authority:      authority,
		},
		&bountyboard_program.SendBountyInstructionArgs{
			BoardId:      boardId,
			BountyNumber: bountyNumber,
			BountyHunter: hunter,
		},
	)
}

func (e *testEnv) sendBounty(t *testing.T, boardId, bountyNumber uint32, hunter string, caller *testUser, boardAuthority ed25519.PublicKey) error {
	return e.processor.Process(e.ctx, e.sendBountyIx(t, boardId, bountyNumber, hunter, caller.key, caller.vault, boardAuthority))
}

func (e *testEnv) assertTokenBalance(t *testing.T, vault ed25519.PublicKey, expected uint64) {
	state, err := e.ledger.GetTokenAccount(e.ctx, vault)
	require.NoError(t, err)
	assert.Equal(t, expected, state.Amount)
}

func (e *testEnv) getBounty(t *testing.T, boardId, bountyNumber uint32) *bountyboard_program.BountyAccount {
	bounty, err := e.processor.GetBounty(e.ctx, boardId, bountyNumber)
	require.NoError(t, err)
	return bounty.State
}

func (e *testEnv) getLamports(t *testing.T, key ed25519.PublicKey) uint64 {
	record, err := e.bank.GetAccount(e.ctx, key)
	require.NoError(t, err)
	return record.Lamports
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recordingEmitter) Emit(_ context.Context, event *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recordingEmitter) getEvents() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]*Event, len(r.events))
	copy(res, r.events)
	return res
}

func (r *recordingEmitter) getEventTypes() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]EventType, len(r.events))
	for i, event := range r.events {
		res[i] = event.Type
	}
	return res
}


func withoutSigner(ix solana.Instruction, key ed25519.PublicKey) solana.Instruction {
	accounts := make([]solana.AccountMeta, len(ix.Accounts))
	copy(accounts, ix.Accounts)
	for i := range accounts {
		if accounts[i].PublicKey.Equal(key) {
			accounts[i].IsSigner = false
		}
	}
	ix.Accounts = accounts
	return ix
}
