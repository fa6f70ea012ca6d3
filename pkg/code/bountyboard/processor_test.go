package bountyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/code-payments/bounty-board/pkg/database/query"
	"github.com/code-payments/bounty-board/pkg/pointer"
	"github.com/code-payments/bounty-board/pkg/solana"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
	"github.com/code-payments/bounty-board/pkg/solana/system"
	"github.com/code-payments/bounty-board/pkg/solana/token"
	"github.com/code-payments/bounty-board/pkg/testutil"
)

func TestWalkthrough(t *testing.T) {
	env := setup(t)

	user1 := env.newUser(t, env.mint, 500)
	user2 := env.newUser(t, env.mint, 25)

	require.NoError(t, env.initializeBoard(t, 1, env.mint, user1.key))
	require.NoError(t, env.initializeBounty(t, 1, 2, env.mint, user1.key))

	bounty := env.getBounty(t, 1, 2)
	assert.EqualValues(t, 0, bounty.Total)
	assert.False(t, bounty.IsClosed)
	assert.Nil(t, bounty.BountyHunter)

	require.NoError(t, env.deposit(t, 1, 2, user1, 100))

	vaultAddress, vault, err := env.processor.GetBountyVault(env.ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 100, vault.Amount)
	env.assertTokenBalance(t, user1.vault, 400)
	assert.EqualValues(t, 100, env.getBounty(t, 1, 2).Total)

	require.NoError(t, env.closeBounty(t, 1, 2, pointer.String("user2"), user1.key))

	bounty = env.getBounty(t, 1, 2)
	assert.True(t, bounty.IsClosed)
	require.NotNil(t, bounty.BountyHunter)
	assert.Equal(t, "user2", *bounty.BountyHunter)

	lamportsBeforeSend := env.getLamports(t, user1.key)

	require.NoError(t, env.sendBounty(t, 1, 2, "user2", user2, user1.key))

	_, err = env.processor.GetBounty(env.ctx, 1, 2)
	assert.Equal(t, bountyboard_program.ErrNotFound, err)
	_, _, err = env.processor.GetBountyVault(env.ctx, 1, 2)
	assert.Equal(t, bountyboard_program.ErrNotFound, err)
	_, err = env.bank.GetAccount(env.ctx, vaultAddress)
	assert.Error(t, err)

	env.assertTokenBalance(t, user2.vault, 125)
	env.assertTokenBalance(t, user1.vault, 400)

	// Both the bounty and vault allocations were reclaimed by the board authority
	expectedReclaim := system.RentExemptMinimum(bountyboard_program.BountyAccountSize) + system.RentExemptMinimum(token.AccountSize)
	assert.Equal(t, lamportsBeforeSend+expectedReclaim, env.getLamports(t, user1.key))

	_, board, err := env.processor.GetBoard(env.ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, user1.key, board.Authority)
	assert.EqualValues(t, env.mint, board.AcceptedMint)
	assert.EqualValues(t, 1, board.BoardId)

	assert.Equal(t, []EventType{
		EventTypeBoardInitialized,
		EventTypeBountyInitialized,
		EventTypeDeposited,
		EventTypeBountyClosed,
		EventTypeBountySent,
	}, env.emitter.getEventTypes())
}

func TestInitializeBoard(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	other := env.newUser(t, env.mint, 0)

	unsigned := withoutSigner(env.initializeBoardIx(t, 1, env.mint, authority.key), authority.key)
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.processor.Process(env.ctx, unsigned))

	assert.Equal(t, bountyboard_program.ErrNotFound, env.initializeBoard(t, 1, testutil.NewRandomKey(t), authority.key))

	// A token account isn't a mint
	assert.Equal(t, bountyboard_program.ErrNotFound, env.initializeBoard(t, 1, authority.vault, authority.key))

	wrongAddress := env.initializeBoardIx(t, 1, env.mint, authority.key)
	wrongAddress.Accounts[0].PublicKey = testutil.NewRandomKey(t)
	assert.ErrorIs(t, env.processor.Process(env.ctx, wrongAddress), bountyboard_program.ErrInvalidArgument)

	_, _, err := env.processor.GetBoard(env.ctx, 1)
	assert.Equal(t, bountyboard_program.ErrNotFound, err)

	lamportsBefore := env.getLamports(t, authority.key)
	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	assert.Equal(t, lamportsBefore-system.RentExemptMinimum(bountyboard_program.BoardAccountSize), env.getLamports(t, authority.key))

	// Re-initializing never overwrites the existing board
	assert.Equal(t, bountyboard_program.ErrAlreadyInitialized, env.initializeBoard(t, 1, env.mint, other.key))
	assert.Equal(t, bountyboard_program.ErrAlreadyInitialized, env.initializeBoard(t, 1, env.createMint(t), authority.key))

	_, board, err := env.processor.GetBoard(env.ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, authority.key, board.Authority)
	assert.EqualValues(t, env.mint, board.AcceptedMint)

	require.NoError(t, env.initializeBoard(t, 2, env.mint, other.key))
}

func TestInitializeBoard_InsufficientLamports(t *testing.T) {
	env := setup(t)

	authority := testutil.NewRandomKey(t)
	require.NoError(t, env.bank.Airdrop(env.ctx, authority, system.RentExemptMinimum(bountyboard_program.BoardAccountSize)-1))

	assert.Equal(t, bountyboard_program.ErrInsufficientFunds, env.initializeBoard(t, 1, env.mint, authority))

	_, _, err := env.processor.GetBoard(env.ctx, 1)
	assert.Equal(t, bountyboard_program.ErrNotFound, err)
}

func TestInitializeBounty(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	sponsor := env.newUser(t, env.mint, 0)
	otherMint := env.createMint(t)

	assert.Equal(t, bountyboard_program.ErrNotFound, env.initializeBounty(t, 1, 1, env.mint, sponsor.key))

	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))

	assert.Equal(t, bountyboard_program.ErrMintMismatch, env.initializeBounty(t, 1, 1, otherMint, sponsor.key))

	unsigned := withoutSigner(env.initializeBountyIx(t, 1, 1, env.mint, sponsor.key), sponsor.key)
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.processor.Process(env.ctx, unsigned))

	wrongVault := env.initializeBountyIx(t, 1, 1, env.mint, sponsor.key)
	wrongVault.Accounts[3].PublicKey = testutil.NewRandomKey(t)
	assert.ErrorIs(t, env.processor.Process(env.ctx, wrongVault), bountyboard_program.ErrInvalidArgument)

	_, err := env.processor.GetBounty(env.ctx, 1, 1)
	assert.Equal(t, bountyboard_program.ErrNotFound, err)

	// Any party may create a bounty slot
	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, sponsor.key))
	assert.Equal(t, bountyboard_program.ErrAlreadyInitialized, env.initializeBounty(t, 1, 1, env.mint, authority.key))

	bounty := env.getBounty(t, 1, 1)
	assert.EqualValues(t, 1, bounty.BountyNumber)
	assert.EqualValues(t, 0, bounty.Total)
	assert.False(t, bounty.IsClosed)
	assert.Nil(t, bounty.BountyHunter)

	board, _, _, _, _, err := deriveAddresses(1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, board, bounty.Board)

	_, vault, err := env.processor.GetBountyVault(env.ctx, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, env.mint, vault.Mint)
	assert.EqualValues(t, board, vault.Owner)
	assert.EqualValues(t, 0, vault.Amount)
}

func TestDeposit_Validation(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	sponsor := env.newUser(t, env.mint, 100)
	stranger := env.newUser(t, env.mint, 100)

	otherMint := env.createMint(t)
	otherSponsor := env.newUser(t, otherMint, 100)

	assert.Equal(t, bountyboard_program.ErrNotFound, env.deposit(t, 1, 1, sponsor, 10))

	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	assert.Equal(t, bountyboard_program.ErrNotFound, env.deposit(t, 1, 1, sponsor, 10))

	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, authority.key))

	assert.Equal(t, bountyboard_program.ErrInvalidArgument, env.deposit(t, 1, 1, sponsor, 0))
	assert.Equal(t, bountyboard_program.ErrInsufficientFunds, env.deposit(t, 1, 1, sponsor, 101))
	assert.Equal(t, bountyboard_program.ErrMintMismatch, env.deposit(t, 1, 1, otherSponsor, 10))

	// The signer must own the sponsor vault
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.processor.Process(env.ctx, env.depositIx(t, 1, 1, stranger.key, sponsor.vault, 10)))

	unsigned := withoutSigner(env.depositIx(t, 1, 1, sponsor.key, sponsor.vault, 10), sponsor.key)
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.processor.Process(env.ctx, unsigned))

	assert.Equal(t, bountyboard_program.ErrNotFound, env.processor.Process(env.ctx, env.depositIx(t, 1, 1, sponsor.key, testutil.NewRandomKey(t), 10)))

	env.assertTokenBalance(t, sponsor.vault, 100)
	assert.EqualValues(t, 0, env.getBounty(t, 1, 1).Total)

	require.NoError(t, env.closeBounty(t, 1, 1, pointer.String("hunter"), authority.key))
	assert.Equal(t, bountyboard_program.ErrBountyClosed, env.deposit(t, 1, 1, sponsor, 10))
	env.assertTokenBalance(t, sponsor.vault, 100)
}

func TestDeposit_Additivity(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, authority.key))

	amounts := []uint64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}

	var expected uint64
	sponsors := make([]*testUser, len(amounts))
	for i, amount := range amounts {
		sponsors[i] = env.newUser(t, env.mint, 2*amount)
		expected += 2 * amount
	}

	// Each sponsor deposits twice, concurrently with every other sponsor
	var group errgroup.Group
	for i, amount := range amounts {
		ix := env.depositIx(t, 1, 1, sponsors[i].key, sponsors[i].vault, amount)
		for j := 0; j < 2; j++ {
			group.Go(func() error {
				return env.processor.Process(env.ctx, ix)
			})
		}
	}
	require.NoError(t, group.Wait())

	assert.Equal(t, expected, env.getBounty(t, 1, 1).Total)

	_, vault, err := env.processor.GetBountyVault(env.ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, expected, vault.Amount)

	for _, sponsor := range sponsors {
		env.assertTokenBalance(t, sponsor.vault, 0)
	}
}

func TestDeposit_EventsInCommitOrder(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, authority.key))

	sponsors := make([]*testUser, 20)
	for i := range sponsors {
		sponsors[i] = env.newUser(t, env.mint, 1)
	}

	var group errgroup.Group
	for _, sponsor := range sponsors {
		ix := env.depositIx(t, 1, 1, sponsor.key, sponsor.vault, 1)
		group.Go(func() error {
			return env.processor.Process(env.ctx, ix)
		})
	}
	require.NoError(t, group.Wait())

	var totals []uint64
	for _, event := range env.emitter.getEvents() {
		if event.Type == EventTypeDeposited {
			totals = append(totals, event.Total)
		}
	}
	require.Len(t, totals, len(sponsors))
	for i, total := range totals {
		assert.EqualValues(t, i+1, total)
	}
}

func TestCloseBounty(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	stranger := env.newUser(t, env.mint, 0)

	assert.Equal(t, bountyboard_program.ErrNotFound, env.closeBounty(t, 1, 1, pointer.String("hunter"), authority.key))

	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	assert.Equal(t, bountyboard_program.ErrNotFound, env.closeBounty(t, 1, 1, pointer.String("hunter"), authority.key))

	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, stranger.key))

	tooLong := make([]byte, bountyboard_program.MaxBountyHunterLength+1)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	for _, hunter := range []*string{nil, pointer.String(""), pointer.String(string(tooLong)), pointer.String(string([]byte{0xff}))} {
		assert.Equal(t, bountyboard_program.ErrInvalidArgument, env.closeBounty(t, 1, 1, hunter, authority.key))
	}

	// Only the board authority may close, and a failed close changes nothing
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.closeBounty(t, 1, 1, pointer.String("hunter"), stranger.key))
	unsigned := withoutSigner(env.closeBountyIx(t, 1, 1, pointer.String("hunter"), authority.key), authority.key)
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.processor.Process(env.ctx, unsigned))

	bounty := env.getBounty(t, 1, 1)
	assert.False(t, bounty.IsClosed)
	assert.Nil(t, bounty.BountyHunter)

	maxLength := string(tooLong[:bountyboard_program.MaxBountyHunterLength])
	require.NoError(t, env.closeBounty(t, 1, 1, pointer.String(maxLength), authority.key))

	bounty = env.getBounty(t, 1, 1)
	assert.True(t, bounty.IsClosed)
	require.NotNil(t, bounty.BountyHunter)
	assert.Equal(t, maxLength, *bounty.BountyHunter)

	// A retried close surfaces the error instead of silently succeeding, and
	// the recorded hunter never changes
	assert.Equal(t, bountyboard_program.ErrAlreadyClosed, env.closeBounty(t, 1, 1, pointer.String("other"), authority.key))
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.closeBounty(t, 1, 1, pointer.String("other"), stranger.key))

	bounty = env.getBounty(t, 1, 1)
	assert.Equal(t, maxLength, *bounty.BountyHunter)
}

func TestSendBounty_Validation(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	sponsor := env.newUser(t, env.mint, 100)
	hunter := env.newUser(t, env.mint, 0)

	otherMint := env.createMint(t)
	otherHunter := env.newUser(t, otherMint, 0)

	assert.Equal(t, bountyboard_program.ErrNotFound, env.sendBounty(t, 1, 1, "hunter", hunter, authority.key))

	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, sponsor.key))
	require.NoError(t, env.deposit(t, 1, 1, sponsor, 60))

	// Open bounties can't be paid out
	assert.Equal(t, bountyboard_program.ErrHunterMismatch, env.sendBounty(t, 1, 1, "hunter", hunter, authority.key))
	assert.Equal(t, bountyboard_program.ErrHunterMismatch, env.sendBounty(t, 1, 1, "", hunter, authority.key))

	require.NoError(t, env.closeBounty(t, 1, 1, pointer.String("hunter"), authority.key))

	assert.Equal(t, bountyboard_program.ErrHunterMismatch, env.sendBounty(t, 1, 1, "Hunter", hunter, authority.key))
	assert.Equal(t, bountyboard_program.ErrHunterMismatch, env.sendBounty(t, 1, 1, "hunter ", hunter, authority.key))
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.sendBounty(t, 1, 1, "hunter", hunter, sponsor.key))
	assert.Equal(t, bountyboard_program.ErrMintMismatch, env.sendBounty(t, 1, 1, "hunter", otherHunter, authority.key))
	assert.Equal(t, bountyboard_program.ErrNotFound, env.processor.Process(env.ctx, env.sendBountyIx(t, 1, 1, "hunter", hunter.key, testutil.NewRandomKey(t), authority.key)))

	unsigned := withoutSigner(env.sendBountyIx(t, 1, 1, "hunter", hunter.key, hunter.vault, authority.key), hunter.key)
	assert.Equal(t, bountyboard_program.ErrUnauthorized, env.processor.Process(env.ctx, unsigned))

	vaultAddress, vault, err := env.processor.GetBountyVault(env.ctx, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 60, vault.Amount)

	// The payout can't be directed back into the vault itself
	assert.Equal(t, bountyboard_program.ErrInvalidArgument, env.processor.Process(env.ctx, env.sendBountyIx(t, 1, 1, "hunter", hunter.key, vaultAddress, authority.key)))

	// Anyone holding the name may claim into their own vault
	require.NoError(t, env.sendBounty(t, 1, 1, "hunter", hunter, authority.key))
	env.assertTokenBalance(t, hunter.vault, 60)

	assert.Equal(t, bountyboard_program.ErrNotFound, env.sendBounty(t, 1, 1, "hunter", hunter, authority.key))
	env.assertTokenBalance(t, hunter.vault, 60)

	// A sent bounty slot can be initialized again
	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, sponsor.key))
	assert.EqualValues(t, 0, env.getBounty(t, 1, 1).Total)
}

func TestSendBounty_Race(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)
	sponsor := env.newUser(t, env.mint, 100)
	hunter := env.newUser(t, env.mint, 0)

	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	require.NoError(t, env.initializeBounty(t, 1, 1, env.mint, sponsor.key))
	require.NoError(t, env.deposit(t, 1, 1, sponsor, 100))
	require.NoError(t, env.closeBounty(t, 1, 1, pointer.String("hunter"), authority.key))

	ix := env.sendBountyIx(t, 1, 1, "hunter", hunter.key, hunter.vault, authority.key)
	results := make([]error, 10)

	var group errgroup.Group
	for i := range results {
		i := i
		group.Go(func() error {
			results[i] = env.processor.Process(env.ctx, ix)
			return nil
		})
	}
	require.NoError(t, group.Wait())

	var successes int
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.Equal(t, bountyboard_program.ErrNotFound, err)
		}
	}
	assert.Equal(t, 1, successes)

	env.assertTokenBalance(t, hunter.vault, 100)
}

func TestGetBountiesByBoard(t *testing.T) {
	env := setupWithOverrides(t, &testOverrides{maxBountiesPageSize: 3})

	authority := env.newUser(t, env.mint, 0)

	_, err := env.processor.GetBountiesByBoard(env.ctx, 1, query.EmptyCursor, 10, query.Ascending)
	assert.Equal(t, bountyboard_program.ErrNotFound, err)

	require.NoError(t, env.initializeBoard(t, 1, env.mint, authority.key))
	require.NoError(t, env.initializeBoard(t, 2, env.mint, authority.key))

	_, err = env.processor.GetBountiesByBoard(env.ctx, 1, query.EmptyCursor, 10, query.Ascending)
	assert.Equal(t, bountyboard_program.ErrNotFound, err)

	// Interleave bounties across boards so pages have to skip other accounts
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, env.initializeBounty(t, 1, i, env.mint, authority.key))
		require.NoError(t, env.initializeBounty(t, 2, 100+i, env.mint, authority.key))
	}

	var numbers []uint32
	cursor := query.EmptyCursor
	for {
		page, err := env.processor.GetBountiesByBoard(env.ctx, 1, cursor, 2, query.Ascending)
		if err == bountyboard_program.ErrNotFound {
			break
		}
		require.NoError(t, err)
		require.True(t, len(page) <= 2)

		for _, bounty := range page {
			numbers = append(numbers, bounty.State.BountyNumber)
		}
		cursor = page[len(page)-1].Cursor
	}
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, numbers)

	page, err := env.processor.GetBountiesByBoard(env.ctx, 2, query.EmptyCursor, 100, query.Descending)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.EqualValues(t, 104, page[0].State.BountyNumber)
	assert.EqualValues(t, 103, page[1].State.BountyNumber)
	assert.EqualValues(t, 102, page[2].State.BountyNumber)
}

func TestProcess_InvalidInstructions(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 0)

	ix := env.initializeBoardIx(t, 1, env.mint, authority.key)

	wrongProgram := ix
	wrongProgram.Program = testutil.NewRandomKey(t)
	assert.False(t, env.processor.Supports(wrongProgram.Program))
	assert.Equal(t, bountyboard_program.ErrInvalidProgram, env.processor.Process(env.ctx, wrongProgram))

	unknown := solana.NewInstruction(bountyboard_program.PROGRAM_ID, []byte{1, 2, 3, 4, 5, 6, 7, 8}, ix.Accounts...)
	assert.Equal(t, bountyboard_program.ErrInvalidInstructionData, env.processor.Process(env.ctx, unknown))

	truncated := ix
	truncated.Data = ix.Data[:len(ix.Data)-1]
	assert.Equal(t, bountyboard_program.ErrInvalidInstructionData, env.processor.Process(env.ctx, truncated))

	assert.Empty(t, env.emitter.getEventTypes())
}
