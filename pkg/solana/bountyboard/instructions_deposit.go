package bountyboard

import (
	"crypto/ed25519"

	"github.com/code-payments/bounty-board/pkg/solana"
	"github.com/code-payments/bounty-board/pkg/solana/binary"
)

var depositInstructionDiscriminator = []byte{
	242, 35, 198, 137, 82, 225, 242, 182,
}

const (
	DepositInstructionArgsSize = (4 + // board_id
		4 + // bounty_number
		8) // amount

	depositInstructionAccountCount = 6
)

type DepositInstructionArgs struct {
	BoardId      uint32
	BountyNumber uint32
	Amount       uint64
}

type DepositInstructionAccounts struct {
	Board        ed25519.PublicKey
	Bounty       ed25519.PublicKey
	BountyVault  ed25519.PublicKey
	SponsorVault ed25519.PublicKey
	Authority    ed25519.PublicKey
}

func NewDepositInstruction(
	accounts *DepositInstructionAccounts,
	args *DepositInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(depositInstructionDiscriminator)+
			DepositInstructionArgsSize)

	putDiscriminator(data, depositInstructionDiscriminator, &offset)
	binary.PutUint32(data[offset:], args.BoardId, &offset)
	binary.PutUint32(data[offset:], args.BountyNumber, &offset)
	binary.PutUint64(data[offset:], args.Amount, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewReadonlyAccountMeta(accounts.Board, false),
		solana.NewAccountMeta(accounts.Bounty, false),
		solana.NewAccountMeta(accounts.BountyVault, false),
		solana.NewAccountMeta(accounts.SponsorVault, false),
		solana.NewReadonlyAccountMeta(accounts.Authority, true),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
	)
}

func DecompileDepositInstruction(ix solana.Instruction) (*DepositInstructionAccounts, *DepositInstructionArgs, error) {
	if err := checkInstruction(ix, depositInstructionDiscriminator, depositInstructionAccountCount); err != nil {
		return nil, nil, err
	}
	if len(ix.Data) != len(depositInstructionDiscriminator)+DepositInstructionArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}
	if err := checkProgramAccount(ix.Accounts[5], SPL_TOKEN_PROGRAM_ID); err != nil {
		return nil, nil, err
	}

	offset := len(depositInstructionDiscriminator)

	var args DepositInstructionArgs
	binary.GetUint32(ix.Data[offset:], &args.BoardId, &offset)
	binary.GetUint32(ix.Data[offset:], &args.BountyNumber, &offset)
	binary.GetUint64(ix.Data[offset:], &args.Amount, &offset)

	return &DepositInstructionAccounts{
		Board:        ix.Accounts[0].PublicKey,
		Bounty:       ix.Accounts[1].PublicKey,
		BountyVault:  ix.Accounts[2].PublicKey,
		SponsorVault: ix.Accounts[3].PublicKey,
		Authority:    ix.Accounts[4].PublicKey,
	}, &args, nil
}
