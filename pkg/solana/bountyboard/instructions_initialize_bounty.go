package bountyboard

import (
	"crypto/ed25519"

	"github.com/code-payments/bounty-board/pkg/solana"
	"github.com/code-payments/bounty-board/pkg/solana/binary"
)

var initializeBountyInstructionDiscriminator = []byte{
	150, 37, 249, 246, 85, 164, 253, 229,
}

const (
	InitializeBountyInstructionArgsSize = (4 + // board_id
		4) // bounty_number

	initializeBountyInstructionAccountCount = 8
)

type InitializeBountyInstructionArgs struct {
	BoardId      uint32
	BountyNumber uint32
}

type InitializeBountyInstructionAccounts struct {
	Board        ed25519.PublicKey
	Bounty       ed25519.PublicKey
	AcceptedMint ed25519.PublicKey
	BountyVault  ed25519.PublicKey
	Authority    ed25519.PublicKey
}

func NewInitializeBountyInstruction(
	accounts *InitializeBountyInstructionAccounts,
	args *InitializeBountyInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeBountyInstructionDiscriminator)+
			InitializeBountyInstructionArgsSize)

	putDiscriminator(data, initializeBountyInstructionDiscriminator, &offset)
	binary.PutUint32(data[offset:], args.BoardId, &offset)
	binary.PutUint32(data[offset:], args.BountyNumber, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewReadonlyAccountMeta(accounts.Board, false),
		solana.NewAccountMeta(accounts.Bounty, false),
		solana.NewReadonlyAccountMeta(accounts.AcceptedMint, false),
		solana.NewAccountMeta(accounts.BountyVault, false),
		solana.NewAccountMeta(accounts.Authority, true),
		solana.NewReadonlyAccountMeta(SYSVAR_RENT_PUBKEY, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func DecompileInitializeBountyInstruction(ix solana.Instruction) (*InitializeBountyInstructionAccounts, *InitializeBountyInstructionArgs, error) {
	if err := checkInstruction(ix, initializeBountyInstructionDiscriminator, initializeBountyInstructionAccountCount); err != nil {
		return nil, nil, err
	}
	if len(ix.Data) != len(initializeBountyInstructionDiscriminator)+InitializeBountyInstructionArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}
	if err := checkProgramAccount(ix.Accounts[5], SYSVAR_RENT_PUBKEY); err != nil {
		return nil, nil, err
	}
	if err := checkProgramAccount(ix.Accounts[6], SPL_TOKEN_PROGRAM_ID); err != nil {
		return nil, nil, err
	}
	if err := checkProgramAccount(ix.Accounts[7], SYSTEM_PROGRAM_ID); err != nil {
		return nil, nil, err
	}

	offset := len(initializeBountyInstructionDiscriminator)

	var args InitializeBountyInstructionArgs
	binary.GetUint32(ix.Data[offset:], &args.BoardId, &offset)
	binary.GetUint32(ix.Data[offset:], &args.BountyNumber, &offset)

	return &InitializeBountyInstructionAccounts{
		Board:        ix.Accounts[0].PublicKey,
		Bounty:       ix.Accounts[1].PublicKey,
		AcceptedMint: ix.Accounts[2].PublicKey,
		BountyVault:  ix.Accounts[3].PublicKey,
		Authority:    ix.Accounts[4].PublicKey,
	}, &args, nil
}
