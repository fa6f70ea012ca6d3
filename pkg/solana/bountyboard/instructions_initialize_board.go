package bountyboard

import (
	"crypto/ed25519"

	"github.com/code-payments/bounty-board/pkg/solana"
	"github.com/code-payments/bounty-board/pkg/solana/binary"
)

var initializeBoardInstructionDiscriminator = []byte{
	146, 47, 165, 250, 246, 28, 104, 227,
}

const (
	InitializeBoardInstructionArgsSize = (4) // board_id

	initializeBoardInstructionAccountCount = 6
)

type InitializeBoardInstructionArgs struct {
	BoardId uint32
}

type InitializeBoardInstructionAccounts struct {
	Board        ed25519.PublicKey
	AcceptedMint ed25519.PublicKey
	Authority    ed25519.PublicKey
}

func NewInitializeBoardInstruction(
	accounts *InitializeBoardInstructionAccounts,
	args *InitializeBoardInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeBoardInstructionDiscriminator)+
			InitializeBoardInstructionArgsSize)

	putDiscriminator(data, initializeBoardInstructionDiscriminator, &offset)
	binary.PutUint32(data[offset:], args.BoardId, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Board, false),
		solana.NewReadonlyAccountMeta(accounts.AcceptedMint, false),
		solana.NewAccountMeta(accounts.Authority, true),
		solana.NewReadonlyAccountMeta(SYSVAR_RENT_PUBKEY, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func DecompileInitializeBoardInstruction(ix solana.Instruction) (*InitializeBoardInstructionAccounts, *InitializeBoardInstructionArgs, error) {
	if err := checkInstruction(ix, initializeBoardInstructionDiscriminator, initializeBoardInstructionAccountCount); err != nil {
		return nil, nil, err
	}
	if len(ix.Data) != len(initializeBoardInstructionDiscriminator)+InitializeBoardInstructionArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}
	if err := checkProgramAccount(ix.Accounts[3], SYSVAR_RENT_PUBKEY); err != nil {
		return nil, nil, err
	}
	if err := checkProgramAccount(ix.Accounts[4], SPL_TOKEN_PROGRAM_ID); err != nil {
		return nil, nil, err
	}
	if err := checkProgramAccount(ix.Accounts[5], SYSTEM_PROGRAM_ID); err != nil {
		return nil, nil, err
	}

	offset := len(initializeBoardInstructionDiscriminator)

	var args InitializeBoardInstructionArgs
	binary.GetUint32(ix.Data[offset:], &args.BoardId, &offset)

	return &InitializeBoardInstructionAccounts{
		Board:        ix.Accounts[0].PublicKey,
		AcceptedMint: ix.Accounts[1].PublicKey,
		Authority:    ix.Accounts[2].PublicKey,
	}, &args, nil
}
