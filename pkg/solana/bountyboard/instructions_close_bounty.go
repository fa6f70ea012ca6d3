package bountyboard

import (
	"crypto/ed25519"

	"github.com/code-payments/bounty-board/pkg/solana"
	"github.com/code-payments/bounty-board/pkg/solana/binary"
)

var closeBountyInstructionDiscriminator = []byte{
	90, 33, 205, 110, 210, 22, 247, 49,
}

const (
	closeBountyInstructionFixedArgsSize = (4 + // board_id
		4) // bounty_number

	closeBountyInstructionAccountCount = 3
)

type CloseBountyInstructionArgs struct {
	BoardId      uint32
	BountyNumber uint32
	BountyHunter *string // optional on the wire, required by the processor
}

type CloseBountyInstructionAccounts struct {
	Board     ed25519.PublicKey
	Bounty    ed25519.PublicKey
	Authority ed25519.PublicKey
}

func NewCloseBountyInstruction(
	accounts *CloseBountyInstructionAccounts,
	args *CloseBountyInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(closeBountyInstructionDiscriminator)+
			closeBountyInstructionFixedArgsSize+
			binary.OptionalStringSize(args.BountyHunter))

	putDiscriminator(data, closeBountyInstructionDiscriminator, &offset)
	binary.PutUint32(data[offset:], args.BoardId, &offset)
	binary.PutUint32(data[offset:], args.BountyNumber, &offset)
	binary.PutOptionalString(data[offset:], args.BountyHunter, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewReadonlyAccountMeta(accounts.Board, false),
		solana.NewAccountMeta(accounts.Bounty, false),
		solana.NewReadonlyAccountMeta(accounts.Authority, true),
	)
}

func DecompileCloseBountyInstruction(ix solana.Instruction) (*CloseBountyInstructionAccounts, *CloseBountyInstructionArgs, error) {
	if err := checkInstruction(ix, closeBountyInstructionDiscriminator, closeBountyInstructionAccountCount); err != nil {
		return nil, nil, err
	}
	if len(ix.Data) < len(closeBountyInstructionDiscriminator)+closeBountyInstructionFixedArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}

	offset := len(closeBountyInstructionDiscriminator)

	var args CloseBountyInstructionArgs
	binary.GetUint32(ix.Data[offset:], &args.BoardId, &offset)
	binary.GetUint32(ix.Data[offset:], &args.BountyNumber, &offset)
	if err := binary.GetOptionalString(ix.Data[offset:], &args.BountyHunter, &offset); err != nil {
		return nil, nil, ErrInvalidInstructionData
	}
	if offset != len(ix.Data) {
		return nil, nil, ErrInvalidInstructionData
	}

	return &CloseBountyInstructionAccounts{
		Board:     ix.Accounts[0].PublicKey,
		Bounty:    ix.Accounts[1].PublicKey,
		Authority: ix.Accounts[2].PublicKey,
	}, &args, nil
}
