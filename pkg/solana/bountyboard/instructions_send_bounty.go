package bountyboard

import (
	"crypto/ed25519"

	"github.com/code-payments/bounty-board/pkg/solana"
	"github.com/code-payments/bounty-board/pkg/solana/binary"
)

var sendBountyInstructionDiscriminator = []byte{
	113, 54, 16, 2, 230, 216, 93, 189,
}

const (
	sendBountyInstructionFixedArgsSize = (4 + // board_id
		4) // bounty_number

	sendBountyInstructionAccountCount = 8
)

type SendBountyInstructionArgs struct {
	BoardId      uint32
	BountyNumber uint32
	BountyHunter string
}

type SendBountyInstructionAccounts struct {
	Board          ed25519.PublicKey
	Bounty         ed25519.PublicKey
	BountyVault    ed25519.PublicKey
	UserVault      ed25519.PublicKey
	BoardAuthority ed25519.PublicKey
	Authority      ed25519.PublicKey
}

func NewSendBountyInstruction(
	accounts *SendBountyInstructionAccounts,
	args *SendBountyInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(sendBountyInstructionDiscriminator)+
			sendBountyInstructionFixedArgsSize+
			binary.StringSize(args.BountyHunter))

	putDiscriminator(data, sendBountyInstructionDiscriminator, &offset)
	binary.PutUint32(data[offset:], args.BoardId, &offset)
	binary.PutUint32(data[offset:], args.BountyNumber, &offset)
	binary.PutString(data[offset:], args.BountyHunter, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewReadonlyAccountMeta(accounts.Board, false),
		solana.NewAccountMeta(accounts.Bounty, false),
		solana.NewAccountMeta(accounts.BountyVault, false),
		solana.NewAccountMeta(accounts.UserVault, false),
		solana.NewAccountMeta(accounts.BoardAuthority, false),
		solana.NewReadonlyAccountMeta(accounts.Authority, true),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func DecompileSendBountyInstruction(ix solana.Instruction) (*SendBountyInstructionAccounts, *SendBountyInstructionArgs, error) {
	if err := checkInstruction(ix, sendBountyInstructionDiscriminator, sendBountyInstructionAccountCount); err != nil {
		return nil, nil, err
	}
	if len(ix.Data) < len(sendBountyInstructionDiscriminator)+sendBountyInstructionFixedArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}
	if err := checkProgramAccount(ix.Accounts[6], SPL_TOKEN_PROGRAM_ID); err != nil {
		return nil, nil, err
	}
	if err := checkProgramAccount(ix.Accounts[7], SYSTEM_PROGRAM_ID); err != nil {
		return nil, nil, err
	}

	offset := len(sendBountyInstructionDiscriminator)

	var args SendBountyInstructionArgs
	binary.GetUint32(ix.Data[offset:], &args.BoardId, &offset)
	binary.GetUint32(ix.Data[offset:], &args.BountyNumber, &offset)
	if err := binary.GetString(ix.Data[offset:], &args.BountyHunter, &offset); err != nil {
		return nil, nil, ErrInvalidInstructionData
	}
	if offset != len(ix.Data) {
		return nil, nil, ErrInvalidInstructionData
	}

	return &SendBountyInstructionAccounts{
		Board:          ix.Accounts[0].PublicKey,
		Bounty:         ix.Accounts[1].PublicKey,
		BountyVault:    ix.Accounts[2].PublicKey,
		UserVault:      ix.Accounts[3].PublicKey,
		BoardAuthority: ix.Accounts[4].PublicKey,
		Authority:      ix.Accounts[5].PublicKey,
	}, &args, nil
}
