package bountyboard

import "bytes"

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeInitializeBoard
	InstructionTypeInitializeBounty
	InstructionTypeDeposit
	InstructionTypeCloseBounty
	InstructionTypeSendBounty
)

// GetInstructionType identifies an instruction by its discriminator.
func GetInstructionType(data []byte) InstructionType {
	if len(data) < 8 {
		return InstructionTypeUnknown
	}

	discriminator := data[:8]
	switch {
	case bytes.Equal(discriminator, initializeBoardInstructionDiscriminator):
		return InstructionTypeInitializeBoard
	case bytes.Equal(discriminator, initializeBountyInstructionDiscriminator):
		return InstructionTypeInitializeBounty
	case bytes.Equal(discriminator, depositInstructionDiscriminator):
		return InstructionTypeDeposit
	case bytes.Equal(discriminator, closeBountyInstructionDiscriminator):
		return InstructionTypeCloseBounty
	case bytes.Equal(discriminator, sendBountyInstructionDiscriminator):
		return InstructionTypeSendBounty
	}
	return InstructionTypeUnknown
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitializeBoard:
		return "initialize_board"
	case InstructionTypeInitializeBounty:
		return "initialize_bounty"
	case InstructionTypeDeposit:
		return "deposit"
	case InstructionTypeCloseBounty:
		return "close_bounty"
	case InstructionTypeSendBounty:
		return "send_bounty"
	}
	return "unknown"
}
