package bountyboard

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/code-payments/bounty-board/pkg/solana"
)

func putDiscriminator(dst []byte, v []byte, offset *int) {
	copy(dst[*offset:], v)
	*offset += 8
}

func getDiscriminator(src []byte, dst *[]byte, offset *int) {
	*dst = make([]byte, 8)
	copy(*dst, src[*offset:])
	*offset += 8
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

// checkInstruction validates the program, discriminator and account count of
// an instruction targeting this program.
func checkInstruction(ix solana.Instruction, discriminator []byte, accounts int) error {
	if !bytes.Equal(ix.Program, PROGRAM_ID) {
		return ErrInvalidProgram
	}
	if len(ix.Data) < len(discriminator) || !bytes.Equal(ix.Data[:len(discriminator)], discriminator) {
		return ErrInvalidInstructionData
	}
	if len(ix.Accounts) != accounts {
		return ErrInvalidInstructionData
	}
	for _, meta := range ix.Accounts {
		if len(meta.PublicKey) != ed25519.PublicKeySize {
			return ErrInvalidInstructionData
		}
	}
	return nil
}

func checkProgramAccount(meta solana.AccountMeta, expected ed25519.PublicKey) error {
	if !bytes.Equal(meta.PublicKey, expected) {
		return ErrInvalidInstructionData
	}
	return nil
}
