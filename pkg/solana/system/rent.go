package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

const (
	// AccountStorageOverhead is the number of bytes charged for every account
	// on top of its data.
	AccountStorageOverhead = 128

	// DefaultLamportsPerByteYear and DefaultExemptionThreshold are the
	// cluster's default rent parameters.
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2
)

// RentSysVar points to the system variable "Rent"
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
var RentSysVar ed25519.PublicKey

func init() {
	var err error

	RentSysVar, err = base58.Decode("SysvarRent111111111111111111111111111111111")
	if err != nil {
		panic(err)
	}
}

// RentExemptMinimum returns the balance an account with the provided data
// size needs to hold to be exempt from rent.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/rent.rs#L64-L68
func RentExemptMinimum(dataLen uint64) uint64 {
	return (AccountStorageOverhead + dataLen) * DefaultLamportsPerByteYear * DefaultExemptionThreshold
}
