package binary

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"unicode/utf8"
)

// BorshOptionSize is the tag size of a Borsh encoded Option<T>. SPL programs
// use a 4 byte COption tag instead.
const BorshOptionSize = 1

var (
	ErrBufferTooSmall = errors.New("buffer too small")
	ErrInvalidString  = errors.New("invalid utf-8 string")
)

// Every Put*/Get* function reads or writes at the start of the provided slice
// and advances offset by the encoded size. Callers pass b[offset:].

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst, src)
	*offset += ed25519.PublicKeySize
}

func PutOptionalKey32(dst []byte, src []byte, offset *int, optionSize int) {
	if len(src) > 0 {
		dst[0] = 1
		copy(dst[optionSize:], src)
	}

	*offset += optionSize + ed25519.PublicKeySize
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += 8
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst, v)
	*offset += 4
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[0] = v
	*offset += 1
}

func PutBool(dst []byte, v bool, offset *int) {
	if v {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	*offset += 1
}

func PutOptionalUint64(dst []byte, v *uint64, offset *int, optionSize int) {
	if v != nil {
		dst[0] = 1
		binary.LittleEndian.PutUint64(dst[optionSize:], *v)
	}
	*offset += optionSize + 8
}

// PutString writes a Borsh string: a u32 length prefix followed by the bytes.
func PutString(dst []byte, v string, offset *int) {
	binary.LittleEndian.PutUint32(dst, uint32(len(v)))
	copy(dst[4:], v)
	*offset += 4 + len(v)
}

// PutOptionalString writes a Borsh Option<String>. A nil value only writes the
// option tag.
func PutOptionalString(dst []byte, v *string, offset *int) {
	if v == nil {
		dst[0] = 0
		*offset += BorshOptionSize
		return
	}

	dst[0] = 1
	*offset += BorshOptionSize
	PutString(dst[BorshOptionSize:], *v, offset)
}

// StringSize is the encoded size of a Borsh string.
func StringSize(v string) int {
	return 4 + len(v)
}

// OptionalStringSize is the encoded size of a Borsh Option<String>.
func OptionalStringSize(v *string) int {
	if v == nil {
		return BorshOptionSize
	}
	return BorshOptionSize + StringSize(*v)
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src)
	*offset += ed25519.PublicKeySize
}

func GetOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int, optionSize int) {
	if src[0] == 1 {
		*dst = make([]byte, ed25519.PublicKeySize)
		copy(*dst, src[optionSize:])
	}
	*offset += optionSize + ed25519.PublicKeySize
}

func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src)
	*offset += 8
}

func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src)
	*offset += 4
}

func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[0]
	*offset += 1
}

func GetBool(src []byte, dst *bool, offset *int) {
	*dst = src[0] == 1
	*offset += 1
}

func GetOptionalUint64(src []byte, dst **uint64, offset *int, optionSize int) {
	if src[0] == 1 {
		val := binary.LittleEndian.Uint64(src[optionSize:])
		*dst = &val
	}
	*offset += optionSize + 8
}

// GetString reads a Borsh string. Unlike the fixed size getters, the length is
// attacker controlled, so it's bounds checked against the source.
func GetString(src []byte, dst *string, offset *int) error {
	if len(src) < 4 {
		return ErrBufferTooSmall
	}

	length := binary.LittleEndian.Uint32(src)
	if uint64(len(src)-4) < uint64(length) {
		return ErrBufferTooSmall
	}

	value := src[4 : 4+length]
	if !utf8.Valid(value) {
		return ErrInvalidString
	}

	*dst = string(value)
	*offset += 4 + int(length)
	return nil
}

// GetOptionalString reads a Borsh Option<String>.
func GetOptionalString(src []byte, dst **string, offset *int) error {
	if len(src) < BorshOptionSize {
		return ErrBufferTooSmall
	}

	switch src[0] {
	case 0:
		*dst = nil
		*offset += BorshOptionSize
		return nil
	case 1:
		var value string
		if err := GetString(src[BorshOptionSize:], &value, offset); err != nil {
			return err
		}
		*offset += BorshOptionSize
		*dst = &value
		return nil
	default:
		return ErrInvalidString
	}
}
