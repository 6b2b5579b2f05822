package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PoolID identifies a fund-owned pool slot.
type PoolID struct {
	Fund      string
	PoolIndex int
}

func (id PoolID) String() string {
	return strings.ToLower(id.Fund) + "-" + strconv.Itoa(id.PoolIndex)
}

// PositionID identifies a fund-owned position slot. String keys are
// deterministic and round-trippable via ParsePositionID.
type PositionID struct {
	Fund          string
	PoolIndex     int
	PositionIndex int
}

func (id PositionID) String() string {
	return strings.ToLower(id.Fund) + "-" + strconv.Itoa(id.PoolIndex) + "-" + strconv.Itoa(id.PositionIndex)
}

// ParsePositionID decodes a position key string back into its components.
func ParsePositionID(key string) (PositionID, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 3 {
		return PositionID{}, fmt.Errorf("invalid position id: %s", key)
	}
	poolIndex, err := strconv.Atoi(parts[1])
	if err != nil {
		return PositionID{}, fmt.Errorf("invalid pool index in %s: %w", key, err)
	}
	positionIndex, err := strconv.Atoi(parts[2])
	if err != nil {
		return PositionID{}, fmt.Errorf("invalid position index in %s: %w", key, err)
	}
	return PositionID{Fund: parts[0], PoolIndex: poolIndex, PositionIndex: positionIndex}, nil
}

// InvestorID keys a (fund, holder) pair.
func InvestorID(fund, holder string) string {
	return strings.ToLower(fund) + "-" + strings.ToLower(holder)
}

// PackPositionKey builds the 26-byte preimage of the on-chain position key:
// the fund address followed by the two tick bounds packed as int24 big-endian.
func PackPositionKey(fund common.Address, tickLower, tickUpper int32) []byte {
	buf := make([]byte, 0, 26)
	buf = append(buf, fund.Bytes()...)
	buf = appendInt24(buf, tickLower)
	buf = appendInt24(buf, tickUpper)
	return buf
}

// UnpackPositionKey reverses PackPositionKey.
func UnpackPositionKey(preimage []byte) (common.Address, int32, int32, error) {
	if len(preimage) != 26 {
		return common.Address{}, 0, 0, fmt.Errorf("invalid position key preimage length %d", len(preimage))
	}
	fund := common.BytesToAddress(preimage[:20])
	return fund, int24At(preimage, 20), int24At(preimage, 23), nil
}

// PositionKey derives the on-chain position key for a fund's tick range.
func PositionKey(fund common.Address, tickLower, tickUpper int32) common.Hash {
	return crypto.Keccak256Hash(PackPositionKey(fund, tickLower, tickUpper))
}

func appendInt24(buf []byte, tick int32) []byte {
	value := uint32(tick) & 0xffffff
	return append(buf, byte(value>>16), byte(value>>8), byte(value))
}

func int24At(buf []byte, offset int) int32 {
	value := uint32(buf[offset])<<16 | uint32(buf[offset+1])<<8 | uint32(buf[offset+2])
	if value&0x800000 != 0 {
		value |= 0xff000000
	}
	return int32(value)
}
