package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventMeta carries block and transaction context shared by every trigger.
type EventMeta struct {
	TxHash      common.Hash
	LogIndex    uint
	BlockNumber uint64
	Timestamp   uint64
	From        common.Address
	GasPrice    *big.Int
	GasUsed     uint64
}

// ChangeVerifiedTokenEvent toggles a token's verification flag.
type ChangeVerifiedTokenEvent struct {
	Meta       EventMeta
	Token      common.Address
	IsVerified bool
}

// HarvestEvent reports a protocol fee harvest.
type HarvestEvent struct {
	Meta   EventMeta
	Token  common.Address
	Amount *big.Int
	Burned *big.Int
}

// SetPathCall configures a fund's swap route for a distribution token.
type SetPathCall struct {
	Meta      EventMeta
	Fund      common.Address
	DistToken common.Address
	Path      []byte
}

// SetHarvestPathCall configures the controller's harvest route for a token.
type SetHarvestPathCall struct {
	Meta  EventMeta
	Token common.Address
	Path  []byte
}

// InitCall opens a new position for a fund.
type InitCall struct {
	Meta      EventMeta
	Fund      common.Address
	Token0    common.Address
	Token1    common.Address
	Fee       uint32
	TickLower int32
	TickUpper int32
	Amount    *big.Int
}

// AddCall adds liquidity to an existing position.
type AddCall struct {
	Meta          EventMeta
	Fund          common.Address
	PoolIndex     int
	PositionIndex int
	Amount        *big.Int
	Collect       bool
}

// SubCall removes a proportion of a position's liquidity.
type SubCall struct {
	Meta           EventMeta
	Fund           common.Address
	PoolIndex      int
	PositionIndex  int
	ProportionX128 *big.Int
}

// MoveCall moves a proportion of liquidity between two positions of one pool.
type MoveCall struct {
	Meta           EventMeta
	Fund           common.Address
	PoolIndex      int
	SubIndex       int
	AddIndex       int
	ProportionX128 *big.Int
}

// DepositEvent reports an investor deposit into a fund.
type DepositEvent struct {
	Meta   EventMeta
	Fund   common.Address
	Owner  common.Address
	Amount *big.Int
	Share  *big.Int
}

// WithdrawEvent reports an investor withdrawal from a fund.
type WithdrawEvent struct {
	Meta   EventMeta
	Fund   common.Address
	Owner  common.Address
	Amount *big.Int
	Share  *big.Int
}

// TransferEvent reports a fund share transfer.
type TransferEvent struct {
	Meta  EventMeta
	Fund  common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// BlockEvent is the periodic sweep trigger.
type BlockEvent struct {
	Number    uint64
	Timestamp uint64
}
