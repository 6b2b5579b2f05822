package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"fundScope/internal/model"
)

const (
	pathAddressSize = 20
	pathFeeSize     = 3
	pathHopSize     = pathAddressSize + pathFeeSize
)

// DecodePath unpacks a packed V3 route into its hops. The layout is a 20-byte
// token address followed by (3-byte fee, 20-byte token) repeated per hop.
func DecodePath(raw []byte) ([]model.PathPool, error) {
	if len(raw) < pathHopSize+pathAddressSize {
		return nil, fmt.Errorf("path too short: %d bytes", len(raw))
	}
	if (len(raw)-pathAddressSize)%pathHopSize != 0 {
		return nil, fmt.Errorf("malformed path length: %d bytes", len(raw))
	}

	hops := (len(raw) - pathAddressSize) / pathHopSize
	pools := make([]model.PathPool, 0, hops)
	offset := 0
	for i := 0; i < hops; i++ {
		tokenIn := common.BytesToAddress(raw[offset : offset+pathAddressSize])
		fee := uint32(raw[offset+pathAddressSize])<<16 |
			uint32(raw[offset+pathAddressSize+1])<<8 |
			uint32(raw[offset+pathAddressSize+2])
		tokenOut := common.BytesToAddress(raw[offset+pathHopSize : offset+pathHopSize+pathAddressSize])

		pools = append(pools, model.PathPool{
			TokenIn:  lowerHex(tokenIn),
			Fee:      fee,
			TokenOut: lowerHex(tokenOut),
		})
		offset += pathHopSize
	}
	return pools, nil
}

// EncodePath packs hops back into the on-chain route layout. The hops must
// chain: each TokenOut is the next hop's TokenIn.
func EncodePath(pools []model.PathPool) ([]byte, error) {
	if len(pools) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	raw := make([]byte, 0, pathAddressSize+len(pools)*pathHopSize)
	raw = append(raw, common.HexToAddress(pools[0].TokenIn).Bytes()...)
	for i, pool := range pools {
		if i > 0 && pools[i-1].TokenOut != pool.TokenIn {
			return nil, fmt.Errorf("broken hop chain at %d", i)
		}
		raw = append(raw, byte(pool.Fee>>16), byte(pool.Fee>>8), byte(pool.Fee))
		raw = append(raw, common.HexToAddress(pool.TokenOut).Bytes()...)
	}
	return raw, nil
}
