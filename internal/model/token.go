package model

import "math/big"

// Token captures ERC20 identity and cached metadata. Price is never stored
// here; it is recomputed on demand by the oracle.
type Token struct {
	Address     string   `json:"address"`
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Decimals    uint8    `json:"decimals"`
	TotalSupply *big.Int `json:"total_supply"`
	IsVerified  bool     `json:"is_verified"`
}
