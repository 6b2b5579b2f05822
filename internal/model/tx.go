package model

import "github.com/shopspring/decimal"

// TxRecord is one handler leg written to the audit log. Kind names the
// trigger; the decimal fields are filled where the leg has them.
type TxRecord struct {
	Kind        string `json:"kind"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint   `json:"log_index"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   uint64 `json:"timestamp"`
	From        string `json:"from"`

	Fund     string `json:"fund,omitempty"`
	Token    string `json:"token,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Position string `json:"position,omitempty"`

	Amount          decimal.Decimal `json:"amount"`
	AmountUSD       decimal.Decimal `json:"amount_usd"`
	Share           string          `json:"share,omitempty"`
	Burned          decimal.Decimal `json:"burned"`
	Proportion      decimal.Decimal `json:"proportion"`
	ProtocolFees    decimal.Decimal `json:"protocol_fees"`
	ProtocolFeesUSD decimal.Decimal `json:"protocol_fees_usd"`

	PathPools []PathPool `json:"path_pools,omitempty"`
}

// Path is a fund's configured swap route for a distribution token.
type Path struct {
	ID        string     `json:"id"`
	Fund      string     `json:"fund"`
	DistToken string     `json:"dist_token"`
	Raw       []byte     `json:"raw"`
	PathPools []PathPool `json:"path_pools"`
}

// PathPool is one hop of a packed V3 route.
type PathPool struct {
	TokenIn  string `json:"token_in"`
	Fee      uint32 `json:"fee"`
	TokenOut string `json:"token_out"`
}
