// Package types
package types

// Chain identifies the network a token was launched on. GenesisBlock is the
// block the token factory was deployed at and seeds the first backfill.
type Chain struct {
	ID           int64  `json:"id" bson:"id"`
	Name         string `json:"name" bson:"name"`
	GenesisBlock uint64 `json:"genesisBlock" bson:"genesisBlock"`
}

// Token is the descriptor produced by the token-creation workflow. The ledger
// treats it as read-only input: it supplies the decimal scale, the contract
// pair to watch and the watermark seed.
type Token struct {
	ID              string `json:"id" bson:"id"`
	Name            string `json:"name" bson:"name"`
	Symbol          string `json:"symbol" bson:"symbol"`
	Decimals        int64  `json:"decimals" bson:"decimals"`
	Address         string `json:"address" bson:"address"`
	ExchangeAddress string `json:"exchangeAddress" bson:"exchangeAddress"`
	TotalSupply     string `json:"totalSupply,omitempty" bson:"totalSupply,omitempty"`
	Chain           Chain  `json:"chain" bson:"chain"`
	IsActive        bool   `json:"isActive" bson:"isActive"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt,omitempty"`
}
