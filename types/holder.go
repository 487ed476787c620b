package types

// Holder is one balance row per (tokenID, address). Balance is the
// human-readable decimal string produced by scaling the on-chain integer
// amount by the token's decimals. BalanceFloat is a derived sort key only and
// is never used for arithmetic.
type Holder struct {
	TokenID      string  `json:"tokenID" bson:"tokenID"`
	Address      string  `json:"address" bson:"address"`
	Balance      string  `json:"balance" bson:"balance"`
	BalanceFloat float64 `json:"-" bson:"balanceFloat"`
	LastBlock    uint64  `json:"lastBlock" bson:"lastBlock"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt,omitempty"`
}

type HolderFilter struct {
	TokenID string `bson:"tokenID,omitempty"`
	Address string `bson:"address,omitempty"`

	Pagination *Pagination `bson:"-"`
}
