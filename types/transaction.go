package types

const (
	TxTypeBuy  = "buy"
	TxTypeSell = "sell"
)

// TokenTransaction is one immutable row per on-chain trade event,
// deduplicated by (txHash, chain.id). Amounts are decimal strings: the token
// side scaled by the token's decimals, the native side by 18.
type TokenTransaction struct {
	ID          string `json:"id" bson:"id"`
	TokenID     string `json:"tokenID" bson:"tokenID"`
	Address     string `json:"address" bson:"address"`
	Type        string `json:"type" bson:"type"`
	TokenAmount string `json:"tokenAmount" bson:"tokenAmount"`
	EthAmount   string `json:"ethAmount" bson:"ethAmount"`
	Fee         string `json:"fee" bson:"fee"`
	TxHash      string `json:"txHash" bson:"txHash"`
	BlockNumber uint64 `json:"blockNumber" bson:"blockNumber"`
	Chain       Chain  `json:"chain" bson:"chain"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt,omitempty"`
}

type TxsFilter struct {
	TokenID string `bson:"tokenID,omitempty"`
	Address string `bson:"address,omitempty"`
	Type    string `bson:"type,omitempty"`

	Pagination *Pagination `bson:"-"`
}
