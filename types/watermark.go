package types

// Ledger streams a watermark can anchor.
const (
	StreamHolders      = "holders"
	StreamTransactions = "transactions"
)

// Watermark records the last block fully processed for one token stream.
// It only ever advances.
type Watermark struct {
	TokenID string `json:"tokenID" bson:"tokenID"`
	Stream  string `json:"stream" bson:"stream"`
	Block   uint64 `json:"block" bson:"block"`

	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt,omitempty"`
}

// TransferMark is the dedup key carried per applied Transfer event.
// Re-applying the same (txHash, logIndex) must be a no-op.
type TransferMark struct {
	TxHash   string `json:"txHash" bson:"txHash"`
	LogIndex uint   `json:"logIndex" bson:"logIndex"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt,omitempty"`
}
