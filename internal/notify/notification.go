package notify

// Kind identifies a completed operation.
type Kind string

const (
	KindMinted    Kind = "minted"
	KindIncreased Kind = "increased"
	KindDecreased Kind = "decreased"
	KindCollected Kind = "collected"
)

// Notification is the structured record emitted once per successful
// operation, consumed by indexers and UIs.
type Notification struct {
	Kind       Kind        `json:"kind"`
	Caller     string      `json:"caller"`
	PositionID string      `json:"position_id"`
	EmittedAt  string      `json:"emitted_at"`
	Data       interface{} `json:"data"`
}

// MintedData is the payload for a newly opened position.
type MintedData struct {
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
	Used0     string `json:"used0"`
	Used1     string `json:"used1"`
}

// IncreasedData is the payload for a liquidity top-up.
type IncreasedData struct {
	LiquidityDelta string `json:"liquidity_delta"`
	Used0          string `json:"used0"`
	Used1          string `json:"used1"`
}

// DecreasedData is the payload for a liquidity removal. The owed amounts
// are credited to the position, not transferred, until a later collect.
type DecreasedData struct {
	LiquidityRemoved string `json:"liquidity_removed"`
	Owed0            string `json:"owed0"`
	Owed1            string `json:"owed1"`
}

// CollectedData is the payload for an owed-balance sweep.
type CollectedData struct {
	Recipient  string `json:"recipient"`
	Collected0 string `json:"collected0"`
	Collected1 string `json:"collected1"`
}
