package models

// TxRef ties a ledger movement to its match context. Together with the
// movement type it forms the ledger's idempotency key: retrying an
// operation with the same reference must not move funds twice.
type TxRef struct {
	MatchID   string
	LobbyType string
	Rank      int // final place for prize credits, zero otherwise
}
