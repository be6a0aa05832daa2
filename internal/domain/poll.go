// Package domain defines the core entities of the point exchange and
// voting service.
package domain

// Poll is the on-chain poll account as read from the ledger. Votes are
// index-aligned with candidates and expressed in token base units
// (scaled by 10^9); display-layer scaling is not our job.
type Poll struct {
	Pubkey       string   `json:"pubkey"`
	Title        string   `json:"title"`
	Candidates   []string `json:"candidates"`
	Votes        []uint64 `json:"votes"`
	Owner        string   `json:"owner"`
	Deadline     int64    `json:"deadline"` // Unix seconds
	RequiredMint string   `json:"requiredMint"`
	IsClosed     bool     `json:"isClosed"`
}
