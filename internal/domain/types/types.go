// Package types contains common view types shared by the service and the API.
package types

// Entry is one row of the rankings.
type Entry struct {
	Rank       int     `json:"rank"`
	ItemID     string  `json:"item_id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Rating     float64 `json:"rating"`
	Confidence float64 `json:"confidence"`
	TotalVotes int     `json:"total_votes"`
}

// ItemDetail is an entry plus the item's ballot breakdown.
type ItemDetail struct {
	Entry
	KeepVotes  int `json:"keep_votes"`
	TradeVotes int `json:"trade_votes"`
	CutVotes   int `json:"cut_votes"`
}

// MatchupItem is one of the three items offered to a session.
type MatchupItem struct {
	ItemID     string  `json:"item_id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Rating     float64 `json:"rating"`
	Confidence float64 `json:"confidence"`
}

// Matchup is the triplet currently offered to a session.
type Matchup struct {
	SessionID string        `json:"session_id"`
	Items     []MatchupItem `json:"items"`
}

// VoteReceipt acknowledges a vote submission.
type VoteReceipt struct {
	VoteID    string `json:"vote_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}
