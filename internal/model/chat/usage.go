package chat

import "time"

// UsageEntry records a single token charge.
type UsageEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Tokens    int       `json:"tokens"`
}

// UsageRecord accumulates token charges for a user.
// TotalTokens always equals the sum of History entries.
type UsageRecord struct {
	UserID      string       `json:"userId"`
	TotalTokens int          `json:"totalTokens"`
	History     []UsageEntry `json:"history"`
}
