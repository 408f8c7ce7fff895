package chat

// Conversation is the per-user append-only message log. There is one
// conversation per user; it is created by the first appended message.
type Conversation struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	Title    string    `json:"title,omitempty"`
	Messages []Message `json:"messages"`
}

// Summary is the sidebar projection of a conversation.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastMessage string `json:"lastMessage"`
}
