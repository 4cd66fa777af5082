package feed

import "time"

// Message is one raw feed message.
type Message struct {
	ID     int64     `json:"id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// peerResponse is the wire format for peer lookup.
type peerResponse struct {
	Peer struct {
		ID          int64  `json:"id"`
		Username    string `json:"username"`
		UnreadCount int    `json:"unread_count"`
	} `json:"peer"`
}

// messagesResponse is the wire format for paged message retrieval.
type messagesResponse struct {
	Messages []Message `json:"messages"`
}
