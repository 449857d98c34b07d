// Package queue defines message payloads exchanged over the message broker.
package queue

// CommentCreatedEvent is published after a comment is persisted.  It
// carries enough for downstream consumers to notify the moderator
// without querying the primary database.  The token subject is
// deliberately absent: it never leaves the pipeline.
type CommentCreatedEvent struct {
	CommentID uint64 `json:"comment_id"`
	Post      string `json:"post"`
	Author    string `json:"author"`
	Excerpt   string `json:"excerpt"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}
