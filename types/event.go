package types

import "time"

// PostEventType names a post mutation.
type PostEventType string

const (
	PostCreated PostEventType = "post.created"
	PostUpdated PostEventType = "post.updated"
	PostDeleted PostEventType = "post.deleted"
)

// PostEvent is published to the message queue after a post mutation.
type PostEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	Type   PostEventType `json:"type"`
	PostID int           `json:"post_id"`

	// Title is empty for deletions.
	Title string `json:"title,omitempty"`

	// Actor is the username that performed the mutation.
	Actor string `json:"actor,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
