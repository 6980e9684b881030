package types

import "time"

// Post is a single blog entry.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the headline shown in listings and bot buttons.
	Title string `json:"title" db:"title"`

	// Text is the full body of the post.
	Text string `json:"text" db:"text"`

	// CreatedAt is the timestamp at which the post was created. Listings are
	// ordered by it, newest first.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
