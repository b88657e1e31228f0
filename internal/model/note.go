package model

import "time"

// Note is a personal note. Title and Content are plaintext here; the store
// encrypts them before they reach the database.
type Note struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the note is still visible at now.
func (n *Note) Active(now time.Time) bool {
	return n.ExpiresAt.After(now)
}

// NoteUpdate carries the mutable fields of a note. Nil fields are left alone.
type NoteUpdate struct {
	Title     *string
	Content   *string
	ExpiresAt *time.Time
}

// Empty reports whether the update changes nothing.
func (u NoteUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.ExpiresAt == nil
}

// NoteSummary is the administrative view of a note. It has no
// title or content.
type NoteSummary struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NoteSummaryFilter narrows the administrative listing. Zero values match everything.
type NoteSummaryFilter struct {
	OwnerID       int64
	CreatedAfter  time.Time
	CreatedBefore time.Time
	ExpiresAfter  time.Time
	ExpiresBefore time.Time
}
