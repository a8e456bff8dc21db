package models

import "time"

// Profile describes persisted browser login state for one durable
// session id. The state itself lives on disk; this is its metadata.
type Profile struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
