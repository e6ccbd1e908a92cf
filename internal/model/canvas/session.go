package canvas

import "time"

// SessionInfo is the read-only view of a canvas session.
type SessionInfo struct {
	ID           string    `json:"id"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	ElementCount int       `json:"elementCount"`
	CreatedAt    time.Time `json:"createdAt"`
}
