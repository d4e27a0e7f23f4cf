package chat

import "time"

// Session captures the conversational state kept for one user for the process lifetime.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	PersonaKey string    `json:"personaKey"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
