package core

import "github.com/google/uuid"

// GenerateID returns a new random identifier for sessions, turns and decisions.
func GenerateID() string {
	return uuid.NewString()
}

// ShortID returns the first eight characters of an identifier for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
