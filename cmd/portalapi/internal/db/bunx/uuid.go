package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string used for account ids.
//
// It panics if UUID generation fails, which only happens when the system
// entropy source is unavailable.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
