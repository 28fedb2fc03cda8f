package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// JobStatusKey is scoped to the owning user so a cached status can only be
// read back through the owner's key.
func JobStatusKey(userID, jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s:%s", userID, jobID)
}

func RateLimitKey(userID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}
