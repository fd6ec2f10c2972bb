package uid

import "github.com/google/uuid"

// New generates a random correlation id for requests, updates and logged failures.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id is a UUID. Client-supplied request ids that are
// not are replaced.
func IsValid(id string) bool {
	return uuid.Validate(id) == nil
}
