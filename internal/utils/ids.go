package utils

import "github.com/google/uuid"

// IsUUID reports whether s is a canonical UUID. Handlers use it to turn
// malformed path ids into 404s before they reach a UUID column.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
