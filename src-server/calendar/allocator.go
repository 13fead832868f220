package calendar

import (
	"fmt"

	"github.com/google/uuid"
)

// Hands out event identifiers: UUIDv7, so ids carry a millisecond timestamp
// plus random bits to disambiguate a burst inside one clock tick. Every
// candidate is checked against the live snapshot and the ids already handed
// out in the same batch, and regenerated on collision.
type Allocator struct{}

func NewAllocator() *Allocator {
	return &Allocator{}
}

func (a *Allocator) Allocate(taken map[string]struct{}) (string, error) {
	for {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("allocate id: %w", err)
		}
		candidate := id.String()
		if _, dup := taken[candidate]; dup {
			continue
		}
		taken[candidate] = struct{}{}
		return candidate, nil
	}
}
