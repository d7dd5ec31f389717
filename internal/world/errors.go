package world

import "errors"

// Failure taxonomy. Every mutating operation returns one of these (wrapped
// with context) instead of panicking; callers branch with errors.Is. A
// failed operation always leaves the data model in its prior consistent
// state — the item is back in its source container or slot.
var (
	ErrPlacementRejected  = errors.New("placement rejected")
	ErrSlotMismatch       = errors.New("equipment slot mismatch")
	ErrCapacityExceeded   = errors.New("stack capacity exceeded")
	ErrContainerNotFound  = errors.New("container not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrRequirementsNotMet = errors.New("crafting requirements not met")
)
