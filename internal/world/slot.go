package world

// Slot identifies an equipment slot on the survivor.
type Slot string

const (
	SlotBackpack   Slot = "backpack"
	SlotUpperBody  Slot = "upper_body"
	SlotLowerBody  Slot = "lower_body"
	SlotMelee      Slot = "melee"
	SlotHandgun    Slot = "handgun"
	SlotLongGun    Slot = "long_gun"
	SlotFlashlight Slot = "flashlight"
)

// AllSlots is the fixed equipment order. Rehoming falls back through
// container-capable slots in this order.
var AllSlots = []Slot{
	SlotBackpack,
	SlotUpperBody,
	SlotLowerBody,
	SlotMelee,
	SlotHandgun,
	SlotLongGun,
	SlotFlashlight,
}

// ValidSlot reports whether s names one of the seven equipment slots.
func ValidSlot(s Slot) bool {
	for _, slot := range AllSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// DynamicContainerID is the deterministic registry id of the container
// backing an equipped item in the given slot.
func DynamicContainerID(slot Slot) string {
	return string(slot) + "-container"
}
