package world

import (
	"fmt"
	"sort"

	"github.com/deadgrid/server/internal/data"
	"go.uber.org/zap"
)

// Fixed container ids present for a whole session.
const (
	GroundContainerID      = "ground"
	WorkspaceToolsID       = "craft-tools"
	WorkspaceIngredientsID = "craft-ingredients"
)

// Manager owns the equipment map and the registry of all live containers:
// the always-present ground, the two fixed crafting workspaces, and one
// dynamic container per currently equipped container-capable item. One
// Manager per session; all consumers receive it explicitly.
//
// Single-threaded by contract — every operation runs to completion inside
// one call, so checks and mutations are atomic relative to each other.
type Manager struct {
	defs *data.ItemTable
	log  *zap.Logger

	ground     *Container
	containers map[string]*Container
	equipment  map[Slot]*Item
}

// NewManager creates a session with an auto-expanding ground grid and the
// two fixed crafting workspaces.
func NewManager(defs *data.ItemTable, groundW, groundH, wsW, wsH int, log *zap.Logger) *Manager {
	m := &Manager{
		defs:       defs,
		log:        log,
		containers: make(map[string]*Container, 8),
		equipment:  make(map[Slot]*Item, len(AllSlots)),
	}
	m.ground = NewContainer(GroundContainerID, ContainerGround, "Ground", groundW, groundH, true)
	m.containers[GroundContainerID] = m.ground
	m.containers[WorkspaceToolsID] = NewContainer(WorkspaceToolsID, ContainerWorkspace, "Tools", wsW, wsH, false)
	m.containers[WorkspaceIngredientsID] = NewContainer(WorkspaceIngredientsID, ContainerWorkspace, "Ingredients", wsW, wsH, false)
	return m
}

// Defs returns the definition catalog the session was created with.
func (m *Manager) Defs() *data.ItemTable {
	return m.defs
}

// Ground returns the session's ground container.
func (m *Manager) Ground() *Container {
	return m.ground
}

// Container resolves a registered container id, descending into nested
// grids of registered items so openable nested containers stay reachable.
func (m *Manager) Container(id string) (*Container, error) {
	if c, ok := m.containers[id]; ok {
		return c, nil
	}
	for _, c := range m.containers {
		if found := findNested(c, id); found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("container %q: %w", id, ErrContainerNotFound)
}

func findNested(c *Container, id string) *Container {
	for _, it := range c.Items() {
		grid := it.grid
		if grid == nil {
			continue
		}
		if grid.ID == id {
			return grid
		}
		if found := findNested(grid, id); found != nil {
			return found
		}
	}
	return nil
}

// HasContainer reports whether the id is currently in the registry proper
// (nested grids excluded).
func (m *Manager) HasContainer(id string) bool {
	_, ok := m.containers[id]
	return ok
}

// ContainerIDs returns the registry ids in sorted order.
func (m *Manager) ContainerIDs() []string {
	ids := make([]string, 0, len(m.containers))
	for id := range m.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equipped returns the item in the given slot, or nil.
func (m *Manager) Equipped(slot Slot) *Item {
	return m.equipment[slot]
}

// EquipItem places the item into an equipment slot, resolving the slot from
// the def when omitted. An occupied slot is implicitly unequipped first; if
// that rehoming fails the whole call fails with prior state untouched.
func (m *Manager) EquipItem(it *Item, slot Slot) error {
	if it == nil || it.ID == 0 {
		m.log.Warn("equip rejected: item missing instance id")
		return fmt.Errorf("item missing instance id: %w", ErrPlacementRejected)
	}
	if !it.Def.Equippable {
		return fmt.Errorf("%s is not equippable: %w", it.Def.DefID, ErrSlotMismatch)
	}
	defSlot := Slot(it.Def.EquipSlot)
	if slot == "" {
		slot = defSlot
	}
	if !ValidSlot(slot) || slot != defSlot {
		return fmt.Errorf("%s into slot %s: %w", it.Def.DefID, slot, ErrSlotMismatch)
	}
	if m.equipment[slot] == it {
		return nil
	}

	if prev := m.equipment[slot]; prev != nil {
		if err := m.UnequipItem(slot); err != nil {
			return fmt.Errorf("displace %s: %w", prev.Def.DefID, err)
		}
	}

	if src := it.owner; src != nil {
		if _, err := src.RemoveItem(it.ID); err != nil {
			return err
		}
	}
	for s, e := range m.equipment {
		if e == it {
			delete(m.equipment, s)
		}
	}
	it.Equipped = true
	m.equipment[slot] = it
	m.rebuildDynamicContainers()

	m.log.Debug("equipped item",
		zap.String("def", it.Def.DefID),
		zap.Int64("item", it.ID),
		zap.String("slot", string(slot)))
	return nil
}

// UnequipItem clears the slot and rehomes the item through the canonical
// fallback chain (equipped backpack, then pockets, then ground). If nothing
// accepts the item the slot is restored and the call fails — an item is
// never silently dropped.
func (m *Manager) UnequipItem(slot Slot) error {
	it := m.equipment[slot]
	if it == nil {
		return fmt.Errorf("slot %s is empty: %w", slot, ErrItemNotFound)
	}

	delete(m.equipment, slot)
	it.Equipped = false
	m.rebuildDynamicContainers()

	if _, err := m.AddItem(it, ""); err != nil {
		it.Equipped = true
		m.equipment[slot] = it
		m.rebuildDynamicContainers()
		return fmt.Errorf("unequip %s: %w", slot, err)
	}

	m.log.Debug("unequipped item",
		zap.String("def", it.Def.DefID),
		zap.Int64("item", it.ID),
		zap.String("slot", string(slot)))
	return nil
}

// rebuildDynamicContainers recomputes the dynamic container set wholesale:
// every equipped-type registry entry is dropped, then one entry per
// currently equipped container-capable item is recreated under its
// deterministic slot id, bound to that item's nested grid.
func (m *Manager) rebuildDynamicContainers() {
	for id, c := range m.containers {
		if c.Type != ContainerEquipped {
			continue
		}
		delete(m.containers, id)
		c.Type = ContainerNested
		if c.OwnerItem != nil {
			c.ID = fmt.Sprintf("nested-%d", c.OwnerItem.ID)
		}
	}
	for _, slot := range AllSlots {
		it := m.equipment[slot]
		if it == nil || !it.Def.HasContainer() {
			continue
		}
		grid := it.Grid()
		grid.Type = ContainerEquipped
		grid.ID = DynamicContainerID(slot)
		m.containers[grid.ID] = grid
	}
}

// CanOpenContainer reports whether the item's nested grid may be opened:
// backpacks only while equipped, openable-when-nested items always, and
// everything else only while not nested inside another container.
func (m *Manager) CanOpenContainer(it *Item) bool {
	if it == nil || !it.Def.HasContainer() {
		return false
	}
	if Slot(it.Def.EquipSlot) == SlotBackpack {
		return it.Equipped
	}
	if it.Def.OpenableNested {
		return true
	}
	return !it.IsNested()
}

// MoveItem relocates an item between two containers: removal from the
// source completes before insertion is attempted, and a failed insertion
// restores the item to its source cell before returning. This is the sole
// transactional path between registered containers. Explicit coordinates
// landing on a compatible stack merge into it; a merge remainder stays at
// the source.
func (m *Manager) MoveItem(itemID int64, fromID, toID string, at *GridPos) error {
	from, err := m.Container(fromID)
	if err != nil {
		return err
	}
	to, err := m.Container(toID)
	if err != nil {
		return err
	}
	it := from.Item(itemID)
	if it == nil {
		return fmt.Errorf("item %d in %s: %w", itemID, fromID, ErrItemNotFound)
	}

	old := GridPos{X: it.X, Y: it.Y}
	if _, err := from.RemoveItem(itemID); err != nil {
		return err
	}
	restore := func() {
		if err := from.PlaceItemAt(it, old.X, old.Y); err != nil {
			m.log.Error("failed to restore item to source",
				zap.Int64("item", it.ID), zap.String("container", fromID), zap.Error(err))
		}
	}

	if at != nil {
		vp := to.ValidatePlacement(it, at.X, at.Y)
		if vp.StackWith != nil {
			amt := vp.StackWith.StackableAmount(it)
			vp.StackWith.StackCount += amt
			it.StackCount -= amt
			if it.StackCount == 0 {
				return nil // fully merged; the source instance is gone
			}
			restore()
			return nil
		}
		if !vp.OK {
			restore()
			return vp.Reason
		}
		if err := to.PlaceItemAt(it, at.X, at.Y); err != nil {
			restore()
			return err
		}
		return nil
	}

	if err := to.AddItem(it, nil); err != nil {
		restore()
		return err
	}
	return nil
}

// AddItem is the canonical "where does a picked-up item go" policy: the
// preferred container if named, then the equipped backpack, then pocket
// containers in equipment order, then the ground (which auto-expands).
// Returns the id of the container that took the item (or absorbed it into
// an existing stack).
func (m *Manager) AddItem(it *Item, preferredContainerID string) (string, error) {
	if it == nil || it.ID == 0 {
		m.log.Warn("add rejected: item missing instance id")
		return "", fmt.Errorf("item missing instance id: %w", ErrPlacementRejected)
	}

	var chain []*Container
	seen := make(map[string]bool)
	push := func(c *Container) {
		if c != nil && !seen[c.ID] {
			seen[c.ID] = true
			chain = append(chain, c)
		}
	}

	if preferredContainerID != "" {
		pref, err := m.Container(preferredContainerID)
		if err != nil {
			return "", err
		}
		push(pref)
	}
	push(m.containers[DynamicContainerID(SlotBackpack)])
	for _, slot := range AllSlots {
		if c, ok := m.containers[DynamicContainerID(slot)]; ok && c.Kind == data.KindPockets {
			push(c)
		}
	}
	push(m.ground)

	for _, c := range chain {
		if err := c.AddItem(it, nil); err == nil {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("no container accepted %s: %w", it.Def.DefID, ErrPlacementRejected)
}
