package world

import (
	"encoding/json"
	"fmt"

	"github.com/deadgrid/server/internal/data"
	"go.uber.org/zap"
)

// The save format is the plain JSON tree below: manager → containers →
// items → nested containers, recursively. There is no schema-version
// field today; evolving the catalog or the slot set has no defined
// migration path.

// ItemJSON is the serialized form of one item instance.
type ItemJSON struct {
	InstanceID    int64          `json:"instance_id"`
	DefID         string         `json:"def_id"`
	X             int            `json:"x"`
	Y             int            `json:"y"`
	Rotation      int            `json:"rotation"`
	StackCount    int            `json:"stack_count"`
	Condition     int            `json:"condition,omitempty"`
	Charges       int            `json:"charges,omitempty"`
	LifetimeTurns int            `json:"lifetime_turns,omitempty"`
	Equipped      bool           `json:"equipped,omitempty"`
	Container     *ContainerJSON `json:"container,omitempty"`
}

// ContainerJSON is the serialized form of one container and its contents.
type ContainerJSON struct {
	ID         string             `json:"id"`
	Type       ContainerType      `json:"type"`
	Name       string             `json:"name"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	AutoExpand bool               `json:"auto_expand,omitempty"`
	Kind       data.ContainerKind `json:"kind,omitempty"`
	Items      []ItemJSON         `json:"items"`
}

// ManagerJSON is the serialized form of a whole session. Dynamic containers
// are never persisted as first-class entries — they are recomputed from the
// restored equipment on load.
type ManagerJSON struct {
	Containers []ContainerJSON     `json:"containers"`
	Equipment  map[string]ItemJSON `json:"equipment"`
}

// ToJSON emits the container with every contained item, recursing into
// materialized nested grids.
func (c *Container) ToJSON() ContainerJSON {
	cj := ContainerJSON{
		ID:         c.ID,
		Type:       c.Type,
		Name:       c.Name,
		Width:      c.Width,
		Height:     c.Height,
		AutoExpand: c.AutoExpand,
		Kind:       c.Kind,
		Items:      make([]ItemJSON, 0, len(c.items)),
	}
	for _, it := range c.Items() {
		cj.Items = append(cj.Items, itemToJSON(it))
	}
	return cj
}

func itemToJSON(it *Item) ItemJSON {
	ij := ItemJSON{
		InstanceID:    it.ID,
		DefID:         it.Def.DefID,
		X:             it.X,
		Y:             it.Y,
		Rotation:      it.Rotation,
		StackCount:    it.StackCount,
		Condition:     it.Condition,
		Charges:       it.Charges,
		LifetimeTurns: it.LifetimeTurns,
		Equipped:      it.Equipped,
	}
	if it.grid != nil {
		nested := it.grid.ToJSON()
		ij.Container = &nested
	}
	return ij
}

// itemFromJSON rebuilds an item instance, recursively materializing its
// nested grid, and bumps the instance-id counter past the restored id.
func itemFromJSON(ij ItemJSON, defs *data.ItemTable) (*Item, error) {
	def := defs.Get(ij.DefID)
	if def == nil {
		return nil, fmt.Errorf("def %q: %w", ij.DefID, ErrItemNotFound)
	}
	if ij.InstanceID == 0 {
		return nil, fmt.Errorf("item %q missing instance id: %w", ij.DefID, ErrPlacementRejected)
	}
	BumpInstanceID(ij.InstanceID)

	it := &Item{
		ID:            ij.InstanceID,
		Def:           def,
		Rotation:      ij.Rotation,
		StackCount:    ij.StackCount,
		Condition:     ij.Condition,
		Charges:       ij.Charges,
		LifetimeTurns: ij.LifetimeTurns,
		Equipped:      ij.Equipped,
	}
	if it.StackCount < 1 {
		it.StackCount = 1
	}
	if ij.Container != nil {
		grid, err := ContainerFromJSON(*ij.Container, defs)
		if err != nil {
			return nil, fmt.Errorf("item %d nested grid: %w", it.ID, err)
		}
		grid.OwnerItem = it
		it.grid = grid
	}
	return it, nil
}

// ContainerFromJSON reconstructs a container and replays PlaceItemAt at
// each item's serialized coordinates — not the auto-placement path — so
// the exact prior layout is preserved.
func ContainerFromJSON(cj ContainerJSON, defs *data.ItemTable) (*Container, error) {
	c := NewContainer(cj.ID, cj.Type, cj.Name, cj.Width, cj.Height, cj.AutoExpand)
	c.Kind = cj.Kind
	for _, ij := range cj.Items {
		it, err := itemFromJSON(ij, defs)
		if err != nil {
			return nil, err
		}
		if err := c.PlaceItemAt(it, ij.X, ij.Y); err != nil {
			return nil, fmt.Errorf("replay item %d in %s: %w", it.ID, cj.ID, err)
		}
	}
	return c, nil
}

// ToJSON walks the registry and equipment. Only session-lifetime containers
// (ground and the crafting workspaces) appear in the container list.
func (m *Manager) ToJSON() ManagerJSON {
	mj := ManagerJSON{
		Equipment: make(map[string]ItemJSON, len(m.equipment)),
	}
	for _, id := range []string{GroundContainerID, WorkspaceToolsID, WorkspaceIngredientsID} {
		if c, ok := m.containers[id]; ok {
			mj.Containers = append(mj.Containers, c.ToJSON())
		}
	}
	for slot, it := range m.equipment {
		mj.Equipment[string(slot)] = itemToJSON(it)
	}
	return mj
}

// MarshalState serializes the whole session for persistence.
func (m *Manager) MarshalState() ([]byte, error) {
	return json.Marshal(m.ToJSON())
}

// RestoreManager rebuilds a session from serialized state. The restored
// ground container becomes the manager's literal ground reference, and
// dynamic containers are recomputed from the restored equipment rather
// than deserialized.
func RestoreManager(state []byte, defs *data.ItemTable, log *zap.Logger) (*Manager, error) {
	var mj ManagerJSON
	if err := json.Unmarshal(state, &mj); err != nil {
		return nil, fmt.Errorf("parse session state: %w", err)
	}
	return ManagerFromJSON(mj, defs, log)
}

// ManagerFromJSON reconstructs a session from its decoded JSON form.
func ManagerFromJSON(mj ManagerJSON, defs *data.ItemTable, log *zap.Logger) (*Manager, error) {
	m := &Manager{
		defs:       defs,
		log:        log,
		containers: make(map[string]*Container, 8),
		equipment:  make(map[Slot]*Item, len(AllSlots)),
	}
	for _, cj := range mj.Containers {
		c, err := ContainerFromJSON(cj, defs)
		if err != nil {
			return nil, err
		}
		m.containers[c.ID] = c
		if c.ID == GroundContainerID {
			m.ground = c
		}
	}
	if m.ground == nil {
		return nil, fmt.Errorf("session state has no ground container: %w", ErrContainerNotFound)
	}
	for slotName, ij := range mj.Equipment {
		slot := Slot(slotName)
		if !ValidSlot(slot) {
			return nil, fmt.Errorf("equipment slot %q: %w", slotName, ErrSlotMismatch)
		}
		it, err := itemFromJSON(ij, defs)
		if err != nil {
			return nil, fmt.Errorf("equipment slot %s: %w", slot, err)
		}
		it.Equipped = true
		m.equipment[slot] = it
	}
	m.rebuildDynamicContainers()
	return m, nil
}
