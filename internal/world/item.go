package world

import (
	"fmt"
	"sync/atomic"

	"github.com/deadgrid/server/internal/data"
)

// instanceIDCounter generates unique item instance IDs.
// Starts at 500_000_000 so restored saves and fresh items never collide
// as long as BumpInstanceID is called after a load.
var instanceIDCounter atomic.Int64

func init() {
	instanceIDCounter.Store(500_000_000)
}

// NextInstanceID returns a unique ID for an item instance.
func NextInstanceID() int64 {
	return instanceIDCounter.Add(1)
}

// BumpInstanceID raises the counter past the given ID. Called while
// restoring a session so freshly created items don't reuse persisted IDs.
func BumpInstanceID(id int64) {
	for {
		cur := instanceIDCounter.Load()
		if cur >= id {
			return
		}
		if instanceIDCounter.CompareAndSwap(cur, id) {
			return
		}
	}
}

// GridPos is a cell coordinate inside a container grid.
type GridPos struct {
	X int
	Y int
}

// Item is one physical object instance. Its grid position is meaningful
// only while the item is placed in a container; the owner back-reference
// is written exclusively by the container that currently holds it.
type Item struct {
	ID  int64
	Def *data.ItemDef

	X        int
	Y        int
	Rotation int // degrees, one of 0/90/180/270

	StackCount    int
	Condition     int // 0-100, meaningful only for degradable defs
	Charges       int // remaining tool charges, capped by def capacity
	LifetimeTurns int // turns until expiry, 0 = permanent
	Equipped      bool

	owner *Container // container currently holding this item, nil otherwise
	grid  *Container // memoized nested grid, materialized on first access
}

// NewItem is the sole factory for item instances. Every call issues a
// fresh instance ID and seeds stack/condition/charge state from the def;
// callers apply overrides after construction.
func NewItem(def *data.ItemDef) *Item {
	it := &Item{
		ID:         NextInstanceID(),
		Def:        def,
		StackCount: 1,
	}
	if def.Degradable {
		it.Condition = def.Condition
	}
	if def.ChargeCapacity > 0 {
		it.Charges = def.ChargeCapacity
	}
	return it
}

// Owner returns the container currently holding this item, or nil when
// the item is equipped or detached.
func (it *Item) Owner() *Container {
	return it.owner
}

// ActualWidth returns the footprint width under the current rotation.
func (it *Item) ActualWidth() int {
	if it.Rotation == 90 || it.Rotation == 270 {
		return it.Def.Height
	}
	return it.Def.Width
}

// ActualHeight returns the footprint height under the current rotation.
func (it *Item) ActualHeight() int {
	if it.Rotation == 90 || it.Rotation == 270 {
		return it.Def.Width
	}
	return it.Def.Height
}

// footprintAt returns the rotated footprint for an arbitrary rotation value.
func (it *Item) footprintAt(rotation int) (w, h int) {
	if rotation == 90 || rotation == 270 {
		return it.Def.Height, it.Def.Width
	}
	return it.Def.Width, it.Def.Height
}

// Rotate advances the item's rotation by 90 degrees. While placed, the new
// footprint is validated against the owning grid excluding the item itself;
// on failure neither rotation nor occupancy change.
func (it *Item) Rotate() error {
	next := (it.Rotation + 90) % 360
	if it.owner == nil {
		it.Rotation = next
		return nil
	}
	return it.owner.rotateItem(it, next)
}

// CanStackWith reports whether other can merge into this item: same def,
// both stackable, and spare capacity left.
func (it *Item) CanStackWith(other *Item) bool {
	if it == other || other == nil {
		return false
	}
	if !it.Def.Stackable || !other.Def.Stackable {
		return false
	}
	if it.Def.DefID != other.Def.DefID {
		return false
	}
	return it.StackCount < it.Def.StackMax
}

// StackableAmount returns how many units of other fit into this item,
// capped by the remaining stack capacity.
func (it *Item) StackableAmount(other *Item) int {
	if !it.CanStackWith(other) {
		return 0
	}
	room := it.Def.StackMax - it.StackCount
	if other.StackCount < room {
		return other.StackCount
	}
	return room
}

// SplitStack carves n units off this stack into a fresh instance.
// Rejects n <= 0 and n >= StackCount — a full split is just a move.
func (it *Item) SplitStack(n int) (*Item, error) {
	if !it.Def.Stackable {
		return nil, fmt.Errorf("split %s: %w", it.Def.DefID, ErrCapacityExceeded)
	}
	if n <= 0 || n >= it.StackCount {
		return nil, fmt.Errorf("split %d of %d: %w", n, it.StackCount, ErrCapacityExceeded)
	}
	clone := NewItem(it.Def)
	clone.StackCount = n
	clone.Rotation = it.Rotation
	it.StackCount -= n
	return clone, nil
}

// HasGrid reports whether the nested grid has been materialized yet.
func (it *Item) HasGrid() bool {
	return it.grid != nil
}

// Grid returns the item's nested container, materializing it from the def's
// container spec on first access. Returns nil for defs without one. The
// grid persists for the item's lifetime once created.
func (it *Item) Grid() *Container {
	if it.grid != nil {
		return it.grid
	}
	spec := it.Def.Container
	if spec == nil {
		return nil
	}
	it.grid = newNestedContainer(it, spec)
	return it.grid
}

// IsNested reports whether the item currently sits inside another item's
// materialized container.
func (it *Item) IsNested() bool {
	return it.owner != nil && it.owner.OwnerItem != nil
}
