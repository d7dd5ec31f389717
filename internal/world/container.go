package world

import (
	"fmt"
	"sort"

	"github.com/deadgrid/server/internal/data"
)

// ContainerType distinguishes the four grid roles in a session.
type ContainerType string

const (
	ContainerGround    ContainerType = "ground"
	ContainerEquipped  ContainerType = "equipped"
	ContainerNested    ContainerType = "nested"
	ContainerWorkspace ContainerType = "workspace"
)

// Container is a rectangular grid of cells holding items. The sparse item
// registry and the dense occupancy grid are kept mutually consistent by
// every mutation: a non-zero cell always names a registered item and every
// registered item claims exactly its rotated footprint.
type Container struct {
	ID         string
	Type       ContainerType
	Name       string
	Width      int
	Height     int
	AutoExpand bool

	// Kind classifies the grid for nesting rules. Empty for ground and
	// workspace grids.
	Kind data.ContainerKind

	// OwnerItem is the parent pointer of a nested grid. It is written only
	// at materialization, never recomputed by searching.
	OwnerItem *Item

	cells [][]int64 // [y][x], 0 = empty
	items map[int64]*Item
}

// NewContainer creates an empty grid.
func NewContainer(id string, typ ContainerType, name string, width, height int, autoExpand bool) *Container {
	c := &Container{
		ID:         id,
		Type:       typ,
		Name:       name,
		Width:      width,
		Height:     height,
		AutoExpand: autoExpand,
		items:      make(map[int64]*Item, 8),
	}
	c.cells = make([][]int64, height)
	for y := range c.cells {
		c.cells[y] = make([]int64, width)
	}
	return c
}

// newNestedContainer materializes an item's grid from its def spec.
func newNestedContainer(owner *Item, spec *data.ContainerSpec) *Container {
	c := NewContainer(fmt.Sprintf("nested-%d", owner.ID), ContainerNested,
		owner.Def.Name, spec.Width, spec.Height, false)
	c.Kind = spec.Kind
	c.OwnerItem = owner
	return c
}

// Placement is the verdict of ValidatePlacement. StackWith is set when the
// target cells hold exactly one item the incoming one can merge into —
// valid as a stack merge, not a plain placement. Callers must branch on it.
type Placement struct {
	OK        bool
	StackWith *Item
	Reason    error
}

// Item returns the registered item with the given instance ID, or nil.
func (c *Container) Item(id int64) *Item {
	return c.items[id]
}

// Items returns all registered items in ascending instance-id order.
func (c *Container) Items() []*Item {
	out := make([]*Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered items.
func (c *Container) Len() int {
	return len(c.items)
}

// Empty reports whether the grid holds no items.
func (c *Container) Empty() bool {
	return len(c.items) == 0
}

// ItemAt returns the item covering the given cell, or nil.
func (c *Container) ItemAt(x, y int) *Item {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return nil
	}
	id := c.cells[y][x]
	if id == 0 {
		return nil
	}
	return c.items[id]
}

// IsAreaFree reports whether every cell of the rectangle is inside the grid
// and either empty or claimed by excludeID.
func (c *Container) IsAreaFree(x, y, w, h int, excludeID int64) bool {
	if x < 0 || y < 0 || x+w > c.Width || y+h > c.Height {
		return false
	}
	for cy := y; cy < y+h; cy++ {
		for cx := x; cx < x+w; cx++ {
			if id := c.cells[cy][cx]; id != 0 && id != excludeID {
				return false
			}
		}
	}
	return true
}

// FindAvailablePosition picks a free spot for the item: the preferred cell
// if given and free, then an expanding ring search (radius 1..3) around it,
// then a row-major scan from the origin — first fit wins, so layouts are
// deterministic. Auto-expanding grids grow by appended rows and retry once.
func (c *Container) FindAvailablePosition(it *Item, pref *GridPos) (GridPos, bool) {
	w, h := it.ActualWidth(), it.ActualHeight()

	if pref != nil {
		if c.IsAreaFree(pref.X, pref.Y, w, h, it.ID) {
			return *pref, true
		}
		for r := 1; r <= 3; r++ {
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if maxAbs(dx, dy) != r {
						continue
					}
					x, y := pref.X+dx, pref.Y+dy
					if x < 0 || y < 0 {
						continue
					}
					if c.IsAreaFree(x, y, w, h, it.ID) {
						return GridPos{X: x, Y: y}, true
					}
				}
			}
		}
	}

	if pos, ok := c.scanFirstFit(w, h, it.ID); ok {
		return pos, true
	}

	if c.AutoExpand {
		width := c.Width
		if w > width {
			width = w
		}
		c.ExpandGrid(width, c.Height+h)
		if pos, ok := c.scanFirstFit(w, h, it.ID); ok {
			return pos, true
		}
	}
	return GridPos{}, false
}

func (c *Container) scanFirstFit(w, h int, excludeID int64) (GridPos, bool) {
	for y := 0; y+h <= c.Height; y++ {
		for x := 0; x+w <= c.Width; x++ {
			if c.IsAreaFree(x, y, w, h, excludeID) {
				return GridPos{X: x, Y: y}, true
			}
		}
	}
	return GridPos{}, false
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

// ValidatePlacement checks bounds, collisions, and the nesting business
// rules without mutating anything.
func (c *Container) ValidatePlacement(it *Item, x, y int) Placement {
	if it == nil || it.ID == 0 {
		return Placement{Reason: fmt.Errorf("item missing instance id: %w", ErrPlacementRejected)}
	}
	w, h := it.ActualWidth(), it.ActualHeight()
	if x < 0 || y < 0 || x+w > c.Width || y+h > c.Height {
		return Placement{Reason: fmt.Errorf("(%d,%d) %dx%d out of bounds in %s: %w", x, y, w, h, c.ID, ErrPlacementRejected)}
	}
	if err := c.checkNestingRules(it); err != nil {
		return Placement{Reason: err}
	}

	var occupant *Item
	multiple := false
	for cy := y; cy < y+h && !multiple; cy++ {
		for cx := x; cx < x+w; cx++ {
			id := c.cells[cy][cx]
			if id == 0 || id == it.ID {
				continue
			}
			other := c.items[id]
			if occupant == nil {
				occupant = other
			} else if occupant != other {
				multiple = true
				break
			}
		}
	}

	if occupant == nil {
		return Placement{OK: true}
	}
	if !multiple && occupant.StackableAmount(it) > 0 {
		return Placement{OK: true, StackWith: occupant}
	}
	return Placement{Reason: fmt.Errorf("(%d,%d) occupied in %s: %w", x, y, c.ID, ErrPlacementRejected)}
}

// checkNestingRules enforces the container-in-container gating: a loaded
// backpack never enters a backpack grid, and loaded pocketed clothing never
// nests into a backpack or pockets grid. Empty containers move freely.
func (c *Container) checkNestingRules(it *Item) error {
	if !it.Def.HasContainer() || it.grid == nil || it.grid.Empty() {
		return nil
	}
	switch it.Def.Container.Kind {
	case data.KindBackpack:
		if c.Kind == data.KindBackpack {
			return fmt.Errorf("loaded backpack into backpack grid %s: %w", c.ID, ErrPlacementRejected)
		}
	case data.KindPockets:
		if c.Kind == data.KindBackpack || c.Kind == data.KindPockets {
			return fmt.Errorf("loaded clothing into %s grid %s: %w", c.Kind, c.ID, ErrPlacementRejected)
		}
	}
	return nil
}

// isWithinItem reports whether this grid lives (transitively) inside the
// given item, which would make placing the item here an ownership cycle.
func (c *Container) isWithinItem(it *Item) bool {
	for cur := c; cur != nil; {
		owner := cur.OwnerItem
		if owner == nil {
			return false
		}
		if owner.ID == it.ID {
			return true
		}
		cur = owner.owner
	}
	return false
}

// PlaceItemAt is the authoritative placement mutation. If the item is
// already registered here its old cells are cleared before the new cells
// are claimed — never during, so the collision check can exclude the item
// itself. On success position, registry entry, and the owner back-reference
// are all updated together.
func (c *Container) PlaceItemAt(it *Item, x, y int) error {
	if it == nil || it.ID == 0 {
		return fmt.Errorf("item missing instance id: %w", ErrPlacementRejected)
	}
	if c.isWithinItem(it) {
		return fmt.Errorf("item %d into its own nested grid: %w", it.ID, ErrPlacementRejected)
	}
	if it.owner != nil && it.owner != c {
		return fmt.Errorf("item %d still held by %s: %w", it.ID, it.owner.ID, ErrPlacementRejected)
	}
	w, h := it.ActualWidth(), it.ActualHeight()
	if x < 0 || y < 0 || x+w > c.Width || y+h > c.Height {
		return fmt.Errorf("(%d,%d) %dx%d out of bounds in %s: %w", x, y, w, h, c.ID, ErrPlacementRejected)
	}
	if !c.IsAreaFree(x, y, w, h, it.ID) {
		return fmt.Errorf("(%d,%d) occupied in %s: %w", x, y, c.ID, ErrPlacementRejected)
	}
	if err := c.checkNestingRules(it); err != nil {
		return err
	}

	if _, registered := c.items[it.ID]; registered {
		c.clearCells(it)
	}
	c.claimCells(it.ID, x, y, w, h)
	it.X, it.Y = x, y
	it.owner = c
	c.items[it.ID] = it
	return nil
}

// AddItem stacks what it can into existing compatible stacks, then places
// the rest. A partial stack followed by a placement failure returns the
// error with the remainder intact on the incoming item — never lost.
// A fully absorbed incoming instance is destroyed (nil error, not placed).
func (c *Container) AddItem(it *Item, pref *GridPos) error {
	if it == nil || it.ID == 0 {
		return fmt.Errorf("item missing instance id: %w", ErrPlacementRejected)
	}
	if it.Def.Stackable {
		_, leftover := c.AttemptStacking(it)
		if leftover == nil {
			return nil
		}
		it = leftover
	}
	pos, ok := c.FindAvailablePosition(it, pref)
	if !ok {
		return fmt.Errorf("no space for %s in %s: %w", it.Def.DefID, c.ID, ErrPlacementRejected)
	}
	return c.PlaceItemAt(it, pos.X, pos.Y)
}

// AttemptStacking pours the incoming stack into compatible stacks with
// spare capacity until the quantity is exhausted or no targets remain.
// Targets are visited in ascending instance-id order purely so results are
// reproducible; the order carries no semantic meaning. Returns whether any
// units transferred and the incoming item if units remain (nil when fully
// absorbed — the instance is gone).
func (c *Container) AttemptStacking(it *Item) (bool, *Item) {
	if it == nil || !it.Def.Stackable {
		return false, it
	}
	transferred := false
	for _, target := range c.Items() {
		amt := target.StackableAmount(it)
		if amt <= 0 {
			continue
		}
		target.StackCount += amt
		it.StackCount -= amt
		transferred = true
		if it.StackCount == 0 {
			return true, nil
		}
	}
	return transferred, it
}

// RemoveItem is the inverse of placement: clears exactly the cells implied
// by the item's recorded position and rotated footprint, drops the registry
// entry, and clears the owner back-reference.
func (c *Container) RemoveItem(itemID int64) (*Item, error) {
	it, ok := c.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %d in %s: %w", itemID, c.ID, ErrItemNotFound)
	}
	c.clearCells(it)
	delete(c.items, itemID)
	it.owner = nil
	return it, nil
}

// ItemsIntersecting returns the distinct items overlapping the rectangle,
// in ascending instance-id order.
func (c *Container) ItemsIntersecting(x, y, w, h int) []*Item {
	seen := make(map[int64]bool)
	var out []*Item
	for cy := y; cy < y+h && cy < c.Height; cy++ {
		if cy < 0 {
			continue
		}
		for cx := x; cx < x+w && cx < c.Width; cx++ {
			if cx < 0 {
				continue
			}
			id := c.cells[cy][cx]
			if id == 0 || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, c.items[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AutoSort clears the grid and reinserts everything ordered by category,
// then descending footprint area. Explicit reorganization only — no other
// mutation calls this implicitly.
func (c *Container) AutoSort() error {
	items := c.Items()
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Def.Category != b.Def.Category {
			return a.Def.Category < b.Def.Category
		}
		areaA := a.Def.Width * a.Def.Height
		areaB := b.Def.Width * b.Def.Height
		if areaA != areaB {
			return areaA > areaB
		}
		return a.ID < b.ID
	})
	return c.reinsert(items)
}

// Compact reinserts items in enumeration order to squeeze out gaps without
// reordering by category. Idempotent: a second call reproduces the first
// call's occupancy.
func (c *Container) Compact() error {
	return c.reinsert(c.Items())
}

// reinsert clears the whole grid and replaces the items in the given order
// via the normal placement scan. On any failure the prior layout is
// restored exactly.
func (c *Container) reinsert(order []*Item) error {
	type spot struct {
		it  *Item
		pos GridPos
	}
	prev := make([]spot, 0, len(order))
	for _, it := range c.Items() {
		prev = append(prev, spot{it: it, pos: GridPos{X: it.X, Y: it.Y}})
	}

	c.clearAll()
	for _, it := range order {
		pos, ok := c.FindAvailablePosition(it, nil)
		if ok {
			if err := c.PlaceItemAt(it, pos.X, pos.Y); err == nil {
				continue
			}
		}
		// Roll back to the layout we started from.
		c.clearAll()
		for _, s := range prev {
			_ = c.PlaceItemAt(s.it, s.pos.X, s.pos.Y)
		}
		return fmt.Errorf("reinsert %s in %s: %w", it.Def.DefID, c.ID, ErrPlacementRejected)
	}
	return nil
}

// clearAll empties cells and registry, detaching every item.
func (c *Container) clearAll() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = 0
		}
	}
	for id, it := range c.items {
		it.owner = nil
		delete(c.items, id)
	}
}

// ExpandGrid grows the grid to at least the given dimensions by appending
// columns and rows. Never shrinks.
func (c *Container) ExpandGrid(width, height int) {
	if width > c.Width {
		for y := range c.cells {
			c.cells[y] = append(c.cells[y], make([]int64, width-c.Width)...)
		}
		c.Width = width
	}
	if height > c.Height {
		for y := c.Height; y < height; y++ {
			c.cells = append(c.cells, make([]int64, c.Width))
		}
		c.Height = height
	}
}

// rotateItem validates the rotated footprint against current occupancy
// excluding the item itself and commits rotation and occupancy together.
// On failure both are left exactly as before.
func (c *Container) rotateItem(it *Item, rotation int) error {
	w, h := it.footprintAt(rotation)
	if it.X+w > c.Width || it.Y+h > c.Height || !c.IsAreaFree(it.X, it.Y, w, h, it.ID) {
		return fmt.Errorf("rotate item %d to %d in %s: %w", it.ID, rotation, c.ID, ErrPlacementRejected)
	}
	c.clearCells(it)
	it.Rotation = rotation
	c.claimCells(it.ID, it.X, it.Y, w, h)
	return nil
}

func (c *Container) claimCells(id int64, x, y, w, h int) {
	for cy := y; cy < y+h; cy++ {
		for cx := x; cx < x+w; cx++ {
			c.cells[cy][cx] = id
		}
	}
}

func (c *Container) clearCells(it *Item) {
	w, h := it.ActualWidth(), it.ActualHeight()
	for cy := it.Y; cy < it.Y+h; cy++ {
		for cx := it.X; cx < it.X+w; cx++ {
			if cy >= 0 && cy < c.Height && cx >= 0 && cx < c.Width && c.cells[cy][cx] == it.ID {
				c.cells[cy][cx] = 0
			}
		}
	}
}
