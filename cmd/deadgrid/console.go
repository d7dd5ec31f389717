package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deadgrid/server/internal/system"
	"github.com/deadgrid/server/internal/world"
	"go.uber.org/zap"
)

// console is the interactive session shell: every command maps onto one
// manager or system entry point.
type console struct {
	mgr       *world.Manager
	crafting  *system.CraftSystem
	organizer *system.GroundOrganizer
	itemUse   *system.ItemUseSystem
	log       *zap.Logger
}

func (c *console) handle(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	var err error
	switch fields[0] {
	case "help":
		c.printHelp()
	case "ls":
		err = c.list(fields[1:])
	case "spawn":
		err = c.spawn(fields[1:])
	case "move":
		err = c.move(fields[1:])
	case "equip":
		err = c.equip(fields[1:])
	case "unequip":
		err = c.unequip(fields[1:])
	case "craft":
		err = c.craft(fields[1:])
	case "check":
		err = c.check(fields[1:])
	case "use":
		err = c.use(fields[1:])
	case "sort":
		err = c.organizer.SortGround()
	case "search":
		c.search(fields[1:])
	case "pickup":
		err = c.pickup(fields[1:])
	case "stats":
		c.stats()
	default:
		fmt.Printf("unknown command %q (try help)\n", fields[0])
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (c *console) printHelp() {
	fmt.Print(`commands:
  ls [container]               list containers, or one container's items
  spawn <def> [container]      create an item and add it via the pickup chain
  move <item> <from> <to> [x y]
  equip <container> <item>     equip an item out of a container
  unequip <slot>
  check <recipe> [ap]          report unmet recipe requirements
  craft <recipe>
  use <container> <item>       apply a consumable's scripted effect
  sort | search <text> | pickup <def> | stats
  save
`)
}

func (c *console) list(args []string) error {
	if len(args) == 0 {
		for _, id := range c.mgr.ContainerIDs() {
			ct, _ := c.mgr.Container(id)
			fmt.Printf("%-24s %2dx%-2d  %d items\n", id, ct.Width, ct.Height, ct.Len())
		}
		for _, slot := range world.AllSlots {
			if it := c.mgr.Equipped(slot); it != nil {
				fmt.Printf("%-24s %s (#%d)\n", "["+string(slot)+"]", it.Def.DefID, it.ID)
			}
		}
		return nil
	}
	ct, err := c.mgr.Container(args[0])
	if err != nil {
		return err
	}
	for _, it := range ct.Items() {
		fmt.Printf("#%d %s at (%d,%d) rot=%d x%d\n",
			it.ID, it.Def.DefID, it.X, it.Y, it.Rotation, it.StackCount)
	}
	return nil
}

func (c *console) spawn(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: spawn <def> [container]")
	}
	def := c.mgr.Defs().Get(args[0])
	if def == nil {
		return fmt.Errorf("def %q: %w", args[0], world.ErrItemNotFound)
	}
	pref := ""
	if len(args) > 1 {
		pref = args[1]
	}
	it := world.NewItem(def)
	id, err := c.mgr.AddItem(it, pref)
	if err != nil {
		return err
	}
	fmt.Printf("#%d %s -> %s\n", it.ID, def.DefID, id)
	return nil
}

func (c *console) move(args []string) error {
	if len(args) != 3 && len(args) != 5 {
		return fmt.Errorf("usage: move <item> <from> <to> [x y]")
	}
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("item id %q", args[0])
	}
	var at *world.GridPos
	if len(args) == 5 {
		x, errX := strconv.Atoi(args[3])
		y, errY := strconv.Atoi(args[4])
		if errX != nil || errY != nil {
			return fmt.Errorf("coordinates %q %q", args[3], args[4])
		}
		at = &world.GridPos{X: x, Y: y}
	}
	return c.mgr.MoveItem(itemID, args[1], args[2], at)
}

func (c *console) equip(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: equip <container> <item>")
	}
	ct, err := c.mgr.Container(args[0])
	if err != nil {
		return err
	}
	itemID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("item id %q", args[1])
	}
	it := ct.Item(itemID)
	if it == nil {
		return fmt.Errorf("item %d in %s: %w", itemID, args[0], world.ErrItemNotFound)
	}
	return c.mgr.EquipItem(it, "")
}

func (c *console) unequip(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: unequip <slot>")
	}
	return c.mgr.UnequipItem(world.Slot(args[0]))
}

func (c *console) check(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: check <recipe> [ap]")
	}
	ap := -1
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("ap %q", args[1])
		}
		ap = v
	}
	unmet, err := c.crafting.CheckRequirements(args[0], ap)
	if err != nil {
		return err
	}
	if len(unmet) == 0 {
		fmt.Println("craftable")
	} else {
		fmt.Printf("missing: %s\n", strings.Join(unmet, ", "))
	}
	return nil
}

func (c *console) craft(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: craft <recipe>")
	}
	it, err := c.crafting.Craft(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("crafted #%d %s\n", it.ID, it.Def.DefID)
	return nil
}

func (c *console) use(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: use <container> <item>")
	}
	itemID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("item id %q", args[1])
	}
	msg, err := c.itemUse.UseItem(args[0], itemID)
	if err != nil {
		return err
	}
	if msg != "" {
		fmt.Println(msg)
	}
	return nil
}

func (c *console) search(args []string) {
	for _, it := range c.organizer.Search(strings.Join(args, " ")) {
		fmt.Printf("#%d %s at (%d,%d) x%d\n", it.ID, it.Def.DefID, it.X, it.Y, it.StackCount)
	}
}

func (c *console) pickup(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pickup <def>")
	}
	id, err := c.organizer.Pickup(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("picked up into %s\n", id)
	return nil
}

func (c *console) stats() {
	for cat, s := range c.organizer.Stats() {
		fmt.Printf("%-12s %3d items  %4d units  %4d cells\n", cat, s.Items, s.Units, s.Cells)
	}
}
