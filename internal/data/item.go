package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ItemCategory groups definitions for sorting and ground organization.
type ItemCategory string

const (
	CategoryWeapon    ItemCategory = "weapon"
	CategoryClothing  ItemCategory = "clothing"
	CategoryContainer ItemCategory = "container"
	CategoryFood      ItemCategory = "food"
	CategoryMedical   ItemCategory = "medical"
	CategoryTool      ItemCategory = "tool"
	CategoryMaterial  ItemCategory = "material"
	CategoryMisc      ItemCategory = "misc"
)

// ContainerKind classifies what a nested grid counts as for the
// placement business rules (a loaded backpack cannot go inside another
// backpack; loaded pocketed clothing cannot nest into backpacks or pockets).
type ContainerKind string

const (
	KindBackpack ContainerKind = "backpack"
	KindPockets  ContainerKind = "pockets"
	KindStorage  ContainerKind = "storage"
)

// ContainerSpec is the inert nested-grid definition carried by container
// items. The live grid is materialized from it on first access.
type ContainerSpec struct {
	Width  int           `yaml:"width"`
	Height int           `yaml:"height"`
	Kind   ContainerKind `yaml:"kind"`
}

// ItemDef holds one item template.
// Flat struct — fields that don't apply to a def are zero-valued.
type ItemDef struct {
	DefID    string
	Name     string
	Category ItemCategory
	Width    int
	Height   int

	// Traits
	Stackable      bool
	Degradable     bool
	Equippable     bool
	Consumable     bool
	OpenableNested bool // container stays openable while nested in another
	GroundOnly     bool // result must sit on the ground (e.g. campfire)

	EquipSlot string // one of the seven equipment slots, "" if not equippable

	Container *ContainerSpec // nil unless the item carries a nested grid

	StackMax       int
	Condition      int // initial condition for degradable items (0-100)
	ChargeCapacity int // finite tool charges; 0 = never consumed as a tool

	// Combat stats (weapons)
	Damage    int
	Range     int
	AmmoDefID string
}

// HasContainer reports whether the def declares a nested grid.
func (d *ItemDef) HasContainer() bool {
	return d.Container != nil
}

// ItemTable holds all item definitions indexed by def id.
type ItemTable struct {
	defs map[string]*ItemDef
}

// Get returns a definition by id, or nil if not found.
func (t *ItemTable) Get(defID string) *ItemDef {
	return t.defs[defID]
}

// Count returns total loaded definitions.
func (t *ItemTable) Count() int {
	return len(t.defs)
}

type itemEntry struct {
	DefID          string         `yaml:"def_id"`
	Name           string         `yaml:"name"`
	Category       string         `yaml:"category"`
	Width          int            `yaml:"width"`
	Height         int            `yaml:"height"`
	Stackable      bool           `yaml:"stackable"`
	Degradable     bool           `yaml:"degradable"`
	Equippable     bool           `yaml:"equippable"`
	Consumable     bool           `yaml:"consumable"`
	OpenableNested bool           `yaml:"openable_nested"`
	GroundOnly     bool           `yaml:"ground_only"`
	EquipSlot      string         `yaml:"equip_slot"`
	Container      *ContainerSpec `yaml:"container"`
	StackMax       int            `yaml:"stack_max"`
	Condition      int            `yaml:"condition"`
	ChargeCapacity int            `yaml:"charge_capacity"`
	Damage         int            `yaml:"damage"`
	Range          int            `yaml:"range"`
	AmmoDefID      string         `yaml:"ammo_def_id"`
}

type itemListFile struct {
	Items []itemEntry `yaml:"items"`
}

// LoadItemTable loads the item definition catalog from a YAML file.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}

	t := &ItemTable{defs: make(map[string]*ItemDef, len(f.Items))}
	for i := range f.Items {
		e := &f.Items[i]
		def, err := defFromEntry(e)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", e.DefID, err)
		}
		if _, dup := t.defs[def.DefID]; dup {
			return nil, fmt.Errorf("item %q: duplicate def id", def.DefID)
		}
		t.defs[def.DefID] = def
	}
	return t, nil
}

// NewItemTable builds a table from in-memory defs. Used by tests and
// embedded fixtures; applies the same validation as the YAML loader.
func NewItemTable(defs []*ItemDef) (*ItemTable, error) {
	t := &ItemTable{defs: make(map[string]*ItemDef, len(defs))}
	for _, def := range defs {
		if err := validateDef(def); err != nil {
			return nil, fmt.Errorf("item %q: %w", def.DefID, err)
		}
		if _, dup := t.defs[def.DefID]; dup {
			return nil, fmt.Errorf("item %q: duplicate def id", def.DefID)
		}
		t.defs[def.DefID] = def
	}
	return t, nil
}

func defFromEntry(e *itemEntry) (*ItemDef, error) {
	def := &ItemDef{
		DefID:          e.DefID,
		Name:           e.Name,
		Category:       ItemCategory(e.Category),
		Width:          e.Width,
		Height:         e.Height,
		Stackable:      e.Stackable,
		Degradable:     e.Degradable,
		Equippable:     e.Equippable,
		Consumable:     e.Consumable,
		OpenableNested: e.OpenableNested,
		GroundOnly:     e.GroundOnly,
		EquipSlot:      e.EquipSlot,
		Container:      e.Container,
		StackMax:       e.StackMax,
		Condition:      e.Condition,
		ChargeCapacity: e.ChargeCapacity,
		Damage:         e.Damage,
		Range:          e.Range,
		AmmoDefID:      e.AmmoDefID,
	}
	if def.Category == "" {
		def.Category = CategoryMisc
	}
	if err := validateDef(def); err != nil {
		return nil, err
	}
	return def, nil
}

func validateDef(def *ItemDef) error {
	if def.DefID == "" {
		return fmt.Errorf("missing def id")
	}
	if def.Width <= 0 || def.Height <= 0 {
		return fmt.Errorf("footprint %dx%d invalid", def.Width, def.Height)
	}
	if def.Stackable {
		if def.StackMax < 2 {
			return fmt.Errorf("stackable with stack_max %d", def.StackMax)
		}
		if def.Degradable {
			// A per-instance condition makes instances non-identical,
			// which breaks stack merging.
			return fmt.Errorf("stackable and degradable are mutually exclusive")
		}
	}
	if def.Degradable && (def.Condition < 1 || def.Condition > 100) {
		return fmt.Errorf("degradable with condition %d", def.Condition)
	}
	if def.Equippable && def.EquipSlot == "" {
		return fmt.Errorf("equippable without equip_slot")
	}
	if def.Container != nil {
		if def.Container.Width <= 0 || def.Container.Height <= 0 {
			return fmt.Errorf("container grid %dx%d invalid", def.Container.Width, def.Container.Height)
		}
		if def.Container.Kind == "" {
			def.Container.Kind = KindStorage
		}
	}
	return nil
}
