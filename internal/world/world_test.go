package world

import (
	"testing"

	"github.com/deadgrid/server/internal/data"
	"go.uber.org/zap"
)

// testDefs builds the small catalog shared by the world tests.
func testDefs(t *testing.T) *data.ItemTable {
	t.Helper()
	defs := []*data.ItemDef{
		{
			DefID: "backpack", Name: "Hiking Backpack", Category: data.CategoryContainer,
			Width: 2, Height: 2, Equippable: true, EquipSlot: "backpack",
			Container: &data.ContainerSpec{Width: 6, Height: 10, Kind: data.KindBackpack},
		},
		{
			DefID: "jacket", Name: "Field Jacket", Category: data.CategoryClothing,
			Width: 2, Height: 2, Equippable: true, EquipSlot: "upper_body",
			Container: &data.ContainerSpec{Width: 4, Height: 2, Kind: data.KindPockets},
		},
		{
			DefID: "machete", Name: "Machete", Category: data.CategoryWeapon,
			Width: 1, Height: 3, Equippable: true, EquipSlot: "melee",
			Degradable: true, Condition: 100,
		},
		{
			DefID: "flashlight", Name: "Flashlight", Category: data.CategoryTool,
			Width: 1, Height: 2, Equippable: true, EquipSlot: "flashlight",
			ChargeCapacity: 20,
		},
		{
			DefID: "ammo", Name: "9mm Rounds", Category: data.CategoryMaterial,
			Width: 1, Height: 1, Stackable: true, StackMax: 50,
		},
		{
			DefID: "stick", Name: "Wooden Stick", Category: data.CategoryMaterial,
			Width: 1, Height: 2, Stackable: true, StackMax: 10,
		},
		{
			DefID: "beans", Name: "Canned Beans", Category: data.CategoryFood,
			Width: 1, Height: 1, Stackable: true, StackMax: 6, Consumable: true,
		},
		{
			DefID: "box", Name: "Wooden Box", Category: data.CategoryMisc,
			Width: 2, Height: 2,
		},
		{
			DefID: "first_aid_kit", Name: "First Aid Kit", Category: data.CategoryMedical,
			Width: 2, Height: 2, OpenableNested: true,
			Container: &data.ContainerSpec{Width: 3, Height: 3, Kind: data.KindStorage},
		},
	}
	table, err := data.NewItemTable(defs)
	if err != nil {
		t.Fatalf("build test catalog: %v", err)
	}
	return table
}

func testItem(t *testing.T, defs *data.ItemTable, defID string) *Item {
	t.Helper()
	def := defs.Get(defID)
	if def == nil {
		t.Fatalf("no test def %q", defID)
	}
	return NewItem(def)
}

func testManager(t *testing.T, defs *data.ItemTable) *Manager {
	t.Helper()
	return NewManager(defs, 10, 10, 4, 4, zap.NewNop())
}

// totalUnits sums stack counts across containers and items, including
// nested grids — used by the conservation checks.
func totalUnits(cs ...*Container) int {
	total := 0
	for _, c := range cs {
		for _, it := range c.Items() {
			total += it.StackCount
			if it.HasGrid() {
				total += totalUnits(it.Grid())
			}
		}
	}
	return total
}
