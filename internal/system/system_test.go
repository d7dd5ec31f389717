package system

import (
	"testing"

	"github.com/deadgrid/server/internal/data"
	"github.com/deadgrid/server/internal/world"
	"go.uber.org/zap"
)

// testCatalog builds the item and recipe tables shared by the system tests.
func testCatalog(t *testing.T) (*data.ItemTable, *data.RecipeTable) {
	t.Helper()
	items, err := data.NewItemTable([]*data.ItemDef{
		{
			DefID: "lighter", Name: "Lighter", Category: data.CategoryTool,
			Width: 1, Height: 1, ChargeCapacity: 50,
		},
		{
			DefID: "knife", Name: "Utility Knife", Category: data.CategoryTool,
			Width: 1, Height: 2,
		},
		{
			DefID: "stick", Name: "Wooden Stick", Category: data.CategoryMaterial,
			Width: 1, Height: 2, Stackable: true, StackMax: 10,
		},
		{
			DefID: "cloth_scrap", Name: "Cloth Scraps", Category: data.CategoryMaterial,
			Width: 1, Height: 1, Stackable: true, StackMax: 50,
		},
		{
			DefID: "bandage", Name: "Bandage", Category: data.CategoryMedical,
			Width: 1, Height: 1, Stackable: true, StackMax: 10, Consumable: true,
		},
		{
			DefID: "beans", Name: "Canned Beans", Category: data.CategoryFood,
			Width: 1, Height: 1, Stackable: true, StackMax: 6, Consumable: true,
		},
		{
			DefID: "torch", Name: "Torch", Category: data.CategoryMisc,
			Width: 1, Height: 2,
		},
		{
			DefID: "campfire", Name: "Campfire", Category: data.CategoryMisc,
			Width: 4, Height: 4, GroundOnly: true,
		},
		{
			DefID: "machete", Name: "Machete", Category: data.CategoryWeapon,
			Width: 1, Height: 3, Equippable: true, EquipSlot: "melee",
			Degradable: true, Condition: 100,
		},
		{
			DefID: "backpack", Name: "Hiking Backpack", Category: data.CategoryContainer,
			Width: 2, Height: 2, Equippable: true, EquipSlot: "backpack",
			Container: &data.ContainerSpec{Width: 6, Height: 10, Kind: data.KindBackpack},
		},
	})
	if err != nil {
		t.Fatalf("build item catalog: %v", err)
	}

	recipes, err := data.NewRecipeTable([]*data.CraftRecipe{
		{
			RecipeID: "campfire", Name: "Campfire", APCost: 2,
			Tools: []data.ToolReq{
				{Label: "fire source", AnyOf: []string{"lighter"}, RequireCharge: true},
			},
			Ingredients: []data.IngredientReq{
				{Label: "fuel", AnyOf: []string{"stick"}, Count: 1, LifetimePerUnit: 1},
			},
			ResultDefID: "campfire",
		},
		{
			RecipeID: "bandage", Name: "Bandage", APCost: 1,
			Tools: []data.ToolReq{
				{Label: "cutting tool", AnyOf: []string{"knife", "machete"}},
			},
			Ingredients: []data.IngredientReq{
				{Label: "cloth", AnyOf: []string{"cloth_scrap"}, Count: 2},
			},
			ResultDefID: "bandage", ResultCount: 2,
		},
		{
			RecipeID: "torch", Name: "Torch", APCost: 1,
			Tools: []data.ToolReq{
				{Label: "sturdy stick", AnyOf: []string{"stick"}},
			},
			Ingredients: []data.IngredientReq{
				{Label: "stick", AnyOf: []string{"stick"}, Count: 1},
			},
			ResultDefID: "torch",
		},
	}, items)
	if err != nil {
		t.Fatalf("build recipe catalog: %v", err)
	}
	return items, recipes
}

// newTestSession builds a manager plus crafting system over the test catalog.
func newTestSession(t *testing.T) (*world.Manager, *CraftSystem) {
	t.Helper()
	items, recipes := testCatalog(t)
	mgr := world.NewManager(items, 10, 10, 4, 4, zap.NewNop())
	return mgr, NewCraftSystem(mgr, recipes, zap.NewNop())
}

// stage creates an item and drops it into the named container.
func stage(t *testing.T, mgr *world.Manager, containerID, defID string, count int) *world.Item {
	t.Helper()
	it := world.NewItem(mgr.Defs().Get(defID))
	if count > 0 {
		it.StackCount = count
	}
	c, err := mgr.Container(containerID)
	if err != nil {
		t.Fatalf("resolve %s: %v", containerID, err)
	}
	if err := c.AddItem(it, nil); err != nil {
		t.Fatalf("stage %s in %s: %v", defID, containerID, err)
	}
	return it
}
