package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func recipeTestItems(t *testing.T) *ItemTable {
	t.Helper()
	table, err := NewItemTable([]*ItemDef{
		{DefID: "lighter", Name: "Lighter", Category: CategoryTool, Width: 1, Height: 1, ChargeCapacity: 50},
		{DefID: "stick", Name: "Stick", Category: CategoryMaterial, Width: 1, Height: 2, Stackable: true, StackMax: 10},
		{DefID: "campfire", Name: "Campfire", Category: CategoryMisc, Width: 4, Height: 4, GroundOnly: true},
	})
	if err != nil {
		t.Fatalf("build items: %v", err)
	}
	return table
}

func validTestRecipe() *CraftRecipe {
	return &CraftRecipe{
		RecipeID: "campfire", Name: "Campfire", APCost: 2,
		Tools:       []ToolReq{{Label: "fire source", AnyOf: []string{"lighter"}, RequireCharge: true}},
		Ingredients: []IngredientReq{{Label: "fuel", AnyOf: []string{"stick"}, Count: 1, LifetimePerUnit: 1}},
		ResultDefID: "campfire",
	}
}

func TestNewRecipeTableValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*CraftRecipe)
		wantErr string
	}{
		{
			name:    "missing recipe id",
			mutate:  func(r *CraftRecipe) { r.RecipeID = "" },
			wantErr: "missing recipe id",
		},
		{
			name:    "unknown result def",
			mutate:  func(r *CraftRecipe) { r.ResultDefID = "no-such" },
			wantErr: "unknown result def",
		},
		{
			name:    "tool without matcher",
			mutate:  func(r *CraftRecipe) { r.Tools[0].AnyOf = nil },
			wantErr: "neither any_of nor category",
		},
		{
			name:    "unknown tool def",
			mutate:  func(r *CraftRecipe) { r.Tools[0].AnyOf = []string{"no-such"} },
			wantErr: "unknown tool def",
		},
		{
			name:    "ingredient without any_of",
			mutate:  func(r *CraftRecipe) { r.Ingredients[0].AnyOf = nil },
			wantErr: "without any_of",
		},
		{
			name:    "non-positive ingredient count",
			mutate:  func(r *CraftRecipe) { r.Ingredients[0].Count = 0 },
			wantErr: "ingredient count",
		},
		{
			name:    "unknown ingredient def",
			mutate:  func(r *CraftRecipe) { r.Ingredients[0].AnyOf = []string{"no-such"} },
			wantErr: "unknown ingredient def",
		},
	}
	items := recipeTestItems(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recipe := validTestRecipe()
			tc.mutate(recipe)
			_, err := NewRecipeTable([]*CraftRecipe{recipe}, items)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestNewRecipeTableDefaultsResultCount(t *testing.T) {
	items := recipeTestItems(t)
	table, err := NewRecipeTable([]*CraftRecipe{validTestRecipe()}, items)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := table.Get("campfire").ResultCount; got != 1 {
		t.Errorf("result count %d, want default 1", got)
	}
}

func TestNewRecipeTableRejectsDuplicates(t *testing.T) {
	items := recipeTestItems(t)
	_, err := NewRecipeTable([]*CraftRecipe{validTestRecipe(), validTestRecipe()}, items)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("err = %v, want duplicate rejection", err)
	}
}

func TestToolCategoryMatcherAccepted(t *testing.T) {
	items := recipeTestItems(t)
	recipe := validTestRecipe()
	recipe.Tools[0].AnyOf = nil
	recipe.Tools[0].Category = CategoryTool
	if _, err := NewRecipeTable([]*CraftRecipe{recipe}, items); err != nil {
		t.Errorf("category-matched tool rejected: %v", err)
	}
}

func TestDisplayLabels(t *testing.T) {
	tool := ToolReq{AnyOf: []string{"knife", "machete"}}
	if got := tool.DisplayLabel(); got != "knife/machete" {
		t.Errorf("tool label %q", got)
	}
	tool.Label = "cutting tool"
	if got := tool.DisplayLabel(); got != "cutting tool" {
		t.Errorf("labeled tool %q", got)
	}
	byCategory := ToolReq{Category: CategoryTool}
	if got := byCategory.DisplayLabel(); got != "tool" {
		t.Errorf("category tool label %q", got)
	}

	ing := IngredientReq{AnyOf: []string{"stick", "log"}}
	if got := ing.DisplayLabel(); got != "stick/log" {
		t.Errorf("ingredient label %q", got)
	}
}

func TestLoadRecipeTable(t *testing.T) {
	items := recipeTestItems(t)
	path := filepath.Join(t.TempDir(), "recipes.yaml")
	body := `
recipes:
  - recipe_id: campfire
    name: Campfire
    ap_cost: 2
    tools:
      - label: fire source
        any_of: [lighter]
        require_charge: true
    ingredients:
      - label: fuel
        any_of: [stick]
        count: 1
        lifetime_per_unit: 1
    result_def_id: campfire
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := LoadRecipeTable(path, items)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	recipe := table.Get("campfire")
	if recipe == nil || recipe.APCost != 2 {
		t.Fatalf("recipe loaded as %+v", recipe)
	}
	if !recipe.Tools[0].RequireCharge {
		t.Error("require_charge dropped")
	}
	if recipe.Ingredients[0].LifetimePerUnit != 1 {
		t.Error("lifetime_per_unit dropped")
	}

	if _, err := LoadRecipeTable(filepath.Join(t.TempDir(), "absent.yaml"), items); err == nil {
		t.Error("missing file accepted")
	}
}
