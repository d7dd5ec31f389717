package data

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolReq is one tool requirement of a recipe. The tool is matched by
// exact def id (any one of AnyOf) or, when AnyOf is empty, by category.
// Tools are present-but-not-consumed; finite-capacity tools additionally
// need at least one charge left and lose one charge per craft.
type ToolReq struct {
	Label         string       `yaml:"label"`
	AnyOf         []string     `yaml:"any_of"`
	Category      ItemCategory `yaml:"category"`
	RequireCharge bool         `yaml:"require_charge"`
}

// IngredientReq is one consumed ingredient requirement. Counts are summed
// across all matching instances in the ingredient workspace.
type IngredientReq struct {
	Label string   `yaml:"label"`
	AnyOf []string `yaml:"any_of"`
	Count int      `yaml:"count"`

	// LifetimePerUnit grants the crafted result this many lifetime turns
	// per consumed unit (fuel ingredients). 0 = no lifetime contribution.
	LifetimePerUnit int `yaml:"lifetime_per_unit"`
}

// CraftRecipe is one static crafting recipe.
type CraftRecipe struct {
	RecipeID    string          `yaml:"recipe_id"`
	Name        string          `yaml:"name"`
	APCost      int             `yaml:"ap_cost"`
	Tools       []ToolReq       `yaml:"tools"`
	Ingredients []IngredientReq `yaml:"ingredients"`
	ResultDefID string          `yaml:"result_def_id"`
	ResultCount int             `yaml:"result_count"`
}

// DisplayLabel returns the requirement label shown for an unmet tool.
func (r *ToolReq) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	if len(r.AnyOf) > 0 {
		return strings.Join(r.AnyOf, "/")
	}
	return string(r.Category)
}

// DisplayLabel returns the requirement label shown for an unmet ingredient.
func (r *IngredientReq) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return strings.Join(r.AnyOf, "/")
}

// RecipeTable holds all crafting recipes indexed by recipe id.
type RecipeTable struct {
	recipes map[string]*CraftRecipe
}

// Get returns a recipe by id, or nil if not found.
func (t *RecipeTable) Get(recipeID string) *CraftRecipe {
	return t.recipes[recipeID]
}

// Count returns total loaded recipes.
func (t *RecipeTable) Count() int {
	return len(t.recipes)
}

type recipeListFile struct {
	Recipes []CraftRecipe `yaml:"recipes"`
}

// LoadRecipeTable loads the crafting recipe catalog from a YAML file.
func LoadRecipeTable(path string, items *ItemTable) (*RecipeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}
	var f recipeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}
	defs := make([]*CraftRecipe, 0, len(f.Recipes))
	for i := range f.Recipes {
		defs = append(defs, &f.Recipes[i])
	}
	return NewRecipeTable(defs, items)
}

// NewRecipeTable builds a table from in-memory recipes, checking every
// referenced def id against the item catalog.
func NewRecipeTable(recipes []*CraftRecipe, items *ItemTable) (*RecipeTable, error) {
	t := &RecipeTable{recipes: make(map[string]*CraftRecipe, len(recipes))}
	for _, r := range recipes {
		if err := validateRecipe(r, items); err != nil {
			return nil, fmt.Errorf("recipe %q: %w", r.RecipeID, err)
		}
		if _, dup := t.recipes[r.RecipeID]; dup {
			return nil, fmt.Errorf("recipe %q: duplicate recipe id", r.RecipeID)
		}
		t.recipes[r.RecipeID] = r
	}
	return t, nil
}

func validateRecipe(r *CraftRecipe, items *ItemTable) error {
	if r.RecipeID == "" {
		return fmt.Errorf("missing recipe id")
	}
	if r.ResultDefID == "" || items.Get(r.ResultDefID) == nil {
		return fmt.Errorf("unknown result def %q", r.ResultDefID)
	}
	if r.ResultCount <= 0 {
		r.ResultCount = 1
	}
	for i := range r.Tools {
		tr := &r.Tools[i]
		if len(tr.AnyOf) == 0 && tr.Category == "" {
			return fmt.Errorf("tool requirement with neither any_of nor category")
		}
		for _, id := range tr.AnyOf {
			if items.Get(id) == nil {
				return fmt.Errorf("unknown tool def %q", id)
			}
		}
	}
	for i := range r.Ingredients {
		ir := &r.Ingredients[i]
		if len(ir.AnyOf) == 0 {
			return fmt.Errorf("ingredient requirement without any_of")
		}
		if ir.Count <= 0 {
			return fmt.Errorf("ingredient count %d", ir.Count)
		}
		for _, id := range ir.AnyOf {
			if items.Get(id) == nil {
				return fmt.Errorf("unknown ingredient def %q", id)
			}
		}
	}
	return nil
}
