package system

import (
	"fmt"

	"github.com/deadgrid/server/internal/data"
	"github.com/deadgrid/server/internal/world"
	"go.uber.org/zap"
)

// CraftSystem validates recipe requirements against the two fixed crafting
// workspaces, consumes matched items, and emits the result item.
type CraftSystem struct {
	mgr     *world.Manager
	recipes *data.RecipeTable
	log     *zap.Logger
}

// NewCraftSystem creates the crafting system for one session.
func NewCraftSystem(mgr *world.Manager, recipes *data.RecipeTable, log *zap.Logger) *CraftSystem {
	return &CraftSystem{mgr: mgr, recipes: recipes, log: log}
}

// workspaceItems returns tool-workspace items followed by ingredient-
// workspace items, each half in ascending instance-id order. Tool matching
// prefers the tools workspace because of this ordering.
func (s *CraftSystem) workspaceItems() []*world.Item {
	var out []*world.Item
	for _, id := range []string{world.WorkspaceToolsID, world.WorkspaceIngredientsID} {
		c, err := s.mgr.Container(id)
		if err != nil {
			continue
		}
		out = append(out, c.Items()...)
	}
	return out
}

// matchTool finds the first unclaimed workspace item satisfying the tool
// requirement, including its charge check for finite-capacity tools.
func matchTool(req *data.ToolReq, items []*world.Item, claimed map[int64]bool) *world.Item {
	for _, it := range items {
		if claimed[it.ID] {
			continue
		}
		if !toolDefMatches(req, it.Def) {
			continue
		}
		if req.RequireCharge && it.Def.ChargeCapacity > 0 && it.Charges < 1 {
			continue
		}
		return it
	}
	return nil
}

func toolDefMatches(req *data.ToolReq, def *data.ItemDef) bool {
	if len(req.AnyOf) > 0 {
		for _, id := range req.AnyOf {
			if def.DefID == id {
				return true
			}
		}
		return false
	}
	return def.Category == req.Category
}

func ingredientDefMatches(req *data.IngredientReq, def *data.ItemDef) bool {
	for _, id := range req.AnyOf {
		if def.DefID == id {
			return true
		}
	}
	return false
}

// CheckRequirements returns the labels of every unmet requirement for the
// recipe given the caller's available AP (pass a negative AP to skip the
// AP check). An empty slice means the recipe is craftable right now.
// Instances claimed as tools are excluded from ingredient sums.
func (s *CraftSystem) CheckRequirements(recipeID string, availableAP int) ([]string, error) {
	recipe := s.recipes.Get(recipeID)
	if recipe == nil {
		return nil, fmt.Errorf("recipe %q: %w", recipeID, world.ErrItemNotFound)
	}

	var unmet []string
	if availableAP >= 0 && availableAP < recipe.APCost {
		unmet = append(unmet, fmt.Sprintf("AP %d", recipe.APCost))
	}

	items := s.workspaceItems()
	claimed := make(map[int64]bool)
	for i := range recipe.Tools {
		req := &recipe.Tools[i]
		tool := matchTool(req, items, claimed)
		if tool == nil {
			unmet = append(unmet, req.DisplayLabel())
			continue
		}
		claimed[tool.ID] = true
	}

	for i := range recipe.Ingredients {
		req := &recipe.Ingredients[i]
		have := 0
		for _, it := range items {
			if claimed[it.ID] || !ingredientDefMatches(req, it.Def) {
				continue
			}
			have += it.StackCount
		}
		if have < req.Count {
			unmet = append(unmet, fmt.Sprintf("%s x%d", req.DisplayLabel(), req.Count))
		}
	}
	return unmet, nil
}

// Craft re-validates the recipe, consumes ingredients stack by stack,
// decrements one charge from each capacity-bearing tool, and constructs
// the result. Ground-only results clear their footprint at the ground
// origin first, displacing occupants to the nearest free cells; other
// results go through the normal pickup fallback chain.
func (s *CraftSystem) Craft(recipeID string) (*world.Item, error) {
	recipe := s.recipes.Get(recipeID)
	if recipe == nil {
		return nil, fmt.Errorf("recipe %q: %w", recipeID, world.ErrItemNotFound)
	}
	unmet, err := s.CheckRequirements(recipeID, -1)
	if err != nil {
		return nil, err
	}
	if len(unmet) > 0 {
		return nil, fmt.Errorf("missing %v: %w", unmet, world.ErrRequirementsNotMet)
	}

	items := s.workspaceItems()
	claimed := make(map[int64]bool)
	var tools []*world.Item
	for i := range recipe.Tools {
		tool := matchTool(&recipe.Tools[i], items, claimed)
		claimed[tool.ID] = true
		tools = append(tools, tool)
	}

	// Consume ingredients across matching instances; instances that reach
	// zero are removed from their workspace and destroyed.
	lifetime := 0
	for i := range recipe.Ingredients {
		req := &recipe.Ingredients[i]
		remaining := req.Count
		for _, it := range items {
			if remaining == 0 {
				break
			}
			if claimed[it.ID] || !ingredientDefMatches(req, it.Def) {
				continue
			}
			take := remaining
			if take > it.StackCount {
				take = it.StackCount
			}
			it.StackCount -= take
			remaining -= take
			lifetime += take * req.LifetimePerUnit
			if it.StackCount == 0 {
				if owner := it.Owner(); owner != nil {
					if _, err := owner.RemoveItem(it.ID); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	// Capacity-less tools are never consumed.
	for _, tool := range tools {
		if tool.Def.ChargeCapacity > 0 {
			tool.Charges--
		}
	}

	resultDef := s.mgr.Defs().Get(recipe.ResultDefID)
	result := world.NewItem(resultDef)
	if resultDef.Stackable {
		result.StackCount = recipe.ResultCount
	}
	result.LifetimeTurns = lifetime

	if resultDef.GroundOnly {
		if err := s.placeOnGround(result); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.mgr.AddItem(result, ""); err != nil {
			return nil, err
		}
	}

	s.log.Info("crafted item",
		zap.String("recipe", recipe.RecipeID),
		zap.String("result", resultDef.DefID),
		zap.Int64("item", result.ID),
		zap.Int("lifetime_turns", lifetime))
	return result, nil
}

// placeOnGround clears a footprint-sized rectangle at the ground origin,
// relocating (never deleting) any occupants to their nearest free cells.
// If the result still cannot be placed, the displaced items are restored
// and the craft fails.
func (s *CraftSystem) placeOnGround(result *world.Item) error {
	ground := s.mgr.Ground()
	w, h := result.ActualWidth(), result.ActualHeight()
	if ground.Width < w || ground.Height < h {
		ground.ExpandGrid(w, h)
	}

	type displaced struct {
		it  *world.Item
		pos world.GridPos
	}
	var moved []displaced
	for _, it := range ground.ItemsIntersecting(0, 0, w, h) {
		pos := world.GridPos{X: it.X, Y: it.Y}
		if _, err := ground.RemoveItem(it.ID); err != nil {
			return err
		}
		moved = append(moved, displaced{it: it, pos: pos})
	}

	if err := ground.PlaceItemAt(result, 0, 0); err != nil {
		for _, d := range moved {
			if perr := ground.PlaceItemAt(d.it, d.pos.X, d.pos.Y); perr != nil {
				s.log.Error("failed to restore displaced item",
					zap.Int64("item", d.it.ID), zap.Error(perr))
			}
		}
		return err
	}

	// Displaced items land at the nearest free cells to where they were.
	for _, d := range moved {
		pref := d.pos
		if err := ground.AddItem(d.it, &pref); err != nil {
			return err
		}
	}
	return nil
}
