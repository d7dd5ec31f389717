package system

import (
	"errors"
	"reflect"
	"testing"

	"github.com/deadgrid/server/internal/world"
)

func TestCheckRequirementsReportsUnmet(t *testing.T) {
	_, craft := newTestSession(t)

	unmet, err := craft.CheckRequirements("campfire", 1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	want := []string{"AP 2", "fire source", "fuel x1"}
	if !reflect.DeepEqual(unmet, want) {
		t.Errorf("unmet = %v, want %v", unmet, want)
	}

	if _, err := craft.CheckRequirements("no-such", 5); !errors.Is(err, world.ErrItemNotFound) {
		t.Errorf("unknown recipe err = %v, want ErrItemNotFound", err)
	}
}

func TestCheckRequirementsSatisfied(t *testing.T) {
	mgr, craft := newTestSession(t)
	stage(t, mgr, world.WorkspaceToolsID, "lighter", 0)
	stage(t, mgr, world.WorkspaceIngredientsID, "stick", 3)

	unmet, err := craft.CheckRequirements("campfire", 2)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(unmet) != 0 {
		t.Errorf("unmet = %v, want none", unmet)
	}

	// Negative AP skips the AP gate entirely.
	unmet, err = craft.CheckRequirements("campfire", -1)
	if err != nil || len(unmet) != 0 {
		t.Errorf("unmet = %v err = %v with AP check skipped", unmet, err)
	}
}

func TestToolChargeRequirement(t *testing.T) {
	mgr, craft := newTestSession(t)
	lighter := stage(t, mgr, world.WorkspaceToolsID, "lighter", 0)
	lighter.Charges = 0
	stage(t, mgr, world.WorkspaceIngredientsID, "stick", 1)

	unmet, err := craft.CheckRequirements("campfire", -1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !reflect.DeepEqual(unmet, []string{"fire source"}) {
		t.Errorf("unmet = %v, want the drained fire source", unmet)
	}
}

func TestToolClaimExcludedFromIngredients(t *testing.T) {
	mgr, craft := newTestSession(t)

	// One stick total: the tool claim swallows it, leaving no ingredient.
	stage(t, mgr, world.WorkspaceToolsID, "stick", 1)
	unmet, err := craft.CheckRequirements("torch", -1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !reflect.DeepEqual(unmet, []string{"stick x1"}) {
		t.Errorf("unmet = %v, want the ingredient stick", unmet)
	}

	// A second stick satisfies both roles.
	stage(t, mgr, world.WorkspaceIngredientsID, "stick", 1)
	unmet, err = craft.CheckRequirements("torch", -1)
	if err != nil || len(unmet) != 0 {
		t.Errorf("unmet = %v err = %v after adding the second stick", unmet, err)
	}
}

func TestCraftConsumesAcrossStacks(t *testing.T) {
	mgr, craft := newTestSession(t)
	knife := stage(t, mgr, world.WorkspaceToolsID, "knife", 0)

	// Two separate cloth stacks, placed directly so they don't merge.
	ws, err := mgr.Container(world.WorkspaceIngredientsID)
	if err != nil {
		t.Fatalf("resolve workspace: %v", err)
	}
	small := world.NewItem(mgr.Defs().Get("cloth_scrap"))
	small.StackCount = 1
	if err := ws.PlaceItemAt(small, 0, 0); err != nil {
		t.Fatalf("place small stack: %v", err)
	}
	big := world.NewItem(mgr.Defs().Get("cloth_scrap"))
	big.StackCount = 5
	if err := ws.PlaceItemAt(big, 2, 0); err != nil {
		t.Fatalf("place big stack: %v", err)
	}

	result, err := craft.Craft("bandage")
	if err != nil {
		t.Fatalf("craft: %v", err)
	}
	if result.Def.DefID != "bandage" || result.StackCount != 2 {
		t.Errorf("result %s x%d, want bandage x2", result.Def.DefID, result.StackCount)
	}

	// The exhausted stack is gone, the second lost one unit.
	if ws.Item(small.ID) != nil {
		t.Error("zeroed stack still registered in the workspace")
	}
	if big.StackCount != 4 {
		t.Errorf("second stack %d, want 4", big.StackCount)
	}
	// Capacity-less tools are untouched.
	if knife.Charges != 0 {
		t.Errorf("knife charges %d, want untouched 0", knife.Charges)
	}
	if knife.Owner() == nil || knife.Owner().ID != world.WorkspaceToolsID {
		t.Error("knife moved by the craft")
	}
	// Nothing equipped, so the result lands on the ground.
	if result.Owner() != mgr.Ground() {
		t.Error("result not on the ground")
	}
}

func TestCraftCampfireClearsGroundOrigin(t *testing.T) {
	mgr, craft := newTestSession(t)
	lighter := stage(t, mgr, world.WorkspaceToolsID, "lighter", 0)
	fuel := stage(t, mgr, world.WorkspaceIngredientsID, "stick", 3)

	ground := mgr.Ground()
	beans := world.NewItem(mgr.Defs().Get("beans"))
	beans.StackCount = 2
	if err := ground.PlaceItemAt(beans, 1, 1); err != nil {
		t.Fatalf("place beans: %v", err)
	}
	machete := world.NewItem(mgr.Defs().Get("machete"))
	if err := ground.PlaceItemAt(machete, 3, 0); err != nil {
		t.Fatalf("place machete: %v", err)
	}
	knife := world.NewItem(mgr.Defs().Get("knife"))
	if err := ground.PlaceItemAt(knife, 6, 6); err != nil {
		t.Fatalf("place knife: %v", err)
	}

	result, err := craft.Craft("campfire")
	if err != nil {
		t.Fatalf("craft: %v", err)
	}

	if result.X != 0 || result.Y != 0 || result.Owner() != ground {
		t.Errorf("campfire at (%d,%d), want ground origin", result.X, result.Y)
	}
	if result.LifetimeTurns != 1 {
		t.Errorf("lifetime %d turns, want 1 from one fuel unit", result.LifetimeTurns)
	}
	if lighter.Charges != 49 {
		t.Errorf("lighter charges %d, want 49", lighter.Charges)
	}
	if fuel.StackCount != 2 {
		t.Errorf("fuel stack %d, want 2", fuel.StackCount)
	}

	// Displaced items were relocated, never destroyed.
	for _, it := range []*world.Item{beans, machete} {
		if it.Owner() != ground {
			t.Errorf("%s missing from the ground after displacement", it.Def.DefID)
		}
		if ground.IsAreaFree(it.X, it.Y, 1, 1, 0) {
			t.Errorf("%s position not claimed in the grid", it.Def.DefID)
		}
	}
	if knife.X != 6 || knife.Y != 6 {
		t.Error("item outside the footprint was moved")
	}
	if beans.StackCount != 2 {
		t.Errorf("displaced stack count %d, want 2", beans.StackCount)
	}
}

func TestCraftFailsWhenUnmet(t *testing.T) {
	_, craft := newTestSession(t)

	if _, err := craft.Craft("campfire"); !errors.Is(err, world.ErrRequirementsNotMet) {
		t.Errorf("err = %v, want ErrRequirementsNotMet", err)
	}
	if _, err := craft.Craft("no-such"); !errors.Is(err, world.ErrItemNotFound) {
		t.Errorf("unknown recipe err = %v, want ErrItemNotFound", err)
	}
}

func TestCraftResultIntoBackpack(t *testing.T) {
	mgr, craft := newTestSession(t)
	pack := world.NewItem(mgr.Defs().Get("backpack"))
	if err := mgr.EquipItem(pack, ""); err != nil {
		t.Fatalf("equip: %v", err)
	}
	stage(t, mgr, world.WorkspaceToolsID, "knife", 0)
	stage(t, mgr, world.WorkspaceIngredientsID, "cloth_scrap", 2)

	result, err := craft.Craft("bandage")
	if err != nil {
		t.Fatalf("craft: %v", err)
	}
	if result.Owner() != pack.Grid() {
		t.Error("non-ground result bypassed the equipped backpack")
	}
}
