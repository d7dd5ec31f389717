package system

import (
	"fmt"
	"strings"

	"github.com/deadgrid/server/internal/data"
	"github.com/deadgrid/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// GroundOrganizer provides category sorting, search, targeted pickup, and
// statistics over the ground container. It consumes only the container's
// placement primitives; all heuristics live here, not in the grid.
type GroundOrganizer struct {
	mgr  *world.Manager
	fold cases.Caser
	log  *zap.Logger
}

// NewGroundOrganizer creates the organizer for one session.
func NewGroundOrganizer(mgr *world.Manager, log *zap.Logger) *GroundOrganizer {
	return &GroundOrganizer{mgr: mgr, fold: cases.Fold(), log: log}
}

// SortGround reorganizes the ground grid by category, largest items first.
func (g *GroundOrganizer) SortGround() error {
	return g.mgr.Ground().AutoSort()
}

// Search returns ground items whose def id or display name contains the
// query, matched case-insensitively via Unicode case folding. Results come
// back in ascending instance-id order.
func (g *GroundOrganizer) Search(query string) []*world.Item {
	needle := g.fold.String(query)
	var out []*world.Item
	for _, it := range g.mgr.Ground().Items() {
		if strings.Contains(g.fold.String(it.Def.Name), needle) ||
			strings.Contains(g.fold.String(it.Def.DefID), needle) {
			out = append(out, it)
		}
	}
	return out
}

// Pickup moves the first ground item with the given def into carried
// storage (backpack, then pockets). Fails when nothing but the ground
// would accept it — a pickup that lands back on the floor is not a pickup.
func (g *GroundOrganizer) Pickup(defID string) (string, error) {
	ground := g.mgr.Ground()
	var target *world.Item
	for _, it := range ground.Items() {
		if it.Def.DefID == defID {
			target = it
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("no %s on the ground: %w", defID, world.ErrItemNotFound)
	}

	pos := world.GridPos{X: target.X, Y: target.Y}
	if _, err := ground.RemoveItem(target.ID); err != nil {
		return "", err
	}
	containerID, err := g.mgr.AddItem(target, "")
	if err != nil {
		if perr := ground.PlaceItemAt(target, pos.X, pos.Y); perr != nil {
			g.log.Error("failed to return item to ground",
				zap.Int64("item", target.ID), zap.Error(perr))
		}
		return "", err
	}
	if containerID == world.GroundContainerID {
		// The fallback chain put it straight back on the floor.
		return "", fmt.Errorf("no carry space for %s: %w", defID, world.ErrPlacementRejected)
	}
	return containerID, nil
}

// GroundStats summarizes one category of ground items.
type GroundStats struct {
	Items int // distinct instances
	Units int // summed stack counts
	Cells int // occupied cells
}

// Stats returns per-category statistics for everything on the ground.
func (g *GroundOrganizer) Stats() map[data.ItemCategory]GroundStats {
	out := make(map[data.ItemCategory]GroundStats)
	for _, it := range g.mgr.Ground().Items() {
		s := out[it.Def.Category]
		s.Items++
		s.Units += it.StackCount
		s.Cells += it.ActualWidth() * it.ActualHeight()
		out[it.Def.Category] = s
	}
	return out
}
