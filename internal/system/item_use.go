package system

import (
	"fmt"

	"github.com/deadgrid/server/internal/scripting"
	"github.com/deadgrid/server/internal/world"
	"go.uber.org/zap"
)

// ItemUseSystem routes consumable item use through the lua effect hooks.
type ItemUseSystem struct {
	mgr    *world.Manager
	engine *scripting.Engine
	log    *zap.Logger
}

// NewItemUseSystem creates the item-use system for one session.
func NewItemUseSystem(mgr *world.Manager, engine *scripting.Engine, log *zap.Logger) *ItemUseSystem {
	return &ItemUseSystem{mgr: mgr, engine: engine, log: log}
}

// UseItem applies the scripted effect of a consumable item. When the script
// reports consumption one unit leaves the stack; an instance reaching zero
// is removed from its container and destroyed. Returns the script's
// feedback message.
func (s *ItemUseSystem) UseItem(containerID string, itemID int64) (string, error) {
	c, err := s.mgr.Container(containerID)
	if err != nil {
		return "", err
	}
	it := c.Item(itemID)
	if it == nil {
		return "", fmt.Errorf("item %d in %s: %w", itemID, containerID, world.ErrItemNotFound)
	}
	if !it.Def.Consumable {
		return "", fmt.Errorf("%s is not consumable: %w", it.Def.DefID, world.ErrPlacementRejected)
	}

	res, err := s.engine.CallItemUse(scripting.ItemUseContext{
		DefID:         it.Def.DefID,
		StackCount:    it.StackCount,
		Condition:     it.Condition,
		Charges:       it.Charges,
		LifetimeTurns: it.LifetimeTurns,
	})
	if err != nil {
		return "", err
	}

	if it.Def.Degradable && res.ConditionDelta != 0 {
		it.Condition += res.ConditionDelta
		if it.Condition < 0 {
			it.Condition = 0
		}
		if it.Condition > 100 {
			it.Condition = 100
		}
	}
	if res.Consumed {
		it.StackCount--
		if it.StackCount <= 0 {
			if _, err := c.RemoveItem(it.ID); err != nil {
				return "", err
			}
		}
	}

	s.log.Debug("used item",
		zap.String("def", it.Def.DefID),
		zap.Int64("item", itemID),
		zap.Bool("consumed", res.Consumed))
	return res.Message, nil
}
