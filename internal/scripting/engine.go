package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for item-effect scripts.
// Single-goroutine access only, matching the session's run-to-completion
// execution model.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory and its item/ subdirectory. Missing directories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "item")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts %s: %w", dir, err)
		}
	}
	return e, nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// ItemUseContext holds pre-packed item state for an on_item_use call.
type ItemUseContext struct {
	DefID         string
	StackCount    int
	Condition     int
	Charges       int
	LifetimeTurns int
}

// ItemUseResult is what an on_item_use script returned.
type ItemUseResult struct {
	Consumed       bool   // one unit should be removed from the stack
	ConditionDelta int    // applied to the item's condition if degradable
	Message        string // free-form feedback for the caller
}

// CallItemUse invokes the global on_item_use(def_id, ctx) hook. A missing
// hook means the item is inert: zero result, no error.
func (e *Engine) CallItemUse(ctx ItemUseContext) (ItemUseResult, error) {
	fn := e.vm.GetGlobal("on_item_use")
	if fn == lua.LNil {
		return ItemUseResult{}, nil
	}

	tbl := e.vm.NewTable()
	tbl.RawSetString("def_id", lua.LString(ctx.DefID))
	tbl.RawSetString("stack_count", lua.LNumber(ctx.StackCount))
	tbl.RawSetString("condition", lua.LNumber(ctx.Condition))
	tbl.RawSetString("charges", lua.LNumber(ctx.Charges))
	tbl.RawSetString("lifetime_turns", lua.LNumber(ctx.LifetimeTurns))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(ctx.DefID), tbl); err != nil {
		return ItemUseResult{}, fmt.Errorf("on_item_use %s: %w", ctx.DefID, err)
	}

	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	var res ItemUseResult
	out, ok := ret.(*lua.LTable)
	if !ok {
		return res, nil
	}
	if v, ok := out.RawGetString("consumed").(lua.LBool); ok {
		res.Consumed = bool(v)
	}
	if v, ok := out.RawGetString("condition_delta").(lua.LNumber); ok {
		res.ConditionDelta = int(v)
	}
	if v, ok := out.RawGetString("message").(lua.LString); ok {
		res.Message = string(v)
	}
	return res, nil
}
