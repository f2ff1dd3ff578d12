package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for run scripting: input generators
// and event hooks. Single-goroutine access only (sim loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// Input bits handed to Lua as globals, matching engine.Input.
var inputGlobals = map[string]int{
	"INPUT_UP":        0x01,
	"INPUT_DOWN":      0x02,
	"INPUT_LEFT":      0x04,
	"INPUT_RIGHT":     0x08,
	"INPUT_ENTER":     0x10,
	"INPUT_SPACE":     0x20,
	"INPUT_SHIFT":     0x40,
	"INPUT_BACKSPACE": 0x80,
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	for name, bit := range inputGlobals {
		vm.SetGlobal(name, lua.LNumber(bit))
	}

	e := &Engine{vm: vm, log: log}

	// Root scripts first, then the optional sub directories
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "input"), filepath.Join(scriptsDir, "hooks")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
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

// Has reports whether a global function named name is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// InputMask asks input_mask(tick) for this tick's keys. ok is false when the
// function is missing, fails, or returns nil (end of script).
func (e *Engine) InputMask(tick uint64) (mask uint8, ok bool) {
	ret, ok := e.call("input_mask", lua.LNumber(tick))
	if !ok || ret == lua.LNil {
		return 0, false
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum {
		e.log.Error("lua input_mask returned non-number", zap.String("type", ret.Type().String()))
		return 0, false
	}
	return uint8(int(n) & 0xFF), true
}

// OnCutscene calls on_cutscene(tick, id).
func (e *Engine) OnCutscene(tick uint64, id uint16) {
	e.callHook("on_cutscene", int(tick), int(id))
}

// OnText calls on_text(tick, id).
func (e *Engine) OnText(tick uint64, id uint16) {
	e.callHook("on_text", int(tick), int(id))
}

// OnLevelChange calls on_level_change(tick, level).
func (e *Engine) OnLevelChange(tick uint64, level int) {
	e.callHook("on_level_change", int(tick), level)
}

// OnDeath calls on_death(tick, cutscene, restored).
func (e *Engine) OnDeath(tick uint64, cutscene uint16, restored bool) {
	if !e.Has("on_death") {
		return
	}
	e.call("on_death", lua.LNumber(tick), lua.LNumber(cutscene), lua.LBool(restored))
}

// OnSaveState calls on_save_state(tick).
func (e *Engine) OnSaveState(tick uint64) {
	e.callHook("on_save_state", int(tick))
}

// OnShake calls on_shake(tick, offset).
func (e *Engine) OnShake(tick uint64, offset uint8) {
	e.callHook("on_shake", int(tick), int(offset))
}

// OnSound calls on_sound(tick, id, attenuation).
func (e *Engine) OnSound(tick uint64, id, attenuation uint8) {
	e.callHook("on_sound", int(tick), int(id), int(attenuation))
}

// --- Lua helpers ---

// callHook calls an optional hook with int args. Missing hooks are skipped.
func (e *Engine) callHook(name string, args ...int) {
	if !e.Has(name) {
		return
	}
	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}
	e.call(name, lArgs...)
}

// call runs a global function with one result. ok is false if the function
// is missing or raised an error.
func (e *Engine) call(name string, args ...lua.LValue) (lua.LValue, bool) {
	fn, isFn := e.vm.GetGlobal(name).(*lua.LFunction)
	if !isFn {
		return lua.LNil, false
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return lua.LNil, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result, true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
