package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const inputScript = `
function input_mask(tick)
  if tick > 3 then return nil end
  if tick == 2 then return INPUT_RIGHT + INPUT_SHIFT end
  return INPUT_LEFT
end
`

const hookScript = `
seen = {}
function on_cutscene(tick, id) seen.cutscene = id end
function on_level_change(tick, level) seen.level = level end
function on_death(tick, cutscene, restored) seen.restored = restored end
function on_text(tick, id) error("no text " .. id) end
`

func writeScripts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.lua"), []byte(inputScript), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "hooks"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hooks", "log.lua"), []byte(hookScript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644))
	return dir
}

func seen(e *Engine, key string) lua.LValue {
	return e.vm.GetGlobal("seen").(*lua.LTable).RawGetString(key)
}

func TestInputMask(t *testing.T) {
	e, err := NewEngine(writeScripts(t), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	m, ok := e.InputMask(1)
	require.True(t, ok)
	assert.Equal(t, uint8(0x04), m)

	m, ok = e.InputMask(2)
	require.True(t, ok)
	assert.Equal(t, uint8(0x48), m)

	_, ok = e.InputMask(4)
	assert.False(t, ok, "nil ends the script")
}

func TestHooks(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e, err := NewEngine(writeScripts(t), zap.New(core))
	require.NoError(t, err)
	defer e.Close()

	e.OnCutscene(10, 42)
	e.OnLevelChange(11, 3)
	e.OnDeath(12, 7, true)
	e.OnShake(13, 2) // not defined
	e.OnText(14, 5)

	assert.Equal(t, lua.LNumber(42), seen(e, "cutscene"))
	assert.Equal(t, lua.LNumber(3), seen(e, "level"))
	assert.Equal(t, lua.LTrue, seen(e, "restored"))
	assert.Equal(t, 1, logs.FilterMessage("lua call error").Len(), "failing hook is logged, not fatal")
	assert.True(t, e.Has("on_text"))
	assert.False(t, e.Has("on_shake"))
}

func TestMissingDirIsEmpty(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "none"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.InputMask(1)
	assert.False(t, ok)
}

func TestBadScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("function ("), 0o644))
	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}
