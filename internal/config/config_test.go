package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pgesim.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(write(t, `
[sim]
tick_rate = "20ms"
skill = 2
seed = 42
level_dir = "levels"
abort_on_room_change = false

[database]
enabled = true

[rewind]
capacity = 8
`))
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.Sim.TickRate)
	assert.Equal(t, uint8(2), cfg.Sim.Skill)
	assert.Equal(t, uint32(42), cfg.Sim.Seed)
	assert.Equal(t, "levels", cfg.Sim.LevelDir)
	assert.False(t, cfg.Sim.AbortOnRoomChange)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 8, cfg.Rewind.Capacity)

	assert.Equal(t, "console", cfg.Logging.Format, "untouched sections keep defaults")
	assert.Equal(t, uint64(15), cfg.Rewind.IntervalTicks)
	assert.NotZero(t, cfg.Sim.StartTime)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"skill":     "[sim]\nskill = 3\n",
		"tick rate": "[sim]\ntick_rate = \"0s\"\n",
		"rewind":    "[rewind]\nenabled = true\ncapacity = 0\n",
		"syntax":    "[sim\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second/30, cfg.Sim.TickRate)
	assert.True(t, cfg.Sim.AbortOnRoomChange)
	assert.False(t, cfg.Database.Enabled)
}
