// pgesim runs the PGE object simulation headless.
//
// Usage:
//
//	pgesim run        - run a level with demo, Lua or idle input
//	pgesim verify     - replay a recorded run and check its digests
//	pgesim inspect    - decode a snapshot file or save slot
//
// Global flags:
//
//	--config <path>   - config file (default: $PGESIM_CONFIG or config/pgesim.toml)
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgesim/engine/internal/config"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/engine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultConfigPath = "config/pgesim.toml"

var flagConfig string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pgesim",
	Short: "Headless PGE object simulation",
	Long: `pgesim steps the room-based object simulation of a level: entity
scripts, collision, group signals and animation, one tick at a time.

Examples:
  pgesim run --demo data/demos/level1.dem --fast
  pgesim verify --run 12
  pgesim inspect final.pgs --entities`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $PGESIM_CONFIG or "+defaultConfigPath+")")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
}

// loadConfig resolves the config path. The built-in defaults apply when no
// path was asked for and the default file is absent.
func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = os.Getenv("PGESIM_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// setup loads the config and builds the logger every command starts with.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// levelSource reads level N from dir/levelN. A dir that is itself a level
// directory serves as the start level when no levelN exists.
func levelSource(dir string, start int) engine.LevelSource {
	return func(n int) (*data.Level, error) {
		p := filepath.Join(dir, fmt.Sprintf("level%d", n))
		if _, err := os.Stat(p); err == nil {
			return data.LoadLevel(p)
		}
		if n == start {
			if _, err := os.Stat(filepath.Join(dir, "level.yaml")); err == nil {
				return data.LoadLevel(dir)
			}
		}
		return nil, fmt.Errorf("level %d: nothing under %s", n, dir)
	}
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Level:             cfg.Sim.Level,
		Skill:             cfg.Sim.Skill,
		Seed:              cfg.Sim.Seed,
		AbortOnRoomChange: cfg.Sim.AbortOnRoomChange,
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(level int, skill uint8) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              PGE Sim  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        物件腳本模擬 · headless            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m關卡:\033[0m %d \033[90m(難度: %d)\033[0m\n\n", level, skill)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	numStr := fmt.Sprint(value)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// printHUD shows the status bar counters of eng.
func printHUD(eng *engine.Engine) {
	h := eng.HUD()
	printStat("tick", eng.Tick())
	printStat("關卡", h.Level)
	printStat("房間", h.Room)
	printStat("分數", h.Score)
	printStat("生命", h.Life)
	if h.Item != 0xFF {
		printStat("道具圖示", h.Item)
	}
	printStat("digest", eng.Digest().String()[:16])
}
