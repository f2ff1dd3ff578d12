package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgesim/engine/internal/config"
	"github.com/pgesim/engine/internal/core/event"
	coresys "github.com/pgesim/engine/internal/core/system"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/engine"
	"github.com/pgesim/engine/internal/persist"
	"github.com/pgesim/engine/internal/scripting"
	"github.com/pgesim/engine/internal/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagDemo          string
	flagFast          bool
	flagOut           string
	flagLabel         string
	flagRewindOnDeath bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a level",
	Long: `Run the configured level until the input ends, max_ticks is reached,
or the process is interrupted.

Input comes from --demo when given, else from the input_mask Lua function
when scripts define one, else nothing is pressed.`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

func init() {
	runCmd.Flags().StringVar(&flagDemo, "demo", "", "recorded input file, one key-mask byte per tick")
	runCmd.Flags().BoolVar(&flagFast, "fast", false, "step as fast as possible instead of at tick_rate")
	runCmd.Flags().StringVar(&flagOut, "out", "", "write the final snapshot to this file")
	runCmd.Flags().StringVar(&flagLabel, "label", "", "run label stored with the run row")
	runCmd.Flags().BoolVar(&flagRewindOnDeath, "rewind-on-death", false, "resume from the newest rewind frame instead of restarting the level")
}

func runSim(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	printBanner(cfg.Sim.Level, cfg.Sim.Skill)

	// 1. Engine
	printSection("關卡載入")
	bus := event.NewBus()
	eng, err := engine.New(levelSource(cfg.Sim.LevelDir, cfg.Sim.Level), engineOptions(cfg), nil, bus, log)
	if err != nil {
		return err
	}
	printStat("物件", eng.State.Count)
	printStat("物件節點", eng.Level().NodeCount())
	printStat("動畫表", len(eng.Level().Anims))
	fmt.Println()

	// 2. Scripts and input
	var lua *scripting.Engine
	if cfg.Sim.ScriptsDir != "" {
		if lua, err = scripting.NewEngine(cfg.Sim.ScriptsDir, log); err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer lua.Close()
		printOK("Lua 腳本載入完成")
	}
	src, err := inputSource(lua)
	if err != nil {
		return err
	}

	// 3. Database
	var (
		slots   system.SlotStore
		journal system.JournalStore
		runID   int64
	)
	if cfg.Database.Enabled {
		printSection("資料庫")
		db, id, err := openRun(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		slots, journal, runID = persist.NewSnapshotRepo(db), persist.NewJournalRepo(db), id
		printOK(fmt.Sprintf("run #%d 建立完成", runID))
		fmt.Println()
	}

	// 4. Systems
	runner := coresys.NewRunner()
	inputSys := system.NewInputSystem(src, eng)
	stepSys := system.NewStepSystem(eng, inputSys, log)
	persistSys := system.NewPersistenceSystem(eng, stepSys, bus, slots, journal, runID, cfg.Rewind, cfg.Persist, log)
	runner.Register(inputSys)
	runner.Register(stepSys)
	runner.Register(system.NewEventSystem(bus, lua, log))
	runner.Register(persistSys)
	if flagRewindOnDeath {
		event.Subscribe(bus, func(ev event.DeathCutscene) {
			if !ev.Restored && persistSys.Frames().Len() > 0 {
				persistSys.RequestRewind(0)
			}
		})
	}

	finish := func() error {
		persistSys.Flush()
		fmt.Println()
		printSection("結束")
		printHUD(eng)
		if flagOut != "" {
			if err := os.WriteFile(flagOut, eng.Snapshot(), 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			printOK("快照已寫入 " + flagOut)
		}
		return nil
	}

	// 5. Loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	var tickCh <-chan time.Time
	if !flagFast {
		ticker := time.NewTicker(cfg.Sim.TickRate)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	printSection("模擬就緒")
	printReady(fmt.Sprintf("模擬迴圈啟動 (tick: %s, fast: %v)", cfg.Sim.TickRate, flagFast))
	fmt.Println()

	for {
		if tickCh != nil {
			select {
			case <-tickCh:
			case sig := <-shutdownCh:
				log.Info("收到關閉信號", zap.String("signal", sig.String()))
				return finish()
			}
		} else {
			select {
			case sig := <-shutdownCh:
				log.Info("收到關閉信號", zap.String("signal", sig.String()))
				return finish()
			default:
			}
		}

		if err := runner.Tick(cfg.Sim.TickRate); err != nil {
			if errors.Is(err, system.ErrInputDone) {
				log.Info("輸入結束", zap.Uint64("tick", eng.Tick()))
				return finish()
			}
			persistSys.Flush()
			return err
		}
		if cfg.Sim.MaxTicks > 0 && eng.Tick() >= cfg.Sim.MaxTicks {
			log.Info("達到 tick 上限", zap.Uint64("tick", eng.Tick()))
			return finish()
		}
	}
}

func inputSource(lua *scripting.Engine) (system.InputSource, error) {
	if flagDemo != "" {
		masks, err := data.LoadDemo(flagDemo)
		if err != nil {
			return nil, err
		}
		printStat("錄製輸入 (ticks)", len(masks))
		return system.NewDemoSource(masks), nil
	}
	if lua != nil && lua.Has("input_mask") {
		return system.LuaSource{Lua: lua}, nil
	}
	return system.IdleSource{}, nil
}

// openRun connects, migrates and records the run row.
func openRun(cfg *config.Config, log *zap.Logger) (*persist.DB, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, 0, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL 連線成功")

	version, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("資料庫遷移完成 (schema v%d)", version))

	row := &persist.RunRow{Level: cfg.Sim.Level, Skill: cfg.Sim.Skill, Seed: cfg.Sim.Seed, Label: flagLabel}
	if err := persist.NewRunRepo(db).Create(ctx, row); err != nil {
		db.Close()
		return nil, 0, err
	}
	return db, row.ID, nil
}
