package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/engine"
	"github.com/pgesim/engine/internal/persist"
	"github.com/pgesim/engine/internal/savestate"
	"github.com/spf13/cobra"
)

var (
	flagSlot     int16
	flagEntities bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [snapshot-file]",
	Short: "Decode a snapshot",
	Long: `Decode a snapshot written by run --out, or a save slot of a recorded run
(--run with --slot: 0 autosave, 1 in-game save), and print its HUD counters.

Examples:
  pgesim inspect final.pgs --entities
  pgesim inspect --run 12 --slot 1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Int64Var(&flagRunID, "run", 0, "run id whose save slot to read")
	inspectCmd.Flags().Int16Var(&flagSlot, "slot", persist.SlotAutosave, "save slot of --run")
	inspectCmd.Flags().BoolVar(&flagEntities, "entities", false, "list the active entities")
}

func runInspect(_ *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var raw []byte
	switch {
	case len(args) == 1:
		if raw, err = os.ReadFile(args[0]); err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
	case flagRunID != 0:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		row, err := persist.NewSnapshotRepo(db).Load(ctx, flagRunID, flagSlot)
		if err != nil {
			return err
		}
		if got := savestate.Sum(row.Data).String(); got != row.Digest {
			return fmt.Errorf("slot %d of run %d: stored digest %s, data hashes to %s", flagSlot, flagRunID, row.Digest, got)
		}
		raw = row.Data
		printStat("存檔時間", row.SavedAt.Format("2006-01-02 15:04:05"))
	default:
		return errors.New("inspect needs a snapshot file or --run")
	}

	// the snapshot names its own level; Restore loads it
	eng, err := engine.New(levelSource(cfg.Sim.LevelDir, cfg.Sim.Level), engineOptions(cfg), nil, nil, log)
	if err != nil {
		return err
	}
	if err := eng.Restore(raw); err != nil {
		return err
	}
	label, _ := engine.SnapshotLabel(raw)

	printSection("快照")
	printStat("label", label)
	printStat("bytes", len(raw))
	printHUD(eng)

	if flagEntities {
		fmt.Println()
		printSection("活動物件")
		fmt.Printf("  %-4s  %-4s  %-4s  %-10s  %-5s  %-5s  %s\n", "idx", "type", "room", "pos", "life", "anim", "seq")
		s := eng.State
		for i := 0; i < s.Count; i++ {
			idx := ecs.Index(i)
			if !s.IsActive(idx) {
				continue
			}
			l, _ := eng.Entity(idx)
			fmt.Printf("  %-4d  %-4d  %-4d  %-10s  %-5d  %-5d  %d\n",
				i, s.Template(idx).ObjectType, l.Room, fmt.Sprintf("%d,%d", l.PosX, l.PosY), l.Life, l.AnimNumber, l.AnimSeq)
		}
	}
	return nil
}
