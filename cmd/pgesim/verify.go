package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/engine"
	"github.com/pgesim/engine/internal/persist"
	"github.com/pgesim/engine/internal/savestate"
	"github.com/pgesim/engine/internal/system"
	"github.com/spf13/cobra"
)

var (
	flagRunID  int64
	flagExpect string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay a run and check its digests",
	Long: `Replay the input journal of a recorded run (--run, needs the database)
or a demo file (--demo) on a fresh engine.

A journal replay compares every recorded digest. A demo replay prints the
final digest and compares it with --expect when given.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Int64Var(&flagRunID, "run", 0, "run id to replay from the journal")
	verifyCmd.Flags().StringVar(&flagDemo, "demo", "", "recorded input file to replay")
	verifyCmd.Flags().StringVar(&flagExpect, "expect", "", "digest the demo replay must end on")
}

func runVerify(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := engineOptions(cfg)
	var entries []persist.JournalEntry
	switch {
	case flagRunID != 0:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		run, err := persist.NewRunRepo(db).Load(ctx, flagRunID)
		if err != nil {
			return err
		}
		opts.Level, opts.Skill, opts.Seed = run.Level, run.Skill, run.Seed
		if entries, err = persist.NewJournalRepo(db).Load(ctx, flagRunID); err != nil {
			return fmt.Errorf("load journal: %w", err)
		}
	case flagDemo != "":
		masks, err := data.LoadDemo(flagDemo)
		if err != nil {
			return err
		}
		entries = make([]persist.JournalEntry, len(masks))
		for i, m := range masks {
			entries[i] = persist.JournalEntry{Tick: uint64(i + 1), Mask: m}
		}
	default:
		return errors.New("verify needs --run or --demo")
	}

	eng, err := engine.New(levelSource(cfg.Sim.LevelDir, opts.Level), opts, nil, nil, log)
	if err != nil {
		return err
	}
	start := time.Now()
	checked, err := system.Replay(eng, entries)
	if err != nil {
		return err
	}

	printSection("重播結果")
	printStat("ticks", len(entries))
	printStat("digest 比對", checked)
	printStat("耗時", time.Since(start).Round(time.Millisecond))
	final := eng.Digest()
	printStat("digest", final.String()[:16])

	if flagExpect != "" {
		want, err := savestate.ParseDigest(flagExpect)
		if err != nil {
			return err
		}
		if want != final {
			return fmt.Errorf("final digest %s, expected %s: %w", final, want, system.ErrDigestMismatch)
		}
	}
	printOK("重播一致")
	return nil
}
