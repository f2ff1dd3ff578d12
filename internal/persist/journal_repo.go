package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// JournalEntry is the input of one tick. Digest is the state fingerprint
// after the tick, recorded every so often for replay checks; empty otherwise.
type JournalEntry struct {
	Tick   uint64
	Mask   uint8
	Digest string
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Append atomically writes a batch of entries in a single transaction.
func (r *JournalRepo) Append(ctx context.Context, runID int64, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, e := range entries {
			var digest *string
			if e.Digest != "" {
				d := e.Digest
				digest = &d
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO input_journal (run_id, tick, mask, digest) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (run_id, tick) DO UPDATE SET mask = EXCLUDED.mask, digest = EXCLUDED.digest`,
				runID, int64(e.Tick), int16(e.Mask), digest,
			); err != nil {
				return fmt.Errorf("journal insert tick %d: %w", e.Tick, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

// Truncate drops every entry after tick; a rewound run rewrites them.
func (r *JournalRepo) Truncate(ctx context.Context, runID int64, after uint64) error {
	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM input_journal WHERE run_id = $1 AND tick > $2`, runID, int64(after),
	); err != nil {
		return fmt.Errorf("journal truncate after %d: %w", after, err)
	}
	return nil
}

// Load returns the whole journal of a run in tick order.
func (r *JournalRepo) Load(ctx context.Context, runID int64) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT tick, mask, COALESCE(digest, '') FROM input_journal WHERE run_id = $1 ORDER BY tick`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var tick int64
		var mask int16
		var e JournalEntry
		if err := rows.Scan(&tick, &mask, &e.Digest); err != nil {
			return nil, err
		}
		e.Tick, e.Mask = uint64(tick), uint8(mask)
		out = append(out, e)
	}
	return out, rows.Err()
}
