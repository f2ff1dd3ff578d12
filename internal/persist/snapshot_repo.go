package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Save slots of a run.
const (
	SlotAutosave int16 = 0
	SlotIngame   int16 = 1 // written when a script checkpoints
)

// ErrSlotNotFound is returned when a run has nothing saved in a slot.
var ErrSlotNotFound = errors.New("save slot not found")

type SlotRow struct {
	RunID   int64
	Slot    int16
	Tick    uint64
	Digest  string
	Data    []byte
	SavedAt time.Time
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save writes row into its slot, replacing whatever was there.
func (r *SnapshotRepo) Save(ctx context.Context, row *SlotRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO save_slots (run_id, slot, tick, digest, data)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, slot) DO UPDATE
		 SET tick = EXCLUDED.tick, digest = EXCLUDED.digest, data = EXCLUDED.data, saved_at = NOW()`,
		row.RunID, row.Slot, int64(row.Tick), row.Digest, row.Data,
	)
	if err != nil {
		return fmt.Errorf("save slot %d of run %d: %w", row.Slot, row.RunID, err)
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, runID int64, slot int16) (*SlotRow, error) {
	row := &SlotRow{RunID: runID, Slot: slot}
	var tick int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT tick, digest, data, saved_at FROM save_slots WHERE run_id = $1 AND slot = $2`,
		runID, slot,
	).Scan(&tick, &row.Digest, &row.Data, &row.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("slot %d of run %d: %w", slot, runID, ErrSlotNotFound)
	}
	if err != nil {
		return nil, err
	}
	row.Tick = uint64(tick)
	return row, nil
}

// List returns the slots of a run without their data, lowest slot first.
func (r *SnapshotRepo) List(ctx context.Context, runID int64) ([]SlotRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, tick, digest, saved_at FROM save_slots WHERE run_id = $1 ORDER BY slot`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlotRow
	for rows.Next() {
		row := SlotRow{RunID: runID}
		var tick int64
		if err := rows.Scan(&row.Slot, &tick, &row.Digest, &row.SavedAt); err != nil {
			return nil, err
		}
		row.Tick = uint64(tick)
		out = append(out, row)
	}
	return out, rows.Err()
}
