package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// RunRow identifies one simulation run: the parameters a replay needs.
type RunRow struct {
	ID        int64
	Level     int
	Skill     uint8
	Seed      uint32
	Label     string
	StartedAt time.Time
}

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create inserts row and fills in its id and start time.
func (r *RunRepo) Create(ctx context.Context, row *RunRow) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO runs (level, skill, seed, label)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, started_at`,
		row.Level, int16(row.Skill), int64(row.Seed), row.Label,
	).Scan(&row.ID, &row.StartedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *RunRepo) Load(ctx context.Context, id int64) (*RunRow, error) {
	row := &RunRow{ID: id}
	var skill int16
	var seed int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT level, skill, seed, label, started_at FROM runs WHERE id = $1`, id,
	).Scan(&row.Level, &skill, &seed, &row.Label, &row.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	row.Skill = uint8(skill)
	row.Seed = uint32(seed)
	return row, nil
}
