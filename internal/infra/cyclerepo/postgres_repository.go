package cyclerepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cycle_records (
	id                 BIGSERIAL PRIMARY KEY,
	user_id            BIGINT NOT NULL,
	age                DOUBLE PRECISION NOT NULL,
	bmi                DOUBLE PRECISION NOT NULL,
	stress_level       DOUBLE PRECISION NOT NULL,
	sleep_hours        DOUBLE PRECISION NOT NULL,
	diet               TEXT NOT NULL,
	exercise_frequency TEXT NOT NULL,
	cycle_start        DATE NOT NULL,
	cycle_length       DOUBLE PRECISION NOT NULL,
	next_cycle_start   DATE
);
CREATE INDEX IF NOT EXISTS cycle_records_user_idx ON cycle_records (user_id, cycle_start DESC);
`

const selectColumns = `user_id, age, bmi, stress_level, sleep_hours, diet, exercise_frequency, cycle_start, cycle_length, next_cycle_start`

var copyColumns = []string{
	"user_id", "age", "bmi", "stress_level", "sleep_hours",
	"diet", "exercise_frequency", "cycle_start", "cycle_length", "next_cycle_start",
}

// PostgresRepository implements cycle.RecordRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the records table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schemaSQL)
	return err
}

// Count returns the number of stored records.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM cycle_records`).Scan(&n)
	return n, err
}

// ImportRecords bulk loads records with COPY.
func (r *PostgresRepository) ImportRecords(ctx context.Context, records []cycle.Record) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		var next any
		if !rec.NextCycleStart.IsZero() {
			next = rec.NextCycleStart.Time
		}
		rows = append(rows, []any{
			rec.UserID, rec.Age, rec.BMI, rec.StressLevel, rec.SleepHours,
			rec.Diet, rec.ExerciseFrequency, rec.CycleStart.Time, rec.CycleLength, next,
		})
	}
	return r.pool.CopyFrom(ctx, pgx.Identifier{"cycle_records"}, copyColumns, pgx.CopyFromRows(rows))
}

// ListByUser implements cycle.RecordRepository.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]cycle.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM cycle_records
		WHERE user_id = $1
		ORDER BY cycle_start DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// ListAll implements cycle.RecordRepository.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]cycle.Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM cycle_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]cycle.Record, error) {
	defer rows.Close()
	var out []cycle.Record
	for rows.Next() {
		var (
			rec   cycle.Record
			start time.Time
			next  *time.Time
		)
		if err := rows.Scan(
			&rec.UserID, &rec.Age, &rec.BMI, &rec.StressLevel, &rec.SleepHours,
			&rec.Diet, &rec.ExerciseFrequency, &start, &rec.CycleLength, &next,
		); err != nil {
			return nil, err
		}
		rec.CycleStart = cycle.DateOf(start)
		if next != nil {
			rec.NextCycleStart = cycle.DateOf(*next)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ cycle.RecordRepository = (*PostgresRepository)(nil)
