package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/liftlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrEmptyUserID = errors.New("user id empty")
	ErrLogNotFound = errors.New("log not found")
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS liftlog_revision_seq;

CREATE TABLE IF NOT EXISTS workout_log (
	user_id    TEXT        NOT NULL,
	date       DATE        NOT NULL,
	data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
	revision   BIGINT      NOT NULL DEFAULT nextval('liftlog_revision_seq'),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, date)
);

CREATE TABLE IF NOT EXISTS recovery_log (
	user_id    TEXT        NOT NULL,
	date       DATE        NOT NULL,
	data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
	revision   BIGINT      NOT NULL DEFAULT nextval('liftlog_revision_seq'),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, date)
);`

// ChangePublisher is told about every successful write.
type ChangePublisher interface {
	Publish(ctx context.Context, userID string) error
}

// Repo stores both log collections in postgres. Writes merge the new document
// into the stored one (top-level jsonb merge), nothing is ever deleted.
type Repo struct {
	db        *pgxpool.Pool
	publisher ChangePublisher
}

func NewRepo(db *pgxpool.Pool, publisher ChangePublisher) *Repo {
	return &Repo{
		db:        db,
		publisher: publisher,
	}
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *Repo) UpsertWorkout(ctx context.Context, userID, date string, log WorkoutLog) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	if userID == "" {
		return ErrEmptyUserID
	}
	day, err := ParseDate(date)
	if err != nil {
		return err
	}

	log = log.Clone()
	log.Recompute()
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal workout log: %w", err)
	}

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO workout_log (user_id, date, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, date) DO UPDATE
				SET data = workout_log.data || EXCLUDED.data,
					revision = nextval('liftlog_revision_seq'),
					updated_at = now();`,
		userID, day, data,
	); err != nil {
		return fmt.Errorf("upsert workout log: %w", err)
	}

	r.publish(ctx, userID)
	return nil
}

func (r *Repo) UpsertRecovery(ctx context.Context, userID, date string, rec RecoveryLog) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.recovery.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	if userID == "" {
		return ErrEmptyUserID
	}
	day, err := ParseDate(date)
	if err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	// omitempty leaves absent fields out, so the jsonb merge keeps stored ones
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal recovery log: %w", err)
	}

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO recovery_log (user_id, date, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, date) DO UPDATE
				SET data = recovery_log.data || EXCLUDED.data,
					revision = nextval('liftlog_revision_seq'),
					updated_at = now();`,
		userID, day, data,
	); err != nil {
		return fmt.Errorf("upsert recovery log: %w", err)
	}

	r.publish(ctx, userID)
	return nil
}

// Snapshot reads both collections of the user wholesale.
func (r *Repo) Snapshot(ctx context.Context, userID string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if userID == "" {
		return nil, ErrEmptyUserID
	}

	snapshot := &Snapshot{
		UserID:   userID,
		Workouts: make(History),
		Recovery: make(RecoveryHistory),
	}

	workoutsRevision, err := r.readCollection(ctx, "workout_log", userID, func(date string, data []byte) error {
		var l WorkoutLog
		if err := json.Unmarshal(data, &l); err != nil {
			return fmt.Errorf("unmarshal workout log %s: %w", date, err)
		}
		l.Recompute()
		snapshot.Workouts[date] = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	recoveryRevision, err := r.readCollection(ctx, "recovery_log", userID, func(date string, data []byte) error {
		var rec RecoveryLog
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal recovery log %s: %w", date, err)
		}
		snapshot.Recovery[date] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot.Version = max(workoutsRevision, recoveryRevision)
	span.SetAttributes(
		attribute.Int("workouts", len(snapshot.Workouts)),
		attribute.Int("recovery", len(snapshot.Recovery)),
		attribute.Int64("version", snapshot.Version),
	)

	return snapshot, nil
}

func (r *Repo) readCollection(
	ctx context.Context,
	table, userID string,
	handle func(date string, data []byte) error,
) (int64, error) {
	// table is one of the two constants above, never user input
	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`SELECT to_char(date, 'YYYY-MM-DD'), data, revision FROM %s WHERE user_id = $1 ORDER BY date;`, table),
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var maxRevision int64
	for rows.Next() {
		var date string
		var data []byte
		var revision int64
		if err := rows.Scan(&date, &data, &revision); err != nil {
			return 0, fmt.Errorf("scan %s: %w", table, err)
		}
		if err := handle(date, data); err != nil {
			return 0, err
		}
		maxRevision = max(maxRevision, revision)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows %s: %w", table, err)
	}

	return maxRevision, nil
}

func (r *Repo) publish(ctx context.Context, userID string) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, userID); err != nil {
		// subscribers will catch up on the next write
		logPublishErr(userID, err)
	}
}
