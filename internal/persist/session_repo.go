package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrSessionNotFound is returned when a save slot has no snapshot.
var ErrSessionNotFound = errors.New("session snapshot not found")

// SessionMeta describes one stored save slot.
type SessionMeta struct {
	Slot    string
	SavedAt time.Time
}

// SessionRepo stores whole-session snapshots as JSON, one row per save
// slot. The state column carries the serialized manager tree verbatim;
// there is no schema-version field, so catalog changes between save and
// load surface as restore errors rather than silent migration.
type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Save upserts the snapshot for a slot.
func (r *SessionRepo) Save(ctx context.Context, slot string, state []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO session_snapshots (slot, state, saved_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (slot) DO UPDATE SET state = EXCLUDED.state, saved_at = now()`,
		slot, state,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", slot, err)
	}
	return nil
}

// Load returns the snapshot stored for a slot.
func (r *SessionRepo) Load(ctx context.Context, slot string) ([]byte, error) {
	var state []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT state FROM session_snapshots WHERE slot = $1`, slot,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("slot %s: %w", slot, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", slot, err)
	}
	return state, nil
}

// List returns every stored slot, most recently saved first.
func (r *SessionRepo) List(ctx context.Context) ([]SessionMeta, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, saved_at FROM session_snapshots ORDER BY saved_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionMeta
	for rows.Next() {
		var m SessionMeta
		if err := rows.Scan(&m.Slot, &m.SavedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// Delete removes a slot's snapshot. Deleting a missing slot is a no-op.
func (r *SessionRepo) Delete(ctx context.Context, slot string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM session_snapshots WHERE slot = $1`, slot,
	)
	return err
}
