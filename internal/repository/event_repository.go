package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/osrs-team-bingo/internal/model"
)

// EventRepo appends raw machine-reported events.  Rows are immutable;
// there is deliberately no update or delete here.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

// InsertTx appends an evidence event within the caller's transaction and
// populates the generated ID on the record.  The event commits together
// with whatever completions its evaluation produces, so the audit trail
// never references an event that failed to persist.
func (r *EventRepo) InsertTx(ctx context.Context, tx *sql.Tx, ev *model.EvidenceEvent) error {
	ev.CreatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO evidence_events (team_id, user_id, event_type, payload, occurred_at, created_at) VALUES (?,?,?,?,?,?)",
		ev.TeamID, ev.UserID, ev.EventType, ev.Payload, ev.OccurredAt, ev.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}
