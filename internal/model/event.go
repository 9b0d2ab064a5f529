package model

import "time"

// EvidenceEvent is an append-only record of a raw machine-reported gameplay
// event.  Rows are never mutated or deleted; every completion references
// the event that caused it, forming the audit trail.
//
// Fields:
//  ID         – primary key identifier.
//  TeamID     – team the event was reported for.
//  UserID     – user the reporting plugin authenticated as.
//  EventType  – wire event type (LOOT, RAID_COMPLETE, ...).
//  Payload    – raw JSON payload exactly as reported.
//  OccurredAt – client-reported timestamp (nullable; clients may omit it).
//  CreatedAt  – server timestamp at persistence.
type EvidenceEvent struct {
    ID         uint64     // evidence_events.id
    TeamID     uint64     // evidence_events.team_id
    UserID     uint64     // evidence_events.user_id
    EventType  string     // evidence_events.event_type
    Payload    string     // evidence_events.payload
    OccurredAt *time.Time // evidence_events.occurred_at (nullable)
    CreatedAt  time.Time  // evidence_events.created_at
}

// Completion is the authoritative record that a (team, square, user) triple
// has been satisfied.  The unique key over that triple is what makes
// recording idempotent; duplicate inserts are recovered as no-ops.
//
// Fields:
//  ID              – primary key identifier.
//  TeamID          – owning team.
//  SquareID        – completed square.
//  UserID          – user who completed it.
//  EvidenceEventID – event whose evaluation produced this completion.
//  CompletedAt     – server timestamp of the completion.
type Completion struct {
    ID              uint64    // completions.id
    TeamID          uint64    // completions.team_id
    SquareID        uint64    // completions.square_id
    UserID          uint64    // completions.user_id
    EvidenceEventID uint64    // completions.evidence_event_id
    CompletedAt     time.Time // completions.completed_at
}
