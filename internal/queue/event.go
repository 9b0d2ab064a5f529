// Package queue defines message payloads exchanged over the message broker.
package queue

// SquareCompletedEvent is published when a completion is newly recorded.
// It carries enough information for downstream consumers to log or run
// analytics without querying the primary database.  Duplicate event
// reports never publish: only genuinely new completions fan out.
type SquareCompletedEvent struct {
    TeamID          uint64 `json:"team_id"`
    TeamName        string `json:"team_name"`
    SquareID        uint64 `json:"square_id"`
    SquareCode      string `json:"square_code"`
    UserID          uint64 `json:"user_id"`
    RSN             string `json:"rsn"`
    EvidenceEventID uint64 `json:"evidence_event_id"`
    EventType       string `json:"event_type"`
    CompletedAt     string `json:"completed_at"`
}
