package model

import "time"

// Claim status values.  The state machine is forward-only.  A claim is
// born CLAIMED (declared intent) or PENDING (evidence attached, awaiting
// leader review).  CLAIMED and PENDING claims move to COMPLETED — by the
// automatic event pipeline or by an approving review — or exit sideways
// to REJECTED (review denied the evidence) or ABANDONED (the claimant
// gave up).  COMPLETED, REJECTED and ABANDONED are terminal.
const (
    ClaimPending   = "PENDING"
    ClaimClaimed   = "CLAIMED"
    ClaimCompleted = "COMPLETED"
    ClaimRejected  = "REJECTED"
    ClaimAbandoned = "ABANDONED"
)

// Claim records a user's declared intent to work on a square, optionally
// backed by uploaded proof.  A user may hold at most one active (PENDING
// or CLAIMED) claim per square; that rule lives in the creation query
// rather than a table constraint.  Completion of the claim happens as a
// side effect of a new completion record for the same (team, square,
// user) triple, or through a leader approving the attached evidence.
//
// Fields:
//  ID           – primary key identifier.
//  TeamID       – owning team.
//  SquareID     – square being claimed.
//  UserID       – user making the claim.
//  Status       – one of the Claim* constants above.
//  EvidencePath – storage path of the uploaded proof (nullable).
//  ReviewedBy   – leader who approved or rejected the claim (nullable).
//  ReviewedAt   – when the review happened (nullable).
//  CreatedAt    – creation timestamp.
//  CompletedAt  – when the claim transitioned to COMPLETED (nullable).
type Claim struct {
    ID           uint64     // claims.id
    TeamID       uint64     // claims.team_id
    SquareID     uint64     // claims.square_id
    UserID       uint64     // claims.user_id
    Status       string     // claims.status
    EvidencePath *string    // claims.evidence_path (nullable)
    ReviewedBy   *uint64    // claims.reviewed_by (nullable)
    ReviewedAt   *time.Time // claims.reviewed_at (nullable)
    CreatedAt    time.Time  // claims.created_at
    CompletedAt  *time.Time // claims.completed_at (nullable)
}
