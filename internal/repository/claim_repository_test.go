package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/osrs-team-bingo/internal/model"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
	"github.com/iliyamo/osrs-team-bingo/internal/testutil"
)

func TestClaimCreateConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	userID := testutil.CreateTestUser(t, db, "Zezima")
	squareID := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, teamID, squareID, userID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == 0 {
		t.Fatal("Create returned zero id")
	}

	if _, err := repo.Create(ctx, teamID, squareID, userID); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("second Create error = %v, want ErrConflict", err)
	}

	// A different user claiming the same square is fine.
	other := testutil.CreateTestUser(t, db, "Alice")
	if _, err := repo.Create(ctx, teamID, squareID, other); err != nil {
		t.Errorf("other user's Create error = %v", err)
	}
}

func TestClaimCompleteForSquare(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	zezima := testutil.CreateTestUser(t, db, "Zezima")
	alice := testutil.CreateTestUser(t, db, "Alice")
	squareID := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	zID, err := repo.Create(ctx, teamID, squareID, zezima)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	aID, err := repo.Create(ctx, teamID, squareID, alice)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := repo.CompleteForSquareTx(ctx, tx, teamID, squareID, zezima, time.Now().UTC()); err != nil {
		t.Fatalf("CompleteForSquareTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := repo.GetByID(ctx, zID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.ClaimCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.ClaimCompleted)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	// Alice's claim on the same square is untouched.
	other, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if other.Status != model.ClaimClaimed {
		t.Errorf("other user's status = %q, want %q", other.Status, model.ClaimClaimed)
	}
}

func TestClaimPendingConflictsWithActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	userID := testutil.CreateTestUser(t, db, "Zezima")
	squareID := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	id, err := repo.CreatePending(ctx, teamID, squareID, userID, "proofs/bcp.png")
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.ClaimPending {
		t.Errorf("status = %q, want %q", got.Status, model.ClaimPending)
	}
	if got.EvidencePath == nil || *got.EvidencePath != "proofs/bcp.png" {
		t.Errorf("evidence path = %v, want proofs/bcp.png", got.EvidencePath)
	}

	// One active claim per (square, user), whichever flavor came first.
	if _, err := repo.Create(ctx, teamID, squareID, userID); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("Create over pending error = %v, want ErrConflict", err)
	}
	if _, err := repo.CreatePending(ctx, teamID, squareID, userID, "proofs/again.png"); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("CreatePending over pending error = %v, want ErrConflict", err)
	}
}

func TestClaimReviewTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	userID := testutil.CreateTestUser(t, db, "Zezima")
	leader := testutil.CreateTestUser(t, db, "Durial321")
	squareID := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	id, err := repo.CreatePending(ctx, teamID, squareID, userID, "proofs/bcp.png")
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}

	now := time.Now().UTC()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	before, err := repo.ReviewTx(ctx, tx, teamID, id, model.ClaimCompleted, leader, now)
	if err != nil {
		t.Fatalf("ReviewTx: %v", err)
	}
	if before.SquareID != squareID || before.UserID != userID {
		t.Errorf("ReviewTx returned claim for square %d user %d, want %d %d",
			before.SquareID, before.UserID, squareID, userID)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.ClaimCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.ClaimCompleted)
	}
	if got.ReviewedBy == nil || *got.ReviewedBy != leader {
		t.Errorf("reviewed_by = %v, want %d", got.ReviewedBy, leader)
	}
	if got.ReviewedAt == nil {
		t.Error("reviewed_at not set")
	}

	// Reviewing a resolved claim conflicts rather than overwriting.
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	defer tx.Rollback()
	if _, err := repo.ReviewTx(ctx, tx, teamID, id, model.ClaimRejected, leader, now); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("second ReviewTx error = %v, want ErrConflict", err)
	}
	// A claim id from another team reads as not found.
	if _, err := repo.ReviewTx(ctx, tx, teamID+1, id, model.ClaimRejected, leader, now); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("wrong-team ReviewTx error = %v, want sql.ErrNoRows", err)
	}
}

func TestClaimReviewReject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	userID := testutil.CreateTestUser(t, db, "Zezima")
	leader := testutil.CreateTestUser(t, db, "Durial321")
	squareID := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	id, err := repo.CreatePending(ctx, teamID, squareID, userID, "proofs/blurry.png")
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if _, err := repo.ReviewTx(ctx, tx, teamID, id, model.ClaimRejected, leader, time.Now().UTC()); err != nil {
		t.Fatalf("ReviewTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.ClaimRejected {
		t.Errorf("status = %q, want %q", got.Status, model.ClaimRejected)
	}
	if got.CompletedAt != nil {
		t.Error("rejected claim has completed_at set")
	}

	// A rejected claim frees the square for a fresh attempt.
	if _, err := repo.CreatePending(ctx, teamID, squareID, userID, "proofs/sharp.png"); err != nil {
		t.Errorf("CreatePending after rejection: %v", err)
	}
}

func TestClaimListPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	zezima := testutil.CreateTestUser(t, db, "Zezima")
	alice := testutil.CreateTestUser(t, db, "Alice")
	bcp := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)
	tassets := testutil.AddTestSquare(t, db, teamID, "TASSETS", "Bandos tassets",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11834}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	if _, err := repo.CreatePending(ctx, teamID, bcp, zezima, "proofs/bcp.png"); err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	second, err := repo.CreatePending(ctx, teamID, tassets, alice, "proofs/tassets.png")
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	// Intent-only claims stay out of the review queue.
	if _, err := repo.Create(ctx, teamID, bcp, alice); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := repo.ListPending(ctx, teamID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	// Newest first.
	if pending[0].ClaimID != second {
		t.Errorf("pending[0].ClaimID = %d, want %d", pending[0].ClaimID, second)
	}
	if pending[0].SquareCode != "TASSETS" || pending[0].RSN != "Alice" {
		t.Errorf("pending[0] = %q by %q, want TASSETS by Alice", pending[0].SquareCode, pending[0].RSN)
	}
	if pending[1].EvidencePath != "proofs/bcp.png" {
		t.Errorf("pending[1].EvidencePath = %q, want proofs/bcp.png", pending[1].EvidencePath)
	}

	empty, err := repo.ListPending(ctx, teamID+1)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("pending for empty team = %v, want empty slice", empty)
	}
}

func TestClaimAbandon(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	zezima := testutil.CreateTestUser(t, db, "Zezima")
	alice := testutil.CreateTestUser(t, db, "Alice")
	squareID := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, teamID, squareID, zezima)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Only the claimant can abandon.
	if err := repo.Abandon(ctx, teamID, id, alice); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("other user's Abandon error = %v, want sql.ErrNoRows", err)
	}
	if err := repo.Abandon(ctx, teamID, id, zezima); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.ClaimAbandoned {
		t.Errorf("status = %q, want %q", got.Status, model.ClaimAbandoned)
	}

	// Abandoning twice finds no active claim.
	if err := repo.Abandon(ctx, teamID, id, zezima); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second Abandon error = %v, want sql.ErrNoRows", err)
	}
	// The square is claimable again.
	if _, err := repo.Create(ctx, teamID, squareID, zezima); err != nil {
		t.Errorf("Create after Abandon: %v", err)
	}
}

func TestClaimCompleteWithoutClaimIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	userID := testutil.CreateTestUser(t, db, "Zezima")
	squareID := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	repo := repository.NewClaimRepo(db)
	ctx := context.Background()

	// Automatic detection can complete a square nobody claimed; zero
	// matched rows must not be an error.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := repo.CompleteForSquareTx(ctx, tx, teamID, squareID, userID, time.Now().UTC()); err != nil {
		t.Errorf("CompleteForSquareTx with no claim: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}
