package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/osrs-team-bingo/internal/repository"
	"github.com/iliyamo/osrs-team-bingo/internal/rules"
	"github.com/iliyamo/osrs-team-bingo/internal/testutil"
)

func TestSeedDefaultsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")

	repo := repository.NewSquareRepo(db)
	ctx := context.Background()

	first, err := repo.SeedDefaults(ctx, teamID)
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if first == 0 {
		t.Fatal("first seed inserted nothing")
	}

	second, err := repo.SeedDefaults(ctx, teamID)
	if err != nil {
		t.Fatalf("second SeedDefaults: %v", err)
	}
	if second != 0 {
		t.Errorf("second seed inserted %d squares, want 0", second)
	}

	squares, err := repo.ListByTeam(ctx, teamID)
	if err != nil {
		t.Fatalf("ListByTeam: %v", err)
	}
	if len(squares) != first {
		t.Errorf("squares = %d, want %d", len(squares), first)
	}

	// Every seeded rule must decode back to a recognized kind.
	for _, s := range squares {
		r, err := rules.Decode([]byte(s.RuleJSON))
		if err != nil {
			t.Errorf("square %s: undecodable rule %q: %v", s.Code, s.RuleJSON, err)
			continue
		}
		if _, unknown := r.(rules.Unknown); unknown {
			t.Errorf("square %s seeded with an unknown rule kind", s.Code)
		}
	}
}

func TestBoardAggregation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "code")
	otherTeam := testutil.CreateTestTeam(t, db, "Rivals", "other")
	userID := testutil.CreateTestUser(t, db, "Zezima")

	bcp := testutil.AddTestSquare(t, db, teamID, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)
	testutil.AddTestSquare(t, db, teamID, "TOB_ANY", "Theatre of Blood",
		`{"kind":"RAID_COMPLETE","raid":"TOB","minPartySize":1}`)
	foreign := testutil.AddTestSquare(t, db, otherTeam, "BCP", "Bandos chestplate",
		`{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}`)

	claims := repository.NewClaimRepo(db)
	completions := repository.NewCompletionRepo(db)
	ctx := context.Background()

	if _, err := claims.Create(ctx, teamID, bcp, userID); err != nil {
		t.Fatalf("Create claim: %v", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if _, err := completions.InsertTx(ctx, tx, teamID, bcp, userID, 1, time.Now().UTC()); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	board, err := repository.NewSquareRepo(db).Board(ctx, teamID)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("board squares = %d, want 2", len(board))
	}
	for _, sq := range board {
		if sq.ID == foreign {
			t.Fatal("board leaked another team's square")
		}
		switch sq.Code {
		case "BCP":
			if len(sq.Claims) != 1 || sq.Claims[0].RSN != "Zezima" {
				t.Errorf("BCP claims = %+v", sq.Claims)
			}
			if len(sq.Completions) != 1 || sq.Completions[0].RSN != "Zezima" {
				t.Errorf("BCP completions = %+v", sq.Completions)
			}
		case "TOB_ANY":
			if len(sq.Claims) != 0 || len(sq.Completions) != 0 {
				t.Errorf("TOB_ANY should be empty, got claims=%d completions=%d", len(sq.Claims), len(sq.Completions))
			}
			// Empty slices, not nulls, so the frontend can iterate blindly.
			if sq.Claims == nil || sq.Completions == nil {
				t.Error("board lists must be non-nil")
			}
		}
	}
}
