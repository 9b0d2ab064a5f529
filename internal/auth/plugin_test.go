package auth

import (
	"context"
	"testing"

	"github.com/iliyamo/osrs-team-bingo/internal/repository"
	"github.com/iliyamo/osrs-team-bingo/internal/testutil"
	"github.com/iliyamo/osrs-team-bingo/internal/utils"
)

func TestPluginResolve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "secret-code")
	otherTeam := testutil.CreateTestTeam(t, db, "Rivals", "other-code")
	userID := testutil.CreateTestUser(t, db, "Zezima")
	testutil.AddTestMember(t, db, teamID, userID)
	testutil.IssueTestPluginKey(t, db, teamID, userID, "the-plugin-key")

	r := NewPluginResolver(repository.NewUserRepo(db), repository.NewPluginKeyRepo(db))
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		ident, err := r.Resolve(ctx, Credential{TeamID: teamID, RSN: "Zezima", PluginKey: "the-plugin-key"})
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if ident.TeamID != teamID || ident.UserID != userID || ident.RSN != "Zezima" {
			t.Errorf("Resolve() = %+v", ident)
		}
	})

	t.Run("unknown rsn", func(t *testing.T) {
		if _, err := r.Resolve(ctx, Credential{TeamID: teamID, RSN: "Nobody", PluginKey: "the-plugin-key"}); err != ErrUnknownRSN {
			t.Errorf("error = %v, want ErrUnknownRSN", err)
		}
	})

	t.Run("not a member of the claimed team", func(t *testing.T) {
		if _, err := r.Resolve(ctx, Credential{TeamID: otherTeam, RSN: "Zezima", PluginKey: "the-plugin-key"}); err != ErrForbidden {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		if _, err := r.Resolve(ctx, Credential{TeamID: teamID, RSN: "Zezima", PluginKey: "wrong"}); err != ErrForbidden {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("member without a key", func(t *testing.T) {
		keyless := testutil.CreateTestUser(t, db, "NoKey")
		testutil.AddTestMember(t, db, teamID, keyless)
		if _, err := r.Resolve(ctx, Credential{TeamID: teamID, RSN: "NoKey", PluginKey: "anything"}); err != ErrForbidden {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		if _, err := r.Resolve(ctx, Credential{RSN: "Zezima", PluginKey: "the-plugin-key"}); err != ErrUnauthenticated {
			t.Errorf("error = %v, want ErrUnauthenticated", err)
		}
	})
}

func TestPluginResolveAfterRotation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "secret-code")
	userID := testutil.CreateTestUser(t, db, "Zezima")
	testutil.AddTestMember(t, db, teamID, userID)
	testutil.IssueTestPluginKey(t, db, teamID, userID, "old-key")

	keys := repository.NewPluginKeyRepo(db)
	r := NewPluginResolver(repository.NewUserRepo(db), keys)
	ctx := context.Background()

	// Rotate: revoke the old key, insert a new one, in one transaction.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := keys.RevokeActiveTx(ctx, tx, teamID, userID); err != nil {
		t.Fatalf("RevokeActiveTx: %v", err)
	}
	newHash, err := utils.HashSecret("new-key", testutil.TestBcryptCost)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if err := keys.InsertTx(ctx, tx, teamID, userID, newHash); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := r.Resolve(ctx, Credential{TeamID: teamID, RSN: "Zezima", PluginKey: "old-key"}); err != ErrForbidden {
		t.Errorf("old key error = %v, want ErrForbidden", err)
	}
	if _, err := r.Resolve(ctx, Credential{TeamID: teamID, RSN: "Zezima", PluginKey: "new-key"}); err != nil {
		t.Errorf("new key error = %v, want nil", err)
	}

	n, err := keys.CountActive(ctx, teamID, userID)
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if n != 1 {
		t.Errorf("active keys = %d, want exactly 1 after rotation", n)
	}
}
