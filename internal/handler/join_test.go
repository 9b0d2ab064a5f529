package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iliyamo/osrs-team-bingo/internal/auth"
	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/handler"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
	"github.com/iliyamo/osrs-team-bingo/internal/testutil"
)

func testConfig() config.Config {
	return config.Config{
		Env:           "test",
		JWTSecret:     "test-secret",
		SessionTTLMin: 60,
		BcryptCost:    testutil.TestBcryptCost,
		AdminKey:      "test-admin-key",
	}
}

type joinResponse struct {
	TeamID       uint64 `json:"teamId"`
	TeamName     string `json:"teamName"`
	RSN          string `json:"rsn"`
	SessionToken string `json:"sessionToken"`
	PluginKey    string `json:"pluginKey"`
}

func doJoin(t *testing.T, h *handler.JoinHandler, rsn, code string) *httptest.ResponseRecorder {
	t.Helper()

	req := testutil.MakeRequest(http.MethodPost, "/v1/auth/join",
		map[string]string{"rsn": rsn, "teamCode": code}, nil)
	c, rec := testutil.NewEchoContext(req)
	if err := h.Join(c); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	return rec
}

func TestJoinIssuesCredentials(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "super-secret")

	cfg := testConfig()
	users := repository.NewUserRepo(db)
	keys := repository.NewPluginKeyRepo(db)
	h := handler.NewJoinHandler(cfg, db, repository.NewTeamRepo(db), users, keys)

	rec := doJoin(t, h, "Zezima", "super-secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp joinResponse
	testutil.DecodeJSON(t, rec, &resp)
	if resp.TeamID != teamID || resp.TeamName != "Iron Legion" || resp.RSN != "Zezima" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.PluginKey == "" {
		t.Fatal("no plugin key issued")
	}

	// The session token asserts the joined identity.
	resolver := auth.NewSessionResolver(cfg.JWTSecret)
	ident, err := resolver.Resolve(context.Background(), auth.Credential{SessionToken: resp.SessionToken})
	if err != nil {
		t.Fatalf("session token does not verify: %v", err)
	}
	if ident.TeamID != teamID || ident.RSN != "Zezima" {
		t.Errorf("token identity = %+v", ident)
	}

	// The plugin key verifies through the machine path.
	plugin := auth.NewPluginResolver(users, keys)
	if _, err := plugin.Resolve(context.Background(), auth.Credential{TeamID: teamID, RSN: "Zezima", PluginKey: resp.PluginKey}); err != nil {
		t.Errorf("issued plugin key does not verify: %v", err)
	}
}

func TestJoinWrongCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestTeam(t, db, "Iron Legion", "super-secret")

	h := handler.NewJoinHandler(testConfig(), db, repository.NewTeamRepo(db),
		repository.NewUserRepo(db), repository.NewPluginKeyRepo(db))

	rec := doJoin(t, h, "Zezima", "wrong-code")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJoinInvalidRSN(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestTeam(t, db, "Iron Legion", "super-secret")

	h := handler.NewJoinHandler(testConfig(), db, repository.NewTeamRepo(db),
		repository.NewUserRepo(db), repository.NewPluginKeyRepo(db))

	for _, rsn := range []string{"", "ThisNameIsWayTooLong", "bad!chars"} {
		rec := doJoin(t, h, rsn, "super-secret")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("rsn %q: status = %d, want 400", rsn, rec.Code)
		}
	}
}

func TestRejoinRotatesPluginKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	teamID := testutil.CreateTestTeam(t, db, "Iron Legion", "super-secret")

	users := repository.NewUserRepo(db)
	keys := repository.NewPluginKeyRepo(db)
	h := handler.NewJoinHandler(testConfig(), db, repository.NewTeamRepo(db), users, keys)

	var first joinResponse
	testutil.DecodeJSON(t, doJoin(t, h, "Zezima", "super-secret"), &first)

	var second joinResponse
	testutil.DecodeJSON(t, doJoin(t, h, "Zezima", "super-secret"), &second)

	if first.PluginKey == second.PluginKey {
		t.Fatal("re-join reused the plugin key")
	}

	plugin := auth.NewPluginResolver(users, keys)
	if _, err := plugin.Resolve(context.Background(), auth.Credential{TeamID: teamID, RSN: "Zezima", PluginKey: first.PluginKey}); err != auth.ErrForbidden {
		t.Errorf("old key error = %v, want ErrForbidden", err)
	}
	if _, err := plugin.Resolve(context.Background(), auth.Credential{TeamID: teamID, RSN: "Zezima", PluginKey: second.PluginKey}); err != nil {
		t.Errorf("new key error = %v", err)
	}

	// Exactly one active key and still a single user row.
	n, err := keys.CountActive(context.Background(), teamID, 1)
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if n != 1 {
		t.Errorf("active keys = %d, want 1", n)
	}
	var userCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if userCount != 1 {
		t.Errorf("users = %d, want 1 (join is get-or-create)", userCount)
	}
}

func TestJoinSecondTeamCodeResolves(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestTeam(t, db, "Iron Legion", "first-code")
	second := testutil.CreateTestTeam(t, db, "Rivals", "second-code")

	h := handler.NewJoinHandler(testConfig(), db, repository.NewTeamRepo(db),
		repository.NewUserRepo(db), repository.NewPluginKeyRepo(db))

	rec := doJoin(t, h, "Alice", "second-code")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp joinResponse
	testutil.DecodeJSON(t, rec, &resp)
	if resp.TeamID != second {
		t.Errorf("teamId = %d, want %d (code scan must find the right team)", resp.TeamID, second)
	}
}
