// Package testutil provides shared helpers for package tests: an in-memory
// SQLite database carrying the production constraints, fixture builders and
// HTTP request plumbing for echo handlers.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/osrs-team-bingo/internal/utils"
)

// SetupTestDB opens a fresh in-memory database with the full schema.  The
// schema mirrors production table-for-table, in particular the uniqueness
// constraints the application logic leans on: completions
// (team_id, square_id, user_id), users (rsn), squares (team_id, code) and
// the team_members primary key.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A single connection keeps every statement on the same in-memory DB.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE teams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			join_code_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rsn TEXT NOT NULL,
			had_infernal INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			UNIQUE (rsn)
		);

		CREATE TABLE team_members (
			team_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (team_id, user_id)
		);

		CREATE TABLE plugin_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			key_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			revoked_at DATETIME NULL
		);

		CREATE TABLE squares (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id INTEGER NOT NULL,
			code TEXT NOT NULL,
			title TEXT NOT NULL,
			rule_json TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (team_id, code)
		);

		CREATE TABLE claims (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id INTEGER NOT NULL,
			square_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			evidence_path TEXT NULL,
			reviewed_by INTEGER NULL,
			reviewed_at DATETIME NULL,
			created_at DATETIME NOT NULL,
			completed_at DATETIME NULL
		);

		CREATE TABLE evidence_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			occurred_at DATETIME NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE completions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id INTEGER NOT NULL,
			square_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			evidence_event_id INTEGER NOT NULL,
			completed_at DATETIME NOT NULL,
			UNIQUE (team_id, square_id, user_id)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestBcryptCost keeps fixture hashing fast; production uses a higher cost.
const TestBcryptCost = bcrypt.MinCost

// CreateTestTeam inserts a team whose join code is the given plaintext and
// returns its ID.
func CreateTestTeam(t *testing.T, db *sql.DB, name, joinCode string) uint64 {
	t.Helper()

	hash, err := utils.HashSecret(joinCode, TestBcryptCost)
	if err != nil {
		t.Fatalf("Failed to hash join code: %v", err)
	}
	res, err := db.Exec(
		"INSERT INTO teams (name, join_code_hash, created_at) VALUES (?,?,?)",
		name, hash, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test team: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// CreateTestUser inserts a user and returns its ID.
func CreateTestUser(t *testing.T, db *sql.DB, rsn string) uint64 {
	t.Helper()

	res, err := db.Exec(
		"INSERT INTO users (rsn, had_infernal, created_at) VALUES (?,0,?)",
		rsn, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// AddTestMember records team membership for a user with the member role.
func AddTestMember(t *testing.T, db *sql.DB, teamID, userID uint64) {
	t.Helper()
	addMemberWithRole(t, db, teamID, userID, "member")
}

// AddTestLeader records team membership with the leader role.
func AddTestLeader(t *testing.T, db *sql.DB, teamID, userID uint64) {
	t.Helper()
	addMemberWithRole(t, db, teamID, userID, "leader")
}

func addMemberWithRole(t *testing.T, db *sql.DB, teamID, userID uint64, role string) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES (?,?,?,?)",
		teamID, userID, role, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to add test member: %v", err)
	}
}

// IssueTestPluginKey stores an active plugin key for the (team, user) pair
// whose plaintext is the given key.
func IssueTestPluginKey(t *testing.T, db *sql.DB, teamID, userID uint64, plainKey string) {
	t.Helper()

	hash, err := utils.HashSecret(plainKey, TestBcryptCost)
	if err != nil {
		t.Fatalf("Failed to hash plugin key: %v", err)
	}
	_, err = db.Exec(
		"INSERT INTO plugin_keys (team_id, user_id, key_hash, created_at) VALUES (?,?,?,?)",
		teamID, userID, hash, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to issue test plugin key: %v", err)
	}
}

// AddTestSquare inserts a square with the given rule JSON and returns its ID.
func AddTestSquare(t *testing.T, db *sql.DB, teamID uint64, code, title, ruleJSON string) uint64 {
	t.Helper()

	res, err := db.Exec(
		"INSERT INTO squares (team_id, code, title, rule_json, created_at) VALUES (?,?,?,?,?)",
		teamID, code, title, ruleJSON, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test square: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// MakeRequest creates an HTTP test request with an optional JSON body.
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// NewEchoContext wraps a request in an echo context plus response recorder.
func NewEchoContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// DecodeJSON unmarshals a recorded response body into out.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}
