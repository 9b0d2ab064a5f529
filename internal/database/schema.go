package database

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed by the application.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// Two uniqueness constraints carry correctness rather than just hygiene:
// completions (team_id, square_id, user_id) is what makes completion
// recording idempotent under concurrent event reports, and
// team_members (team_id, user_id) is what makes re-joining a no-op.
// Plugin keys have no partial unique index (MySQL lacks them); the
// single-active-key invariant is enforced by revoking and inserting
// inside one transaction.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		join_code_hash VARCHAR(100) NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		rsn VARCHAR(32) NOT NULL,
		had_infernal TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_users_rsn (rsn)
	)`,
	`CREATE TABLE IF NOT EXISTS team_members (
		team_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'member',
		joined_at DATETIME NOT NULL,
		PRIMARY KEY (team_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS plugin_keys (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		team_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		key_hash VARCHAR(100) NOT NULL,
		created_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		KEY idx_plugin_keys_pair (team_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS squares (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		team_id BIGINT UNSIGNED NOT NULL,
		code VARCHAR(32) NOT NULL,
		title VARCHAR(128) NOT NULL,
		rule_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_squares_team_code (team_id, code)
	)`,
	`CREATE TABLE IF NOT EXISTS claims (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		team_id BIGINT UNSIGNED NOT NULL,
		square_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		status VARCHAR(16) NOT NULL,
		evidence_path VARCHAR(255) NULL,
		reviewed_by BIGINT UNSIGNED NULL,
		reviewed_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		completed_at DATETIME NULL,
		KEY idx_claims_square (team_id, square_id),
		KEY idx_claims_status (team_id, status)
	)`,
	`CREATE TABLE IF NOT EXISTS evidence_events (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		team_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		event_type VARCHAR(32) NOT NULL,
		payload TEXT NOT NULL,
		occurred_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		KEY idx_evidence_team (team_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS completions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		team_id BIGINT UNSIGNED NOT NULL,
		square_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		evidence_event_id BIGINT UNSIGNED NOT NULL,
		completed_at DATETIME NOT NULL,
		UNIQUE KEY uq_completions_triple (team_id, square_id, user_id)
	)`,
}
