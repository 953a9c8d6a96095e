// Package schema creates and upgrades the tick database layout through
// ordered, versioned migrations tracked in a schema_migrations table.
//
// The DDL targets DuckDB (sequences, DOUBLE columns). Callers loading into
// other backends are expected to provision the destination table themselves.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/zeebo/xxh3"
)

// Migration is one versioned schema change. SQL may contain multiple
// statements separated by semicolons; they run inside one transaction.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns every known migration in ascending version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Description: "Create demo_ticks table", SQL: createDemoTicks},
		{Version: 2, Description: "Create indexes for performance", SQL: createTickIndexes},
		{Version: 3, Description: "Create demo_metadata table", SQL: createDemoMetadata},
		{Version: 4, Description: "Create players table for normalization", SQL: createPlayers},
	}
}

const createDemoTicks = `
CREATE SEQUENCE demo_ticks_id_seq;
CREATE TABLE demo_ticks (
    id INTEGER PRIMARY KEY DEFAULT nextval('demo_ticks_id_seq'),
    tick INTEGER NOT NULL,
    round_num INTEGER,
    seconds DOUBLE,
    clock_time TEXT,
    t_score INTEGER,
    ct_score INTEGER,
    game_phase TEXT,
    bomb_planted BOOLEAN DEFAULT FALSE,
    bomb_defused BOOLEAN DEFAULT FALSE,
    steam_id BIGINT,
    name TEXT,
    team TEXT,
    side TEXT,
    is_alive BOOLEAN DEFAULT TRUE,
    hp INTEGER DEFAULT 100,
    armor INTEGER DEFAULT 0,
    has_helmet BOOLEAN DEFAULT FALSE,
    has_defuse_kit BOOLEAN DEFAULT FALSE,
    money INTEGER DEFAULT 0,
    x DOUBLE,
    y DOUBLE,
    z DOUBLE,
    view_x DOUBLE,
    view_y DOUBLE,
    velocity_x DOUBLE DEFAULT 0,
    velocity_y DOUBLE DEFAULT 0,
    velocity_z DOUBLE DEFAULT 0,
    active_weapon TEXT,
    primary_weapon TEXT,
    secondary_weapon TEXT,
    grenades TEXT,
    is_ducking BOOLEAN DEFAULT FALSE,
    is_walking BOOLEAN DEFAULT FALSE,
    is_scoped BOOLEAN DEFAULT FALSE,
    is_reloading BOOLEAN DEFAULT FALSE,
    is_defusing BOOLEAN DEFAULT FALSE,
    is_planting BOOLEAN DEFAULT FALSE,
    demo_filename TEXT NOT NULL,
    map_name TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createTickIndexes = `
CREATE INDEX idx_demo_ticks_tick ON demo_ticks(tick);
CREATE INDEX idx_demo_ticks_round_num ON demo_ticks(round_num);
CREATE INDEX idx_demo_ticks_steam_id ON demo_ticks(steam_id);
CREATE INDEX idx_demo_ticks_name ON demo_ticks(name);
CREATE INDEX idx_demo_ticks_demo_filename ON demo_ticks(demo_filename);
CREATE INDEX idx_demo_ticks_map_name ON demo_ticks(map_name);
CREATE INDEX idx_demo_ticks_position ON demo_ticks(x, y, z);
`

const createDemoMetadata = `
CREATE SEQUENCE demo_metadata_id_seq;
CREATE TABLE demo_metadata (
    id INTEGER PRIMARY KEY DEFAULT nextval('demo_metadata_id_seq'),
    filename TEXT UNIQUE NOT NULL,
    file_path TEXT NOT NULL,
    file_size_bytes BIGINT,
    file_hash TEXT,
    map_name TEXT,
    game_mode TEXT,
    server_name TEXT,
    date_recorded TIMESTAMP,
    total_rounds INTEGER,
    total_ticks BIGINT,
    team1_name TEXT,
    team2_name TEXT,
    team1_score INTEGER,
    team2_score INTEGER,
    match_duration_seconds INTEGER,
    parsed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createPlayers = `
CREATE SEQUENCE players_id_seq;
CREATE TABLE players (
    id INTEGER PRIMARY KEY DEFAULT nextval('players_id_seq'),
    steam_id BIGINT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    total_matches INTEGER DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_players_steam_id ON players(steam_id);
CREATE INDEX idx_players_name ON players(name);
`

const ensureMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    checksum TEXT
)`

// Version returns the highest applied migration version, or 0 for a fresh
// database. It creates the schema_migrations table if missing.
func Version(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, ensureMigrationsTable); err != nil {
		return 0, fmt.Errorf("ensure migration table: %w", err)
	}
	var v int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Apply runs every migration newer than the database's current version, one
// transaction per version, and returns how many were applied.
func Apply(ctx context.Context, db *sql.DB) (int, error) {
	return apply(ctx, db, Migrations())
}

func apply(ctx context.Context, db *sql.DB, migrations []Migration) (int, error) {
	current, err := Version(ctx, db)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		log.Printf("schema: applying migration %d: %s", m.Version, m.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		// Some drivers reject multi-statement Exec, so run statements one
		// at a time inside the transaction.
		if err := execStatements(ctx, tx, m.SQL); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("exec migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description, checksum) VALUES (?, ?, ?)`,
			m.Version, m.Description, checksum(m.SQL),
		); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
		applied++
	}
	return applied, nil
}

func execStatements(ctx context.Context, tx *sql.Tx, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// checksum fingerprints migration SQL so drift in released migrations can be
// spotted later.
func checksum(sql string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(sql))
}
