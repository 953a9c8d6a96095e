// Package catalog records demo provenance and the player roster after a
// successful tick load. It owns the demo_metadata and players tables;
// tick rows themselves go through the storage loader.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mwridgway/StratagemForge/ticks"
)

// Demo is one demo_metadata row keyed by filename. Zero-valued fields are
// stored as-is; the table's DB-side defaults only cover timestamps.
type Demo struct {
	Filename        string
	FilePath        string
	FileSizeBytes   int64
	FileHash        string
	MapName         string
	TotalRounds     int
	TotalTicks      int64
	Team1Score      int
	Team2Score      int
	DurationSeconds int
}

const upsertDemoSQL = `
INSERT INTO demo_metadata (
    filename, file_path, file_size_bytes, file_hash, map_name,
    total_rounds, total_ticks, team1_score, team2_score,
    match_duration_seconds, parsed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (filename) DO UPDATE SET
    file_path = excluded.file_path,
    file_size_bytes = excluded.file_size_bytes,
    file_hash = excluded.file_hash,
    map_name = excluded.map_name,
    total_rounds = excluded.total_rounds,
    total_ticks = excluded.total_ticks,
    team1_score = excluded.team1_score,
    team2_score = excluded.team2_score,
    match_duration_seconds = excluded.match_duration_seconds,
    parsed_at = CURRENT_TIMESTAMP`

// RecordDemo upserts the demo's metadata row. Re-parsing the same demo
// file refreshes the existing row instead of adding a duplicate.
func RecordDemo(ctx context.Context, db *sql.DB, d Demo) error {
	if strings.TrimSpace(d.Filename) == "" {
		return fmt.Errorf("catalog: record demo: filename is required")
	}
	_, err := db.ExecContext(ctx, upsertDemoSQL,
		d.Filename, d.FilePath, d.FileSizeBytes, d.FileHash, d.MapName,
		d.TotalRounds, d.TotalTicks, d.Team1Score, d.Team2Score,
		d.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("catalog: record demo %s: %w", d.Filename, err)
	}
	return nil
}

// Player is one distinct identity observed in a demo.
type Player struct {
	SteamID int64
	Name    string
}

// RosterFromRecords extracts the distinct players from raw tick records,
// applying the same field coercion the loader does. Records without a
// usable steam_id resolve to ID 0 and are dropped; the last name seen for
// an ID wins, matching the last_seen semantics of UpsertPlayers.
func RosterFromRecords(records []ticks.Record) []Player {
	names := make(map[int64]string)
	for _, rec := range records {
		row := ticks.Normalize(rec, "", "")
		if row.SteamID == 0 {
			continue
		}
		names[row.SteamID] = row.Name
	}

	roster := make([]Player, 0, len(names))
	for id, name := range names {
		roster = append(roster, Player{SteamID: id, Name: name})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].SteamID < roster[j].SteamID })
	return roster
}

const upsertPlayerSQL = `
INSERT INTO players (steam_id, name, total_matches)
VALUES (?, ?, 1)
ON CONFLICT (steam_id) DO UPDATE SET
    name = excluded.name,
    last_seen = CURRENT_TIMESTAMP,
    total_matches = players.total_matches + 1`

// UpsertPlayers inserts new players and refreshes name, last_seen, and the
// match count for known ones. Entries with SteamID 0 are skipped.
func UpsertPlayers(ctx context.Context, db *sql.DB, roster []Player) error {
	for _, p := range roster {
		if p.SteamID == 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, upsertPlayerSQL, p.SteamID, p.Name); err != nil {
			return fmt.Errorf("catalog: upsert player %d: %w", p.SteamID, err)
		}
	}
	return nil
}

// FileHash returns the xxh3 content hash of the file at path as a 16-digit
// hex string, plus the byte count hashed.
func FileHash(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("catalog: hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), n, nil
}

// FoldName reduces a player name to a searchable base form so decorated
// aliases compare equal: NFKD-decompose, remove nonspacing marks (accents),
// recompose, then trim and lowercase.
func FoldName(name string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, _ := transform.String(t, name)
	return strings.ToLower(strings.TrimSpace(folded))
}
