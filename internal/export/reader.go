// Package export reads the JSON files the demo parser writes: one
// <base>_metadata.json describing the demo plus <base>_ticks_<i>.json chunk
// files, each holding a top-level array of tick objects.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mwridgway/StratagemForge/ticks"
)

const (
	metadataSuffix = "_metadata.json"
	ticksInfix     = "_ticks_"
)

// Metadata mirrors the parser's <base>_metadata.json object.
type Metadata struct {
	Filename        string `json:"filename"`
	FilePath        string `json:"file_path"`
	MapName         string `json:"map_name"`
	TotalRounds     int    `json:"total_rounds"`
	TotalTicks      int    `json:"total_ticks"`
	Team1Score      int    `json:"team1_score"`
	Team2Score      int    `json:"team2_score"`
	DurationSeconds int    `json:"duration_seconds"`
}

// MetadataPath returns dir/<base>_metadata.json.
func MetadataPath(dir, base string) string {
	return filepath.Join(dir, base+metadataSuffix)
}

// ReadMetadata decodes one metadata file.
func ReadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("export: open metadata: %w", err)
	}
	defer f.Close()

	var m Metadata
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return Metadata{}, fmt.Errorf("export: decode %s: %w", path, err)
	}
	return m, nil
}

// DiscoverBase returns the base name of the single demo export in dir, the
// X of X_metadata.json. It fails when dir holds zero or several exports;
// with several, the caller has to name one.
func DiscoverBase(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+metadataSuffix))
	if err != nil {
		return "", fmt.Errorf("export: scan %s: %w", dir, err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("export: no *%s file in %s", metadataSuffix, dir)
	case 1:
		return strings.TrimSuffix(filepath.Base(matches[0]), metadataSuffix), nil
	}
	bases := make([]string, len(matches))
	for i, m := range matches {
		bases[i] = strings.TrimSuffix(filepath.Base(m), metadataSuffix)
	}
	return "", fmt.Errorf("export: multiple demo exports in %s: %s", dir, strings.Join(bases, ", "))
}

// TickFiles returns base's chunk files in chunk-index order. Indexes are
// compared numerically because lexical order would put _ticks_10 before
// _ticks_2. Files whose index does not parse are not parser output and are
// skipped.
func TickFiles(dir, base string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, base+ticksInfix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("export: scan %s: %w", dir, err)
	}

	type chunk struct {
		index int
		path  string
	}
	chunks := make([]chunk, 0, len(matches))
	for _, m := range matches {
		idx := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), base+ticksInfix), ".json")
		n, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk{index: n, path: m})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })

	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.path
	}
	return paths, nil
}

// ReadTicks loads every chunk file for base and returns the records in file
// order. Files decode concurrently but land in index-addressed slots, so
// the result matches a sequential read. The concurrency ends here; the load
// pipeline downstream is strictly sequential.
func ReadTicks(ctx context.Context, dir, base string) ([]ticks.Record, error) {
	paths, err := TickFiles(dir, base)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("export: no %s%s*.json files in %s", base, ticksInfix, dir)
	}

	slots := make([][]ticks.Record, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path // capture
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := readTickFile(path)
			if err != nil {
				return err
			}
			slots[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, recs := range slots {
		total += len(recs)
	}
	out := make([]ticks.Record, 0, total)
	for _, recs := range slots {
		out = append(out, recs...)
	}
	return out, nil
}

// readTickFile decodes one top-level JSON array of objects. Numbers decode
// as json.Number: Steam IDs are 17-digit integers and float64 cannot hold
// them exactly.
func readTickFile(path string) ([]ticks.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("export: decode %s: %w", path, err)
	}

	recs := make([]ticks.Record, len(raw))
	for i, v := range raw {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("export: %s: record %d: not an object (got %T)", filepath.Base(path), i, v)
		}
		recs[i] = ticks.Record(obj)
	}
	return recs, nil
}
