package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	eventType := fs.String("type", "", "gate event type filter (gate_events)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,seed,ledger,gates,active_gates,agents,chunks FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		mustQuery(err)
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick        int64  `json:"tick"`
				Path        string `json:"path"`
				Seed        int64  `json:"seed"`
				Ledger      int    `json:"ledger"`
				Gates       int    `json:"gates"`
				ActiveGates int    `json:"active_gates"`
				Agents      int    `json:"agents"`
				Chunks      int    `json:"chunks"`
			}
			mustScan(rows.Scan(&r.Tick, &r.Path, &r.Seed, &r.Ledger, &r.Gates, &r.ActiveGates, &r.Agents, &r.Chunks))
			printJSON(r)
		}
		mustRows(rows.Err())

	case "gate_events":
		query := `SELECT raw_json FROM gate_events ORDER BY tick DESC, seq DESC LIMIT ?`
		qargs := []any{*limit}
		if t := strings.TrimSpace(*eventType); t != "" {
			query = `SELECT raw_json FROM gate_events WHERE type=? ORDER BY tick DESC, seq DESC LIMIT ?`
			qargs = []any{strings.ToUpper(t), *limit}
		}
		printRawRows(db, query, qargs...)

	case "audits":
		printRawRows(db, `SELECT raw_json FROM audits ORDER BY tick DESC, seq DESC LIMIT ?`, *limit)

	case "reloads":
		printRawRows(db, `SELECT raw_json FROM dungeon_reloads ORDER BY id DESC LIMIT ?`, *limit)

	case "checkpoints":
		rows, err := db.Query(`SELECT n,tick,seed,snapshot_path,recorded_at FROM checkpoints ORDER BY n DESC LIMIT ?`, *limit)
		mustQuery(err)
		defer rows.Close()
		for rows.Next() {
			var r struct {
				N          int    `json:"n"`
				Tick       int64  `json:"tick"`
				Seed       int64  `json:"seed"`
				Snapshot   string `json:"snapshot_path"`
				RecordedAt string `json:"recorded_at"`
			}
			mustScan(rows.Scan(&r.N, &r.Tick, &r.Seed, &r.Snapshot, &r.RecordedAt))
			printJSON(r)
		}
		mustRows(rows.Err())

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		mustQuery(err)
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			mustScan(rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt))
			printJSON(r)
		}
		mustRows(rows.Err())

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-limit N] [-type T] snapshots|gate_events|audits|reloads|checkpoints|catalogs")
		os.Exit(2)
	}
}

// printRawRows prints a single raw_json column as-is, one object per line.
func printRawRows(db *sql.DB, query string, args ...any) {
	rows, err := db.Query(query, args...)
	mustQuery(err)
	defer rows.Close()
	for rows.Next() {
		var raw string
		mustScan(rows.Scan(&raw))
		fmt.Println(raw)
	}
	mustRows(rows.Err())
}

func mustQuery(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

func mustScan(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan:", err)
		os.Exit(1)
	}
}

func mustRows(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
