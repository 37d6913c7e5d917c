package main

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"kronologic/schedule"
)

//go:embed schema.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

var errPuzzleNotFound = errors.New("puzzle not found")

var placeholder = regexp.MustCompile(`\$\d+`)

type store struct {
	db     *sql.DB
	sqlite bool
}

func openStore(dsn string) (*store, error) {
	driver, source, schema := "postgres", dsn, postgresSchema
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		driver, source, schema = "sqlite", path, sqliteSchema
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	st := &store{db: db, sqlite: driver == "sqlite"}
	if st.sqlite {
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return st, nil
}

func (st *store) Close() error { return st.db.Close() }

// q rewrites postgres $N placeholders for sqlite. Queries must use each
// placeholder once, in order.
func (st *store) q(query string) string {
	if !st.sqlite {
		return query
	}
	return placeholder.ReplaceAllString(query, "?")
}

type puzzleSummary struct {
	ID          int64         `json:"id"`
	Seed        int64         `json:"seed"`
	Part        schedule.Part `json:"part"`
	Times       int           `json:"nb_times"`
	Information int           `json:"nb_information"`
	CreatedBy   string        `json:"created_by"`
}

type storedPuzzle struct {
	puzzleSummary
	View schedule.PuzzleView
}

func (st *store) insertPuzzle(ctx context.Context, createdBy string, information int, v schedule.PuzzleView) (int64, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	var id int64
	err = st.db.QueryRowContext(ctx, st.q(`
		INSERT INTO puzzles (seed, part, times, information, created_by, body)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`), v.Seed, int(v.Part), v.Times, information, createdBy, string(body)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert puzzle: %w", err)
	}
	return id, nil
}

func (st *store) getPuzzle(ctx context.Context, id int64) (storedPuzzle, error) {
	var p storedPuzzle
	var body string
	err := st.db.QueryRowContext(ctx, st.q(`
		SELECT id, seed, part, times, information, created_by, body
		FROM puzzles WHERE id = $1`), id).Scan(&p.ID, &p.Seed, &p.Part, &p.Times, &p.Information, &p.CreatedBy, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return p, errPuzzleNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get puzzle %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(body), &p.View); err != nil {
		return p, fmt.Errorf("decode puzzle %d: %w", id, err)
	}
	return p, nil
}

func (st *store) listPuzzles(ctx context.Context) ([]puzzleSummary, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, seed, part, times, information, created_by
		FROM puzzles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list puzzles: %w", err)
	}
	defer rows.Close()

	puzzles := []puzzleSummary{}
	for rows.Next() {
		var p puzzleSummary
		if err := rows.Scan(&p.ID, &p.Seed, &p.Part, &p.Times, &p.Information, &p.CreatedBy); err != nil {
			return nil, err
		}
		puzzles = append(puzzles, p)
	}
	return puzzles, rows.Err()
}
