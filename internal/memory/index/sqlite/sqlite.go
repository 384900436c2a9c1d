// Package sqlite is a memory.Index that keeps facts and their embeddings in a
// single SQLite table and ranks them by brute-force cosine distance.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aiyo-oss/aiyo/internal/memory"
)

// Index persists facts in SQLite.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string) (*Index, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fact database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	x := &Index{db: db}
	if err := x.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate fact database: %w", err)
	}
	return x, nil
}

func (x *Index) migrate() error {
	_, err := x.db.Exec(`
	CREATE TABLE IF NOT EXISTS facts (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		embedding BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_facts_created_at ON facts(created_at);
	`)
	return err
}

func (x *Index) Add(ctx context.Context, fact memory.Fact, vec []float32) error {
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO facts (id, text, source, category, created_at, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`, fact.ID, fact.Text, string(fact.Source), fact.Category,
		fact.CreatedAt.UTC().Format(time.RFC3339Nano), encodeVector(vec))
	return err
}

func (x *Index) Nearest(ctx context.Context, vec []float32, n int) ([]memory.Match, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx, `SELECT id, text, source, category, created_at, embedding FROM facts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []memory.Match
	for rows.Next() {
		var f memory.Fact
		var blob []byte
		if err := scanFact(rows, &f, &blob); err != nil {
			return nil, err
		}
		matches = append(matches, memory.Match{
			Fact:     f,
			Distance: memory.CosineDistance(vec, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

func (x *Index) Get(ctx context.Context, id string) (memory.Fact, bool, error) {
	row := x.db.QueryRowContext(ctx,
		`SELECT id, text, source, category, created_at, embedding FROM facts WHERE id = ?`, id)

	var f memory.Fact
	var blob []byte
	err := scanFact(row, &f, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return memory.Fact{}, false, nil
	}
	if err != nil {
		return memory.Fact{}, false, err
	}
	return f, true, nil
}

func (x *Index) Delete(ctx context.Context, id string) (bool, error) {
	res, err := x.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (x *Index) List(ctx context.Context) ([]memory.Fact, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT id, text, source, category, created_at, embedding FROM facts ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []memory.Fact
	for rows.Next() {
		var f memory.Fact
		var blob []byte
		if err := scanFact(rows, &f, &blob); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFact(s scanner, f *memory.Fact, blob *[]byte) error {
	var source, created string
	if err := s.Scan(&f.ID, &f.Text, &source, &f.Category, &created, blob); err != nil {
		return err
	}
	f.Source = memory.Source(source)
	f.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return nil
}

// encodeVector packs a vector as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
