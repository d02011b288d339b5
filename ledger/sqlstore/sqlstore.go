// Package sqlstore is the sqlite-backed ledger.Store: a spent_proofs
// table with a unique index on y, the teacher's mint/db.go
// SaveProofs/GetProofsUsed table shape, generalized to the batch
// all-or-nothing contract ProofLedger requires.
package sqlstore

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/ledger"
)

//go:embed migrations
var migrations embed.FS

type Store struct {
	db *sql.DB
}

func migrationsDir() (string, error) {
	tempDir, err := os.MkdirTemp("", "ledger-migrations")
	if err != nil {
		return "", err
	}
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		src, err := migrations.Open(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return "", err
		}
		dst, err := os.Create(filepath.Join(tempDir, entry.Name()))
		if err != nil {
			src.Close()
			return "", err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return "", err
		}
	}
	return tempDir, nil
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	dir, err := migrationsDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	m, err := migrate.New(fmt.Sprintf("file://%s", dir), fmt.Sprintf("sqlite3://%s", dbPath))
	if err != nil {
		return nil, err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) InsertIfAbsent(entries []ledger.SpentProofEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO spent_proofs (y, amount, keyset_id, secret, c)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Y, e.Proof.Amount, e.Proof.Id, e.Proof.Secret, e.Proof.C); err != nil {
			tx.Rollback()
			if strings.Contains(err.Error(), "UNIQUE") {
				return wcerr.ProofsAlreadySpent
			}
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) Contains(ys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ys))
	for _, y := range ys {
		out[y] = false
	}
	if len(ys) == 0 {
		return out, nil
	}

	query := `SELECT y FROM spent_proofs WHERE y IN (?` + strings.Repeat(",?", len(ys)-1) + `)`
	args := make([]any, len(ys))
	for i, y := range ys {
		args[i] = y
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var y string
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out[y] = true
	}
	return out, rows.Err()
}

func (s *Store) Remove(ys []string) error {
	if len(ys) == 0 {
		return nil
	}
	query := `DELETE FROM spent_proofs WHERE y IN (?` + strings.Repeat(",?", len(ys)-1) + `)`
	args := make([]any, len(ys))
	for i, y := range ys {
		args[i] = y
	}
	_, err := s.db.Exec(query, args...)
	return err
}
