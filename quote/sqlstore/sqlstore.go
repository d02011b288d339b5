// Package sqlstore is the sqlite-backed quote.Store, following the
// same embedded golang-migrate shape as keystore.sqlstore and
// ledger.sqlstore.
package sqlstore

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/google/uuid"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/quote"
)

//go:embed migrations
var migrations embed.FS

type Store struct {
	db *sql.DB
}

func migrationsDir() (string, error) {
	tempDir, err := os.MkdirTemp("", "quote-migrations")
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

func (s *Store) Save(q quote.Quote) error {
	billBlob, attrsBlob, pendingBlob, err := encode(q)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO quotes (id, bill_json, status_tag, status_attrs_json, submitted, pending_mint_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, q.Id.String(), billBlob, int(q.Status.Tag), attrsBlob, q.Submitted.Unix(), pendingBlob)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return wcerr.New(wcerr.Conflict, "quote already exists")
		}
		return err
	}
	return nil
}

func (s *Store) Get(id uuid.UUID) (quote.Quote, error) {
	row := s.db.QueryRow(`
		SELECT id, bill_json, status_tag, status_attrs_json, submitted, pending_mint_json
		FROM quotes WHERE id = ?
	`, id.String())
	q, err := scan(row)
	if err == sql.ErrNoRows {
		return quote.Quote{}, wcerr.UnknownQuote
	}
	return q, err
}

func (s *Store) List() ([]quote.Quote, error) {
	rows, err := s.db.Query(`
		SELECT id, bill_json, status_tag, status_attrs_json, submitted, pending_mint_json FROM quotes
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quote.Quote
	for rows.Next() {
		q, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) Update(q quote.Quote) error {
	billBlob, attrsBlob, pendingBlob, err := encode(q)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE quotes SET bill_json = ?, status_tag = ?, status_attrs_json = ?, pending_mint_json = ?
		WHERE id = ?
	`, billBlob, int(q.Status.Tag), attrsBlob, pendingBlob, q.Id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wcerr.UnknownQuote
	}
	return nil
}

type statusAttrs struct {
	AuthorizedPubkey string    `json:"authorized_public_key,omitempty"`
	At               time.Time `json:"at,omitempty"`
	KeysetId         string    `json:"keyset_id,omitempty"`
	TTL              time.Time `json:"ttl,omitempty"`
	Discounted       uint64    `json:"discounted,omitempty"`
}

func encode(q quote.Quote) (billBlob, attrsBlob string, pendingBlob *string, err error) {
	bill, err := json.Marshal(q.Bill)
	if err != nil {
		return "", "", nil, err
	}

	attrs := statusAttrs{
		AuthorizedPubkey: q.Status.AuthorizedPubkey,
		At:               q.Status.At,
		KeysetId:         q.Status.KeysetId,
		TTL:              q.Status.TTL,
		Discounted:       q.Status.Discounted,
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return "", "", nil, err
	}

	if q.PendingMint != nil {
		blob, err := json.Marshal(q.PendingMint)
		if err != nil {
			return "", "", nil, err
		}
		s := string(blob)
		pendingBlob = &s
	}

	return string(bill), string(attrsJSON), pendingBlob, nil
}

func scan(row interface{ Scan(dest ...any) error }) (quote.Quote, error) {
	var idStr, billBlob, attrsBlob string
	var statusTag int
	var submitted int64
	var pendingBlob sql.NullString

	if err := row.Scan(&idStr, &billBlob, &statusTag, &attrsBlob, &submitted, &pendingBlob); err != nil {
		return quote.Quote{}, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return quote.Quote{}, err
	}

	var bill quote.BillInfo
	if err := json.Unmarshal([]byte(billBlob), &bill); err != nil {
		return quote.Quote{}, err
	}

	var attrs statusAttrs
	if err := json.Unmarshal([]byte(attrsBlob), &attrs); err != nil {
		return quote.Quote{}, err
	}

	q := quote.Quote{
		Id:        id,
		Bill:      bill,
		Submitted: time.Unix(submitted, 0).UTC(),
		Status: quote.Status{
			Tag:              quote.StatusTag(statusTag),
			AuthorizedPubkey: attrs.AuthorizedPubkey,
			At:               attrs.At,
			KeysetId:         attrs.KeysetId,
			TTL:              attrs.TTL,
			Discounted:       attrs.Discounted,
		},
	}

	if pendingBlob.Valid {
		var pm quote.PendingMint
		if err := json.Unmarshal([]byte(pendingBlob.String), &pm); err != nil {
			return quote.Quote{}, err
		}
		q.PendingMint = &pm
	}

	return q, nil
}
