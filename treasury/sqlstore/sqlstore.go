// Package sqlstore is the sqlite-backed treasury.Store, following the
// same embedded golang-migrate shape as keystore.sqlstore,
// ledger.sqlstore and quote.sqlstore.
package sqlstore

import (
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/treasury"
)

//go:embed migrations
var migrations embed.FS

type Store struct {
	db *sql.DB
}

func migrationsDir() (string, error) {
	tempDir, err := os.MkdirTemp("", "treasury-migrations")
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

func (s *Store) Counter(keysetId string) (uint32, error) {
	var value uint32
	err := s.db.QueryRow(`SELECT value FROM counters WHERE keyset_id = ?`, keysetId).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return value, err
}

func (s *Store) AdvanceCounter(keysetId string, by uint32) error {
	_, err := s.db.Exec(`
		INSERT INTO counters (keyset_id, value) VALUES (?, ?)
		ON CONFLICT(keyset_id) DO UPDATE SET value = value + excluded.value
	`, keysetId, by)
	return err
}

func (s *Store) SaveRequest(req treasury.Request) error {
	secretsBlob, sigsBlob, err := encode(req)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO signatures (rid, keyset_id, secrets_json, expiration, sig_list_json)
		VALUES (?, ?, ?, ?, ?)
	`, req.Id, req.KeysetId, secretsBlob, req.Expiration.Unix(), sigsBlob)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return wcerr.New(wcerr.Conflict, "request already exists")
		}
		return err
	}
	return nil
}

func (s *Store) GetRequest(id string) (treasury.Request, error) {
	row := s.db.QueryRow(`
		SELECT rid, keyset_id, secrets_json, expiration, sig_list_json FROM signatures WHERE rid = ?
	`, id)
	req, err := scan(row)
	if err == sql.ErrNoRows {
		return treasury.Request{}, wcerr.RequestIDNotFound
	}
	return req, err
}

func (s *Store) UpdateRequest(req treasury.Request) error {
	_, sigsBlob, err := encode(req)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE signatures SET expiration = ?, sig_list_json = ? WHERE rid = ?
	`, req.Expiration.Unix(), sigsBlob, req.Id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wcerr.RequestIDNotFound
	}
	return nil
}

func (s *Store) ListRequests() ([]treasury.Request, error) {
	rows, err := s.db.Query(`SELECT rid, keyset_id, secrets_json, expiration, sig_list_json FROM signatures`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []treasury.Request
	for rows.Next() {
		req, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) AddRedeemed(amount uint64) error {
	_, err := s.db.Exec(`UPDATE redeemed SET total = total + ? WHERE id = 0`, amount)
	return err
}

func (s *Store) RedeemedTotal() (uint64, error) {
	var total uint64
	err := s.db.QueryRow(`SELECT total FROM redeemed WHERE id = 0`).Scan(&total)
	return total, err
}

type storedSecret struct {
	Amount         uint64 `json:"amount"`
	Secret         string `json:"secret"`
	BlindingFactor string `json:"blinding_factor"`
}

func encode(req treasury.Request) (secretsBlob string, sigsBlob *string, err error) {
	stored := make([]storedSecret, len(req.Secrets))
	for i, s := range req.Secrets {
		stored[i] = storedSecret{
			Amount:         s.Amount,
			Secret:         s.Secret,
			BlindingFactor: hex.EncodeToString(s.BlindingFactor.Serialize()),
		}
	}
	secretsJSON, err := json.Marshal(stored)
	if err != nil {
		return "", nil, err
	}

	if req.Signatures != nil {
		blob, err := json.Marshal(req.Signatures)
		if err != nil {
			return "", nil, err
		}
		b := string(blob)
		sigsBlob = &b
	}

	return string(secretsJSON), sigsBlob, nil
}

func scan(row interface{ Scan(dest ...any) error }) (treasury.Request, error) {
	var rid, keysetId, secretsBlob string
	var expiration int64
	var sigsBlob sql.NullString

	if err := row.Scan(&rid, &keysetId, &secretsBlob, &expiration, &sigsBlob); err != nil {
		return treasury.Request{}, err
	}

	var stored []storedSecret
	if err := json.Unmarshal([]byte(secretsBlob), &stored); err != nil {
		return treasury.Request{}, err
	}

	secrets := make([]treasury.PreMintSecret, len(stored))
	for i, s := range stored {
		rBytes, err := hex.DecodeString(s.BlindingFactor)
		if err != nil {
			return treasury.Request{}, err
		}
		r := secp256k1.PrivKeyFromBytes(rBytes)
		secrets[i] = treasury.PreMintSecret{Amount: s.Amount, Secret: s.Secret, BlindingFactor: r}
	}

	req := treasury.Request{
		Id:         rid,
		KeysetId:   keysetId,
		Secrets:    secrets,
		Expiration: time.Unix(expiration, 0).UTC(),
	}

	if sigsBlob.Valid {
		if err := json.Unmarshal([]byte(sigsBlob.String), &req.Signatures); err != nil {
			return treasury.Request{}, err
		}
	}

	return req, nil
}
