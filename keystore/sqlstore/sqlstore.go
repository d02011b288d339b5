// Package sqlstore is the sqlite-backed keystore.Store, grounded on the
// teacher's mint/storage/sqlite package: golang-migrate embedded
// migrations, a single *sql.DB, one connection (sqlite3 doesn't like
// concurrent writers).
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

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/crypto"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/keystore"
)

//go:embed migrations
var migrations embed.FS

type Store struct {
	db *sql.DB
}

func migrationsDir() (string, error) {
	tempDir, err := os.MkdirTemp("", "keystore-migrations")
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

// Open creates or upgrades the sqlite database at dbPath.
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

// secretEntry is the JSON-friendly shape of a keyset's key material,
// keyed by amount, hex-encoded since secp256k1 keys don't marshal.
type secretEntry struct {
	Amount     uint64 `json:"amount"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

func encodeKeys(keys map[uint64]crypto.KeyPair) (string, error) {
	entries := make([]secretEntry, 0, len(keys))
	for amount, kp := range keys {
		privBytes := kp.PrivateKey.Serialize()
		entries = append(entries, secretEntry{
			Amount:     amount,
			PrivateKey: hex.EncodeToString(privBytes),
			PublicKey:  hex.EncodeToString(kp.PublicKey.SerializeCompressed()),
		})
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

func decodeKeys(blob string) (map[uint64]crypto.KeyPair, error) {
	var entries []secretEntry
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return nil, err
	}
	keys := make(map[uint64]crypto.KeyPair, len(entries))
	for _, e := range entries {
		privBytes, err := hex.DecodeString(e.PrivateKey)
		if err != nil {
			return nil, err
		}
		pubBytes, err := hex.DecodeString(e.PublicKey)
		if err != nil {
			return nil, err
		}
		pub, err := secp256k1.ParsePubKey(pubBytes)
		if err != nil {
			return nil, err
		}
		priv := secp256k1.PrivKeyFromBytes(privBytes)
		keys[e.Amount] = crypto.KeyPair{PrivateKey: priv, PublicKey: pub}
	}
	return keys, nil
}

func encodeDerivationPath(path []uint32) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, "/")
}

func decodeDerivationPath(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	path := make([]uint32, len(parts))
	for i, p := range parts {
		var v uint32
		if _, err := fmt.Sscanf(p, "%d", &v); err != nil {
			return nil, err
		}
		path[i] = v
	}
	return path, nil
}

func (s *Store) SaveKeyset(rec keystore.KeysetRecord) error {
	secretBlob, err := encodeKeys(rec.Keys)
	if err != nil {
		return err
	}

	var conditionBlob *string
	if rec.Condition != nil {
		blob, err := json.Marshal(rec.Condition)
		if err != nil {
			return err
		}
		s := string(blob)
		conditionBlob = &s
	}

	var finalExpiry *int64
	if rec.FinalExpiry != nil {
		v := rec.FinalExpiry.Unix()
		finalExpiry = &v
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO keysets (id, unit, active, valid_from, final_expiry, derivation_path, quote_id, condition_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Id, rec.Unit, rec.Active, rec.ValidFrom.Unix(), finalExpiry, encodeDerivationPath(rec.DerivationPath), rec.QuoteId, conditionBlob)
	if err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "UNIQUE") {
			return wcerr.New(wcerr.Conflict, "keyset already exists")
		}
		return err
	}

	_, err = tx.Exec(`INSERT INTO keyset_secrets (id, secret_map_json) VALUES (?, ?)`, rec.Id, secretBlob)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *Store) scanKeyset(row interface {
	Scan(dest ...any) error
}) (keystore.KeysetRecord, error) {
	var rec keystore.KeysetRecord
	var validFrom int64
	var finalExpiry sql.NullInt64
	var derivationPath string
	var conditionBlob sql.NullString
	var secretBlob string

	if err := row.Scan(&rec.Id, &rec.Unit, &rec.Active, &validFrom, &finalExpiry,
		&derivationPath, &rec.QuoteId, &conditionBlob, &secretBlob); err != nil {
		return keystore.KeysetRecord{}, err
	}

	rec.ValidFrom = time.Unix(validFrom, 0).UTC()
	if finalExpiry.Valid {
		t := time.Unix(finalExpiry.Int64, 0).UTC()
		rec.FinalExpiry = &t
	}

	path, err := decodeDerivationPath(derivationPath)
	if err != nil {
		return keystore.KeysetRecord{}, err
	}
	rec.DerivationPath = path

	if conditionBlob.Valid {
		var cond cashu.MintCondition
		if err := json.Unmarshal([]byte(conditionBlob.String), &cond); err != nil {
			return keystore.KeysetRecord{}, err
		}
		rec.Condition = &cond
	}

	keys, err := decodeKeys(secretBlob)
	if err != nil {
		return keystore.KeysetRecord{}, err
	}
	rec.Keys = keys

	return rec, nil
}

const selectKeyset = `
	SELECT k.id, k.unit, k.active, k.valid_from, k.final_expiry, k.derivation_path, k.quote_id, k.condition_json, s.secret_map_json
	FROM keysets k JOIN keyset_secrets s ON s.id = k.id
`

func (s *Store) GetKeyset(id string) (keystore.KeysetRecord, error) {
	row := s.db.QueryRow(selectKeyset+" WHERE k.id = ?", id)
	rec, err := s.scanKeyset(row)
	if err == sql.ErrNoRows {
		return keystore.KeysetRecord{}, wcerr.New(wcerr.ResourceNotFound, "unknown keyset")
	}
	return rec, err
}

func (s *Store) GetKeysetByQuoteId(quoteId string) (keystore.KeysetRecord, error) {
	row := s.db.QueryRow(selectKeyset+" WHERE k.quote_id = ?", quoteId)
	rec, err := s.scanKeyset(row)
	if err == sql.ErrNoRows {
		return keystore.KeysetRecord{}, wcerr.New(wcerr.ResourceNotFound, "unknown keyset for quote")
	}
	return rec, err
}

func (s *Store) ListKeysets() ([]keystore.KeysetRecord, error) {
	rows, err := s.db.Query(selectKeyset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []keystore.KeysetRecord
	for rows.Next() {
		rec, err := s.scanKeyset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpdateKeysetActive(id string, active bool) error {
	res, err := s.db.Exec(`UPDATE keysets SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wcerr.New(wcerr.ResourceNotFound, "unknown keyset")
	}
	return nil
}

func (s *Store) SetMintCondition(id string, c cashu.MintCondition) error {
	blob, err := json.Marshal(c)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE keysets SET condition_json = ? WHERE id = ?`, string(blob), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wcerr.New(wcerr.ResourceNotFound, "unknown keyset")
	}
	return nil
}

func (s *Store) MarkMinted(id string) error {
	rec, err := s.GetKeyset(id)
	if err != nil {
		return err
	}
	if rec.Condition == nil {
		return wcerr.New(wcerr.InvalidRequest, "keyset has no mint condition")
	}
	rec.Condition.Minted = true
	return s.SetMintCondition(id, *rec.Condition)
}

func (s *Store) SaveSignature(keysetId string, B_ string, sig cashu.BlindedSignature) error {
	blob, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO blind_signatures (b_, keyset_id, sig_json) VALUES (?, ?, ?)
		ON CONFLICT(b_) DO UPDATE SET sig_json = excluded.sig_json
	`, B_, keysetId, string(blob))
	return err
}

func (s *Store) GetSignature(B_ string) (cashu.BlindedSignature, bool, error) {
	var blob string
	row := s.db.QueryRow(`SELECT sig_json FROM blind_signatures WHERE b_ = ?`, B_)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return cashu.BlindedSignature{}, false, nil
		}
		return cashu.BlindedSignature{}, false, err
	}
	var sig cashu.BlindedSignature
	if err := json.Unmarshal([]byte(blob), &sig); err != nil {
		return cashu.BlindedSignature{}, false, err
	}
	return sig, true, nil
}
