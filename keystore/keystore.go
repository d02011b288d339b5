// Package keystore is the persistent mapping from a keyset id to its
// derived secrets, its lifecycle state and its signature ledger (for
// NUT-09 restore). KeyService owns the in-process logic; keystore owns
// durability.
package keystore

import (
	"time"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/crypto"
)

// KeysetRecord is a keyset's full persisted shape: its public listing
// info, its private key material and derivation coordinates, and the
// mint-authorization condition gating it (nil for a keyset that will
// never mint, only swap/redeem).
type KeysetRecord struct {
	Id             string
	Unit           string
	Active         bool
	ValidFrom      time.Time
	FinalExpiry    *time.Time
	DerivationPath []uint32
	QuoteId        string
	Keys           map[uint64]crypto.KeyPair
	Condition      *cashu.MintCondition
}

// Store is the persistence collaborator for KeyService.
type Store interface {
	SaveKeyset(KeysetRecord) error
	GetKeyset(id string) (KeysetRecord, error)
	GetKeysetByQuoteId(quoteId string) (KeysetRecord, error)
	ListKeysets() ([]KeysetRecord, error)
	UpdateKeysetActive(id string, active bool) error
	SetMintCondition(id string, c cashu.MintCondition) error
	MarkMinted(id string) error

	SaveSignature(keysetId string, B_ string, sig cashu.BlindedSignature) error
	GetSignature(B_ string) (cashu.BlindedSignature, bool, error)

	Close() error
}
