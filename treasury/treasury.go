// Package treasury is TreasuryCore: the per-keyset deterministic
// secret counter, pre-mint secret bundles, signature persistence
// against an outstanding request, and redemption of credit proofs
// into real settlement via a wallet collaborator.
package treasury

import (
	"time"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/keystore"
)

// Request is a pending generate_blinds call's working state: the
// PreMintSecrets it derived, and once store_signatures runs, the
// signatures and the expiration they were issued under.
type Request struct {
	Id         string
	KeysetId   string
	Secrets    []PreMintSecret
	Signatures cashu.BlindedSignatures
	Expiration time.Time
}

// Balances is TreasuryCore.balances' reply.
type Balances struct {
	CrsatBalance uint64
	SatBalance   uint64
}

// Wallet is TreasuryCore's on-chain settlement collaborator, the
// idiomatic analogue of a Lightning backend client: TreasuryCore
// never touches keys or UTXOs directly, only this narrow interface.
type Wallet interface {
	ConfirmedBalance() (uint64, error)
	Payout(amount uint64, destination string) (txid string, err error)
}

// KeyService is the subset of keys.Service TreasuryCore orchestrates:
// reading a keyset's public keys to unblind its own redeem-path
// signatures, and deactivating a fully-redeemed e-bill's keyset.
type KeyService interface {
	Keyset(keysetId string) (keystore.KeysetRecord, error)
	Deactivate(keysetId string) error
}

// SwapService is the subset of swap.Service TreasuryCore orchestrates
// during redeem: swapping the redeemer's credit proofs into
// treasury-controlled proofs, then burning them for good.
type SwapService interface {
	Swap(inputs cashu.Proofs, outputs cashu.BlindedMessages) (cashu.BlindedSignatures, error)
	Burn(proofs cashu.Proofs) ([]string, error)
}
