package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
)

// MAX_ORDER denominations are generated per keyset, amounts 2^0..2^(MAX_ORDER-1).
const MAX_ORDER = 20

const CurrencyUnit = "crsat"

type MintKeyset struct {
	Id            string
	Unit          string
	Active        bool
	QuoteId       uuid.UUID
	FinalExpiry   *time.Time
	Keys          map[uint64]KeyPair
	MintCondition *MintConditionKeys
}

// MintConditionKeys is the public half of a keyset's mint-authorization
// gate: minting blinded messages against this keyset requires a Schnorr
// signature from AuthorizedPubkey over the requested outputs, and is
// refused once TargetAmount has already been issued once.
type MintConditionKeys struct {
	TargetAmount     uint64
	AuthorizedPubkey *secp256k1.PublicKey
	Minted           bool
}

type KeyPair struct {
	PrivateKey *secp256k1.PrivateKey
	PublicKey  *secp256k1.PublicKey
}

// quoteChildren splits a quote id into four big-endian uint32 chunks,
// each becoming one non-hardened child index extending basePath. This
// reproduces, chunk for chunk, the derivation a zero UUID walks down to
// m/0/0/0/0 in the reference implementation's keyset-fingerprint test.
func quoteChildren(quote uuid.UUID) [4]uint32 {
	var chunks [4]uint32
	for i := 0; i < 4; i++ {
		// mask off the top bit: BIP32 child indices at or above 1<<31 are
		// hardened, and every hop of this path must stay a normal (not
		// hardened) derivation to match the reference fingerprint.
		chunks[i] = binary.BigEndian.Uint32(quote[i*4:i*4+4]) &^ hdkeychain.HardenedKeyStart
	}
	return chunks
}

// DeriveQuotePath walks master down basePath (already-encoded child
// indices, hardened or not, caller's choice) and then down four further
// non-hardened children derived from the quote id.
func DeriveQuotePath(master *hdkeychain.ExtendedKey, basePath []uint32, quote uuid.UUID) (*hdkeychain.ExtendedKey, error) {
	node := master
	var err error
	for _, idx := range basePath {
		node, err = node.Derive(idx)
		if err != nil {
			return nil, err
		}
	}

	for _, chunk := range quoteChildren(quote) {
		node, err = node.Derive(chunk)
		if err != nil {
			return nil, err
		}
	}

	return node, nil
}

// QuoteDerivationPath returns the full child-index path a quote's
// keyset is derived at (basePath followed by the four UUID-chunk
// indices), for record-keeping alongside a stored keyset.
func QuoteDerivationPath(basePath []uint32, quote uuid.UUID) []uint32 {
	chunks := quoteChildren(quote)
	path := make([]uint32, 0, len(basePath)+len(chunks))
	path = append(path, basePath...)
	path = append(path, chunks[:]...)
	return path
}

// GenerateKeyset derives MAX_ORDER non-hardened children off the quote
// path, child i holding the key pair for amount 2^i, and computes the
// resulting keyset's NUT-02 fingerprint id. expire may be zero, meaning
// the keyset never expires.
func GenerateKeyset(master *hdkeychain.ExtendedKey, basePath []uint32, quote uuid.UUID, expire time.Time) (*MintKeyset, error) {
	quotePath, err := DeriveQuotePath(master, basePath, quote)
	if err != nil {
		return nil, err
	}

	keys := make(map[uint64]KeyPair, MAX_ORDER)
	pks := make(PublicKeys, MAX_ORDER)
	for i := 0; i < MAX_ORDER; i++ {
		amount := uint64(1) << uint(i)

		amountPath, err := quotePath.Derive(uint32(i))
		if err != nil {
			return nil, err
		}

		privKey, err := amountPath.ECPrivKey()
		if err != nil {
			return nil, err
		}
		pubKey, err := amountPath.ECPubKey()
		if err != nil {
			return nil, err
		}

		keys[amount] = KeyPair{PrivateKey: privKey, PublicKey: pubKey}
		pks[amount] = pubKey
	}

	ks := &MintKeyset{
		Id:      DeriveKeysetId(pks),
		Unit:    CurrencyUnit,
		Active:  false,
		QuoteId: quote,
		Keys:    keys,
	}
	if !expire.IsZero() {
		ks.FinalExpiry = &expire
	}
	return ks, nil
}

type PublicKeys map[uint64]*secp256k1.PublicKey

// DeriveKeysetId returns the NUT-02 keyset fingerprint:
//   - sort public keys by amount ascending
//   - concatenate the compressed public keys
//   - SHA-256 the concatenation
//   - take the first 7 bytes (14 hex chars), prefixed with version byte "00"
func DeriveKeysetId(keyset PublicKeys) string {
	type entry struct {
		amount uint64
		pk     *secp256k1.PublicKey
	}
	entries := make([]entry, 0, len(keyset))
	for amount, key := range keyset {
		entries = append(entries, entry{amount, key})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].amount < entries[j].amount })

	concatenated := make([]byte, 0, len(entries)*33)
	for _, e := range entries {
		concatenated = append(concatenated, e.pk.SerializeCompressed()...)
	}
	hash := sha256.Sum256(concatenated)

	return "00" + hex.EncodeToString(hash[:])[:14]
}

func (ks *MintKeyset) PublicKeys() PublicKeys {
	pubkeys := make(PublicKeys, len(ks.Keys))
	for amount, key := range ks.Keys {
		pubkeys[amount] = key.PublicKey
	}
	return pubkeys
}

// MarshalJSON displays public keys sorted by amount, matching the
// canonical JSON rendering other Cashu-family implementations expect.
func (pks PublicKeys) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	amounts := make([]uint64, 0, len(pks))
	for k := range pks {
		amounts = append(amounts, k)
	}
	slices.Sort(amounts)

	for j, amount := range amounts {
		if j != 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", fmt.Sprintf("%d", amount))
		pubkey := hex.EncodeToString(pks[amount].SerializeCompressed())
		val, err := json.Marshal(pubkey)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
