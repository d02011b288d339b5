// Package cashu contains the core wire structs shared by every wildcat
// back-office service: blinded messages and signatures, proofs, amounts
// and the currency unit they are denominated in.
package cashu

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Unit is the currency a keyset's denominations are expressed in. The
// back-office only ever mints the discounted-credit unit; Sat exists so
// a keyset can describe a settlement-side (on-chain) amount when the
// treasury quotes a debit redemption.
type Unit int

const (
	CrSat Unit = iota
	Sat
)

func (u Unit) String() string {
	switch u {
	case CrSat:
		return "crsat"
	case Sat:
		return "sat"
	default:
		return "unknown"
	}
}

// BlindedMessage is a single blinded output requested of a keyset.
type BlindedMessage struct {
	Amount  uint64 `json:"amount"`
	B_      string `json:"B_"`
	Id      string `json:"id"`
	Witness string `json:"witness,omitempty"`
}

func NewBlindedMessage(id string, amount uint64, B_ *secp256k1.PublicKey) BlindedMessage {
	return BlindedMessage{Amount: amount, B_: hex.EncodeToString(B_.SerializeCompressed()), Id: id}
}

type BlindedMessages []BlindedMessage

func (bm BlindedMessages) Amount() uint64 {
	var total uint64
	for _, msg := range bm {
		total += msg.Amount
	}
	return total
}

// SortBlindedMessages sorts messages, their secrets and blinding factors
// in lock-step by amount, ascending. The sort is not stable: entries of
// equal amount may change their relative order.
func SortBlindedMessages(messages BlindedMessages, secrets []string, rs []*secp256k1.PrivateKey) {
	for i := 0; i < len(messages)-1; i++ {
		for j := i + 1; j < len(messages); j++ {
			if messages[i].Amount > messages[j].Amount {
				messages[i], messages[j] = messages[j], messages[i]
				secrets[i], secrets[j] = secrets[j], secrets[i]
				rs[i], rs[j] = rs[j], rs[i]
			}
		}
	}
}

// BlindedSignature is a keyset's signature over a blinded output.
type BlindedSignature struct {
	Amount uint64 `json:"amount"`
	C_     string `json:"C_"`
	Id     string `json:"id"`
	// pointer so omitempty suppresses the field entirely when no DLEQ
	// proof was requested, rather than marshalling an empty struct.
	DLEQ *DLEQProof `json:"dleq,omitempty"`
}

type BlindedSignatures []BlindedSignature

func (bs BlindedSignatures) Amount() uint64 {
	var total uint64
	for _, sig := range bs {
		total += sig.Amount
	}
	return total
}

// Proof is an unblinded, spendable token: a signature the holder can
// present back to redeem or swap.
type Proof struct {
	Amount  uint64     `json:"amount"`
	Id      string     `json:"id"`
	Secret  string     `json:"secret"`
	C       string     `json:"C"`
	Witness string     `json:"witness,omitempty"`
	DLEQ    *DLEQProof `json:"dleq,omitempty"`
}

type Proofs []Proof

func (p Proofs) Amount() uint64 {
	var total uint64
	for _, proof := range p {
		total += proof.Amount
	}
	return total
}

type DLEQProof struct {
	E string `json:"e"`
	S string `json:"s"`
	R string `json:"r,omitempty"`
}

// MintCondition gates whether a keyset may ever be used to mint (sign
// blinded messages against an e-bill redemption) rather than only swap
// already-issued proofs. A keyset without one can never mint, only swap
// or be redeemed at the treasury.
type MintCondition struct {
	TargetAmount     uint64 `json:"target_amount"`
	AuthorizedPubkey string `json:"authorized_public_key"`
	Minted           bool   `json:"is_minted"`
}

// AmountSplit decomposes amount into the minimal set of powers of two
// that sum to it, ascending. split(1000) == [8,32,64,128,256,512].
func AmountSplit(amount uint64) []uint64 {
	rv := make([]uint64, 0)
	for pos := 0; amount > 0; pos++ {
		if amount&1 == 1 {
			rv = append(rv, 1<<pos)
		}
		amount >>= 1
	}
	return rv
}

func CheckDuplicateProofs(proofs Proofs) bool {
	seen := make(map[Proof]bool, len(proofs))
	for _, proof := range proofs {
		if seen[proof] {
			return true
		}
		seen[proof] = true
	}
	return false
}

// GenerateRandomId returns a hex-encoded SHA-256 of 32 random bytes, the
// same construction gonuts uses for mint/melt quote ids, reused here for
// treasury request ids.
func GenerateRandomId() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	hash := sha256.Sum256(randomBytes)
	return hex.EncodeToString(hash[:]), nil
}

func Max(x, y uint64) uint64 {
	if x > y {
		return x
	}
	return y
}
