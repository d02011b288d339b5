// Package nut11 implements pay-to-public-key spending conditions: a
// proof whose secret carries a P2PK envelope can only be swapped or
// redeemed alongside a witness signature from one of its listed keys.
package nut11

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"slices"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut10"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

const (
	SIGFLAG  = "sigflag"
	NSIGS    = "n_sigs"
	PUBKEYS  = "pubkeys"
	LOCKTIME = "locktime"
	REFUND   = "refund"

	SIGINPUTS = "SIG_INPUTS"
	SIGALL    = "SIG_ALL"
)

type SigFlag int

const (
	SigInputs SigFlag = iota
	SigAll
	Unknown
)

var (
	InvalidTagErr            = wcerr.New(wcerr.InvalidRequest, "invalid tag")
	TooManyTagsErr           = wcerr.New(wcerr.InvalidRequest, "too many tags")
	NSigsMustBePositiveErr   = wcerr.New(wcerr.InvalidRequest, "n_sigs must be a positive integer")
	EmptyWitnessErr          = wcerr.New(wcerr.InvalidRequest, "witness cannot be empty")
	AllSigAllFlagsErr        = wcerr.New(wcerr.InvalidRequest, "all flags must be SIG_ALL")
	SigAllKeysMustBeEqualErr = wcerr.New(wcerr.InvalidRequest, "all public keys must be the same for SIG_ALL")
	SigAllOnlySwap           = wcerr.New(wcerr.InvalidRequest, "SIG_ALL can only be used in a swap operation")
	NSigsMustBeEqualErr      = wcerr.New(wcerr.InvalidRequest, "all n_sigs must be the same for SIG_ALL")
	InvalidWitness           = wcerr.New(wcerr.InvalidRequest, "invalid or missing witness")
	NotEnoughSignaturesErr   = wcerr.NotEnoughSignatures
	EmptyPubkeysErr          = wcerr.New(wcerr.InvalidRequest, "pubkeys tag cannot be empty when n_sigs is set")
)

type P2PKWitness struct {
	Signatures []string `json:"signatures"`
}

type P2PKTags struct {
	Sigflag  string
	NSigs    int
	Pubkeys  []*btcec.PublicKey
	Locktime int64
	Refund   []*btcec.PublicKey
}

// NewP2PKSecret returns a proof secret locking ecash to pubkey.
func NewP2PKSecret(pubkey string) (string, error) {
	return nut10.NewSecretFromSpendingCondition(nut10.SpendingCondition{
		Kind: nut10.P2PK,
		Data: pubkey,
	})
}

func ParseP2PKTags(tags [][]string) (*P2PKTags, error) {
	if len(tags) > 5 {
		return nil, TooManyTagsErr
	}

	p2pkTags := P2PKTags{}
	for _, tag := range tags {
		if len(tag) < 2 {
			return nil, InvalidTagErr
		}
		switch tag[0] {
		case SIGFLAG:
			if tag[1] == SIGINPUTS || tag[1] == SIGALL {
				p2pkTags.Sigflag = tag[1]
			} else {
				return nil, wcerr.Newf(wcerr.InvalidRequest, "invalid sigflag: %v", tag[1])
			}
		case NSIGS:
			nsig, err := strconv.ParseInt(tag[1], 10, 8)
			if err != nil {
				return nil, wcerr.Newf(wcerr.InvalidRequest, "invalid n_sigs value: %v", err)
			}
			if nsig < 0 {
				return nil, NSigsMustBePositiveErr
			}
			p2pkTags.NSigs = int(nsig)
		case PUBKEYS:
			pubkeys := make([]*btcec.PublicKey, 0, len(tag)-1)
			for i := 1; i < len(tag); i++ {
				pubkey, err := ParsePublicKey(tag[i])
				if err != nil {
					return nil, err
				}
				pubkeys = append(pubkeys, pubkey)
			}
			p2pkTags.Pubkeys = pubkeys
		case LOCKTIME:
			locktime, err := strconv.ParseInt(tag[1], 10, 64)
			if err != nil {
				return nil, wcerr.Newf(wcerr.InvalidRequest, "invalid locktime: %v", err)
			}
			p2pkTags.Locktime = locktime
		case REFUND:
			refund := make([]*btcec.PublicKey, 0, len(tag)-1)
			for i := 1; i < len(tag); i++ {
				pubkey, err := ParsePublicKey(tag[i])
				if err != nil {
					return nil, err
				}
				refund = append(refund, pubkey)
			}
			p2pkTags.Refund = refund
		}
	}

	return &p2pkTags, nil
}

func AddSignatureToInputs(inputs cashu.Proofs, signingKey *btcec.PrivateKey) (cashu.Proofs, error) {
	for i, proof := range inputs {
		hash := sha256.Sum256([]byte(proof.Secret))
		signature, err := schnorr.Sign(signingKey, hash[:])
		if err != nil {
			return nil, err
		}

		witness, err := json.Marshal(P2PKWitness{Signatures: []string{hex.EncodeToString(signature.Serialize())}})
		if err != nil {
			return nil, err
		}
		proof.Witness = string(witness)
		inputs[i] = proof
	}
	return inputs, nil
}

func AddSignatureToOutputs(outputs cashu.BlindedMessages, signingKey *btcec.PrivateKey) (cashu.BlindedMessages, error) {
	for i, output := range outputs {
		msgToSign, err := hex.DecodeString(output.B_)
		if err != nil {
			return nil, err
		}
		hash := sha256.Sum256(msgToSign)
		signature, err := schnorr.Sign(signingKey, hash[:])
		if err != nil {
			return nil, err
		}

		witness, err := json.Marshal(P2PKWitness{Signatures: []string{hex.EncodeToString(signature.Serialize())}})
		if err != nil {
			return nil, err
		}
		output.Witness = string(witness)
		outputs[i] = output
	}
	return outputs, nil
}

// PublicKeys returns every key that may sign for a P2PK locked proof:
// the primary key plus any additional keys listed in the pubkeys tag.
func PublicKeys(secret nut10.WellKnownSecret) ([]*btcec.PublicKey, error) {
	p2pkTags, err := ParseP2PKTags(secret.Tags)
	if err != nil {
		return nil, err
	}
	pubkey, err := ParsePublicKey(secret.Data)
	if err != nil {
		return nil, err
	}
	return append([]*btcec.PublicKey{pubkey}, p2pkTags.Pubkeys...), nil
}

func IsSecretP2PK(proof cashu.Proof) bool {
	return nut10.SecretType(proof) == nut10.P2PK
}

// ProofsSigAll reports whether at least one of the proofs carries a
// SIG_ALL flag.
func ProofsSigAll(proofs cashu.Proofs) bool {
	for _, proof := range proofs {
		secret, err := nut10.DeserializeSecret(proof.Secret)
		if err != nil {
			continue
		}
		if IsSigAll(secret) {
			return true
		}
	}
	return false
}

func IsSigAll(secret nut10.WellKnownSecret) bool {
	for _, tag := range secret.Tags {
		if len(tag) == 2 && tag[0] == SIGFLAG && tag[1] == SIGALL {
			return true
		}
	}
	return false
}

func CanSign(secret nut10.WellKnownSecret, key *btcec.PrivateKey) bool {
	publicKey, err := ParsePublicKey(secret.Data)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(publicKey.SerializeCompressed(), key.PubKey().SerializeCompressed())
}

// HasValidSignatures counts distinct valid signatures against the
// candidate key list (each key can only be matched once, so a single
// signature can't be double-counted toward the threshold) and reports
// whether it meets nSigs.
func HasValidSignatures(hash []byte, witness P2PKWitness, nSigs int, pubkeys []*btcec.PublicKey) bool {
	remaining := make([]*btcec.PublicKey, len(pubkeys))
	copy(remaining, pubkeys)

	valid := 0
	for _, signature := range witness.Signatures {
		sig, err := ParseSignature(signature)
		if err != nil {
			continue
		}
		for i, pubkey := range remaining {
			if sig.Verify(hash, pubkey) {
				valid++
				if len(remaining) > 1 {
					remaining = slices.Delete(remaining, i, i+1)
				}
				break
			}
		}
	}

	return valid >= nSigs
}

func ParsePublicKey(key string) (*btcec.PublicKey, error) {
	hexPubkey, err := hex.DecodeString(key)
	if err != nil {
		return nil, wcerr.Newf(wcerr.InvalidRequest, "invalid public key: %v", err)
	}
	pubkey, err := btcec.ParsePubKey(hexPubkey)
	if err != nil {
		return nil, wcerr.Newf(wcerr.InvalidRequest, "invalid public key: %v", err)
	}
	return pubkey, nil
}

func ParseSignature(signature string) (*schnorr.Signature, error) {
	hexSig, err := hex.DecodeString(signature)
	if err != nil {
		return nil, wcerr.Newf(wcerr.InvalidRequest, "invalid signature: %v", err)
	}
	sig, err := schnorr.ParseSignature(hexSig)
	if err != nil {
		return nil, wcerr.Newf(wcerr.InvalidRequest, "invalid signature: %v", err)
	}
	return sig, nil
}

