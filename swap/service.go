// Package swap is the SwapService: takes a set of already-issued
// proofs and a set of blinded message outputs, verifies the inputs are
// unspent, well-formed, amount-conserving and (if conditioned) properly
// witnessed, then atomically retires the inputs and signs the outputs.
package swap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut07"
	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut10"
	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut11"
	"github.com/wildcat-ecash/backoffice/crypto"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/keystore"
	"github.com/wildcat-ecash/backoffice/ledger"
)

// KeyService is the subset of keys.Service the SwapService needs:
// per-proof verification, per-output signing (which itself enforces
// the active-keyset requirement on the output side) and keyset lookup
// for the input-side active/inactive admissibility check.
type KeyService interface {
	Keyset(keysetId string) (keystore.KeysetRecord, error)
	VerifyProof(proof cashu.Proof) error
	SignBlind(msg cashu.BlindedMessage) (cashu.BlindedSignature, error)
}

// Service is the SwapService.
type Service struct {
	keys   KeyService
	ledger ledger.Store
	log    *obs.Logf
}

func NewService(keys KeyService, ledger ledger.Store, log *obs.Logf) *Service {
	return &Service{keys: keys, ledger: ledger, log: log}
}

func proofY(proof cashu.Proof) string {
	Y := crypto.HashToCurve([]byte(proof.Secret))
	return hex.EncodeToString(Y.SerializeCompressed())
}

// Swap verifies inputs, checks amount conservation, witnesses and DLEQ,
// atomically retires the inputs and signs the outputs. Any failure
// after the inputs are recorded as spent rolls that insertion back, so
// a failed swap never leaves the inputs half-spent.
func (s *Service) Swap(inputs cashu.Proofs, outputs cashu.BlindedMessages) (cashu.BlindedSignatures, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, wcerr.EmptyInputsOrOutputs
	}
	if cashu.CheckDuplicateProofs(inputs) {
		return nil, wcerr.New(wcerr.InvalidRequest, "duplicate proofs in inputs")
	}
	if hasDuplicateOutputs(outputs) {
		return nil, wcerr.New(wcerr.InvalidRequest, "duplicate blinded messages in outputs")
	}

	inAmount := inputs.Amount()
	outAmount := outputs.Amount()
	if inAmount == 0 || outAmount == 0 {
		return nil, wcerr.ZeroAmount
	}
	if inAmount != outAmount {
		return nil, wcerr.UnmatchingAmount
	}

	entries := make([]ledger.SpentProofEntry, len(inputs))
	for i, proof := range inputs {
		if err := s.verifyInput(proof); err != nil {
			return nil, err
		}
		entries[i] = ledger.SpentProofEntry{Y: proofY(proof), Proof: proof}
	}

	if nut11.ProofsSigAll(inputs) {
		if err := verifySigAllOutputs(inputs, outputs); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.InsertIfAbsent(entries); err != nil {
		return nil, err
	}

	sigs := make(cashu.BlindedSignatures, 0, len(outputs))
	for _, out := range outputs {
		sig, err := s.keys.SignBlind(out)
		if err != nil {
			ys := make([]string, len(entries))
			for i, e := range entries {
				ys[i] = e.Y
			}
			_ = s.ledger.Remove(ys)
			return nil, err
		}
		sigs = append(sigs, sig)
	}

	s.log.Infof("swapped %d proofs (%d crsat) for %d outputs", len(inputs), inAmount, len(outputs))
	return sigs, nil
}

// verifyInput checks a proof against its keyset (active or not — inputs
// may be redeemed off an inactive keyset), its P2PK witness if locked,
// and its DLEQ proof if present.
func (s *Service) verifyInput(proof cashu.Proof) error {
	if err := s.keys.VerifyProof(proof); err != nil {
		return err
	}

	if nut11.IsSecretP2PK(proof) {
		if err := verifyP2PKLockedProof(proof); err != nil {
			return err
		}
	}

	if proof.DLEQ != nil {
		if err := s.verifyProofDLEQ(proof); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) verifyProofDLEQ(proof cashu.Proof) error {
	rec, err := s.keys.Keyset(proof.Id)
	if err != nil {
		return wcerr.UnknownKeyset
	}
	kp, ok := rec.Keys[proof.Amount]
	if !ok {
		return wcerr.New(wcerr.InvalidRequest, "no key for proof amount")
	}

	eBytes, err := hex.DecodeString(proof.DLEQ.E)
	if err != nil {
		return wcerr.New(wcerr.InvalidRequest, "invalid dleq e")
	}
	sBytes, err := hex.DecodeString(proof.DLEQ.S)
	if err != nil {
		return wcerr.New(wcerr.InvalidRequest, "invalid dleq s")
	}
	rBytes, err := hex.DecodeString(proof.DLEQ.R)
	if err != nil {
		return wcerr.New(wcerr.InvalidRequest, "invalid dleq r")
	}
	CBytes, err := hex.DecodeString(proof.C)
	if err != nil {
		return wcerr.New(wcerr.InvalidRequest, "invalid C hex")
	}
	C, err := secp256k1.ParsePubKey(CBytes)
	if err != nil {
		return wcerr.New(wcerr.InvalidRequest, "invalid C point")
	}

	e := secp256k1.PrivKeyFromBytes(eBytes)
	sig := secp256k1.PrivKeyFromBytes(sBytes)
	r := secp256k1.PrivKeyFromBytes(rBytes)

	if !crypto.VerifyProofDLEQ([]byte(proof.Secret), r, C, kp.PublicKey, e, sig) {
		return wcerr.New(wcerr.InvalidRequest, "invalid dleq proof")
	}
	return nil
}

func pastLocktime(locktime int64) bool {
	return time.Now().Unix() > locktime
}

func hasDuplicateOutputs(outputs cashu.BlindedMessages) bool {
	seen := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		if seen[out.B_] {
			return true
		}
		seen[out.B_] = true
	}
	return false
}

// verifyP2PKLockedProof checks a single P2PK-locked input's witness,
// honoring locktime/refund fallback to anyone-can-spend.
func verifyP2PKLockedProof(proof cashu.Proof) error {
	secret, err := nut10.DeserializeSecret(proof.Secret)
	if err != nil {
		return wcerr.Newf(wcerr.InvalidRequest, "invalid secret: %v", err)
	}

	var witness nut11.P2PKWitness
	if err := json.Unmarshal([]byte(proof.Witness), &witness); err != nil {
		witness.Signatures = nil
	}

	tags, err := nut11.ParseP2PKTags(secret.Tags)
	if err != nil {
		return err
	}

	hash := sha256.Sum256([]byte(proof.Secret))
	signaturesRequired := 1

	if tags.Locktime > 0 && pastLocktime(tags.Locktime) {
		if len(tags.Refund) == 0 {
			return nil
		}
		if len(witness.Signatures) < 1 {
			return nut11.InvalidWitness
		}
		if !nut11.HasValidSignatures(hash[:], witness, signaturesRequired, tags.Refund) {
			return nut11.NotEnoughSignaturesErr
		}
		return nil
	}

	pubkey, err := nut11.ParsePublicKey(secret.Data)
	if err != nil {
		return err
	}
	keys := []*btcec.PublicKey{pubkey}

	if tags.NSigs > 0 {
		signaturesRequired = tags.NSigs
		if len(tags.Pubkeys) == 0 {
			return nut11.EmptyPubkeysErr
		}
		keys = append(keys, tags.Pubkeys...)
	}

	if len(witness.Signatures) < 1 {
		return nut11.InvalidWitness
	}
	if !nut11.HasValidSignatures(hash[:], witness, signaturesRequired, keys) {
		return nut11.NotEnoughSignaturesErr
	}
	return nil
}

// verifySigAllOutputs checks the SIG_ALL case: every input must share
// identical spending conditions, and every output carries a valid
// witness over sha256(B_) against those same keys.
func verifySigAllOutputs(proofs cashu.Proofs, outputs cashu.BlindedMessages) error {
	first, err := nut10.DeserializeSecret(proofs[0].Secret)
	if err != nil {
		return wcerr.Newf(wcerr.InvalidRequest, "invalid secret: %v", err)
	}
	pubkeys, err := nut11.PublicKeys(first)
	if err != nil {
		return err
	}
	firstTags, err := nut11.ParseP2PKTags(first.Tags)
	if err != nil {
		return err
	}
	signaturesRequired := 1
	if firstTags.NSigs > 0 {
		signaturesRequired = firstTags.NSigs
	}

	for _, proof := range proofs {
		secret, err := nut10.DeserializeSecret(proof.Secret)
		if err != nil {
			return wcerr.Newf(wcerr.InvalidRequest, "invalid secret: %v", err)
		}
		if !nut11.IsSigAll(secret) {
			return nut11.AllSigAllFlagsErr
		}

		tags, err := nut11.ParseP2PKTags(secret.Tags)
		if err != nil {
			return err
		}
		required := 1
		if tags.NSigs > 0 {
			required = tags.NSigs
		}
		keys, err := nut11.PublicKeys(secret)
		if err != nil {
			return err
		}
		if !samePublicKeys(pubkeys, keys) {
			return nut11.SigAllKeysMustBeEqualErr
		}
		if required != signaturesRequired {
			return nut11.NSigsMustBeEqualErr
		}
	}

	for _, out := range outputs {
		B_bytes, err := hex.DecodeString(out.B_)
		if err != nil {
			return wcerr.New(wcerr.InvalidRequest, "invalid B_ hex")
		}
		hash := sha256.Sum256(B_bytes)

		var witness nut11.P2PKWitness
		if err := json.Unmarshal([]byte(out.Witness), &witness); err != nil || len(witness.Signatures) < 1 {
			return nut11.InvalidWitness
		}
		if !nut11.HasValidSignatures(hash[:], witness, signaturesRequired, pubkeys) {
			return nut11.NotEnoughSignaturesErr
		}
	}
	return nil
}

func samePublicKeys(a, b []*btcec.PublicKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].IsEqual(b[i]) {
			return false
		}
	}
	return true
}

// Burn unconditionally retires a set of proofs without issuing any
// output, the administrative write-off operation: proofs owed to a
// counterparty that will never be redeemed or swapped.
func (s *Service) Burn(proofs cashu.Proofs) ([]string, error) {
	if len(proofs) == 0 {
		return nil, wcerr.EmptyInputsOrOutputs
	}
	if cashu.CheckDuplicateProofs(proofs) {
		return nil, wcerr.New(wcerr.InvalidRequest, "duplicate proofs")
	}

	entries := make([]ledger.SpentProofEntry, len(proofs))
	ys := make([]string, len(proofs))
	for i, proof := range proofs {
		if err := s.verifyInput(proof); err != nil {
			return nil, err
		}
		Y := proofY(proof)
		entries[i] = ledger.SpentProofEntry{Y: Y, Proof: proof}
		ys[i] = Y
	}

	if err := s.ledger.InsertIfAbsent(entries); err != nil {
		return nil, err
	}
	s.log.Infof("burned %d proofs (%d crsat)", len(proofs), proofs.Amount())
	return ys, nil
}

// Recover is the administrative inverse of a burn or swap: it removes
// proofs from the ledger so they become spendable again. It does not
// re-verify them; it trusts the caller (an operator action, not a
// wallet-facing one).
func (s *Service) Recover(proofs cashu.Proofs) error {
	ys := make([]string, len(proofs))
	for i, proof := range proofs {
		ys[i] = proofY(proof)
	}
	if err := s.ledger.Remove(ys); err != nil {
		return err
	}
	s.log.Infof("recovered %d proofs", len(proofs))
	return nil
}

// CheckState reports, for each given Y, whether it is spent or unspent.
// This back-office has no concept of "pending" (no outstanding
// melt/payment flow holds a proof in flight), so every Y resolves to
// either Spent or Unspent.
func (s *Service) CheckState(ys []string) ([]nut07.ProofState, error) {
	spent, err := s.ledger.Contains(ys)
	if err != nil {
		return nil, err
	}
	states := make([]nut07.ProofState, len(ys))
	for i, y := range ys {
		state := nut07.Unspent
		if spent[y] {
			state = nut07.Spent
		}
		states[i] = nut07.ProofState{Y: y, State: state}
	}
	return states, nil
}
