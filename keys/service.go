// Package keys is the KeyService: per-quote keyset lifecycle
// (generate/activate/deactivate), blind signing under the DHKE scheme,
// proof verification, mint-authorization enforcement and NUT-09
// restore. It is the custodian of every private key this back-office
// ever touches.
package keys

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut06"
	"github.com/wildcat-ecash/backoffice/crypto"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/keystore"
)

const maxOrder = crypto.MAX_ORDER

// Service is the KeyService.
type Service struct {
	store    keystore.Store
	master   *hdkeychain.ExtendedKey
	basePath []uint32
	log      *obs.Logf

	mu     sync.RWMutex
	active map[string]keystore.KeysetRecord
}

// NewService loads every currently-active keyset from store into the
// in-process cache the spec requires (§5: "KeyService caches active
// keysets; invalidation is explicit on activate/deactivate").
func NewService(store keystore.Store, master *hdkeychain.ExtendedKey, basePath []uint32, log *obs.Logf) (*Service, error) {
	s := &Service{
		store:    store,
		master:   master,
		basePath: basePath,
		log:      log,
		active:   make(map[string]keystore.KeysetRecord),
	}

	recs, err := store.ListKeysets()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.Active {
			s.active[rec.Id] = rec
		}
	}
	return s, nil
}

func isValidDenomination(amount uint64) bool {
	return amount >= 1 && amount <= 1<<(maxOrder-1) && amount&(amount-1) == 0
}

// Generate derives a new per-quote keyset and stores it inactive, gated
// by a MintCondition of {amount, authorizedPk, is_minted=false}.
func (s *Service) Generate(quoteId uuid.UUID, amount uint64, authorizedPk *secp256k1.PublicKey, expire time.Time) (string, error) {
	keyset, err := crypto.GenerateKeyset(s.master, s.basePath, quoteId, expire)
	if err != nil {
		return "", wcerr.Newf(wcerr.Internal, "deriving keyset: %v", err)
	}

	rec := keystore.KeysetRecord{
		Id:             keyset.Id,
		Unit:           keyset.Unit,
		Active:         false,
		ValidFrom:      time.Now().UTC(),
		FinalExpiry:    keyset.FinalExpiry,
		DerivationPath: crypto.QuoteDerivationPath(s.basePath, quoteId),
		QuoteId:        quoteId.String(),
		Keys:           keyset.Keys,
		Condition: &cashu.MintCondition{
			TargetAmount:     amount,
			AuthorizedPubkey: hex.EncodeToString(authorizedPk.SerializeCompressed()),
			Minted:           false,
		},
	}

	if err := s.store.SaveKeyset(rec); err != nil {
		return "", err
	}
	s.log.Infof("generated keyset %s for quote %s (target_amount=%d)", keyset.Id, quoteId, amount)
	return keyset.Id, nil
}

// Activate flips a keyset active and refreshes the in-process cache.
func (s *Service) Activate(keysetId string) error {
	rec, err := s.store.GetKeyset(keysetId)
	if err != nil {
		return err
	}
	if err := s.store.UpdateKeysetActive(keysetId, true); err != nil {
		return err
	}
	rec.Active = true

	s.mu.Lock()
	s.active[keysetId] = rec
	s.mu.Unlock()

	s.log.Infof("activated keyset %s", keysetId)
	return nil
}

// Deactivate flips a keyset inactive. Idempotent.
func (s *Service) Deactivate(keysetId string) error {
	if err := s.store.UpdateKeysetActive(keysetId, false); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.active, keysetId)
	s.mu.Unlock()

	s.log.Infof("deactivated keyset %s", keysetId)
	return nil
}

// Keyset returns a keyset's stored record by id, the read path SwapService
// uses to check active state and which public keys sign for an amount.
func (s *Service) Keyset(keysetId string) (keystore.KeysetRecord, error) {
	if rec, ok := s.cached(keysetId); ok {
		return rec, nil
	}
	return s.store.GetKeyset(keysetId)
}

func (s *Service) cached(keysetId string) (keystore.KeysetRecord, bool) {
	s.mu.RLock()
	rec, ok := s.active[keysetId]
	s.mu.RUnlock()
	return rec, ok
}

func (s *Service) signWith(rec keystore.KeysetRecord, msg cashu.BlindedMessage) (cashu.BlindedSignature, error) {
	if !isValidDenomination(msg.Amount) {
		return cashu.BlindedSignature{}, wcerr.Newf(wcerr.InvalidRequest, "amount %d is not a valid denomination", msg.Amount)
	}
	kp, ok := rec.Keys[msg.Amount]
	if !ok {
		return cashu.BlindedSignature{}, wcerr.Newf(wcerr.InvalidRequest, "keyset %s has no key for amount %d", rec.Id, msg.Amount)
	}

	B_bytes, err := hex.DecodeString(msg.B_)
	if err != nil {
		return cashu.BlindedSignature{}, wcerr.New(wcerr.InvalidRequest, "invalid B_ hex")
	}
	B_, err := secp256k1.ParsePubKey(B_bytes)
	if err != nil {
		return cashu.BlindedSignature{}, wcerr.New(wcerr.InvalidRequest, "invalid B_ point")
	}

	C_ := crypto.SignBlindedMessage(B_, kp.PrivateKey)

	e, sig0, err := crypto.GenerateDLEQ(kp.PrivateKey, kp.PublicKey, B_, C_)
	if err != nil {
		return cashu.BlindedSignature{}, wcerr.Newf(wcerr.Internal, "generating dleq: %v", err)
	}

	sig := cashu.BlindedSignature{
		Amount: msg.Amount,
		Id:     rec.Id,
		C_:     hex.EncodeToString(C_.SerializeCompressed()),
		DLEQ: &cashu.DLEQProof{
			E: hex.EncodeToString(e.Serialize()),
			S: hex.EncodeToString(sig0.Serialize()),
		},
	}

	if err := s.store.SaveSignature(rec.Id, msg.B_, sig); err != nil {
		return cashu.BlindedSignature{}, wcerr.Newf(wcerr.Internal, "persisting signature: %v", err)
	}
	return sig, nil
}

// PreSign looks up the keyset bound to quoteId (irrespective of its
// active flag — a quote's keyset may still be inactive between
// generate and activate) and signs msg against it.
func (s *Service) PreSign(quoteId uuid.UUID, msg cashu.BlindedMessage) (cashu.BlindedSignature, error) {
	rec, err := s.store.GetKeysetByQuoteId(quoteId.String())
	if err != nil {
		return cashu.BlindedSignature{}, err
	}
	if msg.Id != "" && msg.Id != rec.Id {
		return cashu.BlindedSignature{}, wcerr.New(wcerr.InvalidRequest, "blinded message keyset id does not match quote's keyset")
	}
	return s.signWith(rec, msg)
}

// SignBlind addresses the keyset directly by msg.Id and additionally
// requires it to be active.
func (s *Service) SignBlind(msg cashu.BlindedMessage) (cashu.BlindedSignature, error) {
	rec, ok := s.cached(msg.Id)
	if !ok {
		stored, err := s.store.GetKeyset(msg.Id)
		if err != nil {
			return cashu.BlindedSignature{}, wcerr.UnknownKeyset
		}
		if !stored.Active {
			return cashu.BlindedSignature{}, wcerr.InactiveKeyset
		}
		rec = stored
	}
	return s.signWith(rec, msg)
}

// VerifyProof recomputes k*HashToCurve(secret) and checks it against
// proof.C.
func (s *Service) VerifyProof(proof cashu.Proof) error {
	rec, err := s.store.GetKeyset(proof.Id)
	if err != nil {
		return wcerr.UnknownKeyset
	}
	kp, ok := rec.Keys[proof.Amount]
	if !ok {
		return wcerr.New(wcerr.InvalidRequest, "no key for proof amount")
	}
	CBytes, err := hex.DecodeString(proof.C)
	if err != nil {
		return wcerr.New(wcerr.InvalidRequest, "invalid C hex")
	}
	C, err := secp256k1.ParsePubKey(CBytes)
	if err != nil {
		return wcerr.New(wcerr.InvalidRequest, "invalid C point")
	}
	if !crypto.VerifyProof([]byte(proof.Secret), kp.PrivateKey, C) {
		return wcerr.New(wcerr.InvalidRequest, "proof failed verification")
	}
	return nil
}

// Mint enforces mint-authorization and, on success, signs every output
// and marks the keyset's condition as minted.
func (s *Service) Mint(quoteId uuid.UUID, outputs cashu.BlindedMessages, sig *schnorr.Signature) (cashu.BlindedSignatures, error) {
	rec, err := s.store.GetKeysetByQuoteId(quoteId.String())
	if err != nil {
		return nil, err
	}
	if rec.Condition == nil {
		return nil, wcerr.New(wcerr.InvalidRequest, "keyset has no mint condition")
	}
	if rec.Condition.Minted {
		return nil, wcerr.New(wcerr.Conflict, "keyset has already minted")
	}
	if outputs.Amount() != rec.Condition.TargetAmount {
		return nil, wcerr.UnmatchingAmount
	}

	pubBytes, err := hex.DecodeString(rec.Condition.AuthorizedPubkey)
	if err != nil {
		return nil, wcerr.Newf(wcerr.Internal, "decoding authorized pubkey: %v", err)
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return nil, wcerr.Newf(wcerr.Internal, "parsing authorized pubkey: %v", err)
	}
	if !crypto.VerifyMintAuthorization(sig, rec.Id, outputs, pub) {
		return nil, wcerr.New(wcerr.InvalidRequest, "invalid mint authorization signature")
	}

	sigs := make(cashu.BlindedSignatures, 0, len(outputs))
	for _, out := range outputs {
		blindSig, err := s.signWith(rec, out)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, blindSig)
	}

	if err := s.store.MarkMinted(rec.Id); err != nil {
		return nil, err
	}
	s.log.Infof("minted %d outputs (%d crsat) against keyset %s", len(outputs), rec.Condition.TargetAmount, rec.Id)
	return sigs, nil
}

// RestoreEntry pairs a requested blinded message with the signature
// KeyService previously issued for it.
type RestoreEntry struct {
	Message   cashu.BlindedMessage
	Signature cashu.BlindedSignature
}

// Restore replays previously issued signatures for the requested
// blinded messages. Unknown inputs are silently omitted, not an error,
// and the reply preserves request order.
func (s *Service) Restore(messages cashu.BlindedMessages) ([]RestoreEntry, error) {
	out := make([]RestoreEntry, 0, len(messages))
	for _, msg := range messages {
		sig, found, err := s.store.GetSignature(msg.B_)
		if err != nil {
			return nil, fmt.Errorf("looking up signature for %s: %w", msg.B_, err)
		}
		if !found {
			continue
		}
		out = append(out, RestoreEntry{Message: msg, Signature: sig})
	}
	return out, nil
}

// Info describes the service the way the teacher's mint.RetrieveMintInfo
// does: a name/pubkey/version plus the protocol extensions it supports,
// generalized to this package's own NUT-07/09/10/11/12 surface.
func (s *Service) Info(name, pubkey, version string) nut06.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return nut06.Info{
		Name:    name,
		Pubkey:  pubkey,
		Version: version,
		Nuts: nut06.NutsMap{
			7:  map[string]bool{"supported": true},
			9:  map[string]bool{"supported": true},
			10: map[string]bool{"supported": true},
			11: map[string]bool{"supported": true},
			12: map[string]bool{"supported": true},
		},
	}
}
