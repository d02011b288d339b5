package treasury

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/crypto"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

// Service is TreasuryCore.
type Service struct {
	master *hdkeychain.ExtendedKey
	store  Store
	keys   KeyService
	swap   SwapService
	wallet Wallet
	log    *obs.Logf

	countersMu sync.Mutex
	counters   map[string]*sync.Mutex
}

func NewService(master *hdkeychain.ExtendedKey, store Store, keys KeyService, swap SwapService, wallet Wallet, log *obs.Logf) *Service {
	return &Service{
		master:   master,
		store:    store,
		keys:     keys,
		swap:     swap,
		wallet:   wallet,
		log:      log,
		counters: make(map[string]*sync.Mutex),
	}
}

func (s *Service) counterLock(keysetId string) *sync.Mutex {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	l, ok := s.counters[keysetId]
	if !ok {
		l = &sync.Mutex{}
		s.counters[keysetId] = l
	}
	return l
}

// GenerateBlinds reads keysetId's counter, derives PreMintSecrets
// reproducibly from that counter onward, splits total into the
// canonical power-of-two decomposition (largest first), blinds each
// secret, and advances the counter by the number of messages issued.
// Concurrent calls on the same keyset serialize; distinct keysets
// proceed independently.
func (s *Service) GenerateBlinds(keysetId string, total uint64) (string, cashu.BlindedMessages, error) {
	lock := s.counterLock(keysetId)
	lock.Lock()
	defer lock.Unlock()

	counter, err := s.store.Counter(keysetId)
	if err != nil {
		return "", nil, err
	}

	amounts := cashu.AmountSplit(total)
	for i, j := 0, len(amounts)-1; i < j; i, j = i+1, j-1 {
		amounts[i], amounts[j] = amounts[j], amounts[i]
	}

	preMint, err := derivePreMintSecrets(s.master, keysetId, counter, amounts)
	if err != nil {
		return "", nil, err
	}

	messages := make(cashu.BlindedMessages, 0, len(preMint))
	for _, pm := range preMint {
		B_, _ := crypto.BlindMessage([]byte(pm.Secret), pm.BlindingFactor.Serialize())
		messages = append(messages, cashu.NewBlindedMessage(keysetId, pm.Amount, B_))
	}

	requestId := uuid.NewString()
	req := Request{Id: requestId, KeysetId: keysetId, Secrets: preMint}
	if err := s.store.SaveRequest(req); err != nil {
		return "", nil, err
	}
	if err := s.store.AdvanceCounter(keysetId, uint32(len(amounts))); err != nil {
		return "", nil, err
	}

	s.log.Infof("generated %d blind(s) for keyset %s (total=%d request=%s)", len(amounts), keysetId, total, requestId)
	return requestId, messages, nil
}

// StoreSignatures persists the signatures KeyService issued against a
// prior generate_blinds request, along with the expiration they carry.
func (s *Service) StoreSignatures(requestId string, expiration time.Time, signatures cashu.BlindedSignatures) error {
	req, err := s.store.GetRequest(requestId)
	if err != nil {
		return err
	}
	req.Signatures = signatures
	req.Expiration = expiration
	return s.store.UpdateRequest(req)
}

// Redeem settles a holder's credit proofs for real value: the inputs
// are swapped into treasury-controlled proofs of the same keyset,
// those proofs are immediately burned to retire the credit for good,
// the wallet pays the destination the equivalent on-chain amount, and
// the keyset — now fully redeemed — is deactivated.
func (s *Service) Redeem(keysetId string, inputs cashu.Proofs, destination string) (txid string, err error) {
	total := inputs.Amount()

	lock := s.counterLock(keysetId)
	lock.Lock()
	counter, err := s.store.Counter(keysetId)
	if err != nil {
		lock.Unlock()
		return "", err
	}
	amounts := cashu.AmountSplit(total)
	preMint, err := derivePreMintSecrets(s.master, keysetId, counter, amounts)
	if err != nil {
		lock.Unlock()
		return "", err
	}
	if err := s.store.AdvanceCounter(keysetId, uint32(len(amounts))); err != nil {
		lock.Unlock()
		return "", err
	}
	lock.Unlock()

	outputs := make(cashu.BlindedMessages, 0, len(preMint))
	for _, pm := range preMint {
		B_, _ := crypto.BlindMessage([]byte(pm.Secret), pm.BlindingFactor.Serialize())
		outputs = append(outputs, cashu.NewBlindedMessage(keysetId, pm.Amount, B_))
	}

	sigs, err := s.swap.Swap(inputs, outputs)
	if err != nil {
		return "", err
	}

	proofs, err := unblindToProofs(s.keys, keysetId, preMint, sigs)
	if err != nil {
		return "", err
	}

	if _, err := s.swap.Burn(proofs); err != nil {
		return "", err
	}

	txid, err = s.wallet.Payout(total, destination)
	if err != nil {
		return "", err
	}

	if err := s.keys.Deactivate(keysetId); err != nil {
		return "", err
	}
	if err := s.store.AddRedeemed(total); err != nil {
		return "", err
	}

	s.log.Infof("redeemed %d from keyset %s: txid=%s", total, keysetId, txid)
	return txid, nil
}

// Balances reports the outstanding credit supply (every signature this
// treasury has ever issued, minus everything redeemed since) and the
// wallet's confirmed on-chain balance, verbatim.
func (s *Service) Balances() (Balances, error) {
	requests, err := s.store.ListRequests()
	if err != nil {
		return Balances{}, err
	}
	var issued uint64
	for _, req := range requests {
		issued += req.Signatures.Amount()
	}

	redeemed, err := s.store.RedeemedTotal()
	if err != nil {
		return Balances{}, err
	}

	satBalance, err := s.wallet.ConfirmedBalance()
	if err != nil {
		return Balances{}, err
	}

	return Balances{CrsatBalance: issued - redeemed, SatBalance: satBalance}, nil
}

func unblindToProofs(keys KeyService, keysetId string, preMint []PreMintSecret, sigs cashu.BlindedSignatures) (cashu.Proofs, error) {
	rec, err := keys.Keyset(keysetId)
	if err != nil {
		return nil, err
	}

	proofs := make(cashu.Proofs, 0, len(preMint))
	for i, pm := range preMint {
		sig := sigs[i]
		C_bytes, err := hex.DecodeString(sig.C_)
		if err != nil {
			return nil, err
		}
		C_, err := secp256k1.ParsePubKey(C_bytes)
		if err != nil {
			return nil, err
		}
		pair, ok := rec.Keys[pm.Amount]
		if !ok {
			return nil, wcerr.UnknownKeyset
		}
		C := crypto.UnblindSignature(C_, pm.BlindingFactor, pair.PublicKey)
		proofs = append(proofs, cashu.Proof{
			Amount: pm.Amount,
			Id:     keysetId,
			Secret: pm.Secret,
			C:      hex.EncodeToString(C.SerializeCompressed()),
		})
	}
	return proofs, nil
}
