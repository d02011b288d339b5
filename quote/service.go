package quote

import (
	"context"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/google/uuid"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/crypto"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

func hexEncode(pk *btcec.PublicKey) string {
	return hex.EncodeToString(pk.SerializeCompressed())
}

func parsePubkey(s string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, wcerr.New(wcerr.InvalidRequest, "invalid public key encoding")
	}
	pk, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, wcerr.New(wcerr.InvalidRequest, "invalid public key")
	}
	return pk, nil
}

// KeyService is the subset of keys.Service QuoteService orchestrates:
// keyset generation at offer time, activation at accept time, and
// pre-signing the treasury's held blinded messages at accept time.
type KeyService interface {
	Generate(quoteId uuid.UUID, amount uint64, authorizedPk *btcec.PublicKey, expire time.Time) (string, error)
	Activate(keysetId string) error
	PreSign(quoteId uuid.UUID, msg cashu.BlindedMessage) (cashu.BlindedSignature, error)
}

// Treasury is the subset of TreasuryCore QuoteService orchestrates.
type Treasury interface {
	GenerateBlinds(keysetId string, total uint64) (requestId string, messages cashu.BlindedMessages, err error)
	StoreSignatures(requestId string, expiration time.Time, signatures cashu.BlindedSignatures) error
}

// Service is the QuoteService.
type Service struct {
	store    Store
	keys     KeyService
	treasury Treasury
	log      *obs.Logf

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewService(store Store, keys KeyService, treasury Treasury, log *obs.Logf) *Service {
	return &Service{
		store:    store,
		keys:     keys,
		treasury: treasury,
		log:      log,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// withQuoteLock serializes every state transition on a given quote id
// behind its own mutex (spec §5: "QuoteService state transitions are
// guarded by a per-quote mutual-exclusion token"), so unrelated quotes
// never contend.
func (s *Service) withQuoteLock(id uuid.UUID, fn func() error) error {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}

// Enquire verifies the bill's current holder signed it, then stores a
// new Pending quote.
func (s *Service) Enquire(bill BillInfo, holderPubkey *btcec.PublicKey, signature *schnorr.Signature, mintPubkey *btcec.PublicKey, now time.Time) (uuid.UUID, error) {
	if !crypto.SchnorrVerify(signature, canonicalBillBytes(bill), holderPubkey) {
		return uuid.Nil, wcerr.New(wcerr.InvalidRequest, "invalid bill signature")
	}
	if !bill.MaturityDate.After(now) {
		return uuid.Nil, wcerr.New(wcerr.InvalidRequest, "bill maturity date must be after submission")
	}

	q := Quote{
		Id:        uuid.New(),
		Bill:      bill,
		Submitted: now,
		Status: Status{
			Tag:              Pending,
			AuthorizedPubkey: hexEncode(mintPubkey),
		},
	}
	if err := s.store.Save(q); err != nil {
		return uuid.Nil, err
	}
	s.log.Infof("quote %s enquired for bill %s (sum=%d)", q.Id, bill.Id, bill.Sum)
	return q.Id, nil
}

func (s *Service) Lookup(id uuid.UUID) (Status, error) {
	q, err := s.store.Get(id)
	if err != nil {
		return Status{}, err
	}
	return q.Status, nil
}

// List applies filters then sort over every stored quote.
func (s *Service) List(filters Filters, order SortOrder) ([]LightQuote, error) {
	quotes, err := s.store.List()
	if err != nil {
		return nil, err
	}

	out := make([]LightQuote, 0, len(quotes))
	for _, q := range quotes {
		if filters.match(q) {
			out = append(out, toLight(q))
		}
	}

	switch order {
	case SortMaturityAsc:
		sort.Slice(out, func(i, j int) bool { return out[i].MaturityDate.Before(out[j].MaturityDate) })
	case SortMaturityDesc:
		sort.Slice(out, func(i, j int) bool { return out[i].MaturityDate.After(out[j].MaturityDate) })
	}
	return out, nil
}

// Cancel transitions Pending -> Canceled.
func (s *Service) Cancel(id uuid.UUID, now time.Time) error {
	return s.withQuoteLock(id, func() error {
		q, err := s.store.Get(id)
		if err != nil {
			return err
		}
		if q.Status.Tag != Pending {
			return wcerr.QuoteAlreadyResolved
		}
		q.Status = Status{Tag: Canceled, At: now}
		return s.store.Update(q)
	})
}

// Deny transitions Pending -> Denied.
func (s *Service) Deny(id uuid.UUID, now time.Time) error {
	return s.withQuoteLock(id, func() error {
		q, err := s.store.Get(id)
		if err != nil {
			return err
		}
		if q.Status.Tag != Pending {
			return wcerr.QuoteAlreadyResolved
		}
		q.Status = Status{Tag: Denied, At: now}
		return s.store.Update(q)
	})
}

// Offer transitions Pending -> Offered: generates a keyset for the
// bill's full sum and pre-issues blinded messages for the discounted
// amount through Treasury.
func (s *Service) Offer(id uuid.UUID, discounted uint64, ttl time.Time, now time.Time) error {
	return s.withQuoteLock(id, func() error {
		q, err := s.store.Get(id)
		if err != nil {
			return err
		}
		if q.Status.Tag != Pending {
			return wcerr.QuoteAlreadyResolved
		}
		if discounted > q.Bill.Sum {
			return wcerr.New(wcerr.InvalidRequest, "discounted amount exceeds bill sum")
		}
		if !ttl.After(now) {
			return wcerr.New(wcerr.InvalidRequest, "ttl must be in the future")
		}

		authorizedPk, err := parsePubkey(q.Status.AuthorizedPubkey)
		if err != nil {
			return err
		}
		keysetId, err := s.keys.Generate(id, q.Bill.Sum, authorizedPk, q.Bill.MaturityDate)
		if err != nil {
			return err
		}

		requestId, messages, err := s.treasury.GenerateBlinds(keysetId, discounted)
		if err != nil {
			return err
		}

		q.Status = Status{Tag: Offered, KeysetId: keysetId, TTL: ttl, Discounted: discounted}
		q.PendingMint = &PendingMint{RequestId: requestId, BlindedMessages: messages}
		if err := s.store.Update(q); err != nil {
			return err
		}
		s.log.Infof("quote %s offered: keyset=%s discounted=%d ttl=%s", id, keysetId, discounted, ttl)
		return nil
	})
}

// Accept transitions Offered -> Accepted, first checking for expiry.
// On success it activates the keyset, replays the held blinded
// messages through KeyService.PreSign, and reports the resulting
// signatures to Treasury.
func (s *Service) Accept(id uuid.UUID, now time.Time) error {
	return s.withQuoteLock(id, func() error {
		q, err := s.store.Get(id)
		if err != nil {
			return err
		}
		if q.Status.Tag != Offered {
			return wcerr.QuoteAlreadyResolved
		}
		if !q.Status.TTL.After(now) {
			q.Status = Status{Tag: OfferExpired, Discounted: q.Status.Discounted, At: now}
			q.PendingMint = nil
			if err := s.store.Update(q); err != nil {
				return err
			}
			return wcerr.QuoteAlreadyResolved
		}

		keysetId := q.Status.KeysetId
		if err := s.keys.Activate(keysetId); err != nil {
			return err
		}

		sigs := make(cashu.BlindedSignatures, 0, len(q.PendingMint.BlindedMessages))
		for _, msg := range q.PendingMint.BlindedMessages {
			sig, err := s.keys.PreSign(id, msg)
			if err != nil {
				return err
			}
			sigs = append(sigs, sig)
		}

		if err := s.treasury.StoreSignatures(q.PendingMint.RequestId, q.Status.TTL, sigs); err != nil {
			return err
		}

		q.Status = Status{Tag: Accepted, KeysetId: keysetId, Discounted: q.Status.Discounted}
		q.PendingMint = nil
		if err := s.store.Update(q); err != nil {
			return err
		}
		s.log.Infof("quote %s accepted: keyset=%s discounted=%d", id, keysetId, sigs.Amount())
		return nil
	})
}

// Reject transitions Offered -> Rejected.
func (s *Service) Reject(id uuid.UUID, now time.Time) error {
	return s.withQuoteLock(id, func() error {
		q, err := s.store.Get(id)
		if err != nil {
			return err
		}
		if q.Status.Tag != Offered {
			return wcerr.QuoteAlreadyResolved
		}
		q.Status = Status{Tag: Rejected, Discounted: q.Status.Discounted, At: now}
		q.PendingMint = nil
		return s.store.Update(q)
	})
}

// ExpireSweep transitions every Offered quote whose ttl has passed to
// OfferExpired. Returns the number of quotes it transitioned.
func (s *Service) ExpireSweep(now time.Time) (int, error) {
	quotes, err := s.store.List()
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, q := range quotes {
		if q.Status.Tag != Offered || q.Status.TTL.After(now) {
			continue
		}
		transitioned := false
		err := s.withQuoteLock(q.Id, func() error {
			cur, err := s.store.Get(q.Id)
			if err != nil {
				return err
			}
			if cur.Status.Tag != Offered || cur.Status.TTL.After(now) {
				return nil
			}
			cur.Status = Status{Tag: OfferExpired, Discounted: cur.Status.Discounted, At: now}
			cur.PendingMint = nil
			if err := s.store.Update(cur); err != nil {
				return err
			}
			transitioned = true
			return nil
		})
		if err != nil {
			return swept, err
		}
		if transitioned {
			swept++
		}
	}
	if swept > 0 {
		s.log.Infof("expire_sweep transitioned %d offer(s) to OfferExpired", swept)
	}
	return swept, nil
}

// StartExpireSweep runs ExpireSweep on a ticker until ctx is canceled.
// Callers typically run this in its own goroutine at startup.
func (s *Service) StartExpireSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireSweep(time.Now()); err != nil {
				s.log.Errorf("expire_sweep failed: %v", err)
			}
		}
	}
}
