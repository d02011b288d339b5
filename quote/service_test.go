package quote

import (
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/crypto"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/keys"
	keystoremem "github.com/wildcat-ecash/backoffice/keystore/memstore"
	quotemem "github.com/wildcat-ecash/backoffice/quote/memstore"
)

func testLog(t *testing.T) *obs.Logf {
	t.Helper()
	log, err := obs.New(t.TempDir()+"/test.log", obs.Info)
	require.NoError(t, err)
	return &obs.Logf{Logger: log}
}

func testMaster(t *testing.T) *hdkeychain.ExtendedKey {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)
	return master
}

// fakeTreasury is a minimal in-memory stand-in for TreasuryCore, just
// enough to exercise QuoteService's offer/accept flow: it hands back a
// fresh blinded message per denomination and records whatever
// signatures get reported back against it.
type fakeTreasury struct {
	mu         sync.Mutex
	held       map[string]cashu.BlindedSignatures
	expiration map[string]time.Time
}

func newFakeTreasury() *fakeTreasury {
	return &fakeTreasury{held: make(map[string]cashu.BlindedSignatures), expiration: make(map[string]time.Time)}
}

func (f *fakeTreasury) GenerateBlinds(keysetId string, total uint64) (string, cashu.BlindedMessages, error) {
	msgs := make(cashu.BlindedMessages, 0)
	for _, amt := range cashu.AmountSplit(total) {
		B_, _ := crypto.BlindMessage([]byte(uuid.NewString()), nil)
		msgs = append(msgs, cashu.NewBlindedMessage(keysetId, amt, B_))
	}
	return uuid.NewString(), msgs, nil
}

func (f *fakeTreasury) StoreSignatures(requestId string, expiration time.Time, signatures cashu.BlindedSignatures) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held[requestId] = signatures
	f.expiration[requestId] = expiration
	return nil
}

func (f *fakeTreasury) signaturesFor(requestId string) cashu.BlindedSignatures {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held[requestId]
}

func newTestQuoteService(t *testing.T) (*Service, *keys.Service, *fakeTreasury) {
	t.Helper()
	log, err := obs.New(t.TempDir()+"/keys.log", obs.Info)
	require.NoError(t, err)
	keysvc, err := keys.NewService(keystoremem.New(), testMaster(t), nil, &obs.Logf{Logger: log})
	require.NoError(t, err)

	treasury := newFakeTreasury()
	svc := NewService(quotemem.New(), keysvc, treasury, testLog(t))
	return svc, keysvc, treasury
}

func testBill(sum uint64, maturity time.Time) BillInfo {
	return BillInfo{
		Id:           "bill-" + uuid.NewString(),
		Drawee:       "drawee",
		Drawer:       "drawer",
		Payee:        "payee",
		Sum:          sum,
		MaturityDate: maturity,
	}
}

func enquireTestQuote(t *testing.T, svc *Service, bill BillInfo, now time.Time) (uuid.UUID, *btcec.PublicKey) {
	t.Helper()
	holderPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	mintPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	mintPub := mintPriv.PubKey()

	sig, err := crypto.SchnorrSign(holderPriv, canonicalBillBytes(bill))
	require.NoError(t, err)

	id, err := svc.Enquire(bill, holderPriv.PubKey(), sig, mintPub, now)
	require.NoError(t, err)
	return id, mintPub
}

func TestQuoteLifecycleOfferAccept(t *testing.T) {
	svc, keysvc, treasury := newTestQuoteService(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bill := testBill(1000, now.Add(90*24*time.Hour))

	id, _ := enquireTestQuote(t, svc, bill, now)

	status, err := svc.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, Pending, status.Tag)

	ttl := now.Add(time.Hour)
	require.NoError(t, svc.Offer(id, 900, ttl, now))

	status, err = svc.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, Offered, status.Tag)
	assert.Equal(t, uint64(900), status.Discounted)

	offered, err := svc.store.Get(id)
	require.NoError(t, err)
	requestId := offered.PendingMint.RequestId

	require.NoError(t, svc.Accept(id, now.Add(time.Minute)))

	status, err = svc.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, Accepted, status.Tag)
	assert.Equal(t, uint64(900), status.Discounted)

	q, err := svc.store.Get(id)
	require.NoError(t, err)
	assert.Nil(t, q.PendingMint)

	record, err := keysvc.Keyset(status.KeysetId)
	require.NoError(t, err)
	assert.True(t, record.Active, "accepted quote's keyset must be active")

	sigs := treasury.signaturesFor(requestId)
	assert.Equal(t, uint64(900), sigs.Amount())
}

func TestOfferExpiryFailsAccept(t *testing.T) {
	svc, _, _ := newTestQuoteService(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bill := testBill(500, now.Add(30*24*time.Hour))

	id, _ := enquireTestQuote(t, svc, bill, now)

	ttl := now.Add(time.Second)
	require.NoError(t, svc.Offer(id, 400, ttl, now))

	err := svc.Accept(id, now.Add(2*time.Second))
	assert.ErrorIs(t, err, wcerr.QuoteAlreadyResolved)

	status, err := svc.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, OfferExpired, status.Tag)
}

func TestExpireSweepTransitionsPastTTL(t *testing.T) {
	svc, _, _ := newTestQuoteService(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bill := testBill(200, now.Add(10*24*time.Hour))

	id, _ := enquireTestQuote(t, svc, bill, now)
	require.NoError(t, svc.Offer(id, 150, now.Add(time.Second), now))

	swept, err := svc.ExpireSweep(now.Add(5 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	status, err := svc.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, OfferExpired, status.Tag)
}

func TestIllegalTransitionsFailAlreadyResolved(t *testing.T) {
	svc, _, _ := newTestQuoteService(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bill := testBill(100, now.Add(10*24*time.Hour))

	id, _ := enquireTestQuote(t, svc, bill, now)
	require.NoError(t, svc.Cancel(id, now))

	assert.ErrorIs(t, svc.Cancel(id, now), wcerr.QuoteAlreadyResolved)
	assert.ErrorIs(t, svc.Deny(id, now), wcerr.QuoteAlreadyResolved)
	assert.ErrorIs(t, svc.Offer(id, 50, now.Add(time.Hour), now), wcerr.QuoteAlreadyResolved)
	assert.ErrorIs(t, svc.Accept(id, now), wcerr.QuoteAlreadyResolved)
	assert.ErrorIs(t, svc.Reject(id, now), wcerr.QuoteAlreadyResolved)

	status, err := svc.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, Canceled, status.Tag)
}

func TestOfferRejectsDiscountAboveSum(t *testing.T) {
	svc, _, _ := newTestQuoteService(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bill := testBill(100, now.Add(10*24*time.Hour))

	id, _ := enquireTestQuote(t, svc, bill, now)
	err := svc.Offer(id, 150, now.Add(time.Hour), now)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, wcerr.QuoteAlreadyResolved)
}

func TestEnquireRejectsBadSignature(t *testing.T) {
	svc, _, _ := newTestQuoteService(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bill := testBill(100, now.Add(10*24*time.Hour))

	holderPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	otherPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	mintPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	sig, err := crypto.SchnorrSign(otherPriv, canonicalBillBytes(bill))
	require.NoError(t, err)

	_, err = svc.Enquire(bill, holderPriv.PubKey(), sig, mintPriv.PubKey(), now)
	assert.Error(t, err)
}
