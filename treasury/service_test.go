package treasury

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/keys"
	keystoremem "github.com/wildcat-ecash/backoffice/keystore/memstore"
	ledgermem "github.com/wildcat-ecash/backoffice/ledger/memstore"
	"github.com/wildcat-ecash/backoffice/swap"
	"github.com/wildcat-ecash/backoffice/treasury/bdkwallet"
	treasurymem "github.com/wildcat-ecash/backoffice/treasury/memstore"
)

func testMaster(t *testing.T) *hdkeychain.ExtendedKey {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)
	return master
}

func testLog(t *testing.T) *obs.Logf {
	t.Helper()
	log, err := obs.New(t.TempDir()+"/test.log", obs.Info)
	require.NoError(t, err)
	return &obs.Logf{Logger: log}
}

func newTestTreasury(t *testing.T, walletBalance uint64) (*Service, *keys.Service, string) {
	t.Helper()
	master := testMaster(t)

	keysvc, err := keys.NewService(keystoremem.New(), master, nil, testLog(t))
	require.NoError(t, err)

	swapSvc := swap.NewService(keysvc, ledgermem.New(), testLog(t))

	authPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	authPub := (*secp256k1.PublicKey)(authPriv.PubKey())

	keysetId, err := keysvc.Generate(uuid.New(), 1000, authPub, time.Time{})
	require.NoError(t, err)
	require.NoError(t, keysvc.Activate(keysetId))

	wallet := bdkwallet.New(walletBalance)
	treasurySvc := NewService(master, treasurymem.New(), keysvc, swapSvc, wallet, testLog(t))

	return treasurySvc, keysvc, keysetId
}

func TestGenerateBlindsAdvancesCounter(t *testing.T) {
	treasurySvc, _, keysetId := newTestTreasury(t, 0)

	_, messages, err := treasurySvc.GenerateBlinds(keysetId, 900)
	require.NoError(t, err)

	var total uint64
	for _, m := range messages {
		total += m.Amount
	}
	assert.Equal(t, uint64(900), total)

	counter, err := treasurySvc.store.Counter(keysetId)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(messages)), counter)

	// a second call starts from the advanced counter and never repeats
	// a blinded message.
	_, messages2, err := treasurySvc.GenerateBlinds(keysetId, 100)
	require.NoError(t, err)
	assert.NotEqual(t, messages[0].B_, messages2[0].B_)
}

// presignAll signs every blinded message against its (already active)
// keyset, the same call KeyService.SignBlind exposes to SwapService.
func presignAll(t *testing.T, keysvc *keys.Service, messages cashu.BlindedMessages) cashu.BlindedSignatures {
	t.Helper()
	sigs := make(cashu.BlindedSignatures, 0, len(messages))
	for _, msg := range messages {
		sig, err := keysvc.SignBlind(msg)
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}
	return sigs
}

func TestGenerateBlindsThenStoreSignaturesUpdatesBalances(t *testing.T) {
	treasurySvc, keysvc, keysetId := newTestTreasury(t, 0)

	requestId, messages, err := treasurySvc.GenerateBlinds(keysetId, 500)
	require.NoError(t, err)

	sigs := presignAll(t, keysvc, messages)
	require.NoError(t, treasurySvc.StoreSignatures(requestId, time.Now().Add(time.Hour), sigs))

	req, err := treasurySvc.store.GetRequest(requestId)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), req.Signatures.Amount())

	balances, err := treasurySvc.Balances()
	require.NoError(t, err)
	assert.Equal(t, uint64(500), balances.CrsatBalance)
	assert.Equal(t, uint64(0), balances.SatBalance)
}

func TestRedeemSwapsBurnsPaysOutAndDeactivates(t *testing.T) {
	treasurySvc, keysvc, keysetId := newTestTreasury(t, 10_000)

	requestId, messages, err := treasurySvc.GenerateBlinds(keysetId, 500)
	require.NoError(t, err)
	sigs := presignAll(t, keysvc, messages)
	require.NoError(t, treasurySvc.StoreSignatures(requestId, time.Now().Add(time.Hour), sigs))

	req, err := treasurySvc.store.GetRequest(requestId)
	require.NoError(t, err)

	proofs := unblindAll(t, keysvc, keysetId, req.Secrets, sigs)

	txid, err := treasurySvc.Redeem(keysetId, proofs, "bc1qexampledestination")
	require.NoError(t, err)
	assert.NotEmpty(t, txid)

	balance, err := treasurySvc.Balances()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance.CrsatBalance)
	assert.Equal(t, uint64(9_500), balance.SatBalance)

	rec, err := keysvc.Keyset(keysetId)
	require.NoError(t, err)
	assert.False(t, rec.Active)

	_, err = treasurySvc.Redeem(keysetId, proofs, "bc1qexampledestination")
	assert.Error(t, err, "replaying the same proofs must fail, they are already spent")
}

// unblindAll turns a set of issued signatures back into spendable
// proofs, the wallet-side counterpart of GenerateBlinds. It reuses the
// package's own unblindToProofs, the same unblinding Redeem itself
// performs on its treasury-controlled outputs.
func unblindAll(t *testing.T, keysvc *keys.Service, keysetId string, secrets []PreMintSecret, sigs cashu.BlindedSignatures) cashu.Proofs {
	t.Helper()
	proofs, err := unblindToProofs(keysvc, keysetId, secrets, sigs)
	require.NoError(t, err)
	return proofs
}
