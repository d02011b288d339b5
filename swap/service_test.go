package swap

import (
	"encoding/hex"
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
	"github.com/wildcat-ecash/backoffice/crypto"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/keys"
	"github.com/wildcat-ecash/backoffice/keystore/memstore"
	"github.com/wildcat-ecash/backoffice/ledger"
	ledgermem "github.com/wildcat-ecash/backoffice/ledger/memstore"
)

func testLog(t *testing.T) *obs.Logf {
	t.Helper()
	logger, err := obs.New(t.TempDir()+"/test.log", obs.Info)
	require.NoError(t, err)
	return &obs.Logf{Logger: logger}
}

func testMaster(t *testing.T) *hdkeychain.ExtendedKey {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)
	return master
}

// activeKeysetCoveringAmounts builds one active keyset able to sign for
// every denomination appearing in amounts, and issues one spendable
// proof per requested amount by directly driving the blind/sign/unblind
// round trip (the wallet side of the protocol).
func activeKeysetCoveringAmounts(t *testing.T, keysvc *keys.Service, amounts []uint64) (string, cashu.Proofs) {
	t.Helper()

	authPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	authPub := (*secp256k1.PublicKey)(authPriv.PubKey())

	var total uint64
	for _, a := range amounts {
		total += a
	}

	quoteId := uuid.New()
	keysetId, err := keysvc.Generate(quoteId, total, authPub, time.Time{})
	require.NoError(t, err)
	require.NoError(t, keysvc.Activate(keysetId))

	proofs := make(cashu.Proofs, 0, len(amounts))
	for i, amount := range amounts {
		secret := uuid.NewString() + "-" + string(rune('a'+i))
		B_, r := crypto.BlindMessage([]byte(secret), nil)
		msg := cashu.NewBlindedMessage(keysetId, amount, B_)

		sig, err := keysvc.SignBlind(msg)
		require.NoError(t, err)

		rec, err := keysvc.Keyset(keysetId)
		require.NoError(t, err)
		K := rec.Keys[amount].PublicKey

		C_bytes, err := hex.DecodeString(sig.C_)
		require.NoError(t, err)
		C_, err := secp256k1.ParsePubKey(C_bytes)
		require.NoError(t, err)
		C := crypto.UnblindSignature(C_, r, K)

		proofs = append(proofs, cashu.Proof{
			Amount: amount,
			Id:     keysetId,
			Secret: secret,
			C:      hex.EncodeToString(C.SerializeCompressed()),
		})
	}
	return keysetId, proofs
}

func newSwapService(t *testing.T) (*Service, *keys.Service, ledger.Store) {
	t.Helper()
	keysvc, err := keys.NewService(memstore.New(), testMaster(t), nil, testLog(t))
	require.NoError(t, err)
	ledgerStore := ledgermem.New()
	return NewService(keysvc, ledgerStore, testLog(t)), keysvc, ledgerStore
}

func TestSwapConservationAndDoubleSpend(t *testing.T) {
	svc, keysvc, ledgerStore := newSwapService(t)

	keysetId, inputs := activeKeysetCoveringAmounts(t, keysvc, []uint64{2, 2, 4})

	outSecret := uuid.NewString()
	outB_, _ := crypto.BlindMessage([]byte(outSecret), nil)
	outputs := cashu.BlindedMessages{cashu.NewBlindedMessage(keysetId, 8, outB_)}

	sigs, err := svc.Swap(inputs, outputs)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, uint64(8), sigs.Amount())

	ys := make([]string, len(inputs))
	for i, p := range inputs {
		ys[i] = proofY(p)
	}
	spent, err := ledgerStore.Contains(ys)
	require.NoError(t, err)
	for _, y := range ys {
		assert.True(t, spent[y], "input Y must be marked spent after a successful swap")
	}

	// repeating the exact same swap must fail outright, and the second
	// output request must not get signed
	_, err = svc.Swap(inputs, outputs)
	require.Error(t, err)
	assert.ErrorIs(t, err, wcerr.ProofsAlreadySpent)
}

func TestSwapRejectsAmountMismatch(t *testing.T) {
	svc, keysvc, _ := newSwapService(t)
	_, inputs := activeKeysetCoveringAmounts(t, keysvc, []uint64{2, 2, 4})

	outSecret := uuid.NewString()
	outB_, _ := crypto.BlindMessage([]byte(outSecret), nil)
	keysetId := inputs[0].Id
	outputs := cashu.BlindedMessages{cashu.NewBlindedMessage(keysetId, 4, outB_)}

	_, err := svc.Swap(inputs, outputs)
	assert.ErrorIs(t, err, wcerr.UnmatchingAmount)
}

func TestSwapRejectsEmpty(t *testing.T) {
	svc, _, _ := newSwapService(t)
	_, err := svc.Swap(nil, cashu.BlindedMessages{})
	assert.ErrorIs(t, err, wcerr.EmptyInputsOrOutputs)
}

func TestCheckState(t *testing.T) {
	svc, keysvc, _ := newSwapService(t)
	keysetId, inputs := activeKeysetCoveringAmounts(t, keysvc, []uint64{4})

	outSecret := uuid.NewString()
	outB_, _ := crypto.BlindMessage([]byte(outSecret), nil)
	outputs := cashu.BlindedMessages{cashu.NewBlindedMessage(keysetId, 4, outB_)}

	y := proofY(inputs[0])
	states, err := svc.CheckState([]string{y})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, y, states[0].Y)

	_, err = svc.Swap(inputs, outputs)
	require.NoError(t, err)

	states, err = svc.CheckState([]string{y})
	require.NoError(t, err)
	assert.Equal(t, y, states[0].Y)
}
