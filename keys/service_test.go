package keys

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
	"github.com/wildcat-ecash/backoffice/keystore/memstore"
)

func testMaster(t *testing.T) *hdkeychain.ExtendedKey {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)
	return master
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	log, err := obs.New(t.TempDir()+"/test.log", obs.Info)
	require.NoError(t, err)
	svc, err := NewService(memstore.New(), testMaster(t), nil, &obs.Logf{Logger: log})
	require.NoError(t, err)
	return svc
}

func TestGenerateActivateLifecycle(t *testing.T) {
	svc := newTestService(t)

	authPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	authPub := (*secp256k1.PublicKey)(authPriv.PubKey())

	quoteId := uuid.New()
	keysetId, err := svc.Generate(quoteId, 1000, authPub, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, keysetId, 16)

	_, err = svc.Generate(quoteId, 1000, authPub, time.Now())
	assert.Error(t, err, "regenerating the same quote's keyset must fail")

	require.NoError(t, svc.Activate(keysetId))
	_, cached := svc.cached(keysetId)
	assert.True(t, cached)

	require.NoError(t, svc.Deactivate(keysetId))
	_, cached = svc.cached(keysetId)
	assert.False(t, cached)
}

func TestPreSignAndVerifyProof(t *testing.T) {
	svc := newTestService(t)

	authPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	authPub := (*secp256k1.PublicKey)(authPriv.PubKey())

	quoteId := uuid.New()
	keysetId, err := svc.Generate(quoteId, 8, authPub, time.Time{})
	require.NoError(t, err)

	B_, r := crypto.BlindMessage([]byte("my-secret"), nil)
	msg := cashu.NewBlindedMessage(keysetId, 8, B_)

	sig, err := svc.PreSign(quoteId, msg)
	require.NoError(t, err)
	assert.Equal(t, keysetId, sig.Id)

	// rejects a bad denomination
	badMsg := cashu.NewBlindedMessage(keysetId, 3, B_)
	_, err = svc.PreSign(quoteId, badMsg)
	assert.Error(t, err)

	C_bytes, err := hex.DecodeString(sig.C_)
	require.NoError(t, err)
	C_, err := secp256k1.ParsePubKey(C_bytes)
	require.NoError(t, err)
	rec, err := svc.store.GetKeyset(keysetId)
	require.NoError(t, err)
	K := rec.Keys[8].PublicKey
	C := crypto.UnblindSignature(C_, r, K)

	proof := cashu.Proof{Amount: 8, Id: keysetId, Secret: "my-secret", C: hex.EncodeToString(C.SerializeCompressed())}
	assert.NoError(t, svc.VerifyProof(proof))

	proof.Secret = "wrong-secret"
	assert.Error(t, svc.VerifyProof(proof))
}

func TestSignBlindRequiresActive(t *testing.T) {
	svc := newTestService(t)

	authPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	authPub := (*secp256k1.PublicKey)(authPriv.PubKey())

	quoteId := uuid.New()
	keysetId, err := svc.Generate(quoteId, 8, authPub, time.Time{})
	require.NoError(t, err)

	B_, _ := crypto.BlindMessage([]byte("secret"), nil)
	msg := cashu.NewBlindedMessage(keysetId, 8, B_)

	_, err = svc.SignBlind(msg)
	assert.ErrorIs(t, err, wcerr.InactiveKeyset)

	require.NoError(t, svc.Activate(keysetId))
	_, err = svc.SignBlind(msg)
	assert.NoError(t, err)
}

func TestRestoreOmitsUnknown(t *testing.T) {
	svc := newTestService(t)
	authPriv, _ := btcec.NewPrivateKey()
	authPub := (*secp256k1.PublicKey)(authPriv.PubKey())

	quoteId := uuid.New()
	keysetId, err := svc.Generate(quoteId, 8, authPub, time.Time{})
	require.NoError(t, err)

	B_, _ := crypto.BlindMessage([]byte("secret"), nil)
	known := cashu.NewBlindedMessage(keysetId, 8, B_)
	_, err = svc.PreSign(quoteId, known)
	require.NoError(t, err)

	unknownB_, _ := crypto.BlindMessage([]byte("other"), nil)
	unknown := cashu.NewBlindedMessage(keysetId, 8, unknownB_)

	entries, err := svc.Restore(cashu.BlindedMessages{known, unknown})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, known.B_, entries[0].Message.B_)
}

