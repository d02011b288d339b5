package memstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/keystore"
)

func TestSaveAndGetKeyset(t *testing.T) {
	store := New()
	rec := keystore.KeysetRecord{Id: "00aabbccddeeff00", Unit: "crsat", ValidFrom: time.Now()}

	assert.NoError(t, store.SaveKeyset(rec))
	assert.Error(t, store.SaveKeyset(rec))

	got, err := store.GetKeyset(rec.Id)
	assert.NoError(t, err)
	assert.Equal(t, rec.Id, got.Id)

	_, err = store.GetKeyset("unknown")
	assert.Error(t, err)
}

func TestUpdateKeysetActive(t *testing.T) {
	store := New()
	rec := keystore.KeysetRecord{Id: "00aabbccddeeff00", Unit: "crsat"}
	assert.NoError(t, store.SaveKeyset(rec))

	assert.NoError(t, store.UpdateKeysetActive(rec.Id, true))
	got, err := store.GetKeyset(rec.Id)
	assert.NoError(t, err)
	assert.True(t, got.Active)

	assert.Error(t, store.UpdateKeysetActive("unknown", true))
}

func TestMintCondition(t *testing.T) {
	store := New()
	rec := keystore.KeysetRecord{Id: "00aabbccddeeff00", Unit: "crsat"}
	assert.NoError(t, store.SaveKeyset(rec))

	cond := cashu.MintCondition{TargetAmount: 100, AuthorizedPubkey: "pk"}
	assert.NoError(t, store.SetMintCondition(rec.Id, cond))
	assert.NoError(t, store.MarkMinted(rec.Id))

	got, err := store.GetKeyset(rec.Id)
	assert.NoError(t, err)
	assert.True(t, got.Condition.Minted)
}

func TestSignatureRoundTrip(t *testing.T) {
	store := New()
	sig := cashu.BlindedSignature{Amount: 8, C_: "abcd", Id: "00aabbccddeeff00"}
	assert.NoError(t, store.SaveSignature("00aabbccddeeff00", "B_hex", sig))

	got, ok, err := store.GetSignature("B_hex")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sig, got)

	_, ok, err = store.GetSignature("nope")
	assert.NoError(t, err)
	assert.False(t, ok)
}
