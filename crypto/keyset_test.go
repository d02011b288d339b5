package crypto

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"
	"github.com/tyler-smith/go-bip39"
)

// TestGenerateKeysetFingerprint reproduces the reference keyset
// derivation for the all-zero quote id: the mnemonic
// "abandon ... about" with an empty base path derives amount-1's key
// at m/0/0/0/0/0 and amount-32's key at m/0/0/0/0/5.
func TestGenerateKeysetFingerprint(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed := bip39.NewSeed(mnemonic, "")

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("deriving master key: %v", err)
	}

	maturity := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	keyset, err := GenerateKeyset(master, nil, uuid.Nil, maturity)
	if err != nil {
		t.Fatalf("generating keyset: %v", err)
	}
	if keyset.FinalExpiry == nil || !keyset.FinalExpiry.Equal(maturity) {
		t.Errorf("expected final expiry %v, got %v", maturity, keyset.FinalExpiry)
	}

	want1 := "027668145a12f96edab70d9c68b18440fe07e197355be727a8be9e1f09fb2953d4"
	got1 := hex.EncodeToString(keyset.Keys[1].PublicKey.SerializeCompressed())
	if got1 != want1 {
		t.Errorf("amount 1: expected %q, got %q", want1, got1)
	}

	want32 := "02c5bb7222ca5dd5251fee6bd753fa36210989a4f2174769df9ae6bc16a0f22562"
	got32 := hex.EncodeToString(keyset.Keys[32].PublicKey.SerializeCompressed())
	if got32 != want32 {
		t.Errorf("amount 32: expected %q, got %q", want32, got32)
	}
}

func TestDeriveKeysetIdStable(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("deriving master key: %v", err)
	}

	first, err := GenerateKeyset(master, nil, uuid.Nil, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := GenerateKeyset(master, nil, uuid.Nil, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Id != second.Id {
		t.Errorf("expected deterministic keyset id, got %q and %q", first.Id, second.Id)
	}
	if len(first.Id) != 16 {
		t.Errorf("expected a 16 hex-char (1 version byte + 7 bytes) keyset id, got %q", first.Id)
	}
}
