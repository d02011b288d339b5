package crypto

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestDLEQRoundTrip(t *testing.T) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	A := k.PubKey()

	secret := []byte("a discounted bill of exchange")
	B_, _ := BlindMessage(secret, nil)
	C_ := SignBlindedMessage(B_, k)

	e, s, err := GenerateDLEQ(k, A, B_, C_)
	if err != nil {
		t.Fatal(err)
	}

	if !VerifyDLEQ(e, s, A, B_, C_) {
		t.Fatal("expected DLEQ proof to verify")
	}

	otherKey, _ := secp256k1.GeneratePrivateKey()
	if VerifyDLEQ(e, s, otherKey.PubKey(), B_, C_) {
		t.Fatal("expected DLEQ proof to fail against the wrong public key")
	}
}
