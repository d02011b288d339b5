package nut11

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut10"
)

func TestIsSigAll(t *testing.T) {
	tests := []struct {
		secret   nut10.WellKnownSecret
		expected bool
	}{
		{secret: nut10.WellKnownSecret{Tags: [][]string{}}, expected: false},
		{secret: nut10.WellKnownSecret{Tags: [][]string{{"sigflag", "SIG_INPUTS"}}}, expected: false},
		{
			secret: nut10.WellKnownSecret{Tags: [][]string{
				{"locktime", "882912379"},
				{"refund", "refundkey"},
				{"sigflag", "SIG_ALL"},
			}},
			expected: true,
		},
	}

	for _, test := range tests {
		if result := IsSigAll(test.secret); result != test.expected {
			t.Fatalf("expected '%v' but got '%v' instead", test.expected, result)
		}
	}
}

func TestCanSign(t *testing.T) {
	privateKey, _ := btcec.NewPrivateKey()
	publicKey := hex.EncodeToString(privateKey.PubKey().SerializeCompressed())

	tests := []struct {
		secret   nut10.WellKnownSecret
		expected bool
	}{
		{secret: nut10.WellKnownSecret{Data: publicKey}, expected: true},
		{secret: nut10.WellKnownSecret{Data: "somerandomkey"}, expected: false},
		{secret: nut10.WellKnownSecret{Data: "sdjflksjdflsdjfd"}, expected: false},
	}

	for _, test := range tests {
		if result := CanSign(test.secret, privateKey); result != test.expected {
			t.Fatalf("expected '%v' but got '%v' instead", test.expected, result)
		}
	}
}
