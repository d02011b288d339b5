package crypto

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// SchnorrSign signs the SHA-256 digest of msg under privKey (BIP-340),
// the same construction nut11/nut20 use to authorize P2PK spends and
// mint-quote requests.
func SchnorrSign(privKey *btcec.PrivateKey, msg []byte) (*schnorr.Signature, error) {
	hash := sha256.Sum256(msg)
	return schnorr.Sign(privKey, hash[:])
}

// SchnorrVerify checks a BIP-340 signature over the SHA-256 digest of msg.
func SchnorrVerify(sig *schnorr.Signature, msg []byte, pubKey *btcec.PublicKey) bool {
	hash := sha256.Sum256(msg)
	return sig.Verify(hash[:], pubKey)
}
