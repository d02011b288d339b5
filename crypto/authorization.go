package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/wildcat-ecash/backoffice/cashu"
)

// SignMintAuthorization signs the canonical encoding of a keyset id and
// the hex B_ of every requested blinded message, the same message shape
// nut20 signs for mint-quote requests: whoever holds the bill's
// authorized private key proves it without the mint ever seeing that
// key, and the signature can't be replayed against a different keyset
// or output set.
func SignMintAuthorization(
	privateKey *btcec.PrivateKey,
	keysetId string,
	outputs cashu.BlindedMessages,
) (*schnorr.Signature, error) {
	return SchnorrSign(privateKey, mintAuthorizationMessage(keysetId, outputs))
}

func VerifyMintAuthorization(
	sig *schnorr.Signature,
	keysetId string,
	outputs cashu.BlindedMessages,
	publicKey *btcec.PublicKey,
) bool {
	return SchnorrVerify(sig, mintAuthorizationMessage(keysetId, outputs), publicKey)
}

type mintAuthorization struct {
	keysetId string
	outputs  cashu.BlindedMessages
}

func (m mintAuthorization) CanonicalFields() []CanonicalValue {
	bs := make([]string, len(m.outputs))
	for i, output := range m.outputs {
		bs[i] = output.B_
	}
	return []CanonicalValue{
		CanonicalString(m.keysetId),
		CanonicalStrings(bs),
	}
}

func mintAuthorizationMessage(keysetId string, outputs cashu.BlindedMessages) []byte {
	return CanonicalEncode(mintAuthorization{keysetId: keysetId, outputs: outputs})
}
