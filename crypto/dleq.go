package crypto

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// GenerateDLEQ produces a non-interactive discrete-log-equality proof
// binding a blind signature C_ = kB_ to the keyset's public key
// A = kG, so a holder can verify the signature came from that specific
// keyset without the mint revealing k.
func GenerateDLEQ(k *secp256k1.PrivateKey, A, B_, C_ *secp256k1.PublicKey) (e, s *secp256k1.PrivateKey, err error) {
	pBytes := make([]byte, 32)
	if _, err := rand.Read(pBytes); err != nil {
		return nil, nil, err
	}
	p := secp256k1.PrivKeyFromBytes(pBytes)

	R1 := scalarMultBase(&p.Key)
	R2 := scalarMult(&p.Key, B_)

	eScalar := dleqChallenge(R1, R2, A, C_)
	eBytes := eScalar.Bytes()
	eKey := secp256k1.PrivKeyFromBytes(eBytes[:])

	var sScalar secp256k1.ModNScalar
	sScalar.Mul2(&eKey.Key, &k.Key).Add(&p.Key)
	sKey := secp256k1.NewPrivateKey(&sScalar)

	return eKey, sKey, nil
}

// VerifyDLEQ checks a proof (e, s) against public points A = kG, and the
// blinded message/signature pair (B_, C_) = (B_, kB_).
func VerifyDLEQ(e, s *secp256k1.PrivateKey, A, B_, C_ *secp256k1.PublicKey) bool {
	// R1 = sG - eA
	sG := scalarMultBase(&s.Key)
	eA := scalarMult(&e.Key, A)
	R1 := pointSub(sG, eA)

	// R2 = sB_ - eC_
	sB_ := scalarMult(&s.Key, B_)
	eC_ := scalarMult(&e.Key, C_)
	R2 := pointSub(sB_, eC_)

	expected := dleqChallenge(R1, R2, A, C_)
	var actual secp256k1.ModNScalar
	actual.SetByteSlice(e.Serialize())

	return expected.Equals(&actual)
}

// VerifyProofDLEQ verifies the DLEQ proof an unblinded proof carries by
// reconstructing the blinded pair (B_, C_) the mint originally signed
// from the proof's revealed blinding factor r: B_ = Y + rG,
// C_ = C + rA.
func VerifyProofDLEQ(secret []byte, r *secp256k1.PrivateKey, C, A *secp256k1.PublicKey, e, s *secp256k1.PrivateKey) bool {
	Y := HashToCurve(secret)
	rG := scalarMultBase(&r.Key)
	B_ := pointAdd(Y, rG)

	rA := scalarMult(&r.Key, A)
	C_ := pointAdd(C, rA)

	return VerifyDLEQ(e, s, A, B_, C_)
}

func pointAdd(a, b *secp256k1.PublicKey) *secp256k1.PublicKey {
	var ap, bp, result secp256k1.JacobianPoint
	a.AsJacobian(&ap)
	b.AsJacobian(&bp)
	secp256k1.AddNonConst(&ap, &bp, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

func dleqChallenge(R1, R2, A, C_ *secp256k1.PublicKey) secp256k1.ModNScalar {
	h := sha256.New()
	h.Write(R1.SerializeCompressed())
	h.Write(R2.SerializeCompressed())
	h.Write(A.SerializeCompressed())
	h.Write(C_.SerializeCompressed())
	digest := h.Sum(nil)

	var scalar secp256k1.ModNScalar
	scalar.SetByteSlice(digest)
	return scalar
}

func scalarMultBase(k *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

func scalarMult(k *secp256k1.ModNScalar, point *secp256k1.PublicKey) *secp256k1.PublicKey {
	var p, result secp256k1.JacobianPoint
	point.AsJacobian(&p)
	secp256k1.ScalarMultNonConst(k, &p, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

func pointSub(a, b *secp256k1.PublicKey) *secp256k1.PublicKey {
	var ap, bp, bNeg, result secp256k1.JacobianPoint
	a.AsJacobian(&ap)
	b.AsJacobian(&bp)

	bNeg = bp
	bNeg.Y.Negate(1)
	bNeg.Y.Normalize()

	secp256k1.AddNonConst(&ap, &bNeg, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}
