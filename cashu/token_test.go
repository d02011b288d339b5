package cashu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	proofs := Proofs{
		{Amount: 4, Id: "00a", Secret: "s1", C: "c1"},
		{Amount: 8, Id: "00a", Secret: "s2", C: "c2"},
		{Amount: 16, Id: "00b", Secret: "s3", C: "c3"},
	}

	tok, err := NewToken(proofs, "http://localhost:8084", CrSat)
	require.NoError(t, err)
	assert.Equal(t, uint64(28), tok.Amount())
	assert.Len(t, tok.TokenProofs, 2)

	serialized, err := tok.Serialize()
	require.NoError(t, err)
	assert.Contains(t, serialized, tokenPrefix)

	decoded, err := DecodeToken(serialized)
	require.NoError(t, err)
	assert.Equal(t, tok.ServiceURL, decoded.ServiceURL)
	assert.Equal(t, tok.Unit, decoded.Unit)
	assert.ElementsMatch(t, proofs, decoded.Proofs())
}

func TestNewTokenRejectsEmptyProofs(t *testing.T) {
	_, err := NewToken(nil, "http://localhost:8084", CrSat)
	assert.Error(t, err)
}

func TestDecodeTokenRejectsWrongPrefix(t *testing.T) {
	_, err := DecodeToken("cashuBdeadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
