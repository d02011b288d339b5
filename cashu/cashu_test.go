package cashu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountSplit(t *testing.T) {
	tests := []struct {
		amount   uint64
		expected []uint64
	}{
		{amount: 0, expected: []uint64{}},
		{amount: 1, expected: []uint64{1}},
		{amount: 1000, expected: []uint64{8, 32, 64, 128, 256, 512}},
		{amount: 63, expected: []uint64{1, 2, 4, 8, 16, 32}},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, AmountSplit(test.amount))
	}
}

func TestCheckDuplicateProofs(t *testing.T) {
	proofs := Proofs{
		{Amount: 1, Id: "00a", Secret: "s1", C: "c1"},
		{Amount: 2, Id: "00a", Secret: "s2", C: "c2"},
	}
	assert.False(t, CheckDuplicateProofs(proofs))

	proofs = append(proofs, proofs[0])
	assert.True(t, CheckDuplicateProofs(proofs))
}

func TestGenerateRandomId(t *testing.T) {
	id1, err := GenerateRandomId()
	assert.NoError(t, err)
	assert.Len(t, id1, 64)

	id2, err := GenerateRandomId()
	assert.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}
