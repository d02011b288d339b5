package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/ledger"
)

func TestInsertIfAbsentAllOrNothing(t *testing.T) {
	store := New()
	entries := []ledger.SpentProofEntry{
		{Y: "y1", Proof: cashu.Proof{Amount: 2}},
		{Y: "y2", Proof: cashu.Proof{Amount: 4}},
	}
	assert.NoError(t, store.InsertIfAbsent(entries))

	states, err := store.Contains([]string{"y1", "y2", "y3"})
	assert.NoError(t, err)
	assert.True(t, states["y1"])
	assert.True(t, states["y2"])
	assert.False(t, states["y3"])

	// re-inserting a batch that collides on y1 must fail and must not
	// partially apply y3.
	err = store.InsertIfAbsent([]ledger.SpentProofEntry{
		{Y: "y1", Proof: cashu.Proof{Amount: 2}},
		{Y: "y3", Proof: cashu.Proof{Amount: 8}},
	})
	assert.ErrorIs(t, err, wcerr.ProofsAlreadySpent)

	states, err = store.Contains([]string{"y3"})
	assert.NoError(t, err)
	assert.False(t, states["y3"])
}

func TestRemove(t *testing.T) {
	store := New()
	assert.NoError(t, store.InsertIfAbsent([]ledger.SpentProofEntry{{Y: "y1"}}))
	assert.NoError(t, store.Remove([]string{"y1"}))

	states, err := store.Contains([]string{"y1"})
	assert.NoError(t, err)
	assert.False(t, states["y1"])
}
