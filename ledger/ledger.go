// Package ledger is the double-spend-prevention store: the set of
// spent proof fingerprints (Y = hash_to_curve(secret)). It is the one
// store in this repo with a strict linearizable contract — insertion
// is all-or-nothing over a batch, and the store's own uniqueness
// constraint on Y is the linearization point.
package ledger

import "github.com/wildcat-ecash/backoffice/cashu"

// SpentProofEntry is a single retired proof, keyed by its Y fingerprint.
type SpentProofEntry struct {
	Y     string
	Proof cashu.Proof
}

// Store is the ProofLedger persistence collaborator.
type Store interface {
	// InsertIfAbsent inserts every entry or none: if any Y already
	// exists, nothing is inserted and wcerr.ProofsAlreadySpent is
	// returned.
	InsertIfAbsent(entries []SpentProofEntry) error
	// Contains reports, for each requested Y, whether it is spent.
	Contains(ys []string) (map[string]bool, error)
	// Remove is the administrative inverse of InsertIfAbsent (recover).
	Remove(ys []string) error

	Close() error
}
