// Package bdkwallet is a stand-in treasury.Wallet: it tracks a
// confirmed balance and records payouts in memory, the same role
// the teacher's Lightning fake backend plays for its own Client
// interface, in place of a real BDK on-chain wallet (out of scope).
package bdkwallet

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

type Payout struct {
	TxId        string
	Amount      uint64
	Destination string
}

type Wallet struct {
	mu      sync.Mutex
	balance uint64
	seq     uint64
	payouts []Payout
}

// New returns a stub wallet seeded with an initial confirmed balance.
func New(initialBalance uint64) *Wallet {
	return &Wallet{balance: initialBalance}
}

func (w *Wallet) ConfirmedBalance() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance, nil
}

// Payout debits the wallet's confirmed balance and returns a
// deterministic fake transaction id. A real implementation would
// broadcast an on-chain transaction via BDK; this one never touches a
// network.
func (w *Wallet) Payout(amount uint64, destination string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if amount > w.balance {
		return "", wcerr.New(wcerr.InvalidRequest, "insufficient wallet balance")
	}

	w.seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], w.seq)
	h := sha256.Sum256(append([]byte(destination), buf[:]...))
	txid := hex.EncodeToString(h[:])

	w.balance -= amount
	w.payouts = append(w.payouts, Payout{TxId: txid, Amount: amount, Destination: destination})

	return txid, nil
}

func (w *Wallet) Payouts() []Payout {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Payout, len(w.payouts))
	copy(out, w.payouts)
	return out
}

func (w *Wallet) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fmt.Sprintf("bdkwallet{balance=%d payouts=%d}", w.balance, len(w.payouts))
}
