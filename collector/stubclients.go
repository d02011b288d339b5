package collector

import "sync"

// StaticBalanceClient is a stand-in EBPPClient/EIOUClient: it reports a
// fixed balance, the same stub role bdkwallet.Wallet plays for
// TreasuryCore's on-chain settlement collaborator, in place of the real
// e-bill-payment-processor and e-iou services (out of core scope).
type StaticBalanceClient struct {
	mu      sync.Mutex
	balance uint64
}

func NewStaticBalanceClient(balance uint64) *StaticBalanceClient {
	return &StaticBalanceClient{balance: balance}
}

func (c *StaticBalanceClient) Balance() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance, nil
}

func (c *StaticBalanceClient) Set(balance uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = balance
}
