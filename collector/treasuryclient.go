package collector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wildcat-ecash/backoffice/internal/authclient"
)

// HTTPTreasuryClient calls treasuryservice's balance endpoints over
// plain JSON HTTP, the fan-in shape every internal collaborator in this
// rewrite uses in place of the generated gRPC client the teacher's
// manager/server.go talked to.
type HTTPTreasuryClient struct {
	baseURL string
	tokens  *authclient.TokenCache
	client  *http.Client
}

func NewHTTPTreasuryClient(baseURL string, tokens *authclient.TokenCache) *HTTPTreasuryClient {
	return &HTTPTreasuryClient{baseURL: baseURL, tokens: tokens, client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *HTTPTreasuryClient) getBalance(path, field string) (uint64, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	if err := c.tokens.AuthorizedRequest(req); err != nil {
		return 0, fmt.Errorf("authorizing treasury request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("treasury balance request to %s: status %d", path, resp.StatusCode)
	}
	var body map[string]uint64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding treasury balance response: %w", err)
	}
	return body[field], nil
}

func (c *HTTPTreasuryClient) CrsatBalance() (uint64, error) {
	return c.getBalance("/v1/balance/credit", "crsat_balance")
}

func (c *HTTPTreasuryClient) SatBalance() (uint64, error) {
	return c.getBalance("/v1/balance/debit", "sat_balance")
}
