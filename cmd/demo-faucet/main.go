// Command demo-faucet is a minimal stand-in for the market-maker/faucet
// collaborator spec §1 lists as external: it holds a toy balance and
// accepts ecash, nothing more. The real demo's auto-accept market logic
// (authorized-drawee checks, holder retention windows) is out of scope
// here; this binary exists only so the component inventory is
// structurally complete.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/internal/config"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

type faucet struct {
	mu      sync.Mutex
	balance uint64
	swapURL string
	client  *http.Client
	log     *obs.Logf
}

type acceptRequest struct {
	Proofs cashu.Proofs `json:"proofs"`
}

// accept burns the submitted proofs against SwapService and credits the
// faucet's toy balance by their face amount.
func (f *faucet) accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if len(req.Proofs) == 0 {
		httpapi.WriteError(w, wcerr.EmptyInputsOrOutputs)
		return
	}

	body, err := json.Marshal(map[string]any{"proofs": req.Proofs})
	if err != nil {
		httpapi.WriteError(w, wcerr.New(wcerr.Internal, err.Error()))
		return
	}
	resp, err := f.client.Post(f.swapURL+"/v1/burn", "application/json", bytes.NewReader(body))
	if err != nil {
		f.log.Errorf("burning accepted proofs: %v", err)
		httpapi.WriteError(w, wcerr.New(wcerr.Internal, "burning accepted proofs failed"))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		httpapi.WriteError(w, wcerr.New(wcerr.Internal, "swapservice rejected the burn"))
		return
	}

	f.mu.Lock()
	f.balance += req.Proofs.Amount()
	newBalance := f.balance
	f.mu.Unlock()

	httpapi.WriteJSON(w, http.StatusOK, map[string]uint64{"balance": newBalance})
}

func (f *faucet) getBalance(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	balance := f.balance
	f.mu.Unlock()
	httpapi.WriteJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	base, err := config.BaseFromEnv("demo-faucet", 8087)
	if err != nil {
		log.Fatal(err)
	}
	if err := config.EnsureStateDir(base.DBPath); err != nil {
		log.Fatal(err)
	}

	logLevel := obs.Info
	if base.LogLevel == "debug" {
		logLevel = obs.Debug
	}
	logger, err := obs.New(base.LogPath, logLevel)
	if err != nil {
		log.Fatal(err)
	}
	lf := &obs.Logf{Logger: logger}

	initialBalance, err := config.EnvUint("FAUCET_INITIAL_BALANCE", 0)
	if err != nil {
		log.Fatal(err)
	}

	f := &faucet{
		balance: initialBalance,
		swapURL: config.EnvString("SWAPSERVICE_URL", "http://localhost:8082"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     lf,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/balance", f.getBalance).Methods(http.MethodGet)
	r.HandleFunc("/v1/accept", f.accept).Methods(http.MethodPost)
	r.Use(httpapi.CORS)

	addr := fmt.Sprintf(":%d", base.Port)
	lf.Infof("demo-faucet listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
