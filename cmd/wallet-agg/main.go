// Command wallet-agg is the wallet-facing aggregator: it fans a single
// NUT-aligned HTTP surface out to the KeyService and SwapService
// binaries, the way the teacher's own mint presents one surface over
// several internal collaborators, plus a Token encode/decode
// convenience for bundling proofs into one portable string.
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/internal/config"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	base, err := config.BaseFromEnv("wallet-agg", 8086)
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

	keysURL := config.EnvString("KEYSERVICE_URL", "http://localhost:8081")
	swapURL := config.EnvString("SWAPSERVICE_URL", "http://localhost:8082")

	h := &handler{
		keysURL: keysURL,
		swapURL: swapURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     lf,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/info", h.proxyKeys).Methods(http.MethodGet)
	r.HandleFunc("/v1/keys", h.proxyKeys).Methods(http.MethodGet)
	r.HandleFunc("/v1/keys/{kid}", h.proxyKeys).Methods(http.MethodGet)
	r.HandleFunc("/v1/keysets", h.proxyKeys).Methods(http.MethodGet)
	r.HandleFunc("/v1/keysets/{kid}", h.proxyKeys).Methods(http.MethodGet)
	r.HandleFunc("/v1/restore", h.proxyKeys).Methods(http.MethodPost)
	r.HandleFunc("/v1/swap", h.proxySwap).Methods(http.MethodPost)
	r.HandleFunc("/v1/checkstate", h.proxySwap).Methods(http.MethodPost)
	r.HandleFunc("/v1/token/encode", h.tokenEncode).Methods(http.MethodPost)
	r.HandleFunc("/v1/token/decode", h.tokenDecode).Methods(http.MethodPost)
	r.Use(httpapi.CORS)

	addr := fmt.Sprintf(":%d", base.Port)
	lf.Infof("wallet-agg listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
