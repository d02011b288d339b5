// Command swapservice runs the SwapService HTTP surface: swap, burn,
// recover and NUT-07 checkstate.
package main

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/internal/config"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/seed"
	"github.com/wildcat-ecash/backoffice/keys"
	"github.com/wildcat-ecash/backoffice/keystore/sqlstore"
	ledgersql "github.com/wildcat-ecash/backoffice/ledger/sqlstore"
	"github.com/wildcat-ecash/backoffice/swap"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	base, err := config.BaseFromEnv("swapservice", 8082)
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

	master, err := seed.Load(envOrEmpty("MNEMONIC"), filepath.Join(filepath.Dir(base.DBPath), "seed.hex"))
	if err != nil {
		log.Fatal(err)
	}

	keystorePath := config.EnvString("KEYSTORE_DB_PATH", filepath.Join(filepath.Dir(base.DBPath), "keystore.db"))
	keystoreDB, err := sqlstore.Open(keystorePath)
	if err != nil {
		log.Fatal(err)
	}
	defer keystoreDB.Close()
	keysvc, err := keys.NewService(keystoreDB, master, nil, lf)
	if err != nil {
		log.Fatal(err)
	}

	ledgerDB, err := ledgersql.Open(base.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer ledgerDB.Close()

	svc := swap.NewService(keysvc, ledgerDB, lf)

	h := &handler{svc: svc}
	r := mux.NewRouter()
	r.HandleFunc("/v1/swap", h.swap).Methods(http.MethodPost)
	r.HandleFunc("/v1/checkstate", h.checkState).Methods(http.MethodPost)
	r.HandleFunc("/v1/burn", h.burn).Methods(http.MethodPost)
	r.HandleFunc("/v1/recover", h.recover).Methods(http.MethodPost)
	r.Use(httpapi.CORS)

	addr := fmt.Sprintf(":%d", base.Port)
	lf.Infof("swapservice listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func envOrEmpty(name string) string {
	v, _ := config.RequireEnv(name)
	return v
}
