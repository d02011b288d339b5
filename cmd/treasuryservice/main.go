// Command treasuryservice runs TreasuryCore's HTTP surface:
// generate_blinds/store_signatures for the credit side, redeem for the
// debit side, and the balance query both sides share.
package main

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/internal/authclient"
	"github.com/wildcat-ecash/backoffice/internal/config"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/seed"
	"github.com/wildcat-ecash/backoffice/keys"
	"github.com/wildcat-ecash/backoffice/keystore/sqlstore"
	ledgersql "github.com/wildcat-ecash/backoffice/ledger/sqlstore"
	"github.com/wildcat-ecash/backoffice/swap"
	"github.com/wildcat-ecash/backoffice/treasury"
	"github.com/wildcat-ecash/backoffice/treasury/bdkwallet"
	treasurysql "github.com/wildcat-ecash/backoffice/treasury/sqlstore"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	base, err := config.BaseFromEnv("treasuryservice", 8084)
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

	stateDir := filepath.Dir(base.DBPath)
	master, err := seed.Load(config.EnvString("MNEMONIC", ""), filepath.Join(stateDir, "seed.hex"))
	if err != nil {
		log.Fatal(err)
	}

	keystoreDB, err := sqlstore.Open(config.EnvString("KEYSTORE_DB_PATH", filepath.Join(stateDir, "keystore.db")))
	if err != nil {
		log.Fatal(err)
	}
	defer keystoreDB.Close()
	keysvc, err := keys.NewService(keystoreDB, master, nil, lf)
	if err != nil {
		log.Fatal(err)
	}

	ledgerDB, err := ledgersql.Open(config.EnvString("LEDGER_DB_PATH", filepath.Join(stateDir, "ledger.db")))
	if err != nil {
		log.Fatal(err)
	}
	defer ledgerDB.Close()
	swapsvc := swap.NewService(keysvc, ledgerDB, lf)

	treasuryDB, err := treasurysql.Open(base.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer treasuryDB.Close()

	walletBalance, err := config.EnvUint("WALLET_INITIAL_BALANCE", 0)
	if err != nil {
		log.Fatal(err)
	}
	wallet := bdkwallet.New(walletBalance)
	svc := treasury.NewService(master, treasuryDB, keysvc, swapsvc, wallet, lf)

	h := &handler{svc: svc}
	r := mux.NewRouter()

	admin := r.PathPrefix("/v1").Subrouter()
	admin.HandleFunc("/credit/generate_blinds", h.generateBlinds).Methods(http.MethodPost)
	admin.HandleFunc("/credit/store_signatures", h.storeSignatures).Methods(http.MethodPost)
	admin.HandleFunc("/debit/redeem", h.redeem).Methods(http.MethodPost)
	admin.HandleFunc("/balance/{side}", h.balance).Methods(http.MethodGet)
	admin.Use(authclient.RequireBearer)

	r.Use(httpapi.CORS)

	addr := fmt.Sprintf(":%d", base.Port)
	lf.Infof("treasuryservice listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
