// Command quoteservice runs the QuoteService HTTP surface: holder
// intake/accept/reject and operator offer/deny/cancel/list, plus the
// background expire_sweep ticker. It embeds KeyService and TreasuryCore
// in-process, the same collaborators an out-of-process deployment would
// reach over the network.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/internal/authclient"
	"github.com/wildcat-ecash/backoffice/internal/config"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/seed"
	"github.com/wildcat-ecash/backoffice/keys"
	"github.com/wildcat-ecash/backoffice/keystore/sqlstore"
	ledgersql "github.com/wildcat-ecash/backoffice/ledger/sqlstore"
	"github.com/wildcat-ecash/backoffice/quote"
	quotesql "github.com/wildcat-ecash/backoffice/quote/sqlstore"
	"github.com/wildcat-ecash/backoffice/swap"
	"github.com/wildcat-ecash/backoffice/treasury"
	"github.com/wildcat-ecash/backoffice/treasury/bdkwallet"
	treasurysql "github.com/wildcat-ecash/backoffice/treasury/sqlstore"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	base, err := config.BaseFromEnv("quoteservice", 8083)
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

	treasuryDB, err := treasurysql.Open(config.EnvString("TREASURY_DB_PATH", filepath.Join(stateDir, "treasury.db")))
	if err != nil {
		log.Fatal(err)
	}
	defer treasuryDB.Close()

	walletBalance, err := config.EnvUint("WALLET_INITIAL_BALANCE", 0)
	if err != nil {
		log.Fatal(err)
	}
	wallet := bdkwallet.New(walletBalance)
	treasurysvc := treasury.NewService(master, treasuryDB, keysvc, swapsvc, wallet, lf)

	quoteDB, err := quotesql.Open(base.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer quoteDB.Close()
	quotesvc := quote.NewService(quoteDB, keysvc, treasurysvc, lf)

	sweepSeconds, err := config.EnvSeconds("EXPIRE_SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go quotesvc.StartExpireSweep(ctx, time.Duration(sweepSeconds)*time.Second)

	h := &handler{svc: quotesvc}
	r := mux.NewRouter()
	r.HandleFunc("/v1/mint/credit/quote", h.enquire).Methods(http.MethodPost)
	r.HandleFunc("/v1/mint/credit/quote/{id}", h.lookup).Methods(http.MethodGet)
	r.HandleFunc("/v1/mint/credit/quote/{id}", h.holderResolve).Methods(http.MethodPost)

	admin := r.PathPrefix("/v1/admin/credit/quote").Subrouter()
	admin.HandleFunc("", h.list).Methods(http.MethodGet)
	admin.HandleFunc("/{id}", h.adminResolve).Methods(http.MethodPost)
	admin.Use(authclient.RequireBearer)

	r.Use(httpapi.CORS)

	addr := fmt.Sprintf(":%d", base.Port)
	lf.Infof("quoteservice listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
