// Command balance-collector samples treasury/ebpp/eiou balances on a
// configured cadence, rounding wall-clock to the cadence boundary, and
// serves the resulting OHLC candle history.
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/wildcat-ecash/backoffice/collector"
	"github.com/wildcat-ecash/backoffice/internal/authclient"
	"github.com/wildcat-ecash/backoffice/internal/config"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	base, err := config.BaseFromEnv("balance-collector", 8085)
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

	cadenceMinutes, err := config.EnvSeconds("BALANCE_COLLECTOR_CADENCE_MINUTES", 5)
	if err != nil {
		log.Fatal(err)
	}

	treasuryURL := config.EnvString("TREASURY_SERVICE_URL", "http://localhost:8084")
	tokenURL := config.EnvString("OAUTH_TOKEN_URL", "http://localhost:8080/oauth/token")
	clientID := config.EnvString("OAUTH_CLIENT_ID", "")
	clientSecret := config.EnvString("OAUTH_CLIENT_SECRET", "")
	username := config.EnvString("OAUTH_USERNAME", "")
	password := config.EnvString("OAUTH_PASSWORD", "")
	tokens := authclient.NewTokenCache(tokenURL, clientID, clientSecret, username, password)
	treasury := collector.NewHTTPTreasuryClient(treasuryURL, tokens)

	ebppBalance, err := config.EnvUint("EBPP_STATIC_BALANCE", 0)
	if err != nil {
		log.Fatal(err)
	}
	eiouBalance, err := config.EnvUint("EIOU_STATIC_BALANCE", 0)
	if err != nil {
		log.Fatal(err)
	}
	ebpp := collector.NewStaticBalanceClient(ebppBalance)
	eiou := collector.NewStaticBalanceClient(eiouBalance)

	repo := collector.NewMemRepository()
	svc := collector.NewService(treasury, ebpp, eiou, repo, lf)

	// A seconds-resolution cron expression of "0 */N * * * *" fires
	// exactly at minute boundaries divisible by N (:00, :05, :10, ... for
	// N=5), which is the wall-clock-to-cadence-boundary rounding the
	// sampling cadence calls for.
	schedule := fmt.Sprintf("0 */%d * * * *", cadenceMinutes)
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(schedule, func() {
		svc.CollectAll(time.Now())
	}); err != nil {
		log.Fatal(err)
	}
	c.Start()
	defer c.Stop()

	h := &handler{svc: svc}
	r := mux.NewRouter()
	r.HandleFunc("/v1/chart/crsat", h.crsatChart).Methods(http.MethodGet)
	r.HandleFunc("/v1/chart/sat", h.satChart).Methods(http.MethodGet)
	r.HandleFunc("/v1/chart/onchain", h.onchainChart).Methods(http.MethodGet)
	r.HandleFunc("/v1/chart/eiou", h.eiouChart).Methods(http.MethodGet)
	r.Use(httpapi.CORS)

	addr := fmt.Sprintf(":%d", base.Port)
	lf.Infof("balance-collector listening on %s, sampling every %d minutes", addr, cadenceMinutes)
	log.Fatal(http.ListenAndServe(addr, r))
}
