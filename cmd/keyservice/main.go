// Command keyservice runs the KeyService HTTP surface: public key/keyset
// listing, NUT-09 restore, mint-authorization, and an admin surface for
// generating, activating, deactivating, signing and verifying keysets
// directly.
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
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	base, err := config.BaseFromEnv("keyservice", 8081)
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

	store, err := sqlstore.Open(base.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	svc, err := keys.NewService(store, master, nil, lf)
	if err != nil {
		log.Fatal(err)
	}

	h := &handler{svc: svc, store: store, log: lf}
	r := mux.NewRouter()

	r.HandleFunc("/v1/info", h.getInfo).Methods(http.MethodGet)
	r.HandleFunc("/v1/keys", h.getKeys).Methods(http.MethodGet)
	r.HandleFunc("/v1/keys/{kid}", h.getKeysByKeyset).Methods(http.MethodGet)
	r.HandleFunc("/v1/keysets", h.getKeysets).Methods(http.MethodGet)
	r.HandleFunc("/v1/keysets/{kid}", h.getKeyset).Methods(http.MethodGet)
	r.HandleFunc("/v1/restore", h.restore).Methods(http.MethodPost)
	r.HandleFunc("/v1/mint/ebill", h.mintEbill).Methods(http.MethodPost)

	admin := r.PathPrefix("/v1/admin/keys").Subrouter()
	admin.HandleFunc("/sign", h.adminSign).Methods(http.MethodPost)
	admin.HandleFunc("/verify", h.adminVerify).Methods(http.MethodPost)
	admin.HandleFunc("/activate", h.adminActivate).Methods(http.MethodPost)
	admin.HandleFunc("/deactivate", h.adminDeactivate).Methods(http.MethodPost)
	admin.HandleFunc("/generate", h.adminGenerate).Methods(http.MethodPost)
	admin.HandleFunc("/pre_sign", h.adminPreSign).Methods(http.MethodPost)
	admin.Use(authclient.RequireBearer)

	r.Use(httpapi.CORS)

	addr := fmt.Sprintf(":%d", base.Port)
	lf.Infof("keyservice listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func envOrEmpty(name string) string {
	v, _ := config.RequireEnv(name)
	return v
}
