package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/treasury"
)

type handler struct {
	svc *treasury.Service
}

type generateBlindsRequest struct {
	KeysetId string `json:"keyset_id"`
	Total    uint64 `json:"total"`
}

func (h *handler) generateBlinds(w http.ResponseWriter, r *http.Request) {
	var req generateBlindsRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	requestId, messages, err := h.svc.GenerateBlinds(req.KeysetId, req.Total)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": requestId,
		"outputs":    messages,
	})
}

type storeSignaturesRequest struct {
	RequestId  string                  `json:"request_id"`
	Expiration time.Time               `json:"expiration"`
	Signatures cashu.BlindedSignatures `json:"signatures"`
}

func (h *handler) storeSignatures(w http.ResponseWriter, r *http.Request) {
	var req storeSignaturesRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if err := h.svc.StoreSignatures(req.RequestId, req.Expiration, req.Signatures); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, nil)
}

type redeemRequest struct {
	KeysetId    string       `json:"keyset_id"`
	Inputs      cashu.Proofs `json:"inputs"`
	Destination string       `json:"destination"`
}

func (h *handler) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	txid, err := h.svc.Redeem(req.KeysetId, req.Inputs, req.Destination)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"txid": txid})
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	side := mux.Vars(r)["side"]
	balances, err := h.svc.Balances()
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	switch side {
	case "credit":
		httpapi.WriteJSON(w, http.StatusOK, map[string]uint64{"crsat_balance": balances.CrsatBalance})
	case "debit":
		httpapi.WriteJSON(w, http.StatusOK, map[string]uint64{"sat_balance": balances.SatBalance})
	default:
		httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, "side must be credit or debit"))
	}
}
