package main

import (
	"net/http"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/swap"
)

type handler struct {
	svc *swap.Service
}

type swapRequest struct {
	Inputs  cashu.Proofs          `json:"inputs"`
	Outputs cashu.BlindedMessages `json:"outputs"`
}

func (h *handler) swap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	sigs, err := h.svc.Swap(req.Inputs, req.Outputs)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"signatures": sigs})
}

type checkStateRequest struct {
	Ys []string `json:"Ys"`
}

func (h *handler) checkState(w http.ResponseWriter, r *http.Request) {
	var req checkStateRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	states, err := h.svc.CheckState(req.Ys)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"states": states})
}

type proofsRequest struct {
	Proofs cashu.Proofs `json:"proofs"`
}

func (h *handler) burn(w http.ResponseWriter, r *http.Request) {
	var req proofsRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	ys, err := h.svc.Burn(req.Proofs)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"Ys": ys})
}

func (h *handler) recover(w http.ResponseWriter, r *http.Request) {
	var req proofsRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if err := h.svc.Recover(req.Proofs); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, nil)
}
